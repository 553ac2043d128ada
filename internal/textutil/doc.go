// Package textutil sanitizes rendered field values for safe filesystem use.
//
// Directory segments and filenames built from record fields can contain path
// separators, reserved characters, control characters or decomposed Unicode.
// SanitizeFileName strips or replaces those; SanitizeSegment additionally
// guarantees a non-empty result so a directory level is never collapsed.
package textutil
