// Package template renders directory and filename templates from record
// fields.
//
// Tokens use printf-style directives bound to field names, for example
// "%(PatientName)s" or "%(InstanceNumber)04d". "%%" is a literal percent.
// Render repeats substitution while tokens remain so an override value can
// itself reference other fields, up to a fixed number of passes. Segment and
// Filename add filesystem sanitization on top of Render.
package template
