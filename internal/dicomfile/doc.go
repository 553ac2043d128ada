// Package dicomfile adapts DICOM Part 10 files to the record interfaces used
// by the sorter.
//
// Parsing skips pixel data so that field lookups stay cheap; Encode re-reads
// the full file, applies staged writes and serializes the complete dataset.
package dicomfile
