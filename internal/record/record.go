package record

import (
	"errors"
	"io"
)

var (
	// ErrNotARecord marks files the parser does not recognize. Sorting skips them.
	ErrNotARecord = errors.New("not a record")
	// ErrFieldAbsent is returned by Record.Get for fields the record does not carry.
	ErrFieldAbsent = errors.New("field absent")
	// ErrUnsupportedField is returned by Record.Set when the record has no such field.
	ErrUnsupportedField = errors.New("unsupported field")
)

// Record is a parsed medical image file: named metadata fields plus payload.
type Record interface {
	// Filename returns the path the record was parsed from.
	Filename() string
	// Get returns the raw value of a field. Missing fields return an error
	// wrapping ErrFieldAbsent.
	Get(name string) (any, error)
	// FieldNames lists every field keyword present in the record.
	FieldNames() []string
	// Set stages a replacement value for an existing field. The write is
	// applied when the record is encoded.
	Set(name string, value string) error
	// Encode serializes the full record, staged writes included.
	Encode(w io.Writer) error
}

// Parser probes files and decodes the ones it recognizes.
type Parser interface {
	// TryParse returns an error wrapping ErrNotARecord for files that are not
	// records. Other errors mean the file looked like a record but could not
	// be read.
	TryParse(path string) (Record, error)
}
