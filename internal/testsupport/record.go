package testsupport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"sort"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"dicomsort/internal/record"
)

// RecordMagic prefixes every fixture written by WriteRecord.
var RecordMagic = []byte("DICMJSON\n")

// MemRecord is an in-memory record backed by a field map.
type MemRecord struct {
	path   string
	fields map[string]any
	writes map[string]string
}

// NewRecord builds a record for path from the supplied fields.
func NewRecord(path string, fields map[string]any) *MemRecord {
	return &MemRecord{path: path, fields: maps.Clone(fields), writes: map[string]string{}}
}

func (r *MemRecord) Filename() string { return r.path }

func (r *MemRecord) Get(name string) (any, error) {
	v, ok := r.fields[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", record.ErrFieldAbsent, name)
	}
	return v, nil
}

func (r *MemRecord) FieldNames() []string {
	names := make([]string, 0, len(r.fields))
	for name := range r.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *MemRecord) Set(name string, value string) error {
	if _, ok := r.fields[name]; !ok {
		return fmt.Errorf("%w: %s", record.ErrUnsupportedField, name)
	}
	r.writes[name] = value
	return nil
}

// Writes returns the staged field writes.
func (r *MemRecord) Writes() map[string]string {
	return maps.Clone(r.writes)
}

func (r *MemRecord) Encode(w io.Writer) error {
	out := maps.Clone(r.fields)
	for name, value := range r.writes {
		out[name] = value
	}
	data, err := json.Marshal(out)
	if err != nil {
		return err
	}
	if _, err := w.Write(RecordMagic); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// JSONParser recognizes fixtures written by WriteRecord on a billy filesystem.
type JSONParser struct {
	FS billy.Filesystem
}

func (p JSONParser) TryParse(path string) (record.Record, error) {
	data, err := util.ReadFile(p.FS, path)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(data, RecordMagic) {
		return nil, fmt.Errorf("%w: %s", record.ErrNotARecord, path)
	}
	var fields map[string]any
	if err := json.Unmarshal(data[len(RecordMagic):], &fields); err != nil {
		return nil, fmt.Errorf("decode fixture %s: %w", path, err)
	}
	for name, v := range fields {
		if list, ok := v.([]any); ok {
			strs := make([]string, 0, len(list))
			for _, item := range list {
				strs = append(strs, fmt.Sprint(item))
			}
			fields[name] = strs
		}
	}
	return NewRecord(path, fields), nil
}

// WriteRecord writes a parseable fixture at path.
func WriteRecord(t testing.TB, fs billy.Filesystem, path string, fields map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if err := NewRecord(path, fields).Encode(&buf); err != nil {
		t.Fatalf("encode fixture %s: %v", path, err)
	}
	WriteBytes(t, fs, path, buf.Bytes())
}

// WriteBytes writes raw content at path, creating parent directories.
func WriteBytes(t testing.TB, fs billy.Filesystem, path string, data []byte) {
	t.Helper()

	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := util.WriteFile(fs, path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ReadRecord parses a fixture back, failing the test if it is not one.
func ReadRecord(t testing.TB, fs billy.Filesystem, path string) *MemRecord {
	t.Helper()

	rec, err := JSONParser{FS: fs}.TryParse(path)
	if err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return rec.(*MemRecord)
}

// Exists reports whether path exists on fs.
func Exists(fs billy.Filesystem, path string) bool {
	_, err := fs.Stat(path)
	return err == nil
}
