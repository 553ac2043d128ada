package dicomfile

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"dicomsort/internal/record"
)

const fileMetaGroup = 0x0002

// File is one parsed DICOM dataset. Staged writes live beside the dataset and
// are only applied by Encode.
type File struct {
	fs      billy.Filesystem
	path    string
	dataset dicom.Dataset
	byName  map[string]*dicom.Element
	writes  map[string]string
}

func newFile(fs billy.Filesystem, path string, ds dicom.Dataset) *File {
	f := &File{
		fs:      fs,
		path:    path,
		dataset: ds,
		byName:  make(map[string]*dicom.Element, len(ds.Elements)),
		writes:  map[string]string{},
	}
	for _, elem := range ds.Elements {
		if elem == nil || elem.Tag.Group == fileMetaGroup {
			continue
		}
		info, err := tag.Find(elem.Tag)
		if err != nil || info.Name == "" {
			continue
		}
		f.byName[info.Name] = elem
	}
	return f
}

// Filename returns the source path.
func (f *File) Filename() string { return f.path }

// Get returns the element value for a DICOM keyword. Single values are
// returned as scalars; multi-valued elements as slices.
func (f *File) Get(name string) (any, error) {
	elem, ok := f.byName[name]
	if !ok || elem.Value == nil {
		return nil, fmt.Errorf("%w: %s", record.ErrFieldAbsent, name)
	}
	return elementValue(elem)
}

// FieldNames lists the keywords present outside the file meta group.
func (f *File) FieldNames() []string {
	names := make([]string, 0, len(f.byName))
	for name := range f.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Set stages a write for an existing element.
func (f *File) Set(name, value string) error {
	if _, ok := f.byName[name]; !ok {
		return fmt.Errorf("%w: %s", record.ErrUnsupportedField, name)
	}
	f.writes[name] = value
	return nil
}

// Encode re-reads the source including pixel data, applies staged writes and
// writes the complete file to w.
func (f *File) Encode(w io.Writer) error {
	full, err := (&Parser{FS: f.fs}).read(f.path, false)
	if err != nil {
		return err
	}
	for name, value := range f.writes {
		t, err := tag.FindByName(name)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", name, err)
		}
		elem, err := full.FindElementByTag(t.Tag)
		if err != nil {
			return fmt.Errorf("%w: %s", record.ErrUnsupportedField, name)
		}
		v, err := replacementValue(elem, value)
		if err != nil {
			return fmt.Errorf("set %s: %w", name, err)
		}
		elem.Value = v
	}
	if err := dicom.Write(w, full, dicom.SkipVRVerification()); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	return nil
}

func elementValue(elem *dicom.Element) (any, error) {
	switch elem.Value.ValueType() {
	case dicom.Strings:
		vals, _ := elem.Value.GetValue().([]string)
		trimmed := make([]string, len(vals))
		for i, s := range vals {
			trimmed[i] = strings.TrimRight(s, " \x00")
		}
		if len(trimmed) == 1 {
			return trimmed[0], nil
		}
		return trimmed, nil
	case dicom.Ints:
		vals, _ := elem.Value.GetValue().([]int)
		if len(vals) == 1 {
			return vals[0], nil
		}
		return vals, nil
	case dicom.Floats:
		vals, _ := elem.Value.GetValue().([]float64)
		if len(vals) == 1 {
			return vals[0], nil
		}
		return vals, nil
	case dicom.Bytes:
		vals, _ := elem.Value.GetValue().([]byte)
		return vals, nil
	default:
		return nil, fmt.Errorf("%w: element %s holds %v data", record.ErrFieldAbsent, elem.Tag, elem.Value.ValueType())
	}
}

// replacementValue converts text into a value of the element's existing
// type. Multi-valued text uses the backslash separator.
func replacementValue(elem *dicom.Element, text string) (dicom.Value, error) {
	parts := strings.Split(text, record.MultiValueSeparator)
	kind := dicom.Strings
	if elem.Value != nil {
		kind = elem.Value.ValueType()
	}
	switch kind {
	case dicom.Ints:
		ints := make([]int, 0, len(parts))
		for _, p := range parts {
			if strings.TrimSpace(p) == "" {
				continue
			}
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return nil, fmt.Errorf("%w: %q", record.ErrNotNumeric, p)
			}
			ints = append(ints, n)
		}
		return dicom.NewValue(ints)
	case dicom.Floats:
		floats := make([]float64, 0, len(parts))
		for _, p := range parts {
			if strings.TrimSpace(p) == "" {
				continue
			}
			n, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", record.ErrNotNumeric, p)
			}
			floats = append(floats, n)
		}
		return dicom.NewValue(floats)
	case dicom.Bytes:
		return dicom.NewValue([]byte(text))
	default:
		return dicom.NewValue(parts)
	}
}
