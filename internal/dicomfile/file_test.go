package dicomfile

import (
	"errors"
	"reflect"
	"testing"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"dicomsort/internal/record"
)

func mustElement(t *testing.T, tg tag.Tag, data any) *dicom.Element {
	t.Helper()
	elem, err := dicom.NewElement(tg, data)
	if err != nil {
		t.Fatalf("NewElement(%v): %v", tg, err)
	}
	return elem
}

func sampleFile(t *testing.T) *File {
	t.Helper()
	ds := dicom.Dataset{Elements: []*dicom.Element{
		mustElement(t, tag.TransferSyntaxUID, []string{"1.2.840.10008.1.2.1"}),
		mustElement(t, tag.PatientName, []string{"Doe^Jane "}),
		mustElement(t, tag.SeriesNumber, []string{"3"}),
		mustElement(t, tag.ImageType, []string{"ORIGINAL", "PRIMARY", "M"}),
		mustElement(t, tag.Rows, []int{512}),
	}}
	return newFile(nil, "/in/a.dcm", ds)
}

func TestFileGet(t *testing.T) {
	f := sampleFile(t)

	if got, err := f.Get("PatientName"); err != nil || got != "Doe^Jane" {
		t.Fatalf("PatientName = %v, %v", got, err)
	}
	if got, err := f.Get("ImageType"); err != nil || !reflect.DeepEqual(got, []string{"ORIGINAL", "PRIMARY", "M"}) {
		t.Fatalf("ImageType = %v, %v", got, err)
	}
	if got, err := f.Get("Rows"); err != nil || got != 512 {
		t.Fatalf("Rows = %v, %v", got, err)
	}
	if n, err := record.Int(mustGet(t, f, "SeriesNumber")); err != nil || n != 3 {
		t.Fatalf("SeriesNumber = %v, %v", n, err)
	}
	if _, err := f.Get("StudyDate"); !errors.Is(err, record.ErrFieldAbsent) {
		t.Fatalf("expected ErrFieldAbsent, got %v", err)
	}
}

func mustGet(t *testing.T, f *File, name string) any {
	t.Helper()
	v, err := f.Get(name)
	if err != nil {
		t.Fatalf("Get(%s): %v", name, err)
	}
	return v
}

func TestFileFieldNamesSkipFileMeta(t *testing.T) {
	got := sampleFile(t).FieldNames()
	want := []string{"ImageType", "PatientName", "Rows", "SeriesNumber"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FieldNames = %v, want %v", got, want)
	}
}

func TestFileSetStagesWrites(t *testing.T) {
	f := sampleFile(t)
	if err := f.Set("PatientName", "ANON"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := f.Set("PatientID", "X"); !errors.Is(err, record.ErrUnsupportedField) {
		t.Fatalf("expected ErrUnsupportedField, got %v", err)
	}
	if got := f.writes; !reflect.DeepEqual(got, map[string]string{"PatientName": "ANON"}) {
		t.Fatalf("Writes = %v", got)
	}
	if got := mustGet(t, f, "PatientName"); got != "Doe^Jane" {
		t.Fatalf("Set must not change the parsed value, got %v", got)
	}
}

func TestReplacementValueKeepsElementType(t *testing.T) {
	rows := mustElement(t, tag.Rows, []int{512})
	v, err := replacementValue(rows, "256")
	if err != nil {
		t.Fatalf("replacementValue: %v", err)
	}
	if v.ValueType() != dicom.Ints || !reflect.DeepEqual(v.GetValue(), []int{256}) {
		t.Fatalf("unexpected value %v", v)
	}
	if _, err := replacementValue(rows, "many"); !errors.Is(err, record.ErrNotNumeric) {
		t.Fatalf("expected ErrNotNumeric, got %v", err)
	}

	imageType := mustElement(t, tag.ImageType, []string{"ORIGINAL"})
	v, err = replacementValue(imageType, `DERIVED\SECONDARY`)
	if err != nil {
		t.Fatalf("replacementValue: %v", err)
	}
	if !reflect.DeepEqual(v.GetValue(), []string{"DERIVED", "SECONDARY"}) {
		t.Fatalf("unexpected value %v", v.GetValue())
	}
}
