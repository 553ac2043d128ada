package testsupport

import (
	"bytes"
	"cmp"
	"slices"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

const explicitVRLittleEndian = "1.2.840.10008.1.2.1"

// WriteDICOM writes a minimal explicit VR little endian DICOM file at path.
// Field values are passed to dicom.NewElement by keyword, so text elements
// take []string and binary integer elements take []int.
func WriteDICOM(t testing.TB, fs billy.Filesystem, path string, fields map[string]any) {
	t.Helper()

	elems := []*dicom.Element{
		mustDICOMElement(t, tag.MediaStorageSOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.4"}),
		mustDICOMElement(t, tag.MediaStorageSOPInstanceUID, []string{"1.2.3.4.5.6.7"}),
		mustDICOMElement(t, tag.TransferSyntaxUID, []string{explicitVRLittleEndian}),
	}
	for name, value := range fields {
		info, err := tag.FindByName(name)
		if err != nil {
			t.Fatalf("unknown DICOM keyword %s: %v", name, err)
		}
		elems = append(elems, mustDICOMElement(t, info.Tag, value))
	}
	slices.SortFunc(elems, func(a, b *dicom.Element) int {
		if c := cmp.Compare(a.Tag.Group, b.Tag.Group); c != 0 {
			return c
		}
		return cmp.Compare(a.Tag.Element, b.Tag.Element)
	})

	var buf bytes.Buffer
	if err := dicom.Write(&buf, dicom.Dataset{Elements: elems}, dicom.SkipVRVerification()); err != nil {
		t.Fatalf("write DICOM %s: %v", path, err)
	}
	WriteBytes(t, fs, path, buf.Bytes())
}

func mustDICOMElement(t testing.TB, tg tag.Tag, value any) *dicom.Element {
	t.Helper()
	elem, err := dicom.NewElement(tg, value)
	if err != nil {
		t.Fatalf("NewElement(%v): %v", tg, err)
	}
	return elem
}
