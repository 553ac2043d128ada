package fields_test

import (
	"errors"
	"testing"

	"dicomsort/internal/fields"
	"dicomsort/internal/testsupport"
)

func newResolver(fieldValues map[string]any) *fields.Resolver {
	return fields.New(testsupport.NewRecord("/in/study/IM0001.dcm", fieldValues))
}

func TestGetFallsThroughToRecord(t *testing.T) {
	res := newResolver(map[string]any{"PatientName": "Doe^Jane"})
	got, err := res.GetString("PatientName")
	if err != nil {
		t.Fatalf("GetString: %v", err)
	}
	if got != "Doe^Jane" {
		t.Fatalf("got %q", got)
	}
}

func TestGetMissingField(t *testing.T) {
	res := newResolver(map[string]any{})
	if _, err := res.Get("PatientName"); !errors.Is(err, fields.ErrFieldNotFound) {
		t.Fatalf("expected ErrFieldNotFound, got %v", err)
	}
}

func TestOverridePrecedence(t *testing.T) {
	raw := map[string]any{
		"PatientName":    "Doe^Jane",
		"PatientID":      "12345",
		"InstanceNumber": 7,
	}
	res := newResolver(raw)
	res.Install(map[string]string{
		"PatientName":    "ANON",
		"PatientID":      "",
		"InstanceNumber": "99",
	})
	for name, want := range map[string]string{"PatientName": "ANON", "PatientID": "", "InstanceNumber": "99"} {
		got, err := res.GetString(name)
		if err != nil {
			t.Fatalf("GetString(%s): %v", name, err)
		}
		if got != want {
			t.Fatalf("GetString(%s) = %q, want override %q", name, got, want)
		}
	}
}

func TestIsAnonymous(t *testing.T) {
	res := newResolver(map[string]any{"PatientName": "Doe^Jane"})
	if res.IsAnonymous() {
		t.Fatal("fresh resolver should not be anonymous")
	}
	res.Install(nil)
	if res.IsAnonymous() {
		t.Fatal("installing no rules should keep defaults")
	}
	res.Install(map[string]string{"PatientName": "ANON"})
	if !res.IsAnonymous() {
		t.Fatal("expected anonymous after installing a rule")
	}
	if got := res.Installed(); got["PatientName"] != "ANON" || len(got) != 1 {
		t.Fatalf("unexpected installed set %v", got)
	}
}

func TestFileExtension(t *testing.T) {
	res := newResolver(map[string]any{})
	got, err := res.GetString(fields.FieldFileExtension)
	if err != nil {
		t.Fatalf("GetString: %v", err)
	}
	if got != ".dcm" {
		t.Fatalf("got %q", got)
	}
}

func TestSeriesDescriptionOrdering(t *testing.T) {
	tests := []struct {
		name        string
		raw         map[string]any
		seriesFirst bool
		want        string
	}{
		{"desc first", map[string]any{"SeriesNumber": 4, "SeriesDescription": "T1"}, false, "T1_Series0004"},
		{"series first", map[string]any{"SeriesNumber": 4, "SeriesDescription": "T1"}, true, "Series0004_T1"},
		{"no description", map[string]any{"SeriesNumber": 12}, false, "Series0012"},
		{"blank description", map[string]any{"SeriesNumber": "3", "SeriesDescription": "  "}, true, "Series0003"},
		{"trimmed", map[string]any{"SeriesNumber": 1.0, "SeriesDescription": " FLAIR "}, false, "FLAIR_Series0001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newResolver(tt.raw)
			res.SetSeriesFirst(tt.seriesFirst)
			got, err := res.GetString(fields.FieldSeriesDescription)
			if err != nil {
				t.Fatalf("GetString: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSeriesDescriptionRequiresSeriesNumber(t *testing.T) {
	res := newResolver(map[string]any{"SeriesDescription": "T1"})
	if _, err := res.Get(fields.FieldSeriesDescription); !errors.Is(err, fields.ErrFieldNotFound) {
		t.Fatalf("expected ErrFieldNotFound, got %v", err)
	}
}

func TestImageTypeClassification(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want string
	}{
		{"mag", map[string]any{"ImageType": []string{"M", "FFE"}}, "Mag"},
		{"phoenix", map[string]any{"ImageType": []string{"CSA REPORT"}}, "Phoenix"},
		{"phase", map[string]any{"ImageType": []string{"ORIGINAL", "PRIMARY", "P"}}, "Phase"},
		{"backslash string", map[string]any{"ImageType": `ORIGINAL\PRIMARY\M\FFE`}, "Mag"},
		{"empty set", map[string]any{"ImageType": []string{}}, "Image"},
		{"no match", map[string]any{"ImageType": []string{"ORIGINAL", "M"}}, "Image"},
		{"missing", map[string]any{}, "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newResolver(tt.raw).GetString(fields.FieldImageType)
			if err != nil {
				t.Fatalf("GetString: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestImageType3DReconShadowsInstanceNumber(t *testing.T) {
	rec := testsupport.NewRecord("/in/a.dcm", map[string]any{
		"ImageType":      []string{"DERIVED", "CSA 3D EDITOR"},
		"SeriesNumber":   5,
		"InstanceNumber": 42,
	})
	res := fields.New(rec)

	before, err := res.GetString(fields.FieldInstanceNumber)
	if err != nil || before != "42" {
		t.Fatalf("before classification got %q, %v", before, err)
	}
	for i := 0; i < 3; i++ {
		label, err := res.GetString(fields.FieldImageType)
		if err != nil || label != fields.Image3DRecon {
			t.Fatalf("pass %d: got %q, %v", i, label, err)
		}
		got, err := res.GetString(fields.FieldInstanceNumber)
		if err != nil {
			t.Fatalf("GetString: %v", err)
		}
		if got != "5" {
			t.Fatalf("pass %d: InstanceNumber = %q, want series number", i, got)
		}
	}

	raw, _ := rec.Get(fields.FieldInstanceNumber)
	if raw != 42 {
		t.Fatalf("raw record must not be mutated, got %v", raw)
	}
	writes := res.DerivedWrites()
	if len(writes) != 1 || writes[0] != (fields.FieldWrite{Field: "InstanceNumber", Value: "5"}) {
		t.Fatalf("unexpected derived writes %v", writes)
	}
}

func TestUserOverrideBeatsDerivedInstanceNumber(t *testing.T) {
	res := newResolver(map[string]any{
		"ImageType":      []string{"CSA 3D EDITOR"},
		"SeriesNumber":   5,
		"InstanceNumber": 42,
	})
	res.Install(map[string]string{"InstanceNumber": "1"})
	if _, err := res.Get(fields.FieldImageType); err != nil {
		t.Fatalf("Get: %v", err)
	}
	got, _ := res.GetString(fields.FieldInstanceNumber)
	if got != "1" {
		t.Fatalf("expected user override, got %q", got)
	}
}

func TestPatientAge(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want string
	}{
		{"existing age", map[string]any{"PatientAge": "045Y", "PatientBirthDate": "19900310", "StudyDate": "20200615"}, "045Y"},
		{"computed after birthday", map[string]any{"PatientBirthDate": "19900310", "StudyDate": "20200615"}, "030Y"},
		{"computed before birthday", map[string]any{"PatientBirthDate": "19900310", "StudyDate": "20200215"}, "029Y"},
		{"no birth date", map[string]any{"StudyDate": "20200615"}, ""},
		{"blank birth date", map[string]any{"PatientBirthDate": "", "StudyDate": "20200615"}, ""},
		{"no study date", map[string]any{"PatientBirthDate": "19900310"}, ""},
		{"garbage", map[string]any{"PatientBirthDate": "unknown", "StudyDate": "20200615"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := newResolver(tt.raw).PatientAge(); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConstantAndComputedOverrides(t *testing.T) {
	calls := 0
	computed := fields.Computed(func() (any, error) {
		calls++
		return calls, nil
	})
	first, _ := computed.Resolve()
	second, _ := computed.Resolve()
	if first != 1 || second != 2 {
		t.Fatalf("computed override should evaluate per lookup, got %v %v", first, second)
	}
	constant := fields.Constant("x")
	if v, err := constant.Resolve(); err != nil || v != "x" {
		t.Fatalf("constant resolve = %v, %v", v, err)
	}
}
