package anonymize_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"dicomsort/internal/anonymize"
	"dicomsort/internal/fields"
	"dicomsort/internal/services"
	"dicomsort/internal/template"
	"dicomsort/internal/testsupport"
)

func TestShiftBirthDate(t *testing.T) {
	tests := []struct {
		name  string
		birth string
		study string
		want  string
		ok    bool
	}{
		{"birthday passed", "19900310", "20200615", "19900101", true},
		{"birthday not reached", "19900310", "20200215", "19910101", true},
		{"study on birthday", "19900310", "20200310", "19900101", true},
		{"short birth", "1990", "20200615", "", false},
		{"garbage study", "19900310", "2020XXXX", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := anonymize.ShiftBirthDate(tt.birth, tt.study)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("ShiftBirthDate(%q, %q) = %q, %v; want %q, %v", tt.birth, tt.study, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestApplyShiftsBlankBirthDate(t *testing.T) {
	res := fields.New(testsupport.NewRecord("/in/a.dcm", map[string]any{
		"PatientName":      "Doe^Jane",
		"PatientBirthDate": "19900310",
		"StudyDate":        "20200215",
	}))
	rules := anonymize.Rules{"PatientName": "ANON", "PatientBirthDate": ""}

	effective := anonymize.Apply(rules, res)

	if effective["PatientBirthDate"] != "19910101" {
		t.Fatalf("unexpected shifted birth date %q", effective["PatientBirthDate"])
	}
	if effective["PatientAge"] != "029Y" {
		t.Fatalf("expected captured age 029Y, got %q", effective["PatientAge"])
	}
	if rules["PatientBirthDate"] != "" || len(rules) != 2 {
		t.Fatalf("caller rules were modified: %v", rules)
	}
	got, _ := res.GetString("PatientBirthDate")
	if got != "19910101" {
		t.Fatalf("resolver birth date = %q", got)
	}
	if !res.IsAnonymous() {
		t.Fatal("expected anonymous resolver")
	}
}

func TestApplyKeepsExplicitBirthDate(t *testing.T) {
	res := fields.New(testsupport.NewRecord("/in/a.dcm", map[string]any{
		"PatientBirthDate": "19900310",
		"StudyDate":        "20200615",
	}))
	effective := anonymize.Apply(anonymize.Rules{"PatientBirthDate": "19000101"}, res)
	if effective["PatientBirthDate"] != "19000101" {
		t.Fatalf("explicit value should be used verbatim, got %q", effective["PatientBirthDate"])
	}
	if _, ok := effective["PatientAge"]; ok {
		t.Fatal("age should only be captured when shifting")
	}
}

func TestApplyWithoutBirthDateUsesRuleVerbatim(t *testing.T) {
	res := fields.New(testsupport.NewRecord("/in/a.dcm", map[string]any{"StudyDate": "20200615"}))
	effective := anonymize.Apply(anonymize.Rules{"PatientBirthDate": ""}, res)
	if v, ok := effective["PatientBirthDate"]; !ok || v != "" {
		t.Fatalf("expected blank rule kept, got %q (%v)", v, ok)
	}
}

func TestApplyWithoutStudyDateBlanksBirthDate(t *testing.T) {
	res := fields.New(testsupport.NewRecord("/in/a.dcm", map[string]any{"PatientBirthDate": "19900310"}))
	effective := anonymize.Apply(anonymize.Rules{"PatientBirthDate": ""}, res)
	if effective["PatientBirthDate"] != "" {
		t.Fatalf("expected blank birth date, got %q", effective["PatientBirthDate"])
	}
}

func TestApplyCallerAgeWins(t *testing.T) {
	res := fields.New(testsupport.NewRecord("/in/a.dcm", map[string]any{
		"PatientBirthDate": "19900310",
		"StudyDate":        "20200615",
	}))
	effective := anonymize.Apply(anonymize.Rules{"PatientBirthDate": "", "PatientAge": ""}, res)
	if effective["PatientAge"] != "" {
		t.Fatalf("caller PatientAge should win, got %q", effective["PatientAge"])
	}
}

func TestApplyEmptyRulesIsNotAnonymous(t *testing.T) {
	res := fields.New(testsupport.NewRecord("/in/a.dcm", map[string]any{}))
	effective := anonymize.Apply(nil, res)
	if len(effective) != 0 {
		t.Fatalf("expected empty effective rules, got %v", effective)
	}
	if res.IsAnonymous() {
		t.Fatal("no rules should leave the resolver on defaults")
	}
}

func TestPendingWritesRenderAgainstResolvedRecord(t *testing.T) {
	rec := testsupport.NewRecord("/in/a.dcm", map[string]any{
		"PatientName":  "Doe^Jane",
		"PatientID":    "12345",
		"SeriesNumber": 2,
	})
	res := fields.New(rec)
	effective := anonymize.Apply(anonymize.Rules{
		"PatientName": "Subject-%(SeriesNumber)02d",
		"PatientID":   "%(PatientName)s",
		"OtherField":  "x",
	}, res)

	writes, err := anonymize.PendingWrites(effective, res, template.New(0))
	if err != nil {
		t.Fatalf("PendingWrites: %v", err)
	}
	want := []fields.FieldWrite{
		{Field: "OtherField", Value: "x"},
		{Field: "PatientID", Value: "Subject-02"},
		{Field: "PatientName", Value: "Subject-02"},
	}
	if !reflect.DeepEqual(writes, want) {
		t.Fatalf("writes = %v, want %v", writes, want)
	}

	skipped, err := anonymize.ApplyWrites(rec, writes)
	if err != nil {
		t.Fatalf("ApplyWrites: %v", err)
	}
	if !reflect.DeepEqual(skipped, []string{"OtherField"}) {
		t.Fatalf("skipped = %v", skipped)
	}
	staged := rec.Writes()
	if staged["PatientName"] != "Subject-02" || staged["PatientID"] != "Subject-02" {
		t.Fatalf("unexpected staged writes %v", staged)
	}
	if raw, _ := rec.Get("PatientName"); raw != "Doe^Jane" {
		t.Fatalf("raw field changed before encode: %v", raw)
	}
}

func TestPendingWritesSelfReferenceFails(t *testing.T) {
	res := fields.New(testsupport.NewRecord("/in/a.dcm", map[string]any{"PatientName": "Doe"}))
	effective := anonymize.Apply(anonymize.Rules{"PatientName": "X-%(PatientName)s"}, res)
	if _, err := anonymize.PendingWrites(effective, res, template.New(0)); !errors.Is(err, template.ErrRecursionLimit) {
		t.Fatalf("expected ErrRecursionLimit, got %v", err)
	}
}

func TestRulesValidate(t *testing.T) {
	if err := (anonymize.Rules{"PatientName": "ANON"}).Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	for _, bad := range []anonymize.Rules{{"": "x"}, {" PatientName": "x"}, {"PatientName": "%(PatientID)"}} {
		if err := bad.Validate(); !errors.Is(err, services.ErrConfiguration) {
			t.Fatalf("Validate(%v) = %v, want ErrConfiguration", bad, err)
		}
	}
}

func TestParseRules(t *testing.T) {
	rules, err := anonymize.ParseRules([]byte("PatientName: ANON\nPatientID: 42\nPatientBirthDate:\n"))
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	want := anonymize.Rules{"PatientName": "ANON", "PatientID": "42", "PatientBirthDate": ""}
	if !reflect.DeepEqual(rules, want) {
		t.Fatalf("rules = %v, want %v", rules, want)
	}

	jsonRules, err := anonymize.ParseRules([]byte(`{"PatientName": "ANON"}`))
	if err != nil || jsonRules["PatientName"] != "ANON" {
		t.Fatalf("json rules = %v, %v", jsonRules, err)
	}
}

func TestParseRulesRejectsNonMapping(t *testing.T) {
	for _, doc := range []string{"- PatientName\n- PatientID\n", "PatientName:\n  nested: x\n"} {
		if _, err := anonymize.ParseRules([]byte(doc)); !errors.Is(err, services.ErrConfiguration) {
			t.Fatalf("ParseRules(%q) = %v, want ErrConfiguration", doc, err)
		}
	}
}

func TestLoadRulesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte("PatientName: ANON\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rules, err := anonymize.LoadRulesFile(path)
	if err != nil {
		t.Fatalf("LoadRulesFile: %v", err)
	}
	if rules["PatientName"] != "ANON" {
		t.Fatalf("unexpected rules %v", rules)
	}
	if _, err := anonymize.LoadRulesFile(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for missing file, got %v", err)
	}
}
