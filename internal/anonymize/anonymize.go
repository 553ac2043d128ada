package anonymize

import (
	"errors"
	"fmt"
	"maps"
	"sort"
	"strconv"
	"strings"

	"dicomsort/internal/fields"
	"dicomsort/internal/record"
	"dicomsort/internal/services"
	"dicomsort/internal/template"
)

// Rules maps field names to replacement value templates.
type Rules map[string]string

// Validate rejects rule sets that cannot be applied.
func (r Rules) Validate() error {
	for name, value := range r {
		if strings.TrimSpace(name) == "" {
			return services.Wrap(services.ErrConfiguration, "anonymize", "validate rules", "rule with empty field name", nil)
		}
		if strings.TrimSpace(name) != name {
			return services.Wrap(services.ErrConfiguration, "anonymize", "validate rules", fmt.Sprintf("field name %q has surrounding whitespace", name), nil)
		}
		if err := template.Validate(value); err != nil {
			return services.Wrap(services.ErrConfiguration, "anonymize", "validate rules", "rule "+name, err)
		}
	}
	return nil
}

// Clone returns an independent copy.
func (r Rules) Clone() Rules {
	if r == nil {
		return nil
	}
	return maps.Clone(r)
}

// Apply computes the effective rule set for one record and installs it into
// the resolver. The caller's rules are never modified.
//
// A blank PatientBirthDate rule on a record that carries a birth date is
// replaced by a year-only date that keeps the patient's age at the study
// date, and the true age is kept as PatientAge unless the caller overrides
// it.
func Apply(rules Rules, res *fields.Resolver) Rules {
	effective := rules.Clone()
	if effective == nil {
		effective = Rules{}
	}

	if value, ok := effective[fields.FieldPatientBirthDate]; ok && value == "" {
		birth := rawText(res, fields.FieldPatientBirthDate)
		if birth != "" {
			age := res.PatientAge()
			if shifted, ok := ShiftBirthDate(birth, rawText(res, fields.FieldStudyDate)); ok {
				effective[fields.FieldPatientBirthDate] = shifted
				if _, supplied := effective[fields.FieldPatientAge]; !supplied && age != "" {
					effective[fields.FieldPatientAge] = age
				}
			}
		}
	}

	res.Install(effective)
	return effective
}

// ShiftBirthDate returns a January 1st birth date whose year arithmetic
// against study gives the same whole-year age as birth. Both dates are
// YYYYMMDD. ok is false when either date is malformed.
func ShiftBirthDate(birth, study string) (string, bool) {
	birth = strings.TrimSpace(birth)
	study = strings.TrimSpace(study)
	if len(birth) < 8 || len(study) < 8 {
		return "", false
	}
	year, err := strconv.Atoi(birth[:4])
	if err != nil {
		return "", false
	}
	birthRest, err := strconv.Atoi(birth[4:8])
	if err != nil {
		return "", false
	}
	if _, err := strconv.Atoi(study[:4]); err != nil {
		return "", false
	}
	studyRest, err := strconv.Atoi(study[4:8])
	if err != nil {
		return "", false
	}
	if studyRest >= birthRest {
		return fmt.Sprintf("%04d0101", year), true
	}
	return fmt.Sprintf("%04d0101", year+1), true
}

// PendingWrites renders each rule against the resolved record. The returned
// list is sorted by field name and is applied in one batch at write time.
func PendingWrites(rules Rules, res *fields.Resolver, engine *template.Engine) ([]fields.FieldWrite, error) {
	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	sort.Strings(names)

	writes := make([]fields.FieldWrite, 0, len(names))
	for _, name := range names {
		value, err := engine.Render(rules[name], res)
		if err != nil {
			return nil, fmt.Errorf("render anonymized %s: %w", name, err)
		}
		writes = append(writes, fields.FieldWrite{Field: name, Value: value})
	}
	return writes, nil
}

// ApplyWrites stages writes on rec. Fields the record does not carry are
// skipped and returned.
func ApplyWrites(rec record.Record, writes []fields.FieldWrite) (skipped []string, err error) {
	for _, w := range writes {
		if setErr := rec.Set(w.Field, w.Value); setErr != nil {
			if errors.Is(setErr, record.ErrUnsupportedField) {
				skipped = append(skipped, w.Field)
				continue
			}
			return skipped, fmt.Errorf("set %s: %w", w.Field, setErr)
		}
	}
	return skipped, nil
}

func rawText(res *fields.Resolver, name string) string {
	v, err := res.Record().Get(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(record.String(v))
}
