package fields

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"dicomsort/internal/record"
)

// Image type labels produced by the ImageType field.
const (
	ImagePhase   = "Phase"
	Image3DRecon = "3DRecon"
	ImagePhoenix = "Phoenix"
	ImageMag     = "Mag"
	ImageGeneric = "Image"
	ImageUnknown = "Unknown"
)

type imageRule struct {
	label string
	tags  []string
}

// Ordered; the first rule whose tags are all present wins.
var imageRules = []imageRule{
	{label: ImagePhase, tags: []string{"P"}},
	{label: Image3DRecon, tags: []string{"CSA 3D EDITOR"}},
	{label: ImagePhoenix, tags: []string{"CSA REPORT"}},
	{label: ImageMag, tags: []string{"FFE", "M"}},
}

// ClassifyImageType maps a raw ImageType tag set to its label. A nil set means
// the field is absent.
func ClassifyImageType(tags []string) string {
	if tags == nil {
		return ImageUnknown
	}
	present := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		present[strings.TrimSpace(t)] = struct{}{}
	}
	for _, rule := range imageRules {
		matched := true
		for _, t := range rule.tags {
			if _, ok := present[t]; !ok {
				matched = false
				break
			}
		}
		if matched {
			return rule.label
		}
	}
	return ImageGeneric
}

func (r *Resolver) imageType() (any, error) {
	v, err := r.rec.Get(FieldImageType)
	if err != nil {
		return ImageUnknown, nil
	}
	tags := record.Strings(v)
	if tags == nil {
		tags = []string{}
	}
	label := ClassifyImageType(tags)
	if label == Image3DRecon {
		// Reconstructions share one filename slot per series.
		if series, err := r.rec.Get(FieldSeriesNumber); err == nil {
			r.derived[FieldInstanceNumber] = series
		}
	}
	return label, nil
}

func (r *Resolver) fileExtension() (any, error) {
	return filepath.Ext(r.rec.Filename()), nil
}

func (r *Resolver) seriesDescription() (any, error) {
	v, err := r.raw(FieldSeriesNumber)
	if err != nil {
		return nil, err
	}
	number, err := record.Int(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFieldNotFound, FieldSeriesNumber, err)
	}
	series := fmt.Sprintf("Series%04d", number)

	desc, ok := r.rawString(FieldSeriesDescription)
	desc = strings.TrimSpace(desc)
	if !ok || desc == "" {
		return series, nil
	}
	if r.seriesFirst {
		return strings.TrimSpace(series + "_" + desc), nil
	}
	return strings.TrimSpace(desc + "_" + series), nil
}

// PatientAge returns the patient's age at the study date, computed from the
// raw record. An existing PatientAge field wins; otherwise the age is derived
// from PatientBirthDate and StudyDate and formatted as "%03dY". The empty
// string means the age cannot be determined.
func (r *Resolver) PatientAge() string {
	if age, ok := r.rawString(FieldPatientAge); ok {
		return strings.TrimSpace(age)
	}
	birth, ok := r.rawString(FieldPatientBirthDate)
	if !ok || strings.TrimSpace(birth) == "" {
		return ""
	}
	study, ok := r.rawString(FieldStudyDate)
	if !ok || strings.TrimSpace(study) == "" {
		return ""
	}
	b, err := strconv.Atoi(strings.TrimSpace(birth))
	if err != nil {
		return ""
	}
	s, err := strconv.Atoi(strings.TrimSpace(study))
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%03dY", (s-b)/10000)
}
