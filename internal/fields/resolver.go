package fields

import (
	"errors"
	"fmt"
	"maps"
	"sort"

	"dicomsort/internal/record"
)

// ErrFieldNotFound is returned when neither an override nor the raw record can
// supply a field.
var ErrFieldNotFound = errors.New("field not found")

// Names of the fields the resolver computes or inspects.
const (
	FieldFileExtension     = "FileExtension"
	FieldSeriesDescription = "SeriesDescription"
	FieldSeriesNumber      = "SeriesNumber"
	FieldImageType         = "ImageType"
	FieldInstanceNumber    = "InstanceNumber"
	FieldPatientAge        = "PatientAge"
	FieldPatientBirthDate  = "PatientBirthDate"
	FieldStudyDate         = "StudyDate"
)

// FieldWrite is a field value destined for the persisted record.
type FieldWrite struct {
	Field string
	Value string
}

// Resolver wraps one record and answers field lookups from its override map
// first, then from values derived while computing fields, then from the raw
// record. A resolver is owned by a single worker and is not safe for
// concurrent use.
type Resolver struct {
	rec         record.Record
	defaults    map[string]Override
	active      map[string]Override
	installed   map[string]string
	derived     map[string]any
	seriesFirst bool
}

// New wraps rec with the built-in computed fields installed.
func New(rec record.Record) *Resolver {
	r := &Resolver{rec: rec, derived: map[string]any{}}
	r.defaults = map[string]Override{
		FieldImageType:         Computed(r.imageType),
		FieldFileExtension:     Computed(r.fileExtension),
		FieldSeriesDescription: Computed(r.seriesDescription),
	}
	r.active = maps.Clone(r.defaults)
	return r
}

// Record returns the wrapped record.
func (r *Resolver) Record() record.Record {
	return r.rec
}

// SetSeriesFirst controls whether SeriesDescription leads with the series number.
func (r *Resolver) SetSeriesFirst(v bool) {
	r.seriesFirst = v
}

// Get resolves a field by name.
func (r *Resolver) Get(name string) (any, error) {
	if o, ok := r.active[name]; ok {
		return o.Resolve()
	}
	if v, ok := r.derived[name]; ok {
		return v, nil
	}
	return r.raw(name)
}

// GetString resolves a field and renders it as text.
func (r *Resolver) GetString(name string) (string, error) {
	v, err := r.Get(name)
	if err != nil {
		return "", err
	}
	return record.String(v), nil
}

// Install replaces the active overrides with the defaults plus the supplied
// constants. Supplied values win on name collisions.
func (r *Resolver) Install(values map[string]string) {
	active := maps.Clone(r.defaults)
	installed := make(map[string]string, len(values))
	for name, value := range values {
		active[name] = Constant(value)
		installed[name] = value
	}
	r.active = active
	r.installed = installed
}

// Installed returns a copy of the constants supplied through Install.
func (r *Resolver) Installed() map[string]string {
	return maps.Clone(r.installed)
}

// IsAnonymous reports whether the active override set differs from the
// built-in defaults.
func (r *Resolver) IsAnonymous() bool {
	return len(r.installed) > 0
}

// DerivedWrites lists raw-field values changed as a side effect of computing
// fields, sorted by field name.
func (r *Resolver) DerivedWrites() []FieldWrite {
	if len(r.derived) == 0 {
		return nil
	}
	writes := make([]FieldWrite, 0, len(r.derived))
	for name, v := range r.derived {
		writes = append(writes, FieldWrite{Field: name, Value: record.String(v)})
	}
	sort.Slice(writes, func(i, j int) bool { return writes[i].Field < writes[j].Field })
	return writes
}

// raw looks a field up on the record itself, bypassing overrides.
func (r *Resolver) raw(name string) (any, error) {
	v, err := r.rec.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFieldNotFound, name, err)
	}
	return v, nil
}

// rawString returns the raw field as text and whether it was present.
func (r *Resolver) rawString(name string) (string, bool) {
	v, err := r.rec.Get(name)
	if err != nil {
		return "", false
	}
	return record.String(v), true
}
