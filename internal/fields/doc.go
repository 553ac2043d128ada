// Package fields provides the per-record lookup facade used by templates and
// anonymization.
//
// A Resolver answers field lookups in a fixed order: active overrides (either
// constants or computations), values derived while computing other fields,
// then the raw record. The built-in computed fields are FileExtension,
// SeriesDescription and ImageType; PatientAge is computed on demand from the
// raw record so anonymization can capture it before dates are replaced.
package fields
