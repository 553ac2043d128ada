// Package anonymize turns caller-supplied replacement rules into the
// effective override set for one record.
//
// Rules map field names to value templates. Apply installs them on a
// fields.Resolver, special-casing a blank PatientBirthDate: instead of erasing
// the date it keeps only a birth year chosen so that age arithmetic against
// the study date still yields the true age. PendingWrites renders the rules
// into an immutable batch of field writes applied when the record is saved.
package anonymize
