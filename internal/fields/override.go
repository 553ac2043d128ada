package fields

// Override is a field value that shadows the raw record. It is either a
// constant or a zero-argument computation evaluated at lookup time.
type Override struct {
	value   any
	compute func() (any, error)
}

// Constant returns an override that always resolves to value.
func Constant(value any) Override {
	return Override{value: value}
}

// Computed returns an override evaluated on every lookup.
func Computed(fn func() (any, error)) Override {
	return Override{compute: fn}
}

// Resolve returns the override's value.
func (o Override) Resolve() (any, error) {
	if o.compute != nil {
		return o.compute()
	}
	return o.value, nil
}
