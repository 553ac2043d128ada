// Package config loads, normalizes, and validates dicomsort configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the DICOMSORT_OUTPUT_DIR
// environment fallback. Validation checks template token syntax and
// anonymization rules up front so a sort job never starts with a template it
// cannot render.
package config
