// Package services defines shared utilities consumed by the sorting stages and
// the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, item paths, and worker numbers for
//     logging.
//   - Structured error markers plus the Wrap helper so failures carry stage
//     context and can be classified as fatal (bad job configuration) or
//     contained to a single work item (IO and persist failures).
//
// Use these helpers when wiring new pipeline logic so error handling and
// observability stay uniform.
package services
