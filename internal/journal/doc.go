// Package journal persists the history of sort runs in SQLite.
//
// Every real run gets a jobs row when it starts and one items row per
// processed file, written in progress order. Dry runs are never journaled.
// The schema is managed by embedded, versioned migrations applied in a
// single transaction on Open.
package journal
