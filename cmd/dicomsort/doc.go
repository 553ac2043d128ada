// Package main hosts the dicomsort CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into sort jobs,
// field discovery queries against a source tree, journal history views, and
// configuration scaffolding. It centralizes configuration resolution and
// structured logging setup so subcommands only translate flags into
// sorter options and render results.
package main
