// Package fileutil holds the filesystem primitives the sorter relies on:
// verified copies, collision-free destination claims and device-aware moves.
// Every helper takes a billy.Filesystem so callers can run against the host
// disk or an in-memory tree.
package fileutil
