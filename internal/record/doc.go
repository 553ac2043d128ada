// Package record defines the narrow contract between the sorting pipeline and
// whatever decodes medical image files.
//
// A Parser probes a path and either returns a Record or an error wrapping
// ErrNotARecord. Records expose fields by keyword, stage field writes, and
// encode themselves back to bytes. The value helpers convert the loosely typed
// field values (strings, numbers, multi-valued lists) into the shapes the
// template engine and field resolver need.
package record
