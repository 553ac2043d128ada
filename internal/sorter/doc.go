// Package sorter enumerates source trees and sorts every recognized record
// into a destination tree built from rendered templates.
//
// A Job carries the immutable configuration of one run. Enumerate fills a
// Queue with every candidate file before any worker starts, so an empty
// queue means the run is complete. A Pool drains the queue with a fixed
// number of workers; each item is parsed, resolved, optionally anonymized
// and written to a destination claimed exclusively so that no existing file
// is ever overwritten. Progress is reported to a Listener in order, one
// Event per processed item.
package sorter
