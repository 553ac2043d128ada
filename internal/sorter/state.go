package sorter

import "time"

// State is the lifecycle position of one work item.
type State string

const (
	StateQueued    State = "queued"
	StateParsing   State = "parsing"
	StateSkipped   State = "skipped"
	StateResolving State = "resolving"
	StateRendering State = "rendering"
	StateWriting   State = "writing"
	StateDone      State = "done"
	StateFailed    State = "failed"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	switch s {
	case StateSkipped, StateDone, StateFailed:
		return true
	default:
		return false
	}
}

// Action describes what happened to a finished item.
type Action string

const (
	ActionNone      Action = ""
	ActionCopy      Action = "copy"
	ActionMove      Action = "move"
	ActionAnonymize Action = "anonymize"
	ActionPreview   Action = "preview"
)

// ItemResult is the outcome of processing one work item.
type ItemResult struct {
	Path        string
	Destination string
	State       State
	Action      Action
	Err         error
	Worker      int
	Duration    time.Duration
}

// Event is emitted once per processed item. Count increases by one with
// every event and reaches Total on the final item of a completed run.
type Event struct {
	Count  int
	Total  int
	Result ItemResult
}

// Listener receives progress events. Calls are serialized.
type Listener interface {
	Progress(Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

// Progress calls f(ev).
func (f ListenerFunc) Progress(ev Event) {
	f(ev)
}

// Summary totals a run.
type Summary struct {
	JobID    string
	Total    int
	Done     int
	Skipped  int
	Failed   int
	Started  time.Time
	Finished time.Time
	Canceled bool
	TestMode bool
}

// Processed returns the number of items that reached a terminal state.
func (s Summary) Processed() int {
	return s.Done + s.Skipped + s.Failed
}

func (s *Summary) add(result ItemResult) {
	switch result.State {
	case StateDone:
		s.Done++
	case StateSkipped:
		s.Skipped++
	default:
		s.Failed++
	}
}
