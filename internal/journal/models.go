package journal

import "time"

// JobStatus is the lifecycle state of a journaled run.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobCanceled  JobStatus = "canceled"
)

// Job is one journaled sort run.
type Job struct {
	ID         string
	Status     JobStatus
	Sources    []string
	OutputRoot string
	// Mode is "copy" or "move".
	Mode       string
	Mirror     bool
	Anonymize  bool
	Workers    int
	Total      int
	Done       int
	Skipped    int
	Failed     int
	CreatedAt  time.Time
	FinishedAt time.Time
}

// ShortID returns the first eight characters of the job ID, matching the
// job prefix shown in console logs.
func (j Job) ShortID() string {
	if len(j.ID) <= 8 {
		return j.ID
	}
	return j.ID[:8]
}

// Item is one processed file of a journaled run.
type Item struct {
	Seq          int
	SourcePath   string
	Destination  string
	State        string
	Action       string
	ErrorMessage string
	Worker       int
	Duration     time.Duration
	RecordedAt   time.Time
}
