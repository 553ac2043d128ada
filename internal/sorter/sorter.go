package sorter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"

	"dicomsort/internal/logging"
	"dicomsort/internal/record"
	"dicomsort/internal/services"
)

// Journal records job and item outcomes. Implementations must tolerate
// RecordItem being called from the emission path of a running pool.
type Journal interface {
	BeginJob(ctx context.Context, job *Job, total int) error
	RecordItem(ctx context.Context, jobID string, count int, result ItemResult) error
	FinishJob(ctx context.Context, summary Summary) error
}

// Sorter runs jobs against one filesystem with one record parser.
type Sorter struct {
	fs      billy.Filesystem
	parser  record.Parser
	logger  *slog.Logger
	journal Journal
}

// Option configures optional Sorter behavior.
type Option func(*Sorter)

// WithJournal records every non-test run in j.
func WithJournal(j Journal) Option {
	return func(s *Sorter) {
		s.journal = j
	}
}

// New constructs a sorter. A nil logger discards output.
func New(fs billy.Filesystem, parser record.Parser, logger *slog.Logger, opts ...Option) *Sorter {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Sorter{
		fs:     fs,
		parser: parser,
		logger: logging.NewComponentLogger(logger, "sorter"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run enumerates the job sources and sorts every item. The returned summary
// is valid even when ctx is canceled part way; the error is then ctx.Err().
func (s *Sorter) Run(ctx context.Context, job *Job, listener Listener) (Summary, error) {
	ctx = services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(ctx, s.logger)

	queue, err := s.Enumerate(ctx, job)
	if err != nil {
		return Summary{JobID: job.ID, TestMode: job.opts.TestMode}, err
	}
	total := queue.Len()
	logger.Info("sort started",
		logging.Strings("sources", job.opts.SourceRoots),
		logging.String("output", job.opts.OutputRoot),
		logging.Int("items", total),
		logging.Int("workers", job.opts.Workers),
		logging.Bool("mirror", job.Mirror()),
		logging.Bool("anonymize", job.Anonymizes()),
		logging.Bool("dry_run", job.opts.TestMode),
		logging.String(logging.FieldEventType, "sort_started"),
	)

	pool := NewPool(s, job, queue, listener)
	if s.journal != nil && !job.opts.TestMode {
		if err := s.journal.BeginJob(ctx, job, total); err != nil {
			logging.WarnWithContext(logger, "journal unavailable; continuing without history", "journal_begin_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check state_dir permissions"),
			)
		} else {
			pool.journal = s.journal
		}
	}

	pool.Start(ctx)
	summary := pool.Wait()

	if pool.journal != nil {
		// Finish even when canceled so the history shows the partial run.
		if err := pool.journal.FinishJob(context.WithoutCancel(ctx), summary); err != nil {
			logging.WarnWithContext(logger, "journal finish failed", "journal_finish_failed", logging.Error(err))
		}
	}

	logger.Info("sort finished",
		logging.Int("total", summary.Total),
		logging.Int("done", summary.Done),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed),
		logging.Bool("canceled", summary.Canceled),
		logging.Duration("elapsed", summary.Finished.Sub(summary.Started).Round(time.Millisecond)),
		logging.String(logging.FieldEventType, "sort_finished"),
	)
	if summary.Canceled {
		return summary, ctx.Err()
	}
	return summary, nil
}

// FirstRecord returns the first parseable record under roots, walked in
// lexical order. It fails with services.ErrNoRecords when none is found.
func (s *Sorter) FirstRecord(ctx context.Context, roots []string) (record.Record, error) {
	var found record.Record
	err := s.walkRoots(ctx, roots, nil, func(item WorkItem) error {
		rec, err := s.parser.TryParse(item.Path)
		if err != nil {
			if !errors.Is(err, record.ErrNotARecord) {
				s.logger.Debug("record probe failed", logging.String("path", item.Path), logging.Error(err))
			}
			return nil
		}
		found = rec
		return errStopWalk
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, services.Wrap(services.ErrNoRecords, "sorter", "discover fields", strings.Join(roots, ";")+" contains no records", nil)
	}
	return found, nil
}

// AvailableFields lists the field names of the first record under roots.
func (s *Sorter) AvailableFields(ctx context.Context, roots []string) ([]string, error) {
	rec, err := s.FirstRecord(ctx, roots)
	if err != nil {
		return nil, err
	}
	return rec.FieldNames(), nil
}
