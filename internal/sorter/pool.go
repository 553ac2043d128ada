package sorter

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"dicomsort/internal/logging"
	"dicomsort/internal/services"
)

// Pool drains a queue with a fixed number of workers.
type Pool struct {
	sorter   *Sorter
	job      *Job
	queue    *Queue
	listener Listener
	journal  Journal
	total    int

	emitMu  sync.Mutex
	count   int
	summary Summary

	startOnce sync.Once
	wg        sync.WaitGroup
	running   atomic.Int32
	ctx       context.Context
}

// NewPool prepares a pool for job. The queue must be fully populated; its
// length at this point is the run total. listener may be nil.
func NewPool(s *Sorter, job *Job, queue *Queue, listener Listener) *Pool {
	total := queue.Len()
	return &Pool{
		sorter:   s,
		job:      job,
		queue:    queue,
		listener: listener,
		total:    total,
		summary: Summary{
			JobID:    job.ID,
			Total:    total,
			TestMode: job.opts.TestMode,
		},
	}
}

// Start launches min(job workers, total) workers. Later calls are no-ops.
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		ctx = services.WithJobID(ctx, p.job.ID)
		p.ctx = ctx
		p.summary.Started = time.Now().UTC()
		workers := min(p.job.opts.Workers, p.total)
		p.running.Store(int32(workers))
		p.wg.Add(workers)
		for id := 1; id <= workers; id++ {
			go p.work(services.WithWorker(ctx, id), id)
		}
	})
}

// Wait blocks until every worker exits and returns the run summary.
func (p *Pool) Wait() Summary {
	p.wg.Wait()
	p.emitMu.Lock()
	defer p.emitMu.Unlock()
	summary := p.summary
	if summary.Finished.IsZero() {
		summary.Finished = time.Now().UTC()
		if summary.Started.IsZero() {
			summary.Started = summary.Finished
		}
		p.summary.Finished = summary.Finished
	}
	if p.ctx != nil && p.ctx.Err() != nil && summary.Processed() < summary.Total {
		summary.Canceled = true
	}
	return summary
}

// Running reports whether any worker is still active.
func (p *Pool) Running() bool {
	return p.running.Load() > 0
}

func (p *Pool) work(ctx context.Context, id int) {
	defer p.wg.Done()
	defer p.running.Add(-1)

	logger := logging.WithContext(ctx, p.sorter.logger)
	for {
		if ctx.Err() != nil {
			logger.Debug("worker stopping on cancellation")
			return
		}
		item, ok := p.queue.TryPop()
		if !ok {
			return
		}
		itemCtx := services.WithItemPath(ctx, item.Path)
		result := p.process(itemCtx, logging.WithContext(itemCtx, p.sorter.logger), item)
		result.Worker = id
		p.emit(itemCtx, result)
	}
}

func (p *Pool) emit(ctx context.Context, result ItemResult) {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	p.count++
	p.summary.add(result)
	if p.journal != nil {
		if err := p.journal.RecordItem(context.WithoutCancel(ctx), p.job.ID, p.count, result); err != nil {
			p.sorter.logger.Warn("journal item write failed",
				logging.String("path", result.Path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "journal_item_failed"),
			)
		}
	}
	if p.listener != nil {
		p.listener.Progress(Event{Count: p.count, Total: p.total, Result: result})
	}
}

func (p *Pool) logResult(logger *slog.Logger, result ItemResult) {
	switch result.State {
	case StateFailed:
		logging.WarnWithContext(logger, "item failed", "item_failed",
			logging.String("destination", result.Destination),
			logging.Error(result.Err),
			logging.String(logging.FieldErrorHint, "check the destination tree permissions and free space"),
		)
	case StateSkipped:
		logger.Debug("item skipped", logging.String(logging.FieldEventType, "item_skipped"))
	default:
		logger.Debug("item sorted",
			logging.String("destination", result.Destination),
			logging.String("action", string(result.Action)),
			logging.Duration("elapsed", result.Duration),
			logging.String(logging.FieldEventType, "item_sorted"),
		)
	}
}
