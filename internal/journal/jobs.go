package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dicomsort/internal/sorter"
)

var _ sorter.Journal = (*Store)(nil)

const jobColumns = "id, status, sources_json, output_root, mode, mirror, anonymize, workers, total, done, skipped, failed, created_at, finished_at"

// timestampLayout is fixed width so stored timestamps sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

const itemColumns = "seq, source_path, destination, state, action, error_message, worker, duration_ms, recorded_at"

// BeginJob inserts a running job with its enumerated total.
func (s *Store) BeginJob(ctx context.Context, job *sorter.Job, total int) error {
	opts := job.Options()
	sources, err := json.Marshal(opts.SourceRoots)
	if err != nil {
		return fmt.Errorf("marshal sources: %w", err)
	}
	mode := string(sorter.ActionCopy)
	if !opts.KeepOriginal {
		mode = string(sorter.ActionMove)
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
            id, status, sources_json, output_root, mode, mirror, anonymize,
            workers, total, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		JobRunning,
		string(sources),
		opts.OutputRoot,
		mode,
		boolToInt(job.Mirror()),
		boolToInt(job.Anonymizes()),
		opts.Workers,
		total,
		job.Created.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// RecordItem appends one processed item and bumps the job counters.
func (s *Store) RecordItem(ctx context.Context, jobID string, count int, result sorter.ItemResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin item tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var message any
	if result.Err != nil {
		message = result.Err.Error()
	}
	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO items (
            job_id, seq, source_path, destination, state, action,
            error_message, worker, duration_ms, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		jobID,
		count,
		result.Path,
		nullableString(result.Destination),
		string(result.State),
		nullableString(string(result.Action)),
		message,
		result.Worker,
		result.Duration.Milliseconds(),
		time.Now().UTC().Format(timestampLayout),
	); err != nil {
		return fmt.Errorf("insert item: %w", err)
	}

	column := "failed"
	switch result.State {
	case sorter.StateDone:
		column = "done"
	case sorter.StateSkipped:
		column = "skipped"
	}
	if _, err := tx.ExecContext(ctx, "UPDATE jobs SET "+column+" = "+column+" + 1 WHERE id = ?", jobID); err != nil {
		return fmt.Errorf("update job counters: %w", err)
	}
	return tx.Commit()
}

// FinishJob stores the final counters and status.
func (s *Store) FinishJob(ctx context.Context, summary sorter.Summary) error {
	status := JobCompleted
	if summary.Canceled {
		status = JobCanceled
	}
	finished := summary.Finished
	if finished.IsZero() {
		finished = time.Now()
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET status = ?, total = ?, done = ?, skipped = ?, failed = ?, finished_at = ? WHERE id = ?`,
		status,
		summary.Total,
		summary.Done,
		summary.Skipped,
		summary.Failed,
		finished.UTC().Format(timestampLayout),
		summary.JobID,
	)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish job %s: %w", summary.JobID, ErrJobNotFound)
	}
	return nil
}

// ListJobs returns the most recent jobs first. limit <= 0 returns all.
func (s *Store) ListJobs(ctx context.Context, limit int) ([]Job, error) {
	query := "SELECT " + jobColumns + " FROM jobs ORDER BY created_at DESC, id"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// GetJob fetches a job by full ID or unique ID prefix.
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	if id == "" {
		return nil, ErrJobNotFound
	}
	rows, err := s.db.QueryContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ? OR substr(id, 1, ?) = ? LIMIT 2", id, len(id), id)
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	defer rows.Close()

	var found []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		found = append(found, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%s: %w", id, ErrJobNotFound)
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%s: %w", id, ErrAmbiguousID)
	}
}

// JobItems returns the items of a job in progress order.
func (s *Store) JobItems(ctx context.Context, jobID string) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+itemColumns+" FROM items WHERE job_id = ? ORDER BY seq", jobID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// DeleteJob removes a job and its items.
func (s *Store) DeleteJob(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM jobs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", id, ErrJobNotFound)
	}
	return nil
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		job         Job
		status      string
		sourcesJSON string
		mirror      int
		anonymize   int
		createdRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&job.ID,
		&status,
		&sourcesJSON,
		&job.OutputRoot,
		&job.Mode,
		&mirror,
		&anonymize,
		&job.Workers,
		&job.Total,
		&job.Done,
		&job.Skipped,
		&job.Failed,
		&createdRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}
	job.Status = JobStatus(status)
	job.Mirror = mirror != 0
	job.Anonymize = anonymize != 0
	if err := json.Unmarshal([]byte(sourcesJSON), &job.Sources); err != nil {
		return nil, fmt.Errorf("decode sources: %w", err)
	}
	job.CreatedAt = parseTime(createdRaw)
	if finishedRaw.Valid {
		job.FinishedAt = parseTime(finishedRaw.String)
	}
	return &job, nil
}

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		item        Item
		destination sql.NullString
		action      sql.NullString
		message     sql.NullString
		worker      sql.NullInt64
		durationMS  sql.NullInt64
		recordedRaw string
	)
	if err := scanner.Scan(
		&item.Seq,
		&item.SourcePath,
		&destination,
		&item.State,
		&action,
		&message,
		&worker,
		&durationMS,
		&recordedRaw,
	); err != nil {
		return nil, err
	}
	item.Destination = destination.String
	item.Action = action.String
	item.ErrorMessage = message.String
	item.Worker = int(worker.Int64)
	item.Duration = time.Duration(durationMS.Int64) * time.Millisecond
	item.RecordedAt = parseTime(recordedRaw)
	return &item, nil
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// IsNotFound reports whether err means the job does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrJobNotFound)
}
