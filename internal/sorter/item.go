package sorter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dicomsort/internal/anonymize"
	"dicomsort/internal/fields"
	"dicomsort/internal/fileutil"
	"dicomsort/internal/logging"
	"dicomsort/internal/record"
	"dicomsort/internal/services"
	"dicomsort/internal/textutil"
)

// process runs one item to a terminal state. Panics are recovered and
// reported as failures so one bad file never stops the pool.
func (p *Pool) process(ctx context.Context, logger *slog.Logger, item WorkItem) (result ItemResult) {
	started := time.Now()
	result = ItemResult{Path: item.Path, State: StateQueued}
	defer func() {
		if r := recover(); r != nil {
			during := result.State
			result.State = StateFailed
			result.Action = ActionNone
			result.Err = services.Wrap(services.ErrIO, "sorter", "process item", fmt.Sprintf("panic while %s", during), fmt.Errorf("%v", r))
		}
		result.Duration = time.Since(started)
		p.logResult(logger, result)
	}()

	opts := p.job.opts
	result.State = StateParsing

	rec, err := p.sorter.parser.TryParse(item.Path)
	if err != nil {
		if errors.Is(err, record.ErrNotARecord) {
			result.State = StateSkipped
			return result
		}
		return failed(result, services.Wrap(services.ErrIO, "sorter", "parse", item.Path, err))
	}

	result.State = StateResolving
	res := fields.New(rec)
	res.SetSeriesFirst(opts.SeriesFirst)
	effective := anonymize.Apply(opts.Rules, res)

	result.State = StateRendering
	dest := p.destination(logger, item, res)
	result.Destination = dest

	if opts.TestMode {
		result.State = StateDone
		result.Action = ActionPreview
		return result
	}
	if err := ctx.Err(); err != nil {
		return failed(result, err)
	}

	result.State = StateWriting
	claimed, err := fileutil.ClaimUnique(p.sorter.fs, dest, opts.CollisionSuffix)
	if err != nil {
		return failed(result, services.Wrap(services.ErrIO, "sorter", "claim destination", dest, err))
	}
	result.Destination = claimed

	switch {
	case res.IsAnonymous():
		result.Action = ActionAnonymize
		err = p.writeAnonymized(logger, rec, res, effective, item.Path, claimed)
	case opts.KeepOriginal:
		result.Action = ActionCopy
		if copyErr := fileutil.CopyFile(p.sorter.fs, item.Path, claimed); copyErr != nil {
			err = services.Wrap(services.ErrIO, "sorter", "copy", claimed, copyErr)
		}
	default:
		result.Action = ActionMove
		if moveErr := fileutil.Move(p.sorter.fs, item.Path, claimed); moveErr != nil {
			err = services.Wrap(services.ErrIO, "sorter", "move", claimed, moveErr)
		}
	}
	if err != nil {
		if exists(p.sorter, item.Path) {
			_ = p.sorter.fs.Remove(claimed)
		}
		return failed(result, err)
	}

	result.State = StateDone
	return result
}

func (p *Pool) writeAnonymized(logger *slog.Logger, rec record.Record, res *fields.Resolver, effective anonymize.Rules, source, claimed string) error {
	writes, err := anonymize.PendingWrites(effective, res, p.job.engine)
	if err != nil {
		return services.Wrap(services.ErrPersist, "sorter", "render anonymized fields", source, err)
	}
	for _, derived := range res.DerivedWrites() {
		if _, ruled := effective[derived.Field]; !ruled {
			writes = append(writes, derived)
		}
	}
	skipped, err := anonymize.ApplyWrites(rec, writes)
	if err != nil {
		return services.Wrap(services.ErrPersist, "sorter", "stage anonymized fields", source, err)
	}
	if len(skipped) > 0 {
		logger.Debug("record lacks anonymized fields", logging.Strings("fields", skipped))
	}

	out, err := p.sorter.fs.OpenFile(claimed, os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return services.Wrap(services.ErrPersist, "sorter", "open destination", claimed, err)
	}
	if err := rec.Encode(out); err != nil {
		_ = out.Close()
		return services.Wrap(services.ErrPersist, "sorter", "encode", claimed, err)
	}
	if err := out.Close(); err != nil {
		return services.Wrap(services.ErrPersist, "sorter", "close destination", claimed, err)
	}

	if !p.job.opts.KeepOriginal {
		if err := p.sorter.fs.Remove(source); err != nil {
			return services.Wrap(services.ErrIO, "sorter", "remove source", source, err)
		}
	}
	return nil
}

// destination builds the target path for item. Template failures never
// fail the item: a directory segment falls back to UNKNOWN and the file
// name to the source basename.
func (p *Pool) destination(logger *slog.Logger, item WorkItem, res *fields.Resolver) string {
	opts := p.job.opts
	base := filepath.Base(item.Path)

	if p.job.Mirror() {
		rel, err := filepath.Rel(item.Root, item.Path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			rel = base
		}
		return filepath.Join(opts.OutputRoot, rel)
	}

	parts := make([]string, 0, len(opts.DirTemplates)+2)
	parts = append(parts, opts.OutputRoot)
	for _, tmpl := range opts.DirTemplates {
		segment, err := p.job.engine.Segment(tmpl, res)
		if err != nil {
			logger.Debug("directory template fell back",
				logging.String("template", tmpl),
				logging.Error(err),
			)
			segment = textutil.UnknownSegment
		}
		parts = append(parts, segment)
	}

	name := base
	if !opts.KeepFilename {
		rendered, err := p.job.engine.Filename(opts.FilenameTemplate, res)
		if err != nil {
			logger.Debug("filename template fell back",
				logging.String("template", opts.FilenameTemplate),
				logging.Error(err),
			)
		} else {
			name = rendered
		}
	}
	parts = append(parts, name)
	return filepath.Join(parts...)
}

func failed(result ItemResult, err error) ItemResult {
	result.State = StateFailed
	result.Err = err
	return result
}

func exists(s *Sorter, path string) bool {
	_, err := s.fs.Stat(path)
	return err == nil
}
