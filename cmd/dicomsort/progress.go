package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"

	"dicomsort/internal/logging"
	"dicomsort/internal/sorter"
)

// progressListener renders sort progress. Terminals get a redrawn status
// line; other outputs get sampled log lines. Dry runs print one line per
// destination instead.
type progressListener struct {
	out         io.Writer
	term        io.Writer
	logger      *slog.Logger
	sampler     *logging.ProgressSampler
	interactive bool
	dryRun      bool
	quiet       bool
	drawn       bool
}

func newProgressListener(out, term io.Writer, logger *slog.Logger, dryRun, quiet bool) *progressListener {
	return &progressListener{
		out:         out,
		term:        term,
		logger:      logger,
		sampler:     logging.NewProgressSampler(10),
		interactive: isTerminal(term),
		dryRun:      dryRun,
		quiet:       quiet,
	}
}

func (l *progressListener) Progress(ev sorter.Event) {
	if l.dryRun {
		if ev.Result.State == sorter.StateDone {
			fmt.Fprintf(l.out, "%s -> %s\n", ev.Result.Path, ev.Result.Destination)
		}
		return
	}
	if l.quiet {
		return
	}
	if l.interactive {
		fmt.Fprintf(l.term, "\r\033[K[%d/%d] %s", ev.Count, ev.Total, filepath.Base(ev.Result.Path))
		l.drawn = true
		return
	}
	if l.sampler.ShouldLog(ev.Count, ev.Total) {
		percent := 100
		if ev.Total > 0 {
			percent = ev.Count * 100 / ev.Total
		}
		l.logger.Info("sort progress",
			logging.Int("count", ev.Count),
			logging.Int("total", ev.Total),
			logging.Int("percent", percent),
			logging.String(logging.FieldEventType, "sort_progress"),
		)
	}
}

func (l *progressListener) finish() {
	if l.drawn {
		fmt.Fprintln(l.term)
		l.drawn = false
	}
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
