package sorter

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/util"
	ignore "github.com/sabhiram/go-gitignore"

	"dicomsort/internal/logging"
	"dicomsort/internal/services"
)

// IgnoreFileName is read from the top of every source root. Its lines are
// gitignore-style patterns added to the job ignore list for that root.
const IgnoreFileName = ".dicomsortignore"

// Enumerate walks every source root of job and queues each regular file not
// matched by an ignore pattern. Unreadable subdirectories are logged and
// skipped; an unreadable root fails the enumeration.
func (s *Sorter) Enumerate(ctx context.Context, job *Job) (*Queue, error) {
	queue := NewQueue()
	err := s.walkRoots(ctx, job.opts.SourceRoots, job.opts.Ignore, func(item WorkItem) error {
		queue.Push(item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return queue, nil
}

// errStopWalk ends a walk early without reporting a failure.
var errStopWalk = errors.New("stop walk")

func (s *Sorter) walkRoots(ctx context.Context, roots, patterns []string, visit func(WorkItem) error) error {
	for _, root := range roots {
		root = filepath.Clean(root)
		if err := s.walkRoot(ctx, root, patterns, visit); err != nil {
			if errors.Is(err, errStopWalk) {
				return nil
			}
			return err
		}
	}
	return nil
}

func (s *Sorter) walkRoot(ctx context.Context, root string, patterns []string, visit func(WorkItem) error) error {
	info, err := s.fs.Stat(root)
	if err != nil {
		return services.Wrap(services.ErrIO, "sorter", "enumerate", "source root "+root, err)
	}
	if !info.IsDir() {
		return visit(WorkItem{Path: root, Root: filepath.Dir(root)})
	}

	matcher := s.ignoreMatcher(root, patterns)
	return util.Walk(s.fs, root, func(path string, info fs.FileInfo, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == root {
				return services.Wrap(services.ErrIO, "sorter", "enumerate", "source root "+root, walkErr)
			}
			s.logger.Warn("skipping unreadable path",
				logging.String("path", path),
				logging.Error(walkErr),
				logging.String(logging.FieldEventType, "enumerate_unreadable"),
				logging.String(logging.FieldErrorHint, "check permissions on the source tree"),
			)
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if info.IsDir() {
			if matcher.MatchesPath(rel) || matcher.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !s.isRegular(path, info) || matcher.MatchesPath(rel) {
			return nil
		}
		return visit(WorkItem{Path: path, Root: root})
	})
}

func (s *Sorter) ignoreMatcher(root string, patterns []string) *ignore.GitIgnore {
	lines := make([]string, 0, len(patterns)+1)
	lines = append(lines, IgnoreFileName)
	lines = append(lines, patterns...)
	data, err := util.ReadFile(s.fs, filepath.Join(root, IgnoreFileName))
	switch {
	case err == nil:
		for line := range strings.SplitSeq(string(data), "\n") {
			lines = append(lines, strings.TrimRight(line, "\r"))
		}
	case !errors.Is(err, os.ErrNotExist):
		s.logger.Warn("ignore file unreadable; using job patterns only",
			logging.String("path", filepath.Join(root, IgnoreFileName)),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ignore_file_unreadable"),
		)
	}
	return ignore.CompileIgnoreLines(lines...)
}

func (s *Sorter) isRegular(path string, info fs.FileInfo) bool {
	if info.Mode().IsRegular() {
		return true
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return false
	}
	target, err := s.fs.Stat(path)
	return err == nil && target.Mode().IsRegular()
}
