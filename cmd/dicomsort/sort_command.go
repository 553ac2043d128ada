package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"dicomsort/internal/anonymize"
	"dicomsort/internal/config"
	"dicomsort/internal/dicomfile"
	"dicomsort/internal/journal"
	"dicomsort/internal/logging"
	"dicomsort/internal/services"
	"dicomsort/internal/sorter"
)

type sortFlags struct {
	output       string
	dirs         []string
	mirror       bool
	filename     string
	keepFilename bool
	seriesFirst  bool
	move         bool
	dryRun       bool
	workers      int
	anon         []string
	anonFile     string
	ignore       []string
}

func newSortCommand(ctx *commandContext) *cobra.Command {
	var flags sortFlags

	cmd := &cobra.Command{
		Use:   "sort SOURCE...",
		Short: "Sort DICOM files from one or more source trees",
		Long: "Sort walks every SOURCE, parses each DICOM file and copies (or moves) it to\n" +
			"a path rendered from its metadata. Existing files are never overwritten:\n" +
			"colliding names get the configured suffix appended.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts, err := buildSortOptions(cfg, flags, args, cmd.Flags().Changed)
			if err != nil {
				return err
			}
			job, err := sorter.NewJob(opts)
			if err != nil {
				return err
			}

			logger, runLog, err := ctx.newLogger(!opts.TestMode)
			if err != nil {
				return err
			}
			if runLog != "" {
				logging.CleanupOldLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, runLog)
			}

			var sortOpts []sorter.Option
			if !opts.TestMode {
				lock := flock.New(cfg.LockPath())
				ok, err := lock.TryLock()
				if err != nil {
					return fmt.Errorf("acquire sort lock: %w", err)
				}
				if !ok {
					return fmt.Errorf("another sort is already running (lock %s)", cfg.LockPath())
				}
				defer func() {
					_ = lock.Unlock()
				}()

				store, err := journal.Open(cfg)
				if err != nil {
					logging.WarnWithContext(logger, "journal unavailable; history will not include this run", "journal_open_failed",
						logging.Error(err),
						logging.String(logging.FieldErrorHint, "check state_dir permissions"),
					)
				} else {
					defer store.Close()
					sortOpts = append(sortOpts, sorter.WithJournal(store))
				}
			}

			fs := osfs.New("/")
			s := sorter.New(fs, dicomfile.NewParser(fs), logger, sortOpts...)
			out := cmd.OutOrStdout()
			listener := newProgressListener(out, cmd.ErrOrStderr(), logger, opts.TestMode, ctx.isQuiet())

			summary, runErr := s.Run(cmd.Context(), job, listener)
			listener.finish()
			printSummary(out, summary, opts)
			if runErr != nil {
				return runErr
			}
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d files failed to sort; see the log for details", summary.Failed, summary.Total)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.output, "output", "o", "", "Destination root (defaults to paths.output_dir)")
	f.StringArrayVarP(&flags.dirs, "dir", "d", nil, "Directory template, one per level (repeatable)")
	f.BoolVar(&flags.mirror, "mirror", false, "Reproduce the source tree instead of rendering directory templates")
	f.StringVarP(&flags.filename, "filename", "f", "", "Filename template")
	f.BoolVar(&flags.keepFilename, "keep-filename", false, "Keep source filenames")
	f.BoolVar(&flags.seriesFirst, "series-first", false, "Render SeriesDescription as Series0003_<desc>")
	f.BoolVar(&flags.move, "move", false, "Move files instead of copying them")
	f.BoolVarP(&flags.dryRun, "dry-run", "n", false, "Print destinations without writing anything")
	f.IntVarP(&flags.workers, "workers", "w", 0, "Number of parallel workers")
	f.StringArrayVar(&flags.anon, "anon", nil, "Anonymize FIELD=TEMPLATE (repeatable)")
	f.StringVar(&flags.anonFile, "anon-file", "", "YAML or JSON file of anonymization rules")
	f.StringArrayVar(&flags.ignore, "ignore", nil, "gitignore-style pattern to skip (repeatable)")
	cmd.MarkFlagsMutuallyExclusive("dir", "mirror")
	cmd.MarkFlagsMutuallyExclusive("filename", "keep-filename")

	return cmd
}

// buildSortOptions layers command-line flags over the configuration file.
func buildSortOptions(cfg *config.Config, flags sortFlags, args []string, changed func(string) bool) (sorter.Options, error) {
	opts := sorter.DefaultOptions()

	for _, arg := range args {
		root, err := config.ExpandPath(strings.TrimSpace(arg))
		if err != nil {
			return opts, fmt.Errorf("resolve source %q: %w", arg, err)
		}
		opts.SourceRoots = append(opts.SourceRoots, root)
	}

	output := cfg.Paths.OutputDir
	if strings.TrimSpace(flags.output) != "" {
		expanded, err := config.ExpandPath(strings.TrimSpace(flags.output))
		if err != nil {
			return opts, fmt.Errorf("resolve output %q: %w", flags.output, err)
		}
		output = expanded
	}
	if output == "" {
		return opts, services.Wrap(services.ErrConfiguration, "sort", "resolve output", "pass --output or set paths.output_dir", nil)
	}
	opts.OutputRoot = output

	switch {
	case flags.mirror:
		opts.DirTemplates = nil
	case len(flags.dirs) > 0:
		opts.DirTemplates = append([]string{}, flags.dirs...)
	default:
		opts.DirTemplates = cfg.DirectoryTemplates()
	}

	opts.FilenameTemplate = cfg.Sort.FilenameTemplate
	if changed("filename") {
		opts.FilenameTemplate = flags.filename
	}
	opts.KeepOriginal = cfg.Sort.KeepOriginal && !flags.move
	opts.KeepFilename = cfg.Sort.KeepFilename || flags.keepFilename
	opts.SeriesFirst = cfg.Sort.SeriesFirst || flags.seriesFirst
	opts.TestMode = flags.dryRun
	opts.Workers = cfg.Sort.Workers
	if changed("workers") {
		if flags.workers < 1 {
			return opts, services.Wrap(services.ErrConfiguration, "sort", "parse flags", "--workers must be at least 1", nil)
		}
		opts.Workers = flags.workers
	}
	opts.RecursionLimit = cfg.Sort.RecursionLimit
	opts.CollisionSuffix = cfg.Sort.CollisionSuffix
	opts.Ignore = append(append([]string{}, cfg.Sort.Ignore...), flags.ignore...)

	rules, err := buildRules(cfg, flags)
	if err != nil {
		return opts, err
	}
	opts.Rules = rules
	return opts, nil
}

// buildRules merges configured rules, then --anon-file, then --anon pairs.
func buildRules(cfg *config.Config, flags sortFlags) (anonymize.Rules, error) {
	rules, err := cfg.AnonymizeRules()
	if err != nil {
		return nil, err
	}
	if flags.anonFile == "" && len(flags.anon) == 0 {
		return rules, nil
	}
	if rules == nil {
		rules = anonymize.Rules{}
	}
	if flags.anonFile != "" {
		path, err := config.ExpandPath(flags.anonFile)
		if err != nil {
			return nil, fmt.Errorf("resolve rules file: %w", err)
		}
		fromFile, err := anonymize.LoadRulesFile(path)
		if err != nil {
			return nil, err
		}
		for name, value := range fromFile {
			rules[name] = value
		}
	}
	for _, pair := range flags.anon {
		name, value, err := parseAnonPair(pair)
		if err != nil {
			return nil, err
		}
		rules[name] = value
	}
	return rules, rules.Validate()
}

func parseAnonPair(pair string) (string, string, error) {
	name, value, ok := strings.Cut(pair, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", services.Wrap(services.ErrConfiguration, "sort", "parse flags", fmt.Sprintf("--anon %q must be FIELD=TEMPLATE", pair), nil)
	}
	return name, value, nil
}

func printSummary(w io.Writer, summary sorter.Summary, opts sorter.Options) {
	verb := "Sorted"
	switch {
	case opts.TestMode:
		verb = "Would sort"
	case !opts.KeepOriginal:
		verb = "Moved"
	}
	fmt.Fprintf(w, "%s %d of %d files into %s (skipped %d, failed %d)\n",
		verb, summary.Done, summary.Total, opts.OutputRoot, summary.Skipped, summary.Failed)
	if summary.Canceled {
		fmt.Fprintf(w, "Canceled after %d of %d files\n", summary.Processed(), summary.Total)
	}
	if !opts.TestMode && summary.JobID != "" {
		fmt.Fprintf(w, "Job %s (dicomsort history show %s)\n", shortID(summary.JobID), shortID(summary.JobID))
	}
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
