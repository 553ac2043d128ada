package sorter

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"dicomsort/internal/anonymize"
	"dicomsort/internal/services"
	"dicomsort/internal/template"
)

const (
	defaultWorkers         = 2
	defaultCollisionSuffix = ".copy"
	defaultFilename        = "%(ImageType)s (%(InstanceNumber)04d)%(FileExtension)s"
)

// DefaultDirTemplates is the directory layout used when none is supplied.
var DefaultDirTemplates = []string{
	"%(PatientName)s",
	"%(StudyDescription)s",
	"%(SeriesDescription)s",
}

// Options configures a sort job.
type Options struct {
	SourceRoots []string
	OutputRoot  string
	// DirTemplates renders one directory segment each. nil selects mirror
	// mode: destinations repeat the source layout under OutputRoot.
	DirTemplates     []string
	FilenameTemplate string
	Rules            anonymize.Rules
	KeepOriginal     bool
	KeepFilename     bool
	SeriesFirst      bool
	// TestMode reports destinations without touching the filesystem.
	TestMode        bool
	Workers         int
	RecursionLimit  int
	CollisionSuffix string
	// Ignore holds gitignore-style patterns matched against paths relative
	// to each source root.
	Ignore []string
}

// DefaultOptions returns options with every default filled in.
func DefaultOptions() Options {
	return Options{
		DirTemplates:     slices.Clone(DefaultDirTemplates),
		FilenameTemplate: defaultFilename,
		KeepOriginal:     true,
		Workers:          defaultWorkers,
		RecursionLimit:   template.DefaultRecursionLimit,
		CollisionSuffix:  defaultCollisionSuffix,
	}
}

// Job is a validated, read-only sort configuration.
type Job struct {
	ID      string
	Created time.Time

	opts   Options
	engine *template.Engine
}

// NewJob validates opts, fills defaults for zero values and assigns an ID.
// Validation failures wrap services.ErrConfiguration.
func NewJob(opts Options) (*Job, error) {
	opts = cloneOptions(opts)
	if len(opts.SourceRoots) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "sorter", "new job", "at least one source root is required", nil)
	}
	for _, root := range opts.SourceRoots {
		if strings.TrimSpace(root) == "" {
			return nil, services.Wrap(services.ErrConfiguration, "sorter", "new job", "source root is empty", nil)
		}
	}
	if strings.TrimSpace(opts.OutputRoot) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "sorter", "new job", "output root is required", nil)
	}
	if opts.Workers < 0 {
		return nil, services.Wrap(services.ErrConfiguration, "sorter", "new job", fmt.Sprintf("workers must be positive, got %d", opts.Workers), nil)
	}
	if opts.Workers == 0 {
		opts.Workers = defaultWorkers
	}
	if opts.RecursionLimit < 0 {
		return nil, services.Wrap(services.ErrConfiguration, "sorter", "new job", fmt.Sprintf("recursion limit must be positive, got %d", opts.RecursionLimit), nil)
	}
	if opts.RecursionLimit == 0 {
		opts.RecursionLimit = template.DefaultRecursionLimit
	}
	if opts.CollisionSuffix == "" {
		opts.CollisionSuffix = defaultCollisionSuffix
	}
	if strings.ContainsAny(opts.CollisionSuffix, `/\`) {
		return nil, services.Wrap(services.ErrConfiguration, "sorter", "new job", "collision suffix must not contain path separators", nil)
	}
	if opts.FilenameTemplate == "" {
		opts.FilenameTemplate = defaultFilename
	}

	for _, tmpl := range append(slices.Clone(opts.DirTemplates), opts.FilenameTemplate) {
		if err := template.Validate(tmpl); err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "sorter", "new job", fmt.Sprintf("template %q", tmpl), err)
		}
	}
	if err := opts.Rules.Validate(); err != nil {
		return nil, err
	}

	return &Job{
		ID:      uuid.NewString(),
		Created: time.Now().UTC(),
		opts:    opts,
		engine:  template.New(opts.RecursionLimit),
	}, nil
}

// Options returns a copy of the job configuration.
func (j *Job) Options() Options {
	return cloneOptions(j.opts)
}

// Mirror reports whether destinations repeat the source layout.
func (j *Job) Mirror() bool {
	return j.opts.DirTemplates == nil
}

// Anonymizes reports whether the job carries replacement rules.
func (j *Job) Anonymizes() bool {
	return len(j.opts.Rules) > 0
}

func cloneOptions(opts Options) Options {
	out := opts
	out.SourceRoots = slices.Clone(opts.SourceRoots)
	if opts.DirTemplates != nil {
		out.DirTemplates = slices.Clone(opts.DirTemplates)
	}
	out.Rules = opts.Rules.Clone()
	out.Ignore = slices.Clone(opts.Ignore)
	return out
}
