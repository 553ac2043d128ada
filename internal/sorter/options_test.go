package sorter_test

import (
	"errors"
	"testing"

	"dicomsort/internal/anonymize"
	"dicomsort/internal/services"
	"dicomsort/internal/sorter"
)

func TestNewJobRejectsBadOptions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*sorter.Options)
	}{
		{"no sources", func(o *sorter.Options) { o.SourceRoots = nil }},
		{"blank source", func(o *sorter.Options) { o.SourceRoots = []string{" "} }},
		{"no output", func(o *sorter.Options) { o.OutputRoot = "" }},
		{"negative workers", func(o *sorter.Options) { o.Workers = -1 }},
		{"bad directory template", func(o *sorter.Options) { o.DirTemplates = []string{"%(PatientName)"} }},
		{"bad filename template", func(o *sorter.Options) { o.FilenameTemplate = "%(X)z" }},
		{"bad rule", func(o *sorter.Options) { o.Rules = anonymize.Rules{"": "x"} }},
		{"suffix with separator", func(o *sorter.Options) { o.CollisionSuffix = "/dup" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := sorter.NewJob(options(tt.mutate)); !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestNewJobFillsDefaults(t *testing.T) {
	job, err := sorter.NewJob(sorter.Options{
		SourceRoots:  []string{"/in"},
		OutputRoot:   "/out",
		DirTemplates: []string{"%(PatientName)s"},
	})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	opts := job.Options()
	if opts.Workers != 2 || opts.RecursionLimit != 5 || opts.CollisionSuffix != ".copy" || opts.FilenameTemplate == "" {
		t.Fatalf("defaults not applied: %+v", opts)
	}
	if job.ID == "" || job.Mirror() || job.Anonymizes() {
		t.Fatalf("unexpected job %+v", job)
	}
}

func TestJobOptionsAreCopies(t *testing.T) {
	rules := anonymize.Rules{"PatientName": "ANON"}
	job, err := sorter.NewJob(options(func(o *sorter.Options) { o.Rules = rules }))
	if err != nil {
		t.Fatal(err)
	}
	rules["PatientName"] = "changed"
	got := job.Options()
	got.Rules["PatientID"] = "x"
	got.DirTemplates[0] = "changed"

	again := job.Options()
	if again.Rules["PatientName"] != "ANON" || len(again.Rules) != 1 || again.DirTemplates[0] == "changed" {
		t.Fatalf("job options leaked: %+v", again)
	}
	if !job.Anonymizes() {
		t.Fatal("expected anonymizing job")
	}
}

func TestDefaultOptionsKeepOriginals(t *testing.T) {
	opts := sorter.DefaultOptions()
	if !opts.KeepOriginal || opts.Workers != 2 || len(opts.DirTemplates) != 3 {
		t.Fatalf("unexpected defaults %+v", opts)
	}
}
