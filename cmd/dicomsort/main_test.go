package main

import (
	"errors"
	"fmt"
	"testing"

	"dicomsort/internal/services"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"configuration", services.Wrap(services.ErrConfiguration, "sort", "resolve output", "missing", nil), 2},
		{"wrapped configuration", fmt.Errorf("load: %w", services.Wrap(services.ErrConfiguration, "config", "parse", "x", nil)), 2},
		{"no records", services.Wrap(services.ErrNoRecords, "sorter", "first record", "/in", nil), 1},
		{"plain", errors.New("2 of 3 files failed to sort"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Fatalf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
