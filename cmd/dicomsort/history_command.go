package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dicomsort/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled sort runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openJournal(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			jobs, err := store.ListJobs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(out, "No sort runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				rows = append(rows, []string{
					job.ShortID(),
					formatTimestamp(job.CreatedAt),
					string(job.Status),
					job.Mode,
					strconv.Itoa(job.Total),
					strconv.Itoa(job.Done),
					strconv.Itoa(job.Skipped),
					strconv.Itoa(job.Failed),
					job.OutputRoot,
				})
			}
			fmt.Fprint(out, renderTable(
				[]string{"Job", "Started", "Status", "Mode", "Total", "Done", "Skipped", "Failed", "Output"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
			))
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of runs to list (0 for all)")
	cmd.AddCommand(newHistoryShowCommand(ctx))
	cmd.AddCommand(newHistoryDeleteCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var failedOnly bool

	cmd := &cobra.Command{
		Use:   "show JOB_ID",
		Short: "Show the files processed by one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openJournal(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			job, err := store.GetJob(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			items, err := store.JobItems(cmd.Context(), job.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job:       %s\n", job.ID)
			fmt.Fprintf(out, "Status:    %s\n", job.Status)
			fmt.Fprintf(out, "Started:   %s\n", formatTimestamp(job.CreatedAt))
			if !job.FinishedAt.IsZero() {
				fmt.Fprintf(out, "Finished:  %s (%s)\n", formatTimestamp(job.FinishedAt), job.FinishedAt.Sub(job.CreatedAt).Round(time.Second))
			}
			fmt.Fprintf(out, "Sources:   %s\n", strings.Join(job.Sources, ", "))
			fmt.Fprintf(out, "Output:    %s\n", job.OutputRoot)
			fmt.Fprintf(out, "Mode:      %s (mirror %s, anonymize %s, %d workers)\n", job.Mode, yesNo(job.Mirror), yesNo(job.Anonymize), job.Workers)
			fmt.Fprintf(out, "Files:     %d total, %d done, %d skipped, %d failed\n", job.Total, job.Done, job.Skipped, job.Failed)

			rows := make([][]string, 0, len(items))
			for _, item := range items {
				if failedOnly && item.State != "failed" {
					continue
				}
				detail := item.Destination
				if item.ErrorMessage != "" {
					detail = item.ErrorMessage
				}
				rows = append(rows, []string{strconv.Itoa(item.Seq), item.State, item.SourcePath, detail})
			}
			if len(rows) == 0 {
				return nil
			}
			fmt.Fprintln(out)
			fmt.Fprint(out, renderTable(
				[]string{"#", "State", "Source", "Destination / Error"},
				rows,
				[]columnAlignment{alignRight},
			))
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only list failed files")
	return cmd
}

func newHistoryDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete JOB_ID",
		Short: "Remove one run and its files from the history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openJournal(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			job, err := store.GetJob(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			if err := store.DeleteJob(cmd.Context(), job.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted job %s (%d files)\n", job.ShortID(), job.Total)
			return nil
		},
	}
}

func openJournal(ctx *commandContext) (*journal.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := journal.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return store, nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
