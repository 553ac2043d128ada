package main

import (
	"fmt"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"dicomsort/internal/config"
	"dicomsort/internal/dicomfile"
	"dicomsort/internal/fields"
	"dicomsort/internal/record"
	"dicomsort/internal/sorter"
)

// computedFields are resolved through the field resolver rather than read
// from the record.
var computedFields = []string{fields.FieldImageType, fields.FieldFileExtension, fields.FieldSeriesDescription}

func newFieldsCommand(ctx *commandContext) *cobra.Command {
	var namesOnly bool

	cmd := &cobra.Command{
		Use:   "fields SOURCE...",
		Short: "List the template fields of the first DICOM file found",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, _, err := ctx.newLogger(false)
			if err != nil {
				return err
			}
			roots := make([]string, 0, len(args))
			for _, arg := range args {
				root, err := config.ExpandPath(strings.TrimSpace(arg))
				if err != nil {
					return fmt.Errorf("resolve source %q: %w", arg, err)
				}
				roots = append(roots, root)
			}

			fs := osfs.New("/")
			s := sorter.New(fs, dicomfile.NewParser(fs), logger)
			rec, err := s.FirstRecord(cmd.Context(), roots)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if namesOnly {
				for _, name := range rec.FieldNames() {
					fmt.Fprintln(out, name)
				}
				return nil
			}

			fmt.Fprintf(out, "Fields of %s\n", rec.Filename())
			fmt.Fprint(out, renderTable([]string{"Field", "Source", "Value"}, fieldRows(rec, cfg.Sort.SeriesFirst), nil))
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&namesOnly, "names", false, "Print field names only, one per line")
	return cmd
}

func fieldRows(rec record.Record, seriesFirst bool) [][]string {
	res := fields.New(rec)
	res.SetSeriesFirst(seriesFirst)

	rows := make([][]string, 0, len(computedFields)+len(rec.FieldNames()))
	for _, name := range computedFields {
		value, err := res.GetString(name)
		if err != nil {
			value = "(unavailable)"
		}
		rows = append(rows, []string{name, "computed", value})
	}
	for _, name := range rec.FieldNames() {
		v, err := rec.Get(name)
		if err != nil {
			continue
		}
		rows = append(rows, []string{name, "record", displayValue(v)})
	}
	return rows
}

func displayValue(v any) string {
	if data, ok := v.([]byte); ok {
		return fmt.Sprintf("<%d bytes>", len(data))
	}
	text := record.String(v)
	if len(text) > maxCellWidth*2 {
		text = text[:maxCellWidth*2] + "..."
	}
	return text
}
