package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"fintrack/internal/parser"

	"github.com/spf13/cobra"
)

func inspectCmd() *cobra.Command {
	var previewRows int

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Show headers, suggested column mapping and a preview",
		Example: `  importctl inspect ~/Downloads/statement.csv
  importctl inspect --preview 10 export.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := parseFile(args[0])
			if err != nil {
				return err
			}
			return printInspection(cmd.OutOrStdout(), res, previewRows)
		},
	}

	cmd.Flags().IntVarP(&previewRows, "preview", "n", 5, "number of rows to preview")
	return cmd
}

func printInspection(w io.Writer, res *parser.ParseResult, previewRows int) error {
	suggestions := parser.SuggestColumnMapping(res.Headers)

	fmt.Fprintf(w, "Rows:    %d\n", res.TotalRows)
	fmt.Fprintf(w, "Headers: %s\n\n", strings.Join(res.Headers, ", "))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tFIELD\tCONFIDENCE\tREASON")
	for _, s := range suggestions {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\n", s.SourceColumn, s.TargetField, s.Confidence, s.Reasoning)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	mapping := parser.BestMapping(suggestions).Strings()
	fields := make([]string, 0, len(mapping))
	for f := range mapping {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	fmt.Fprintln(w, "\nSuggested mapping:")
	for _, f := range fields {
		fmt.Fprintf(w, "  --map %s=%q\n", f, mapping[f])
	}

	if previewRows > len(res.Rows) {
		previewRows = len(res.Rows)
	}
	if previewRows <= 0 {
		return nil
	}

	fmt.Fprintln(w, "\nPreview:")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(res.Headers, "\t"))
	for _, row := range res.Rows[:previewRows] {
		values := make([]string, len(res.Headers))
		for i, h := range res.Headers {
			values[i] = row[h]
		}
		fmt.Fprintln(tw, strings.Join(values, "\t"))
	}
	return tw.Flush()
}
