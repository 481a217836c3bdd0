package main

import (
	"fmt"
	"io"
	"strings"

	"fintrack/internal/parser"
	"fintrack/pkg/logger"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type validationReport struct {
	Valid   int
	Warning int
	Invalid int
	Issues  []rowIssue
}

type rowIssue struct {
	RowNumber int
	Errors    []string
	Warnings  []string
}

func validateCmd() *cobra.Command {
	var (
		mappings  []string
		quiet     bool
		showLimit int
	)

	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate every row against a column mapping",
		Long: `Validate every row of an export the way the import API does.

Without --map the suggested mapping is used. Prefix a value with __STATIC__
to use a literal instead of a column.`,
		Example: `  importctl validate statement.csv
  importctl validate statement.csv --map date=Posted --map amount=Value --map description=Memo
  importctl validate statement.csv --map currency=__STATIC__EUR`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := parseFile(args[0])
			if err != nil {
				return err
			}

			mapping, err := buildMapping(res.Headers, mappings)
			if err != nil {
				return err
			}
			logger.Get().Debug("Validating file",
				zap.String("file", args[0]),
				zap.Any("mapping", mapping.Strings()),
				zap.Int("rows", res.TotalRows),
			)

			var bar *progressbar.ProgressBar
			if !quiet {
				bar = progressbar.NewOptions(len(res.Rows),
					progressbar.OptionSetWriter(cmd.ErrOrStderr()),
					progressbar.OptionShowCount(),
					progressbar.OptionSetWidth(40),
					progressbar.OptionSetDescription("Validating rows"),
					progressbar.OptionClearOnFinish(),
				)
			}

			report := validateRows(res.Rows, mapping, bar)
			printReport(cmd.OutOrStdout(), report, showLimit)

			if report.Valid+report.Warning == 0 {
				return fmt.Errorf("no importable rows")
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&mappings, "map", "m", nil, "field=Column mapping, repeatable")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "hide the progress bar")
	cmd.Flags().IntVar(&showLimit, "show", 20, "maximum number of problem rows to print (0 for all)")
	return cmd
}

// buildMapping starts from the suggested mapping and applies overrides.
func buildMapping(headers []string, overrides []string) (parser.ColumnMapping, error) {
	raw := parser.BestMapping(parser.SuggestColumnMapping(headers)).Strings()
	for _, o := range overrides {
		field, column, ok := strings.Cut(o, "=")
		if !ok || strings.TrimSpace(field) == "" {
			return nil, fmt.Errorf("invalid --map %q, want field=Column", o)
		}
		raw[strings.TrimSpace(field)] = column
	}

	mapping, err := parser.ParseMapping(raw)
	if err != nil {
		return nil, err
	}

	for field, source := range mapping {
		if strings.HasPrefix(source, parser.StaticPrefix) {
			continue
		}
		if !contains(headers, source) {
			return nil, fmt.Errorf("column %q mapped to %s is not in the file", source, field)
		}
	}
	return mapping, nil
}

func validateRows(rows []parser.ParsedRow, mapping parser.ColumnMapping, bar *progressbar.ProgressBar) validationReport {
	var report validationReport
	for i, row := range rows {
		result := parser.ValidateRow(row, mapping)
		switch {
		case !result.IsValid:
			report.Invalid++
		case len(result.Warnings) > 0:
			report.Warning++
		default:
			report.Valid++
		}
		if len(result.Errors) > 0 || len(result.Warnings) > 0 {
			report.Issues = append(report.Issues, rowIssue{
				RowNumber: i + 1,
				Errors:    result.Errors,
				Warnings:  result.Warnings,
			})
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}
	return report
}

func printReport(w io.Writer, report validationReport, limit int) {
	fmt.Fprintf(w, "Valid: %d  Warnings: %d  Invalid: %d\n", report.Valid, report.Warning, report.Invalid)

	issues := report.Issues
	if limit > 0 && len(issues) > limit {
		issues = issues[:limit]
	}
	for _, issue := range issues {
		for _, e := range issue.Errors {
			fmt.Fprintf(w, "row %d: error: %s\n", issue.RowNumber, e)
		}
		for _, warn := range issue.Warnings {
			fmt.Fprintf(w, "row %d: warning: %s\n", issue.RowNumber, warn)
		}
	}
	if hidden := len(report.Issues) - len(issues); hidden > 0 {
		fmt.Fprintf(w, "... %d more rows with problems\n", hidden)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
