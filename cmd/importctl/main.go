package main

import (
	"fmt"
	"os"

	"fintrack/internal/parser"
	"fintrack/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	logLevel string
	rootCmd  = &cobra.Command{
		Use:   "importctl",
		Short: "Inspect and validate bank exports offline",
		Long: `importctl runs the same parsing, column detection and row validation
the import API uses, without a database or an LLM.

Supported files: .csv, .xlsx, .ofx, .qfx`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return logger.Init(logLevel)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(inspectCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(tokenCmd())
}

func main() {
	err := rootCmd.Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseFile(path string) (*parser.ParseResult, error) {
	fileType, err := parser.FileTypeFromName(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return parser.Parse(data, fileType)
}
