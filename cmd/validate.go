package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gui-replay/gui-replay/internal/scenario"
)

// ValidationResult represents the validation outcome for a single scenario file.
type ValidationResult struct {
	File   string   `json:"file"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

var validateFormatFlag string

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Validate scenario files for schema and semantic correctness",
	Long: `Validate one or more scenario YAML files without replaying them.

Checks schema compliance (format version, required fields, unknown keys)
and semantic rules (event ordering, per-kind payload requirements,
address well-formedness).

Formats:
  text   Human-readable output to stderr (default)
  json   Structured JSON to stdout

Exit code 0 if all files are valid, 3 if any file has errors.

Examples:
  gui-replay validate submit.yaml
  gui-replay validate a.yaml b.yaml
  gui-replay validate --format json submit.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() { //nolint:gochecknoinits // Standard cobra pattern
	validateCmd.Flags().StringVar(&validateFormatFlag, "format", "text",
		"Output format: text, json")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(validateFormatFlag)
	switch format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid format %q: valid values are text, json", validateFormatFlag)
	}

	var results []ValidationResult
	hasErrors := false
	for _, path := range args {
		result := validateFile(path)
		results = append(results, result)
		if !result.Valid {
			hasErrors = true
		}
	}

	switch format {
	case "text":
		formatValidateText(cmd, results)
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return fmt.Errorf("failed to encode JSON output: %w", err)
		}
	}

	if hasErrors {
		os.Exit(exitScenario)
	}
	return nil
}

// validateFile validates a single scenario file; LoadFile performs the
// strict decode and all semantic checks.
func validateFile(path string) ValidationResult {
	result := ValidationResult{File: path, Errors: []string{}}
	if _, err := scenario.LoadFile(path); err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	result.Valid = true
	return result
}

func formatValidateText(cmd *cobra.Command, results []ValidationResult) {
	w := cmd.ErrOrStderr()
	for _, r := range results {
		if r.Valid {
			fmt.Fprintf(w, "✓ %s\n", r.File)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", r.File)
		for _, e := range r.Errors {
			fmt.Fprintf(w, "    %s\n", e)
		}
	}
}
