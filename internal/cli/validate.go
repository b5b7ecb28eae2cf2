package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool              `json:"valid"`
	Checklists int               `json:"checklists"`
	Errors     []ValidationError `json:"errors,omitempty"`
}

// ValidationError is one compile or load problem found during validation.
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <checklists-dir>",
		Short: "Validate checklists without syncing",
		Long: `Validate CUE checklist definitions without touching any page.

Compiles every checklist and reports all problems found: missing targets,
empty sections, duplicate item IDs, malformed CUE. No network access.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, checklistsDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	// Collect every problem rather than stopping at the first.
	loadResult, loadErrors := LoadChecklists(checklistsDir, LoadModeCollectAll)

	// Directory-level problems (not found, no files) have no result at all.
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
			return NewExitError(ExitCommandError, loadErr.Error())
		}
		_ = formatter.Error(ErrCodeGeneric, loadErrors[0].Error(), nil)
		return NewExitError(ExitCommandError, loadErrors[0].Error())
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, checklistsDir)

	var validationErrors []ValidationError
	for _, err := range loadErrors {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			ve := ValidationError{Code: loadErr.Code, Message: loadErr.Message}
			if loadErr.Pos.IsValid() {
				ve.File = loadErr.Pos.Filename()
				ve.Line = loadErr.Pos.Line()
			}
			validationErrors = append(validationErrors, ve)
			continue
		}
		validationErrors = append(validationErrors, ValidationError{Code: ErrCodeGeneric, Message: err.Error()})
	}

	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, len(loadResult.Plans), validationErrors)
	}

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Checklists: len(loadResult.Plans)})
	}
	fmt.Fprintf(formatter.Writer, "✓ %d checklist(s) valid\n", len(loadResult.Plans))
	return nil
}

// outputValidationErrors outputs the collected validation errors.
func outputValidationErrors(formatter *OutputFormatter, valid int, errs []ValidationError) error {
	if formatter.Format == "json" {
		result := ValidationResult{
			Valid:      false,
			Checklists: valid,
			Errors:     errs,
		}

		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.File != "" {
			fmt.Fprintf(formatter.Writer, "%s:%d\n", err.File, err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
