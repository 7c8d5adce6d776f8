package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/bimbridge/internal/config"
	"github.com/roach88/bimbridge/internal/scene"
)

// ValidationError is one file that failed to load.
type ValidationError struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Files  int               `json:"files"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scene>...",
		Short: "Check scene files and the config",
		Long: `Parse and build each scene file, and load the --config file if one is
given. Nothing is executed.

Exit codes:
  0 - every file is valid
  1 - at least one file failed`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, scenes []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	result := ValidationResult{Valid: true}

	if opts.ConfigPath != "" {
		result.Files++
		formatter.VerboseLog("Validating config: %s", opts.ConfigPath)
		if _, err := config.Load(opts.ConfigPath); err != nil {
			result.Errors = append(result.Errors, ValidationError{File: opts.ConfigPath, Message: err.Error()})
		}
	}

	for _, path := range scenes {
		result.Files++
		formatter.VerboseLog("Validating scene: %s", path)
		if err := validateScene(path); err != nil {
			result.Errors = append(result.Errors, ValidationError{File: path, Message: err.Error()})
		}
	}

	if len(result.Errors) > 0 {
		result.Valid = false
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

func validateScene(path string) error {
	s, err := scene.Load(path)
	if err != nil {
		return err
	}
	_, err = s.Build()
	return err
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ %d file(s) valid\n", result.Files)
	return nil
}

// outputValidationErrors outputs every failed file.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.Format == "json" {
		if err := formatter.Report(result, &CLIError{Code: CodeInvalid, Message: errs[0].Message}); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, e := range errs {
		fmt.Fprintf(formatter.Writer, "%s\n  %s\n\n", e.File, e.Message)
	}
	return failure
}
