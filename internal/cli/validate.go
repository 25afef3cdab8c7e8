package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/automaton/internal/harness"
)

// FileValidation is the validation outcome of one scenario file.
type FileValidation struct {
	File  string `json:"file"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario.yaml|dir>...",
		Short: "Validate scenario files without running them",
		Long: `Validate scenario files against the scenario schema.

Each file is checked against the embedded CUE schema, decoded strictly
(unknown fields are errors) and checked for semantic problems such as
unknown machines, policies or assertion types. Directories are searched
for .yaml and .yml files.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	p := newPrinter(opts, cmd)

	files, err := expandScenarioPaths(paths)
	if err != nil {
		_ = p.Fail("E_LOAD", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}
	p.Debugf("Validating %d scenario file(s)", len(files))

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(files))}
	for _, file := range files {
		fv := FileValidation{File: file, Valid: true}
		if _, err := harness.LoadScenario(file); err != nil {
			fv.Valid = false
			fv.Error = err.Error()
			result.Valid = false
		}
		result.Files = append(result.Files, fv)
	}

	if p.JSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
			resp.Error = &CLIError{Code: "E_INVALID", Message: "one or more scenarios are invalid"}
		}
		if err := p.Envelope(resp); err != nil {
			return err
		}
	}
	for _, fv := range result.Files {
		if fv.Valid {
			p.Textf("✓ %s", fv.File)
			continue
		}
		p.Textf("✗ %s\n  %s", fv.File, fv.Error)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

// expandScenarioPaths replaces directory arguments with the scenario files
// they contain.
func expandScenarioPaths(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("path not found: %s", p)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		found, err := findScenarioFiles(p, "")
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no scenario files in %v", paths)
	}
	return files, nil
}
