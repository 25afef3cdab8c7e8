package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/automaton/internal/harness"
	"github.com/roach88/automaton/internal/ir"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update    bool   // regenerate golden files
	Filter    string // scenario filter (glob pattern)
	GoldenDir string // defaults to <scenarios-dir>/golden
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Digest string   `json:"digest,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run every scenario in a directory",
		Long: `Run scenario files against the built-in machines.

Each scenario's assertions are checked. When a golden file exists for a
scenario its canonical trace must match it byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  automaton test ./scenarios
  automaton test ./scenarios --filter "login_*"
  automaton test ./scenarios --update
  automaton test ./scenarios --golden ./testdata/golden --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden", "", "golden file directory (default <scenarios-dir>/golden)")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}
	goldenDir := opts.GoldenDir
	if goldenDir == "" {
		goldenDir = filepath.Join(scenariosDir, "golden")
	}

	scenarioFiles, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	p := newPrinter(opts.RootOptions, cmd)
	p.Indent = true

	if len(scenarioFiles) == 0 {
		if p.JSON() {
			return reportTests(p, TestResult{Scenarios: []ScenarioResult{}})
		}
		p.Textf("No scenarios found.")
		return nil
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(scenarioFiles)),
		Total:     len(scenarioFiles),
	}
	for _, file := range scenarioFiles {
		sr := runScenario(opts, file, goldenDir, cmd)
		printScenarioResult(p, sr)
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	return reportTests(p, result)
}

// findScenarioFiles finds all YAML scenario files in a directory, skipping
// the golden directory.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != dir && info.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// runScenario loads, executes and golden-checks one scenario file.
func runScenario(opts *TestOptions, file, goldenDir string, cmd *cobra.Command) ScenarioResult {
	sr := ScenarioResult{Name: scenarioBase(file), File: file}
	fail := func(format string, args ...any) ScenarioResult {
		sr.Pass = false
		sr.Errors = append(sr.Errors, fmt.Sprintf(format, args...))
		return sr
	}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return fail("failed to load scenario: %v", err)
	}
	sr.Name = scenario.Name

	result, err := harness.Run(cmd.Context(), scenario, harnessOptions(opts.RootOptions)...)
	if err != nil {
		return fail("execution failed: %v", err)
	}
	sr.Pass = result.Pass
	sr.Errors = append(sr.Errors, result.Errors...)

	current, err := ir.MarshalCanonical(result.Snapshot())
	if err != nil {
		return fail("failed to marshal trace: %v", err)
	}
	if digest, err := harness.TraceDigest(result); err == nil {
		sr.Digest = digest
	}

	goldenPath := filepath.Join(goldenDir, scenarioBase(file)+".golden")
	if opts.Update {
		if err := os.MkdirAll(goldenDir, 0o755); err != nil {
			return fail("failed to create golden directory: %v", err)
		}
		if err := os.WriteFile(goldenPath, current, 0o644); err != nil {
			return fail("failed to write golden file: %v", err)
		}
		opts.logger().Debug("golden updated", "scenario", scenario.Name, "path", goldenPath)
		return sr
	}

	want, err := os.ReadFile(goldenPath)
	switch {
	case os.IsNotExist(err):
		// Assertions only.
		return sr
	case err != nil:
		return fail("failed to read golden file: %v", err)
	}
	if !bytes.Equal(bytes.TrimRight(want, "\n"), current) {
		msg := fmt.Sprintf("trace does not match golden file %s (run with --update to regenerate)", goldenPath)
		if hint := goldenHint(want, result.Snapshot()); hint != "" {
			msg += ": " + hint
		}
		return fail("%s", msg)
	}
	return sr
}

// goldenHint names the first top-level field that differs from the golden
// document, or returns "" when the golden file is not a JSON object.
func goldenHint(golden []byte, current ir.IRObject) string {
	parsed, err := ir.ParseJSON(golden)
	if err != nil {
		return ""
	}
	want, ok := parsed.(ir.IRObject)
	if !ok {
		return ""
	}
	for _, key := range mergeKeys(want, current).SortedKeys() {
		if !ir.Equal(want[key], current[key]) {
			return fmt.Sprintf("%s differs (golden %s, got %s)", key, ir.String(want[key]), ir.String(current[key]))
		}
	}
	return ""
}

func mergeKeys(a, b ir.IRObject) ir.IRObject {
	keys := make(ir.IRObject, len(a)+len(b))
	for k := range a {
		keys[k] = nil
	}
	for k := range b {
		keys[k] = nil
	}
	return keys
}

func scenarioBase(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func printScenarioResult(p *Printer, sr ScenarioResult) {
	if sr.Pass {
		p.Textf("✓ %s", sr.Name)
		return
	}
	p.Textf("✗ %s", sr.Name)
	for _, e := range sr.Errors {
		p.Textf("  %s", e)
	}
}

// reportTests writes the summary and maps failures to exit code 1.
func reportTests(p *Printer, result TestResult) error {
	var failure *ExitError
	if result.Failed > 0 {
		failure = NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	if p.JSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if failure != nil {
			resp.Status = "error"
			resp.Error = &CLIError{Code: "E_TEST_FAILED", Message: failure.Message}
		}
		if err := p.Envelope(resp); err != nil {
			return err
		}
	} else {
		p.Textf("")
		p.Textf("Test Summary: %d passed, %d failed, %d total", result.Passed, result.Failed, result.Total)
		if failure == nil {
			p.Textf("✓ All scenarios passed")
		}
	}

	if failure != nil {
		return failure
	}
	return nil
}
