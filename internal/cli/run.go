package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/automaton/internal/harness"
	"github.com/roach88/automaton/internal/ir"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Isolate bool // keep running when an effect fails
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run one scenario and print its trace",
		Long: `Run a single scenario file and print every reply it produced,
the final state and the outcome of its assertions.

Example:
  automaton run ./scenarios/login_roundtrip.yaml
  automaton run ./scenarios/search_latest.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Isolate, "isolate-effects", false, "log failed effects instead of stopping the machine")

	return cmd
}

// RunOutput is the JSON payload of the run command.
type RunOutput struct {
	Scenario   string          `json:"scenario"`
	Machine    string          `json:"machine"`
	Policy     string          `json:"policy"`
	Pass       bool            `json:"pass"`
	Digest     string          `json:"digest"`
	Trace      json.RawMessage `json:"trace"`
	FinalState json.RawMessage `json:"final_state,omitempty"`
	StateHash  string          `json:"state_digest,omitempty"`
	Errors     []string        `json:"errors,omitempty"`
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	p := newPrinter(opts.RootOptions, cmd)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		_ = p.Fail("E_LOAD", err.Error(), map[string]string{"file": path})
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	p.Debugf("Loaded scenario %q (machine %s, %d steps)", scenario.Name, scenario.Machine, len(scenario.Steps))

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	hopts := harnessOptions(opts.RootOptions)
	if opts.Isolate {
		hopts = append(hopts, harness.WithEffectFaultIsolation())
	}
	result, err := harness.Run(ctx, scenario, hopts...)
	if err != nil {
		_ = p.Fail("E_RUN", err.Error(), map[string]string{"file": path})
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	digest, err := harness.TraceDigest(result)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to digest trace", err)
	}

	if p.JSON() {
		out, err := runOutput(result, digest)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to encode trace", err)
		}
		if err := p.OK(out); err != nil {
			return err
		}
	} else {
		printRunText(p, result, digest)
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %q failed", result.Scenario))
	}
	return nil
}

func runOutput(result *harness.Result, digest string) (RunOutput, error) {
	snap := result.Snapshot()
	trace, err := ir.MarshalCanonical(snap["trace"])
	if err != nil {
		return RunOutput{}, err
	}
	out := RunOutput{
		Scenario: result.Scenario,
		Machine:  result.Machine,
		Policy:   result.Policy,
		Pass:     result.Pass,
		Digest:   digest,
		Trace:    trace,
		Errors:   result.Errors,
	}
	if result.FinalState != nil {
		if out.FinalState, err = ir.MarshalCanonical(result.FinalState); err != nil {
			return RunOutput{}, err
		}
		if out.StateHash, err = ir.StateDigest(result.FinalState); err != nil {
			return RunOutput{}, err
		}
	}
	return out, nil
}

func printRunText(p *Printer, result *harness.Result, digest string) {
	p.Textf("Scenario: %s (machine %s, policy %s)", result.Scenario, result.Machine, result.Policy)
	for _, e := range result.Trace {
		p.Textf("%s", formatEvent(e))
	}
	p.Textf("Final state: %s", ir.String(result.FinalState))
	p.Textf("Digest: %s", digest)

	if result.Pass {
		p.Textf("✓ PASS")
		return
	}
	p.Textf("✗ FAIL")
	for _, msg := range result.Errors {
		p.Textf("  %s", msg)
	}
}

// formatEvent renders one reply on a single line.
func formatEvent(e harness.TraceEvent) string {
	line := fmt.Sprintf("#%d %s %-8s %s", e.Seq, e.Flow, e.Outcome, e.Input)
	if e.Cause != 0 {
		line += fmt.Sprintf(" (cause #%d)", e.Cause)
	}
	if e.Succeeded() {
		return line + fmt.Sprintf(": %s -> %s", ir.String(e.From), ir.String(e.To))
	}
	return line + fmt.Sprintf(": rejected in %s", ir.String(e.From))
}

// harnessOptions maps environment configuration onto harness options.
func harnessOptions(opts *RootOptions) []harness.Option {
	hopts := []harness.Option{harness.WithLogger(opts.logger())}
	if opts.Config.StepTimeout > 0 {
		hopts = append(hopts, harness.WithStepTimeout(opts.Config.StepTimeout))
	}
	if opts.Config.MaxSpawns > 0 {
		hopts = append(hopts, harness.WithMaxSpawnsPerFlow(opts.Config.MaxSpawns))
	}
	return hopts
}

// signalContext derives a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
