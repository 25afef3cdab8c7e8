package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/automaton/internal/automaton"
	"github.com/roach88/automaton/internal/harness"
	"github.com/roach88/automaton/internal/ir"
	"github.com/roach88/automaton/internal/machines"
	"github.com/roach88/automaton/internal/testutil"
)

// DriveOptions holds flags for the drive command.
type DriveOptions struct {
	*RootOptions
	Policy        string
	Delay         time.Duration
	Deterministic bool // sequential flow tokens instead of UUIDv7
}

// NewDriveCommand creates the drive command.
func NewDriveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DriveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "drive <machine>",
		Short: "Feed inputs from stdin to a machine interactively",
		Long: `Start a machine and feed it one input per line from stdin.

Every reply is printed as it happens, including replies to inputs produced
by effects. Blank lines and lines starting with # are ignored. At end of
input the machine runs until its pending effects finish, then the final
state is printed.

Example:
  printf 'Login\nLogout\n' | automaton drive login --delay 100ms
  automaton drive search --policy latest --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDrive(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Policy, "policy", "merge", "flattening policy (merge|latest)")
	cmd.Flags().DurationVar(&opts.Delay, "delay", rootOpts.Config.EffectDelay, "simulated effect latency")
	cmd.Flags().BoolVar(&opts.Deterministic, "deterministic", false, "use flow-N tokens")

	return cmd
}

func runDrive(opts *DriveOptions, name string, cmd *cobra.Command) error {
	policy, err := automaton.ParsePolicy(opts.Policy)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --policy", err)
	}
	machine, err := machines.Lookup(name, machines.Options{EffectDelay: opts.Delay})
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid machine", err)
	}

	aopts := []automaton.Option{
		automaton.WithPolicy(policy),
		automaton.WithLogger(opts.logger()),
		automaton.WithMaxSpawnsPerFlow(opts.Config.MaxSpawns),
	}
	if opts.Deterministic {
		aopts = append(aopts, testutil.Reproducible("flow")...)
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	session := machine.Start(ctx, aopts...)
	defer session.Close()

	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for rec := range session.Records() {
			printRecord(cmd.OutOrStdout(), opts.Format, rec)
		}
	}()

	if err := feedLines(ctx, session, cmd.InOrStdin(), cmd.ErrOrStderr()); err != nil {
		return WrapExitError(ExitFailure, "drive stopped", err)
	}
	session.CloseInput()

	select {
	case <-session.Done():
	case <-ctx.Done():
		// Interrupted while effects were pending.
		_ = session.Close()
	}
	<-printed

	if err := session.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "machine stopped on fault", err)
	}
	return printFinalState(cmd.OutOrStdout(), opts.Format, session.State())
}

// feedLines sends one input per non-blank line until EOF. Unknown inputs
// are reported and skipped.
func feedLines(ctx context.Context, session machines.Session, r io.Reader, errw io.Writer) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		err := session.Send(ctx, line)
		switch {
		case err == nil:
		case errors.Is(err, machines.ErrUnknownInput):
			fmt.Fprintf(errw, "skipped: %v\n", err)
		case errors.Is(err, machines.ErrSessionClosed), ctx.Err() != nil:
			return nil
		default:
			return err
		}
	}
	return scanner.Err()
}

func printRecord(w io.Writer, format string, rec machines.Record) {
	event := harness.NewTraceEvent(rec)
	if format != "json" {
		fmt.Fprintln(w, formatEvent(event))
		return
	}
	b, err := ir.MarshalCanonical(event.Canonical())
	if err != nil {
		fmt.Fprintf(w, "{\"error\":%q}\n", err.Error())
		return
	}
	fmt.Fprintln(w, string(b))
}

func printFinalState(w io.Writer, format string, state ir.IRValue) error {
	if format != "json" {
		_, err := fmt.Fprintf(w, "Final state: %s\n", ir.String(state))
		return err
	}
	b, err := ir.MarshalCanonical(ir.IRObject{"final_state": state})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
