package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/automaton/internal/automaton"
	"github.com/roach88/automaton/internal/ir"
	"github.com/roach88/automaton/internal/machines"
	"github.com/roach88/automaton/internal/testutil"
)

// Option configures a harness run.
type Option func(*runConfig)

type runConfig struct {
	logger        *slog.Logger
	maxSpawns     int
	isolate       bool
	stepTimeout   time.Duration
	delayOverride *time.Duration
}

// WithLogger routes automaton logs somewhere other than the default discard
// logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) { c.logger = l }
}

// WithMaxSpawnsPerFlow applies a spawn quota to the machine under test.
func WithMaxSpawnsPerFlow(n int) Option {
	return func(c *runConfig) { c.maxSpawns = n }
}

// WithEffectFaultIsolation keeps the machine running when an effect fails.
func WithEffectFaultIsolation() Option {
	return func(c *runConfig) { c.isolate = true }
}

// WithStepTimeout overrides the scenario's per-step timeout.
func WithStepTimeout(d time.Duration) Option {
	return func(c *runConfig) { c.stepTimeout = d }
}

// WithEffectDelay overrides the scenario's effect delay.
func WithEffectDelay(d time.Duration) Option {
	return func(c *runConfig) { c.delayOverride = &d }
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Build the machine and start a session with a deterministic clock and
//     flow generator
//  2. For each step, send the input, read the awaited replies and check the
//     expect clause
//  3. Close the session, capture the final state and evaluate assertions
//
// A returned error means the scenario could not be executed at all (unknown
// machine, unparseable input). Failed checks are reported in Result.Errors.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		stepTimeout: scenario.stepTimeout(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	delay := scenario.effectDelay()
	if cfg.delayOverride != nil {
		delay = *cfg.delayOverride
	}

	policy, err := automaton.ParsePolicy(scenario.Policy)
	if err != nil {
		return nil, err
	}
	machine, err := machines.Lookup(scenario.Machine, machines.Options{EffectDelay: delay})
	if err != nil {
		return nil, err
	}

	aopts := append(testutil.Reproducible("flow"),
		automaton.WithPolicy(policy),
		automaton.WithLogger(cfg.logger),
		automaton.WithMaxSpawnsPerFlow(cfg.maxSpawns),
	)
	if cfg.isolate {
		aopts = append(aopts, automaton.WithEffectFaultIsolation())
	}

	session := machine.Start(ctx, aopts...)
	defer session.Close()

	result := NewResult(scenario)
	if err := executeSteps(ctx, session, scenario.Steps, cfg.stepTimeout, result); err != nil {
		return nil, err
	}

	if err := session.Close(); err != nil {
		result.AddError(fmt.Sprintf("automaton stopped: %v", err))
	}
	result.FinalState = session.State()

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	cfg.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"replies", len(result.Trace),
		"pass", result.Pass,
	)
	return result, nil
}

// executeSteps drives the session. A step that times out stops execution;
// later steps would only report knock-on failures.
func executeSteps(ctx context.Context, session machines.Session, steps []Step, timeout time.Duration, result *Result) error {
	for i, step := range steps {
		if err := session.Send(ctx, step.Send); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			result.AddError(fmt.Sprintf("steps[%d]: send %q: %v", i, step.Send, err))
			return nil
		}

		batch, err := awaitReplies(ctx, session, step.await(), timeout)
		result.Trace = append(result.Trace, batch...)
		if err != nil {
			result.AddError(fmt.Sprintf("steps[%d]: %v", i, err))
			return nil
		}

		if step.Expect != nil {
			if msg := checkExpect(step, batch); msg != "" {
				result.AddError(fmt.Sprintf("steps[%d]: %s", i, msg))
			}
		}
	}
	return nil
}

// awaitReplies reads n records from the session.
func awaitReplies(ctx context.Context, session machines.Session, n int, timeout time.Duration) ([]TraceEvent, error) {
	batch := make([]TraceEvent, 0, n)
	if n == 0 {
		return batch, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for len(batch) < n {
		select {
		case rec, ok := <-session.Records():
			if !ok {
				return batch, fmt.Errorf("reply stream ended after %d of %d replies: %v", len(batch), n, session.Err())
			}
			batch = append(batch, NewTraceEvent(rec))
		case <-timer.C:
			return batch, fmt.Errorf("timed out after %s waiting for replies (got %d of %d)", timeout, len(batch), n)
		case <-ctx.Done():
			return batch, ctx.Err()
		}
	}
	return batch, nil
}

// NewTraceEvent converts a session record.
func NewTraceEvent(rec machines.Record) TraceEvent {
	outcome := OutcomeFailure
	if rec.Success {
		outcome = OutcomeSuccess
	}
	return TraceEvent{
		Seq:     rec.Seq,
		Flow:    rec.Flow,
		Cause:   rec.Cause,
		Input:   rec.Input,
		Outcome: outcome,
		From:    rec.From,
		To:      rec.To,
	}
}

// checkExpect finds the reply to the step's own input (an external input,
// so Cause is 0) and compares it with the expect clause.
func checkExpect(step Step, batch []TraceEvent) string {
	var reply *TraceEvent
	for i := range batch {
		if batch[i].Input == step.Send && batch[i].Cause == 0 {
			reply = &batch[i]
			break
		}
	}
	if reply == nil {
		return fmt.Sprintf("no reply for %q among %d awaited replies", step.Send, len(batch))
	}

	want := step.Expect.Outcome
	if want == "" {
		want = OutcomeSuccess
	}
	if reply.Outcome != want {
		return fmt.Sprintf("expected %s for %q, got %s (from %s)", want, step.Send, reply.Outcome, ir.String(reply.From))
	}

	if step.Expect.To == nil {
		return ""
	}
	to, err := ir.FromAny(step.Expect.To)
	if err != nil {
		return fmt.Sprintf("expect.to: %v", err)
	}
	if !ir.Equal(to, reply.To) {
		return fmt.Sprintf("expected %q to reach %s, got %s", step.Send, ir.String(to), ir.String(reply.To))
	}
	return ""
}
