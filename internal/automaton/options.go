package automaton

import "log/slog"

type config struct {
	policy         FlattenPolicy
	logger         *slog.Logger
	clock          SequenceSource
	flowGen        FlowTokenGenerator
	maxSpawns      int
	isolateEffects bool
}

func defaultConfig() config {
	return config{
		policy:  Merge,
		clock:   NewClock(),
		flowGen: UUIDv7Generator{},
	}
}

// Option configures an Automaton.
type Option func(*config)

// WithPolicy selects the flattening policy. Default: Merge.
func WithPolicy(p FlattenPolicy) Option {
	return func(c *config) {
		c.policy = p
	}
}

// WithLogger sets the logger. Default: slog.Default() at construction time.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithClock replaces the logical clock used to stamp replies.
func WithClock(s SequenceSource) Option {
	return func(c *config) {
		c.clock = s
	}
}

// WithFlowGenerator replaces the flow token generator.
// Default: UUIDv7Generator.
func WithFlowGenerator(g FlowTokenGenerator) Option {
	return func(c *config) {
		c.flowGen = g
	}
}

// WithMaxSpawnsPerFlow limits how many effect streams a single external
// input may transitively start. 0 (the default) means unlimited.
func WithMaxSpawnsPerFlow(n int) Option {
	return func(c *config) {
		c.maxSpawns = n
	}
}

// WithEffectFaultIsolation keeps the automaton running when an effect
// returns an error; the error is logged instead. Source errors are still
// terminal.
func WithEffectFaultIsolation() Option {
	return func(c *config) {
		c.isolateEffects = true
	}
}
