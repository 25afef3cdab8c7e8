package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the environment configuration of the CLI. Flags override it.
type Config struct {
	// LogLevel is debug, info, warn or error.
	LogLevel string `env:"AUTOMATON_LOG_LEVEL" envDefault:"warn"`

	// Format is the default output format, text or json.
	Format string `env:"AUTOMATON_FORMAT" envDefault:"text"`

	// EffectDelay is the simulated effect latency for drive sessions.
	EffectDelay time.Duration `env:"AUTOMATON_EFFECT_DELAY" envDefault:"250ms"`

	// StepTimeout overrides every scenario's per-step timeout when set.
	StepTimeout time.Duration `env:"AUTOMATON_STEP_TIMEOUT"`

	// MaxSpawns limits effect streams per flow; 0 means unlimited.
	MaxSpawns int `env:"AUTOMATON_MAX_SPAWNS" envDefault:"0"`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return Config{}, err
	}
	if cfg.MaxSpawns < 0 {
		return Config{}, fmt.Errorf("AUTOMATON_MAX_SPAWNS must be non-negative, got %d", cfg.MaxSpawns)
	}
	return cfg, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: must be debug, info, warn or error", s)
	}
}

// newLogger builds the CLI's text logger. verbose forces debug level.
func newLogger(w io.Writer, level string, verbose bool) *slog.Logger {
	lvl, err := parseLevel(level)
	if err != nil {
		lvl = slog.LevelWarn
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
