package ir

const (
	// TraceVersion is the version of the canonical trace layout.
	TraceVersion = "1"

	// Version is the automaton release version.
	Version = "0.1.0"
)
