package automaton

import (
	"fmt"
	"strings"
)

// FlattenPolicy decides how concurrently active effect streams combine.
type FlattenPolicy int

const (
	// Merge lets every effect run to completion; outputs interleave in
	// arrival order.
	Merge FlattenPolicy = iota
	// Latest keeps at most one live derived stream per recursion level.
	// A new successful transition at that level cancels the previous one.
	Latest
)

// String implements fmt.Stringer.
func (p FlattenPolicy) String() string {
	switch p {
	case Merge:
		return "merge"
	case Latest:
		return "latest"
	default:
		return fmt.Sprintf("FlattenPolicy(%d)", int(p))
	}
}

// ParsePolicy parses "merge" or "latest" (case-insensitive).
// An empty string yields Merge.
func ParsePolicy(s string) (FlattenPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "merge":
		return Merge, nil
	case "latest":
		return Latest, nil
	default:
		return Merge, fmt.Errorf("unknown flatten policy %q: must be merge or latest", s)
	}
}
