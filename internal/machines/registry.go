package machines

import (
	"errors"
	"fmt"
	"slices"
)

// ErrUnknownMachine is returned by Lookup for unregistered names.
var ErrUnknownMachine = errors.New("unknown machine")

var registry = map[string]func(Options) Machine{
	"counter": NewCounter,
	"login":   NewLogin,
	"search":  NewSearch,
}

// Lookup builds the named machine.
func Lookup(name string, opts Options) (Machine, error) {
	build, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %v)", ErrUnknownMachine, name, Names())
	}
	return build(opts), nil
}

// Names returns the registered machine names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
