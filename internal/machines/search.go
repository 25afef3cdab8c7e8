package machines

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/roach88/automaton/internal/automaton"
	"github.com/roach88/automaton/internal/ir"
)

// SearchPhase is the coarse state of the search machine.
type SearchPhase string

const (
	SearchIdle      SearchPhase = "idle"
	SearchSearching SearchPhase = "searching"
	SearchDone      SearchPhase = "done"
)

// SearchState is the state of the search machine.
type SearchState struct {
	Phase SearchPhase
	Query string
	Hits  int
}

// SearchKind distinguishes search inputs.
type SearchKind string

const (
	SearchQuery SearchKind = "Query"
	SearchFound SearchKind = "Found"
	SearchClear SearchKind = "Clear"
)

// SearchInput is an input of the search machine. Text is empty for Clear.
type SearchInput struct {
	Kind SearchKind
	Text string
}

// String renders the input as "Query:<text>", "Found:<text>" or "Clear".
func (in SearchInput) String() string {
	if in.Kind == SearchClear {
		return string(SearchClear)
	}
	return string(in.Kind) + ":" + in.Text
}

// ParseSearchInput parses the String form.
func ParseSearchInput(text string) (SearchInput, error) {
	if text == string(SearchClear) {
		return SearchInput{Kind: SearchClear}, nil
	}
	kind, q, ok := strings.Cut(text, ":")
	if ok && q != "" {
		switch SearchKind(kind) {
		case SearchQuery, SearchFound:
			return SearchInput{Kind: SearchKind(kind), Text: q}, nil
		}
	}
	return SearchInput{}, fmt.Errorf("search: %w %q (want Query:<q>, Found:<q> or Clear)", ErrUnknownInput, text)
}

// SearchMapping models type-ahead search: every query starts a backend
// lookup that answers with Found after delay. A result only lands while its
// own query is still the one being searched. Hits is the rune length of the
// query.
//
// Under the Latest policy a new query cancels the lookup of the previous
// one; under Merge the stale result arrives and is rejected.
func SearchMapping(delay time.Duration) automaton.NextMapping[SearchState, SearchInput] {
	return func(state SearchState, in SearchInput) (SearchState, automaton.Effect[SearchInput], bool) {
		switch in.Kind {
		case SearchQuery:
			next := SearchState{Phase: SearchSearching, Query: in.Text}
			return next, automaton.After(delay, SearchInput{Kind: SearchFound, Text: in.Text}), true
		case SearchFound:
			if state.Phase != SearchSearching || state.Query != in.Text {
				return state, nil, false
			}
			return SearchState{Phase: SearchDone, Query: in.Text, Hits: utf8.RuneCountInString(in.Text)}, nil, true
		case SearchClear:
			if state.Phase == SearchIdle {
				return state, nil, false
			}
			return SearchState{Phase: SearchIdle}, nil, true
		default:
			return state, nil, false
		}
	}
}

func encodeSearch(s SearchState) ir.IRValue {
	return ir.IRObject{
		"phase": ir.IRString(s.Phase),
		"query": ir.IRString(s.Query),
		"hits":  ir.IRInt(s.Hits),
	}
}

// NewSearch returns the search machine.
func NewSearch(opts Options) Machine {
	return &definition[SearchState, SearchInput]{
		name:        "search",
		description: "type-ahead search; pair with the latest policy to drop stale lookups",
		inputs:      []string{"Query:<q>", "Found:<q>", string(SearchClear)},
		initial:     SearchState{Phase: SearchIdle},
		next:        SearchMapping(opts.EffectDelay),
		parse:       ParseSearchInput,
		format:      SearchInput.String,
		encode:      encodeSearch,
	}
}
