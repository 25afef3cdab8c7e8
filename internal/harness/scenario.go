package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/automaton/internal/automaton"
	"github.com/roach88/automaton/internal/machines"
)

// DefaultStepTimeout bounds how long a step waits for its replies when the
// scenario does not set timeout_ms.
const DefaultStepTimeout = 2 * time.Second

// Scenario is a scripted session against one machine.
type Scenario struct {
	// Name uniquely identifies the scenario; it names the golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Machine is the registry name of the machine under test.
	Machine string `yaml:"machine"`

	// Policy is "merge" or "latest". Empty means merge.
	Policy string `yaml:"policy,omitempty"`

	// EffectDelayMS is the simulated latency of the machine's effects.
	EffectDelayMS int `yaml:"effect_delay_ms,omitempty"`

	// TimeoutMS bounds each step's wait. 0 means DefaultStepTimeout.
	TimeoutMS int `yaml:"timeout_ms,omitempty"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated against the full trace after the last step.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step sends one external input and waits for replies.
type Step struct {
	// Send is the input text, in the machine's input syntax.
	Send string `yaml:"send"`

	// Await is the number of replies to read after sending, including
	// replies left unread by earlier steps. nil means 1.
	Await *int `yaml:"await,omitempty"`

	// Expect checks the reply to Send itself.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the expected reply of a step's input.
type Expect struct {
	// Outcome is "success" or "failure". Empty means success.
	Outcome string `yaml:"outcome,omitempty"`

	// To is the expected resulting state. Only valid for success.
	To any `yaml:"to,omitempty"`
}

// Assertion validates the final trace or state.
type Assertion struct {
	Type   string   `yaml:"type"`
	Input  string   `yaml:"input,omitempty"`
	Count  *int     `yaml:"count,omitempty"`
	Inputs []string `yaml:"inputs,omitempty"`
	State  any      `yaml:"state,omitempty"`
	Cause  string   `yaml:"cause,omitempty"`
}

// Assertion type constants.
const (
	AssertReplyCount   = "reply_count"
	AssertFailureCount = "failure_count"
	AssertReplyOrder   = "reply_order"
	AssertFinalState   = "final_state"
	AssertCausedBy     = "caused_by"
)

func (s *Scenario) policy() string {
	if s.Policy == "" {
		return automaton.Merge.String()
	}
	return s.Policy
}

func (s *Scenario) stepTimeout() time.Duration {
	if s.TimeoutMS <= 0 {
		return DefaultStepTimeout
	}
	return time.Duration(s.TimeoutMS) * time.Millisecond
}

func (s *Scenario) effectDelay() time.Duration {
	return time.Duration(s.EffectDelayMS) * time.Millisecond
}

func (st Step) await() int {
	if st.Await == nil {
		return 1
	}
	return *st.Await
}

// LoadScenario reads, validates and parses a scenario YAML file.
// Returns an error if the file does not exist, violates the schema,
// contains unknown fields, or fails semantic validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario validates and parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	if err := ValidateScenarioSchema(data); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks what the schema cannot express.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if !slices.Contains(machines.Names(), s.Machine) {
		return fmt.Errorf("machine %q is not registered (available: %v)", s.Machine, machines.Names())
	}
	if _, err := automaton.ParsePolicy(s.Policy); err != nil {
		return err
	}
	if s.EffectDelayMS < 0 {
		return fmt.Errorf("effect_delay_ms must be non-negative")
	}
	if s.TimeoutMS < 0 {
		return fmt.Errorf("timeout_ms must be non-negative")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st Step) error {
	if st.Send == "" {
		return fmt.Errorf("steps[%d]: send is required", index)
	}
	if st.await() < 0 {
		return fmt.Errorf("steps[%d]: await must be non-negative", index)
	}
	if st.Expect == nil {
		return nil
	}
	if st.await() == 0 {
		return fmt.Errorf("steps[%d]: expect needs await of at least 1", index)
	}
	switch st.Expect.Outcome {
	case "", OutcomeSuccess:
	case OutcomeFailure:
		if st.Expect.To != nil {
			return fmt.Errorf("steps[%d].expect: to is only valid for success", index)
		}
	default:
		return fmt.Errorf("steps[%d].expect: unknown outcome %q", index, st.Expect.Outcome)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertReplyCount, AssertFailureCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for %s", index, a.Type)
		}
		if *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertReplyOrder:
		if len(a.Inputs) == 0 {
			return fmt.Errorf("assertions[%d]: inputs list is required for reply_order", index)
		}
	case AssertFinalState:
		if a.State == nil {
			return fmt.Errorf("assertions[%d]: state is required for final_state", index)
		}
	case AssertCausedBy:
		if a.Input == "" || a.Cause == "" {
			return fmt.Errorf("assertions[%d]: input and cause are required for caused_by", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
