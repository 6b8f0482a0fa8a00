package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/formtree/internal/form"
)

// Scenario defines a conformance scenario: a control tree, the interactions
// applied to it, and the assertions checked against the final state.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Session is the registry session token. Defaults to the scenario name
	// so journal rows are reproducible.
	Session string `yaml:"session,omitempty"`

	// Tree describes the controls to build before the first step.
	Tree Fixture `yaml:"tree"`

	// Steps are applied in order. Each produces one trace event.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Fixture describes one control of the scenario tree.
type Fixture struct {
	// Kind is one of field, choice-control, group, array or form.
	Kind string `yaml:"kind"`

	Name       string          `yaml:"name,omitempty"`
	Rules      string          `yaml:"rules,omitempty"`
	Required   bool            `yaml:"required,omitempty"`
	ValidateOn []string        `yaml:"validate_on,omitempty"`
	DebounceMS int             `yaml:"debounce_ms,omitempty"`
	Multiple   bool            `yaml:"multiple,omitempty"`
	Value      any             `yaml:"value,omitempty"`
	Choices    []ChoiceFixture `yaml:"choices,omitempty"`
	Children   []Fixture       `yaml:"children,omitempty"`
}

// ChoiceFixture describes one choice of a choice-control fixture.
type ChoiceFixture struct {
	Value    any  `yaml:"value"`
	Choiced  bool `yaml:"choiced,omitempty"`
	Disabled bool `yaml:"disabled,omitempty"`
}

// Step is one interaction with the tree.
type Step struct {
	// Op is the interaction: set, emit, validate, validate_all, choose,
	// unchoose, clear_errors or reset.
	Op string `yaml:"op"`

	// Path addresses the target control from the root. Empty is the root.
	Path string `yaml:"path,omitempty"`

	// Value is the new value for set, or the payload of the choice for
	// choose and unchoose.
	Value any `yaml:"value,omitempty"`

	// Event is the event forwarded by emit.
	Event string `yaml:"event,omitempty"`
}

// Assertion validates one aspect of the final state.
type Assertion struct {
	// Type is one of errors, state, value, all_errors or choiced.
	Type string `yaml:"type"`

	// Path addresses the checked control. Empty is the root.
	Path string `yaml:"path,omitempty"`

	// Expect is the expected value. Numbers compare by value, and an empty
	// list or map matches no errors.
	Expect any `yaml:"expect"`
}

// Fixture kinds.
const (
	KindField         = "field"
	KindChoiceControl = "choice-control"
	KindGroup         = "group"
	KindArray         = "array"
	KindForm          = "form"
)

// Step operations.
const (
	OpSet         = "set"
	OpEmit        = "emit"
	OpValidate    = "validate"
	OpValidateAll = "validate_all"
	OpChoose      = "choose"
	OpUnchoose    = "unchoose"
	OpClearErrors = "clear_errors"
	OpReset       = "reset"
)

// Assertion type constants.
const (
	AssertErrors    = "errors"
	AssertState     = "state"
	AssertValue     = "value"
	AssertAllErrors = "all_errors"
	AssertChoiced   = "choiced"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// strict decoding catches typos like "assertion:" vs "assertions:"
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

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if err := validateFixture("tree", &s.Tree, true); err != nil {
		return err
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateFixture(where string, f *Fixture, root bool) error {
	switch f.Kind {
	case "":
		return fmt.Errorf("%s: kind is required", where)
	case KindField, KindChoiceControl, KindGroup, KindArray:
	case KindForm:
		if !root {
			return fmt.Errorf("%s: a form can only be the root", where)
		}
	default:
		return fmt.Errorf("%s: unknown kind %q", where, f.Kind)
	}

	for _, ev := range f.ValidateOn {
		if !form.Event(ev).IsValidationTiming() {
			return fmt.Errorf("%s: %q is not a validation timing", where, ev)
		}
	}
	if f.DebounceMS < 0 {
		return fmt.Errorf("%s: debounce_ms must not be negative", where)
	}
	if len(f.Choices) > 0 && f.Kind != KindChoiceControl {
		return fmt.Errorf("%s: only a choice-control has choices", where)
	}

	composite := f.Kind == KindGroup || f.Kind == KindArray || f.Kind == KindForm
	if len(f.Children) > 0 && !composite {
		return fmt.Errorf("%s: a %s has no children", where, f.Kind)
	}
	if composite && f.Value != nil {
		return fmt.Errorf("%s: set values on the children of a %s", where, f.Kind)
	}
	for i := range f.Children {
		child := &f.Children[i]
		at := fmt.Sprintf("%s.children[%d]", where, i)
		if f.Kind != KindArray && child.Name == "" {
			return fmt.Errorf("%s: name is required inside a %s", at, f.Kind)
		}
		if err := validateFixture(at, child, false); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s *Step) error {
	switch s.Op {
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	case OpSet, OpValidate, OpValidateAll, OpClearErrors, OpReset:
	case OpEmit:
		if !form.Event(s.Event).Valid() {
			return fmt.Errorf("steps[%d]: emit needs a known event, got %q", index, s.Event)
		}
	case OpChoose, OpUnchoose:
		if s.Value == nil {
			return fmt.Errorf("steps[%d]: value is required for %s", index, s.Op)
		}
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, s.Op)
	}
	if s.Event != "" && s.Op != OpEmit {
		return fmt.Errorf("steps[%d]: event is only valid for emit", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertErrors, AssertValue, AssertAllErrors, AssertChoiced:
	case AssertState:
		s, ok := a.Expect.(string)
		if !ok {
			return fmt.Errorf("assertions[%d]: state expects a string", index)
		}
		switch form.ValidateState(s) {
		case form.StateValid, form.StateInvalid, form.StatePending:
		default:
			return fmt.Errorf("assertions[%d]: unknown state %q", index, s)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
