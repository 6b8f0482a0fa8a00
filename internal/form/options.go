package form

import (
	"fmt"
	"time"
)

// Option configures a node at construction time. Options that do not apply
// to the node kind being built are ignored.
type Option func(*nodeConfig)

type nodeConfig struct {
	name          string
	rules         []any
	required      bool
	validateOn    []Event
	validateOnSet bool
	conditions    []*Condition
	conditionsSet bool
	debounce      *time.Duration
	touchOn       Event
	disabled      bool
	readonly      bool
	alwaysValue   bool
	multiple      *bool
	value         any
	hasValue      bool
	choiced       bool
	control       *ChoiceControl
	formContext   Composite
	parent        Composite
}

func newNodeConfig(opts []Option) *nodeConfig {
	cfg := &nodeConfig{touchOn: EventChange}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (c *nodeConfig) validate() error {
	for _, ev := range c.validateOn {
		if !ev.IsValidationTiming() {
			return &Error{Code: ErrCodeInvalidOption, Node: c.name, Message: fmt.Sprintf("%q is not a validation timing", ev)}
		}
	}
	if !c.touchOn.Valid() {
		return &Error{Code: ErrCodeInvalidOption, Node: c.name, Message: fmt.Sprintf("%q is not an event", c.touchOn)}
	}
	if c.debounce != nil && *c.debounce < 0 {
		return &Error{Code: ErrCodeInvalidOption, Node: c.name, Message: "debounce must not be negative"}
	}
	return nil
}

// WithName sets the node name. Group children are keyed by name.
func WithName(name string) Option {
	return func(c *nodeConfig) {
		c.name = name
	}
}

// WithRules adds rule specs: rule strings, *Validator, ValidatorFunc, or
// slices of those.
func WithRules(specs ...any) Option {
	return func(c *nodeConfig) {
		c.rules = append(c.rules, specs...)
	}
}

// WithRequired appends the required rule after the explicit rules.
func WithRequired() Option {
	return func(c *nodeConfig) {
		c.required = true
	}
}

// WithValidateOn sets the events that trigger validation. The default is
// change.
func WithValidateOn(events ...Event) Option {
	return func(c *nodeConfig) {
		c.validateOn = events
		c.validateOnSet = true
	}
}

// WithConditions sets the activation conditions that must all pass before a
// trigger schedules validation. The default is ConditionTouched.
func WithConditions(conds ...*Condition) Option {
	return func(c *nodeConfig) {
		c.conditions = conds
		c.conditionsSet = true
	}
}

// WithDebounce delays triggered validation.
func WithDebounce(d time.Duration) Option {
	return func(c *nodeConfig) {
		c.debounce = &d
	}
}

// WithTouchOn sets the event that marks a control touched. The default is
// change.
func WithTouchOn(ev Event) Option {
	return func(c *nodeConfig) {
		c.touchOn = ev
	}
}

// WithDisabled disables the node.
func WithDisabled() Option {
	return func(c *nodeConfig) {
		c.disabled = true
	}
}

// WithReadonly marks the node readonly.
func WithReadonly() Option {
	return func(c *nodeConfig) {
		c.readonly = true
	}
}

// WithAlwaysValue makes FormValue include disabled values.
func WithAlwaysValue() Option {
	return func(c *nodeConfig) {
		c.alwaysValue = true
	}
}

// WithMultiple sets multi-value mode for fields, choice controls and choices.
func WithMultiple(multiple bool) Option {
	return func(c *nodeConfig) {
		c.multiple = &multiple
	}
}

// WithValue sets the initial value of a field or choice control, or the
// payload of a choice (default true).
func WithValue(v any) Option {
	return func(c *nodeConfig) {
		c.value = v
		c.hasValue = true
	}
}

// WithChoiced selects a choice when it is attached and commits the owning
// control's initial value.
func WithChoiced() Option {
	return func(c *nodeConfig) {
		c.choiced = true
	}
}

// WithControl binds a choice to an explicit owning control.
func WithControl(cc *ChoiceControl) Option {
	return func(c *nodeConfig) {
		c.control = cc
	}
}

// WithFormContext names the composite in which a choice looks up, or
// creates, its owning control by name.
func WithFormContext(ctx Composite) Option {
	return func(c *nodeConfig) {
		c.formContext = ctx
	}
}

// WithParent adds the new control to parent once constructed.
func WithParent(parent Composite) Option {
	return func(c *nodeConfig) {
		c.parent = parent
	}
}
