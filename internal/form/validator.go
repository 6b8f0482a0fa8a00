package form

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/formtree/internal/rules"
)

// ValidationErrors is one error record: a mapping from error kind to detail,
// e.g. {"required": true} or {"min": {"min": 3, "actual": 1}}.
type ValidationErrors map[string]any

// ControlErrors is the ordered error list of a control. Empty means valid (or
// pending).
type ControlErrors []ValidationErrors

// Clone returns a shallow copy of the list.
func (e ControlErrors) Clone() ControlErrors {
	if len(e) == 0 {
		return ControlErrors{}
	}
	out := make(ControlErrors, len(e))
	copy(out, e)
	return out
}

// Has reports whether any record carries the given error kind.
func (e ControlErrors) Has(kind string) bool {
	for _, rec := range e {
		if _, ok := rec[kind]; ok {
			return true
		}
	}
	return false
}

// Kinds returns the error kinds in list order.
func (e ControlErrors) Kinds() []string {
	var kinds []string
	for _, rec := range e {
		keys := make([]string, 0, len(rec))
		for k := range rec {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		kinds = append(kinds, keys...)
	}
	return kinds
}

// PathErrors maps dot/bracket paths to the error list of the control found
// at that path. The key "_self" collects controls with no path.
type PathErrors map[string]ControlErrors

// SelfPath is the PathErrors key for errors of controls without a path.
const SelfPath = "_self"

// ValidatorFunc checks a control. A nil record means no error. A returned
// error is recorded as a synthetic error record and does not abort the run.
type ValidatorFunc func(ctx context.Context, c Control) (ValidationErrors, error)

// Validator is a named, resolved validator.
type Validator struct {
	// Name is the rule name the validator was resolved from, or the name given
	// to Func.
	Name string

	// Async marks validators that may block. The run moves to its own
	// goroutine before calling the first async validator.
	Async bool

	Fn ValidatorFunc
}

// Func wraps fn as a synchronous validator usable as a rule.
func Func(name string, fn ValidatorFunc) *Validator {
	return &Validator{Name: name, Fn: fn}
}

// AsyncFunc wraps fn as an asynchronous validator usable as a rule.
func AsyncFunc(name string, fn ValidatorFunc) *Validator {
	return &Validator{Name: name, Async: true, Fn: fn}
}

// Factory builds a validator from parsed rule arguments.
type Factory func(args ...any) (*Validator, error)

// ValidatorRegistry holds named validator factories.
//
// Thread-safety: ValidatorRegistry is safe for concurrent use.
type ValidatorRegistry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewValidatorRegistry creates a registry holding the core validators
// (required and empty).
func NewValidatorRegistry() *ValidatorRegistry {
	v := &ValidatorRegistry{factories: make(map[string]Factory)}
	v.factories["required"] = requiredFactory
	v.factories["empty"] = emptyFactory
	return v
}

// Register adds or replaces the factory for name.
func (v *ValidatorRegistry) Register(name string, f Factory) error {
	if !rules.ValidName(name) {
		return &Error{Code: ErrCodeInvalidOption, Message: fmt.Sprintf("invalid validator name %q", name)}
	}
	if f == nil {
		return &Error{Code: ErrCodeInvalidOption, Message: fmt.Sprintf("nil factory for validator %q", name)}
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.factories[name] = f
	return nil
}

// Has reports whether a factory is registered under name.
func (v *ValidatorRegistry) Has(name string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.factories[name]
	return ok
}

// Names returns the registered names in sorted order.
func (v *ValidatorRegistry) Names() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	names := make([]string, 0, len(v.factories))
	for name := range v.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve turns rule specs into validators. A spec is a rule string, a
// *Validator, a ValidatorFunc, or a slice of those.
func (v *ValidatorRegistry) Resolve(specs ...any) ([]*Validator, error) {
	entries, err := v.resolveEntries(specs)
	if err != nil {
		return nil, err
	}
	out := make([]*Validator, len(entries))
	for i, e := range entries {
		out[i] = e.v
	}
	return out, nil
}

// ruleEntry is a resolved rule plus the identity used for de-duplication
// when rule sets of a choice control and its choices are merged.
type ruleEntry struct {
	key any
	v   *Validator
}

func (v *ValidatorRegistry) resolveEntries(specs []any) ([]ruleEntry, error) {
	var out []ruleEntry
	for _, spec := range specs {
		switch s := spec.(type) {
		case nil:
		case string:
			entries, err := v.resolveString(s)
			if err != nil {
				return nil, err
			}
			out = append(out, entries...)
		case []string:
			for _, str := range s {
				entries, err := v.resolveString(str)
				if err != nil {
					return nil, err
				}
				out = append(out, entries...)
			}
		case []any:
			entries, err := v.resolveEntries(s)
			if err != nil {
				return nil, err
			}
			out = append(out, entries...)
		case *Validator:
			if s == nil || s.Fn == nil {
				return nil, NewRuleResolutionError("", "validator has no function", nil)
			}
			out = append(out, ruleEntry{key: s, v: s})
		case ValidatorFunc:
			fv := &Validator{Fn: s}
			out = append(out, ruleEntry{key: fv, v: fv})
		case func(context.Context, Control) (ValidationErrors, error):
			fv := &Validator{Fn: s}
			out = append(out, ruleEntry{key: fv, v: fv})
		default:
			return nil, NewRuleResolutionError(fmt.Sprint(spec), fmt.Sprintf("unsupported rule type %T", spec), nil)
		}
	}
	return out, nil
}

func (v *ValidatorRegistry) resolveString(rule string) ([]ruleEntry, error) {
	segments, err := rules.Parse(rule)
	if err != nil {
		return nil, NewRuleResolutionError(rule, "malformed rule", err)
	}
	out := make([]ruleEntry, 0, len(segments))
	for _, seg := range segments {
		v.mu.RLock()
		factory, ok := v.factories[seg.Name]
		v.mu.RUnlock()
		if !ok {
			return nil, NewRuleResolutionError(seg.Raw, fmt.Sprintf("validator %q is not registered", seg.Name), nil)
		}
		built, err := factory(seg.Args...)
		if err != nil {
			return nil, NewRuleResolutionError(seg.Raw, fmt.Sprintf("validator %q rejected its arguments", seg.Name), err)
		}
		if built == nil || built.Fn == nil {
			return nil, NewRuleResolutionError(seg.Raw, fmt.Sprintf("validator %q produced no function", seg.Name), nil)
		}
		if built.Name == "" {
			built.Name = seg.Name
		}
		out = append(out, ruleEntry{key: "rule:" + seg.Raw, v: built})
	}
	return out, nil
}

func requiredFactory(args ...any) (*Validator, error) {
	return Func("required", func(_ context.Context, c Control) (ValidationErrors, error) {
		if IsEmptyValue(c.Value()) {
			return ValidationErrors{"required": true}, nil
		}
		return nil, nil
	}), nil
}

func emptyFactory(args ...any) (*Validator, error) {
	return Func("empty", func(_ context.Context, c Control) (ValidationErrors, error) {
		if !IsEmptyValue(c.Value()) {
			return ValidationErrors{"empty": true}, nil
		}
		return nil, nil
	}), nil
}
