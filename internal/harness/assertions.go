package harness

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/formtree/internal/form"
	"github.com/roach88/formtree/internal/snapshot"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Path     string       // Checked control
	Expected string       // Canonical JSON of the expected value
	Actual   string       // Canonical JSON of the actual value
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s at %q\n", e.Type, e.Path)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %q -> %s\n", ev.Step, ev.Op, ev.Path, ev.State)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against the tree under root
// and returns one message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion, root form.Control) []string {
	var errors []string

	for i, a := range assertions {
		target, err := findControl(root, a.Path)
		if err != nil {
			errors = append(errors, fmt.Sprintf("assertion[%d]: %v", i, err))
			continue
		}

		var actual any
		switch a.Type {
		case AssertErrors:
			actual = target.Errors()
		case AssertState:
			actual = target.ValidateState()
			if comp, ok := form.AsComposite(target); ok {
				actual = comp.AggregateState()
			}
		case AssertValue:
			actual = target.Value()
		case AssertAllErrors:
			comp, ok := form.AsComposite(target)
			if !ok {
				errors = append(errors, fmt.Sprintf("assertion[%d]: all_errors needs a group, array or form at %q", i, a.Path))
				continue
			}
			actual = comp.AllErrors()
		case AssertChoiced:
			cc, ok := target.(*form.ChoiceControl)
			if !ok {
				errors = append(errors, fmt.Sprintf("assertion[%d]: choiced needs a choice-control at %q", i, a.Path))
				continue
			}
			values := []any{}
			for _, ch := range cc.ChoicedChoices() {
				values = append(values, ch.Value())
			}
			actual = values
		default:
			errors = append(errors, fmt.Sprintf("assertion[%d]: unknown assertion type %q", i, a.Type))
			continue
		}

		if err := compare(a, actual, result.Trace); err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}

// compare matches the canonical JSON of both sides. For error assertions
// an empty list or map stands for no errors.
func compare(a Assertion, actual any, trace []TraceEvent) error {
	expected := a.Expect
	if a.Type == AssertErrors || a.Type == AssertAllErrors {
		expected, actual = emptyToNil(expected), emptyToNil(actual)
	}
	want, err := canonical(expected)
	if err != nil {
		return fmt.Errorf("%s at %q: expected value: %w", a.Type, a.Path, err)
	}
	got, err := canonical(actual)
	if err != nil {
		return fmt.Errorf("%s at %q: actual value: %w", a.Type, a.Path, err)
	}
	if want == got {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Path:     a.Path,
		Expected: want,
		Actual:   got,
		Trace:    trace,
	}
}

func emptyToNil(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		if rv.Len() == 0 {
			return nil
		}
	}
	return v
}

func canonical(v any) (string, error) {
	data, err := snapshot.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(bytes.TrimSuffix(data, []byte("\n"))), nil
}

// sameJSON reports whether a and b have the same canonical JSON.
func sameJSON(a, b any) bool {
	ca, err := canonical(a)
	if err != nil {
		return false
	}
	cb, err := canonical(b)
	return err == nil && ca == cb
}
