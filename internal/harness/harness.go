package harness

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/formtree/internal/form"
	"github.com/roach88/formtree/internal/snapshot"
	"github.com/roach88/formtree/internal/testutil"
	"github.com/roach88/formtree/internal/validators"
)

// settleMargin is added to the longest debounce when waiting for timers.
const settleMargin = 20 * time.Millisecond

// Harness is the scenario execution engine. It owns the registry and the
// tree built from the scenario fixture.
type Harness struct {
	reg      *form.Registry
	root     form.Control
	debounce time.Duration
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh registry with the built-in validators and
// a fixed session token. opts are applied after those defaults, so a
// journal or logger can be added and the defaults overridden.
//
// Execution flow:
// 1. Build the control tree from the fixture
// 2. Apply each step and wait for validation to settle
// 3. Record the target of each step in the trace
// 4. Evaluate assertions against the final state
func Run(ctx context.Context, scenario *Scenario, opts ...form.RegistryOption) (*Result, error) {
	session := scenario.Session
	if session == "" {
		session = scenario.Name
	}
	base := []form.RegistryOption{
		form.WithValidators(validators.Default()),
		form.WithSessionGenerator(testutil.NewFixedSessionGenerator(session)),
	}
	reg := form.NewRegistry(append(base, opts...)...)
	defer reg.ResetAll()

	h := &Harness{reg: reg, logger: reg.Logger()}
	root, err := h.build(&scenario.Tree, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build tree: %w", err)
	}
	h.root = root

	result := NewResult()
	result.Session = reg.Session()
	for i, step := range scenario.Steps {
		ev, err := h.apply(ctx, i, step)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
		result.Trace = append(result.Trace, ev)
	}
	result.Snapshot = snapshot.Take(root)

	for _, msg := range EvaluateAssertions(result, scenario.Assertions, root) {
		result.AddError(msg)
	}
	h.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"steps", len(scenario.Steps),
		"pass", result.Pass,
	)
	return result, nil
}

// build creates the control described by f and its descendants.
func (h *Harness) build(f *Fixture, parent form.Composite) (form.Control, error) {
	opts := []form.Option{form.WithName(f.Name)}
	if parent != nil {
		opts = append(opts, form.WithParent(parent))
	}
	if f.Rules != "" {
		opts = append(opts, form.WithRules(f.Rules))
	}
	if f.Required {
		opts = append(opts, form.WithRequired())
	}
	if len(f.ValidateOn) > 0 {
		events := make([]form.Event, len(f.ValidateOn))
		for i, ev := range f.ValidateOn {
			events[i] = form.Event(ev)
		}
		opts = append(opts, form.WithValidateOn(events...))
	}
	if f.DebounceMS > 0 {
		d := time.Duration(f.DebounceMS) * time.Millisecond
		opts = append(opts, form.WithDebounce(d))
		h.debounce = max(h.debounce, d)
	}
	if f.Multiple {
		opts = append(opts, form.WithMultiple(true))
	}
	if f.Value != nil {
		opts = append(opts, form.WithValue(f.Value))
	}

	switch f.Kind {
	case KindField:
		return form.NewField(h.reg, opts...)
	case KindChoiceControl:
		cc, err := form.NewChoiceControl(h.reg, opts...)
		if err != nil {
			return nil, err
		}
		for i, c := range f.Choices {
			copts := []form.Option{form.WithControl(cc), form.WithValue(c.Value)}
			if c.Choiced {
				copts = append(copts, form.WithChoiced())
			}
			if c.Disabled {
				copts = append(copts, form.WithDisabled())
			}
			if _, err := form.NewChoice(h.reg, copts...); err != nil {
				return nil, fmt.Errorf("%s choice %d: %w", f.Name, i, err)
			}
		}
		return cc, nil
	}

	var (
		comp form.Composite
		err  error
	)
	switch f.Kind {
	case KindGroup:
		comp, err = form.NewGroup(h.reg, opts...)
	case KindArray:
		comp, err = form.NewArray(h.reg, opts...)
	case KindForm:
		comp, err = form.NewForm(h.reg, opts...)
	default:
		return nil, fmt.Errorf("unknown kind %q", f.Kind)
	}
	if err != nil {
		return nil, err
	}
	for i := range f.Children {
		if _, err := h.build(&f.Children[i], comp); err != nil {
			return nil, fmt.Errorf("%s: %w", f.Children[i].Name, err)
		}
	}
	return comp, nil
}

// apply runs one step, waits for the tree to settle and records the
// target.
func (h *Harness) apply(ctx context.Context, index int, step Step) (TraceEvent, error) {
	target, err := findControl(h.root, step.Path)
	if err != nil {
		return TraceEvent{}, err
	}
	h.logger.Debug("applying step", "step", index+1, "op", step.Op, "path", step.Path)

	switch step.Op {
	case OpSet:
		err = target.SetValue(step.Value)
	case OpEmit:
		target.Emit(form.Event(step.Event))
	case OpValidate:
		_, err = target.ValidateSelf(ctx)
	case OpValidateAll:
		comp, ok := form.AsComposite(target)
		if !ok {
			return TraceEvent{}, fmt.Errorf("validate_all needs a group, array or form at %q", step.Path)
		}
		_, err = comp.ValidateAll(ctx)
	case OpChoose, OpUnchoose:
		var ch *form.Choice
		ch, err = findChoice(target, step.Value)
		if err == nil {
			ch.SetChoiced(step.Op == OpChoose)
		}
	case OpClearErrors:
		target.ClearErrors()
	case OpReset:
		target.Reset()
	default:
		err = fmt.Errorf("unknown op %q", step.Op)
	}
	if err != nil {
		return TraceEvent{}, err
	}
	if err := h.settle(ctx); err != nil {
		return TraceEvent{}, err
	}
	return record(index, step, target), nil
}

// settle waits out debounce timers and then every run in flight.
func (h *Harness) settle(ctx context.Context) error {
	if h.debounce > 0 {
		timer := time.NewTimer(h.debounce + settleMargin)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	for _, c := range controlsOf(h.root) {
		if !c.Pending() {
			continue
		}
		if _, err := c.ValidateSelf(ctx); err != nil {
			return fmt.Errorf("settle %q: %w", c.Name(), err)
		}
	}
	return nil
}

func record(index int, step Step, target form.Control) TraceEvent {
	ev := TraceEvent{
		Step:   index + 1,
		Op:     step.Op,
		Path:   step.Path,
		Event:  step.Event,
		State:  target.ValidateState(),
		Value:  target.Value(),
		Errors: target.Errors(),
	}
	if comp, ok := form.AsComposite(target); ok {
		ev.State = comp.AggregateState()
		ev.AllErrors = comp.AllErrors()
	}
	return ev
}

// findControl resolves path from root. The empty path is root itself.
func findControl(root form.Control, path string) (form.Control, error) {
	if path == "" {
		return root, nil
	}
	comp, ok := form.AsComposite(root)
	if !ok {
		return nil, fmt.Errorf("path %q: the root %s has no children", path, root.Kind())
	}
	c := comp.Find(path)
	if c == nil {
		return nil, fmt.Errorf("path %q: no such control", path)
	}
	return c, nil
}

// findChoice returns the choice of target whose payload equals value.
func findChoice(target form.Control, value any) (*form.Choice, error) {
	cc, ok := target.(*form.ChoiceControl)
	if !ok {
		return nil, fmt.Errorf("%q is a %s, not a choice-control", target.Name(), target.Kind())
	}
	for _, ch := range cc.Choices() {
		if sameJSON(ch.Value(), value) {
			return ch, nil
		}
	}
	return nil, fmt.Errorf("%q has no choice with value %v", cc.Name(), value)
}

func controlsOf(root form.Control) []form.Control {
	if comp, ok := form.AsComposite(root); ok {
		return comp.AllControls()
	}
	return []form.Control{root}
}
