package form

import (
	"context"
	"strings"
	"time"
)

// ValidateState is the validation state of a control.
type ValidateState string

const (
	StateValid   ValidateState = "VALID"
	StateInvalid ValidateState = "INVALID"
	StatePending ValidateState = "PENDING"
)

// Control is a node that owns a value, an error list and a validation
// pipeline.
type Control interface {
	Node

	Parent() Composite
	Root() Control
	// Key returns the name or "[index]" under which the parent holds c.
	Key() (string, bool)
	// PathFrom returns the dot/bracket path from ancestor down to c.
	PathFrom(ancestor Composite) (string, bool)

	// Value returns the value including disabled members.
	Value() any
	// GetValue returns the value, or false when force is unset and the
	// control is disabled.
	GetValue(force bool) (any, bool)
	// FormValue is GetValue with force set by the alwaysValue option.
	FormValue() (any, bool)
	SetValue(v any) error

	Errors() ControlErrors
	HasError() bool
	ValidateState() ValidateState
	Valid() bool
	Invalid() bool
	Pending() bool
	Pristine() bool
	Dirty() bool
	Touched() bool
	Untouched() bool
	Enabled() bool
	// Operational reports enabled and not readonly.
	Operational() bool
	Required() bool

	ComputedRules() []*Validator
	ComputedValidateOn() []Event
	ComputedConditions() []*Condition
	ComputedDebounce() time.Duration

	Emit(ev Event)
	ValidateSelf(ctx context.Context) (ControlErrors, error)
	ClearErrors()
	Clear(clearErrors bool)
	Reset()
	Commit()

	WatchFor(other Control) bool
	Unwatch(other Control) bool
	Watchers() []Control
	Watching() []Control

	Files() []any
	FileInfos() []FileInfo
	ImageFileInfos(ctx context.Context) ([]ImageFileInfo, error)

	OnValueChange(fn func(any)) func()
	OnErrorsChange(fn func(ControlErrors)) func()

	ctrl() *control
}

// controlImpl is what each concrete control kind supplies to the shared
// machinery. All methods run with the registry lock held.
type controlImpl interface {
	Control
	valueLocked(force bool) (any, bool)
	pristineLocked() bool
	touchedLocked() bool
	touchLocked(ev Event, fx *effects)
	// sourcesLocked lists the nodes whose rule configuration is merged.
	sourcesLocked() []*nodeBase
	destroyLocked(fx *effects)
}

// control is the state shared by every control kind.
type control struct {
	nodeBase

	self   controlImpl
	parent *composite

	alwaysValue bool

	errors       ControlErrors
	state        ValidateState
	valueChanged bool
	requestID    int64
	requests     Clock
	waiters      []chan ControlErrors
	timer        *time.Timer
	timerGen     int64

	// lifetime is passed to validators and cancelled on destroy.
	lifetime context.Context
	cancel   context.CancelFunc

	valueListeners listenerSet[any]
	errorListeners listenerSet[ControlErrors]
}

func (c *control) initControl(r *Registry, kind Kind, cfg *nodeConfig, self controlImpl) error {
	if err := c.configure(r, kind, cfg); err != nil {
		return err
	}
	c.self = self
	c.alwaysValue = cfg.alwaysValue
	c.state = StateValid
	c.valueChanged = true
	c.lifetime, c.cancel = context.WithCancel(context.Background())
	return nil
}

// register enters the control into the live table and attaches it to the
// configured parent. A failed attach destroys the control.
func (c *control) register(cfg *nodeConfig) error {
	c.reg.read(func() {
		c.reg.registerLocked(c.self)
	})
	if cfg.parent != nil {
		if err := cfg.parent.Add(c.self); err != nil {
			c.self.Destroy()
			return err
		}
	}
	return nil
}

func (c *control) ctrl() *control { return c }

func (c *control) parentControl() *control {
	if c.parent == nil {
		return nil
	}
	return &c.parent.control
}

func (c *control) Parent() Composite {
	var p Composite
	c.reg.read(func() {
		if c.parent != nil {
			p = c.parent.impl
		}
	})
	return p
}

func (c *control) Root() Control {
	var root Control
	c.reg.read(func() {
		root = c.rootLocked().self
	})
	return root
}

func (c *control) rootLocked() *control {
	n := c
	for n.parent != nil {
		n = &n.parent.control
	}
	return n
}

func (c *control) Key() (string, bool) {
	var (
		key string
		ok  bool
	)
	c.reg.read(func() {
		if c.parent != nil {
			key, ok = c.parent.impl.keyOfLocked(c)
		}
	})
	return key, ok
}

func (c *control) PathFrom(ancestor Composite) (string, bool) {
	if ancestor == nil || ancestor.Registry() != c.reg {
		return "", false
	}
	var (
		path string
		ok   bool
	)
	c.reg.read(func() {
		path, ok = c.pathFromLocked(ancestor.ctrl())
	})
	return path, ok
}

func (c *control) pathFromLocked(ancestor *control) (string, bool) {
	var keys []string
	for n := c; n.parent != nil; n = &n.parent.control {
		key, ok := n.parent.impl.keyOfLocked(n)
		if !ok {
			return "", false
		}
		keys = append(keys, key)
		if &n.parent.control == ancestor {
			return joinPath(keys), true
		}
	}
	return "", false
}

// joinPath joins keys collected from the leaf upwards.
func joinPath(reversed []string) string {
	var b strings.Builder
	for i := len(reversed) - 1; i >= 0; i-- {
		key := reversed[i]
		if b.Len() > 0 && !strings.HasPrefix(key, "[") {
			b.WriteByte('.')
		}
		b.WriteString(key)
	}
	return b.String()
}

func (c *control) disabledLocked() bool {
	if c.disabled {
		return true
	}
	if p := c.parentControl(); p != nil {
		return p.disabledLocked()
	}
	return false
}

func (c *control) readonlyLocked() bool {
	if c.readonly {
		return true
	}
	if p := c.parentControl(); p != nil {
		return p.readonlyLocked()
	}
	return false
}

func (c *control) Disabled() bool {
	var v bool
	c.reg.read(func() { v = c.disabledLocked() })
	return v
}

func (c *control) Readonly() bool {
	var v bool
	c.reg.read(func() { v = c.readonlyLocked() })
	return v
}

func (c *control) SetDisabled(disabled bool) {
	c.reg.read(func() { c.disabled = disabled })
}

func (c *control) SetReadonly(readonly bool) {
	c.reg.read(func() { c.readonly = readonly })
}

func (c *control) Enabled() bool {
	return !c.Disabled()
}

func (c *control) Operational() bool {
	var v bool
	c.reg.read(func() { v = !c.disabledLocked() && !c.readonlyLocked() })
	return v
}

func (c *control) Value() any {
	v, _ := c.GetValue(true)
	return v
}

func (c *control) GetValue(force bool) (any, bool) {
	var (
		v  any
		ok bool
	)
	c.reg.read(func() {
		v, ok = c.self.valueLocked(force)
	})
	return v, ok
}

func (c *control) FormValue() (any, bool) {
	var (
		v  any
		ok bool
	)
	c.reg.read(func() {
		v, ok = c.self.valueLocked(c.alwaysValue)
	})
	return v, ok
}

func (c *control) Errors() ControlErrors {
	var errs ControlErrors
	c.reg.read(func() { errs = c.errors.Clone() })
	return errs
}

func (c *control) HasError() bool {
	var v bool
	c.reg.read(func() { v = len(c.errors) > 0 })
	return v
}

func (c *control) ValidateState() ValidateState {
	var s ValidateState
	c.reg.read(func() { s = c.state })
	return s
}

func (c *control) Valid() bool   { return c.ValidateState() == StateValid }
func (c *control) Invalid() bool { return c.ValidateState() == StateInvalid }
func (c *control) Pending() bool { return c.ValidateState() == StatePending }

func (c *control) Pristine() bool {
	var v bool
	c.reg.read(func() { v = c.self.pristineLocked() })
	return v
}

func (c *control) Dirty() bool { return !c.Pristine() }

func (c *control) Touched() bool {
	var v bool
	c.reg.read(func() { v = c.self.touchedLocked() })
	return v
}

func (c *control) Untouched() bool { return !c.Touched() }

func (c *control) Required() bool {
	var v bool
	c.reg.read(func() {
		for _, src := range c.self.sourcesLocked() {
			if src.required {
				v = true
				return
			}
		}
	})
	return v
}

func (c *control) ComputedRules() []*Validator {
	var out []*Validator
	c.reg.read(func() { out = c.computedRulesLocked() })
	return out
}

// computedRulesLocked merges the rules of every source, then appends
// required when any source asks for it and no explicit required rule exists.
func (c *control) computedRulesLocked() []*Validator {
	var (
		entries  []ruleEntry
		required bool
	)
	for _, src := range c.self.sourcesLocked() {
		entries = append(entries, src.rules...)
		required = required || src.required
	}
	entries = dedupeRules(entries)
	out := make([]*Validator, 0, len(entries)+1)
	hasRequired := false
	for _, e := range entries {
		if e.key == requiredKey {
			hasRequired = true
		}
		out = append(out, e.v)
	}
	if required && !hasRequired {
		if v, err := c.reg.validators.Resolve("required"); err == nil {
			out = append(out, v...)
		}
	}
	return out
}

const requiredKey = "rule:required"

func (c *control) ComputedValidateOn() []Event {
	var out []Event
	c.reg.read(func() { out = c.computedValidateOnLocked() })
	return out
}

func (c *control) computedValidateOnLocked() []Event {
	var events []Event
	for _, src := range c.self.sourcesLocked() {
		events = append(events, src.validateOn...)
	}
	return dedupeEvents(events)
}

func (c *control) ComputedConditions() []*Condition {
	var out []*Condition
	c.reg.read(func() { out = c.computedConditionsLocked() })
	return out
}

func (c *control) computedConditionsLocked() []*Condition {
	var conds []*Condition
	for _, src := range c.self.sourcesLocked() {
		conds = append(conds, src.conditions...)
	}
	return dedupeConditions(conds)
}

func (c *control) ComputedDebounce() time.Duration {
	var d time.Duration
	c.reg.read(func() { d = c.computedDebounceLocked() })
	return d
}

// computedDebounceLocked is the largest debounce any source configures.
func (c *control) computedDebounceLocked() time.Duration {
	var d time.Duration
	for _, src := range c.self.sourcesLocked() {
		if src.hasDebounce && src.debounce > d {
			d = src.debounce
		}
	}
	return d
}

// Emit forwards a UI event: it marks touched per the touch event, triggers
// validation for configured timings, and passes the event to the parent.
func (c *control) Emit(ev Event) {
	c.reg.update(func(fx *effects) {
		if c.destroyed {
			return
		}
		c.self.touchLocked(ev, fx)
		if containsEvent(c.computedValidateOnLocked(), ev) {
			fx.add(c.handleTrigger)
		}
		if c.parent != nil {
			parent := c.parent.impl
			fx.add(func() { parent.Emit(ev) })
		}
	})
}

func (c *control) OnValueChange(fn func(any)) func() {
	return subscribe(c.reg, &c.valueListeners, fn)
}

func (c *control) OnErrorsChange(fn func(ControlErrors)) func() {
	return subscribe(c.reg, &c.errorListeners, fn)
}

// Destroy detaches the control, drops its watch edges, resolves pending
// waiters with the last known errors and removes it from the registry.
func (c *control) Destroy() {
	c.reg.update(func(fx *effects) {
		c.self.destroyLocked(fx)
	})
}

func (c *control) destroyBaseLocked(fx *effects) {
	if c.destroyed {
		c.reg.deregisterLocked(c.self)
		return
	}
	c.stopTimerLocked()
	if c.parent != nil {
		c.parent.detachLocked(c, fx)
	}
	c.reg.watches.removeNode(c.id)
	c.destroyed = true
	c.resolveWaitersLocked(c.errors)
	c.cancel()
	c.reg.deregisterLocked(c.self)
	c.reg.logger.Debug("control destroyed", "node", c.id, "name", c.name, "kind", c.kind)
}

// flagState is a pristine/touched snapshot used to detect transitions.
type flagState struct {
	c        *control
	pristine bool
	touched  bool
}

// flagsLocked snapshots c and its ancestors.
func (c *control) flagsLocked() []flagState {
	var out []flagState
	for n := c; n != nil; n = n.parentControl() {
		out = append(out, flagState{c: n, pristine: n.self.pristineLocked(), touched: n.self.touchedLocked()})
	}
	return out
}

// flagChangesLocked triggers validation on every snapshotted control whose
// pristine or touched flag has since flipped.
func flagChangesLocked(before []flagState, fx *effects) {
	for _, f := range before {
		if f.c.destroyed {
			continue
		}
		if f.c.self.pristineLocked() != f.pristine || f.c.self.touchedLocked() != f.touched {
			fx.add(f.c.handleTrigger)
		}
	}
}

// valueChangedLocked propagates a value change of c: c and each ancestor
// are marked changed, notify their listeners and watchers, and supersede
// any run in flight.
func (c *control) valueChangedLocked(fx *effects, before []flagState) {
	for n := c; n != nil; n = n.parentControl() {
		n.markChangedLocked(fx)
	}
	flagChangesLocked(before, fx)
}

func (c *control) markChangedLocked(fx *effects) {
	c.valueChanged = true
	if c.state == StatePending {
		c.startRunLocked(fx)
	}
	if c.valueListeners.count() > 0 {
		v, _ := c.self.valueLocked(true)
		c.valueListeners.emit(fx, v)
	}
	for _, id := range c.reg.watches.watchersOf(c.id) {
		w := c.reg.controlLocked(id)
		if w == nil || w.destroyed {
			continue
		}
		// a watched input moved, so the watcher's last result is outdated
		w.valueChanged = true
		if w.state == StatePending {
			w.startRunLocked(fx)
		}
		fx.add(w.handleTrigger)
	}
}

// errorsChangedLocked notifies error listeners of c and all-errors
// listeners of its ancestors.
func (c *control) errorsChangedLocked(fx *effects) {
	c.errorListeners.emit(fx, c.errors.Clone())
	if comp, ok := c.self.(compositeImpl); ok {
		comp.comp().notifyAllErrorsLocked(fx)
	}
	for p := c.parent; p != nil; p = p.control.parent {
		p.notifyAllErrorsLocked(fx)
	}
}
