package form

import (
	"fmt"
	"strconv"
)

// Choice is one selectable option of a ChoiceControl. It is a node but not
// a control: it has no value state of its own beyond the selection flag.
type Choice struct {
	nodeBase

	value    any
	choiced  bool
	multiple bool
	control  *ChoiceControl

	// initialChoiced selects the choice on attach.
	initialChoiced bool

	choicedListeners listenerSet[bool]
}

// NewChoice creates a choice and binds it to its owning control.
//
// The owner is, in order: the control given with WithControl; the control
// found by name in the WithFormContext composite; or a new choice control
// created with the choice's name, multiple and required settings, added to
// the form context and marked for auto-destroy. Finding a non-choice
// control under that name, or a multiple mode mismatch, fails with a
// choice configuration error.
func NewChoice(r *Registry, opts ...Option) (*Choice, error) {
	cfg := newNodeConfig(opts)
	ch := &Choice{value: true, initialChoiced: cfg.choiced}
	if cfg.hasValue {
		ch.value = cfg.value
	}
	if cfg.control != nil {
		if cfg.control.Registry() != r {
			return nil, NewChoiceConfigError(cfg.name, "control belongs to another registry")
		}
		if cfg.name == "" {
			cfg.name = cfg.control.Name()
		}
	}
	if cfg.parent != nil && cfg.formContext == nil {
		cfg.formContext = cfg.parent
	}
	// choices carry no parent of their own; the option only names the context
	cfg.parent = nil
	if err := ch.configure(r, KindChoice, cfg); err != nil {
		return nil, err
	}
	if ch.name == "" {
		ch.name = "form-choice-" + strconv.FormatInt(ch.id, 10)
	}

	owner, created, err := ch.ensureControl(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.multiple != nil {
		ch.multiple = *cfg.multiple
	} else {
		ch.multiple = owner.Multiple()
	}

	err = r.updateErr(func(fx *effects) error {
		if err := owner.attachChoiceLocked(ch, fx); err != nil {
			return err
		}
		r.registerLocked(ch)
		return nil
	})
	if err != nil {
		if created {
			owner.Destroy()
		}
		return nil, err
	}
	return ch, nil
}

// ensureControl resolves or implicitly creates the owning control.
func (ch *Choice) ensureControl(cfg *nodeConfig) (*ChoiceControl, bool, error) {
	if cfg.control != nil {
		return cfg.control, false, nil
	}
	if cfg.formContext != nil {
		if found := cfg.formContext.ControlByName(ch.name); found != nil {
			cc, ok := found.(*ChoiceControl)
			if !ok {
				return nil, false, NewChoiceConfigError(ch.name, fmt.Sprintf("a choice cannot be paired with a %s", found.Kind()))
			}
			return cc, false, nil
		}
	}

	ccOpts := []Option{WithName(ch.name)}
	if cfg.multiple != nil {
		ccOpts = append(ccOpts, WithMultiple(*cfg.multiple))
	}
	if cfg.required {
		ccOpts = append(ccOpts, WithRequired())
	}
	if cfg.formContext != nil {
		ccOpts = append(ccOpts, WithParent(cfg.formContext))
	}
	cc, err := NewChoiceControl(ch.reg, ccOpts...)
	if err != nil {
		return nil, false, fmt.Errorf("create choice control %q: %w", ch.name, err)
	}
	ch.reg.update(func(fx *effects) {
		cc.autoDestroy = true
		ch.reg.autoCreated.emit(fx, cc)
	})
	ch.reg.logger.Info("choice control auto-created", "node", cc.id, "name", cc.name, "multiple", cc.multiple)
	return cc, true, nil
}

// Value returns the option payload.
func (ch *Choice) Value() any {
	return ch.value
}

// Multiple reports the selection mode, fixed at construction.
func (ch *Choice) Multiple() bool {
	return ch.multiple
}

// Control returns the owning control, or nil once the choice is destroyed.
func (ch *Choice) Control() *ChoiceControl {
	var cc *ChoiceControl
	ch.reg.read(func() { cc = ch.control })
	return cc
}

// Siblings returns the other choices of the owning control.
func (ch *Choice) Siblings() []*Choice {
	var out []*Choice
	ch.reg.read(func() {
		if ch.control == nil {
			return
		}
		for _, s := range ch.control.choices {
			if s != ch {
				out = append(out, s)
			}
		}
	})
	return out
}

func (ch *Choice) disabledLocked() bool {
	if ch.disabled {
		return true
	}
	return ch.control != nil && ch.control.disabledLocked()
}

func (ch *Choice) readonlyLocked() bool {
	if ch.readonly {
		return true
	}
	return ch.control != nil && ch.control.readonlyLocked()
}

// Disabled reports the own flag or the owning control's effective flag.
func (ch *Choice) Disabled() bool {
	var v bool
	ch.reg.read(func() { v = ch.disabledLocked() })
	return v
}

func (ch *Choice) Readonly() bool {
	var v bool
	ch.reg.read(func() { v = ch.readonlyLocked() })
	return v
}

func (ch *Choice) SetDisabled(disabled bool) {
	ch.reg.read(func() { ch.disabled = disabled })
}

func (ch *Choice) SetReadonly(readonly bool) {
	ch.reg.read(func() { ch.readonly = readonly })
}

// Choiced reports the selection state.
func (ch *Choice) Choiced() bool {
	var v bool
	ch.reg.read(func() { v = ch.choiced })
	return v
}

// SetChoiced changes the selection. Selecting in single mode deselects
// every sibling first; the owning control then emits one value change.
func (ch *Choice) SetChoiced(choiced bool) {
	ch.change(func(bool) bool { return choiced })
}

func (ch *Choice) change(next func(cur bool) bool) {
	ch.reg.update(func(fx *effects) {
		choiced := next(ch.choiced)
		if ch.destroyed || ch.control == nil || ch.choiced == choiced {
			return
		}
		cc := ch.control
		before := cc.flagsLocked()
		prev, _ := cc.valueLocked(true)
		ch.selectLocked(choiced, fx)
		cc.adoptSelectionLocked()
		cc.afterSelectionLocked(prev, before, fx)
	})
}

// selectLocked sets the flag and, in single mode, clears the siblings.
func (ch *Choice) selectLocked(choiced bool, fx *effects) {
	ch.setChoicedLocked(choiced, fx)
	if !choiced || ch.multiple || ch.control == nil {
		return
	}
	for _, s := range ch.control.choices {
		if s != ch {
			s.setChoicedLocked(false, fx)
		}
	}
}

func (ch *Choice) setChoicedLocked(choiced bool, fx *effects) {
	if ch.choiced == choiced {
		return
	}
	ch.choiced = choiced
	ch.choicedListeners.emit(fx, choiced)
}

func (ch *Choice) Choice()   { ch.SetChoiced(true) }
func (ch *Choice) Unchoice() { ch.SetChoiced(false) }

// Toggle flips the selection.
func (ch *Choice) Toggle() {
	ch.change(func(cur bool) bool { return !cur })
}

func (ch *Choice) Check()    { ch.Choice() }
func (ch *Choice) Uncheck()  { ch.Unchoice() }
func (ch *Choice) Select()   { ch.Choice() }
func (ch *Choice) Deselect() { ch.Unchoice() }

// OnChoicedChange registers fn for selection changes of this choice.
func (ch *Choice) OnChoicedChange(fn func(bool)) func() {
	return subscribe(ch.reg, &ch.choicedListeners, fn)
}

// Emit passes the event through to the owning control.
func (ch *Choice) Emit(ev Event) {
	if cc := ch.Control(); cc != nil {
		cc.Emit(ev)
	}
}

// Destroy detaches the choice from its control and deregisters it. An
// auto-created control is destroyed with its last choice.
func (ch *Choice) Destroy() {
	ch.reg.update(func(fx *effects) {
		ch.destroyLocked(fx)
	})
}

func (ch *Choice) destroyLocked(fx *effects) {
	if ch.destroyed {
		ch.reg.deregisterLocked(ch)
		return
	}
	ch.destroyed = true
	if cc := ch.control; cc != nil {
		cc.detachChoiceLocked(ch, fx)
	}
	ch.reg.deregisterLocked(ch)
}
