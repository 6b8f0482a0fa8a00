package form

// ChoiceControl is a control whose value is derived from the selection
// state of its choices. In single mode the value is the payload of the
// selected choice or nil; in multiple mode it is the list of selected
// payloads in choice order.
type ChoiceControl struct {
	leaf

	choices []*Choice

	// model is the last value set from outside; newly attached choices
	// derive their selection from it.
	model any

	// autoDestroy is set on implicitly created controls: the control is
	// destroyed when its last choice leaves.
	autoDestroy bool
}

var _ controlImpl = (*ChoiceControl)(nil)

// NewChoiceControl creates a choice control. WithValue sets the value that
// attached choices are matched against.
func NewChoiceControl(r *Registry, opts ...Option) (*ChoiceControl, error) {
	cfg := newNodeConfig(opts)
	cc, err := newChoiceControl(r, cfg)
	if err != nil {
		return nil, err
	}
	if err := cc.register(cfg); err != nil {
		return nil, err
	}
	return cc, nil
}

func newChoiceControl(r *Registry, cfg *nodeConfig) (*ChoiceControl, error) {
	cc := &ChoiceControl{}
	if err := cc.initLeaf(r, KindChoiceControl, cfg, cc); err != nil {
		return nil, err
	}
	cc.model = normalizeValue(cfg.value, cc.multiple)
	cc.initial = normalizeValue(cfg.value, cc.multiple)
	return cc, nil
}

// AutoDestroy reports whether the control was created implicitly and is
// destroyed with its last choice.
func (cc *ChoiceControl) AutoDestroy() bool {
	var v bool
	cc.reg.read(func() { v = cc.autoDestroy })
	return v
}

// Choices returns the attached choices in attach order.
func (cc *ChoiceControl) Choices() []*Choice {
	var out []*Choice
	cc.reg.read(func() {
		out = append(out, cc.choices...)
	})
	return out
}

// ChoicedChoices returns the selected choices.
func (cc *ChoiceControl) ChoicedChoices() []*Choice {
	return cc.filterChoices(true)
}

// UnchoicedChoices returns the choices that are not selected.
func (cc *ChoiceControl) UnchoicedChoices() []*Choice {
	return cc.filterChoices(false)
}

func (cc *ChoiceControl) filterChoices(choiced bool) []*Choice {
	var out []*Choice
	cc.reg.read(func() {
		for _, ch := range cc.choices {
			if ch.choiced == choiced {
				out = append(out, ch)
			}
		}
	})
	return out
}

func (cc *ChoiceControl) valueLocked(force bool) (any, bool) {
	if !force && cc.disabledLocked() {
		return nil, false
	}
	var selected []any
	for _, ch := range cc.choices {
		if !ch.choiced {
			continue
		}
		if !force && ch.disabledLocked() {
			continue
		}
		selected = append(selected, ch.value)
	}
	if cc.multiple {
		if selected == nil {
			selected = []any{}
		}
		return selected, true
	}
	if len(selected) > 0 {
		return selected[0], true
	}
	return nil, true
}

// sourcesLocked merges rule configuration from the control and every
// attached choice.
func (cc *ChoiceControl) sourcesLocked() []*nodeBase {
	out := make([]*nodeBase, 0, len(cc.choices)+1)
	out = append(out, &cc.nodeBase)
	for _, ch := range cc.choices {
		out = append(out, &ch.nodeBase)
	}
	return out
}

// SetValue selects the choices whose payload matches v: the members of v
// in multiple mode, the single equal payload otherwise.
func (cc *ChoiceControl) SetValue(v any) error {
	return cc.reg.updateErr(func(fx *effects) error {
		if cc.destroyed {
			return newDestroyedError(cc.name)
		}
		cc.model = normalizeValue(v, cc.multiple)
		cc.syncFromModelLocked(fx)
		return nil
	})
}

// syncFromModelLocked applies the model to every choice and emits a single
// value change if the derived value moved. The model is kept even when no
// choice matches it, so choices attached later can still pick it up.
func (cc *ChoiceControl) syncFromModelLocked(fx *effects) {
	before := cc.flagsLocked()
	prev, _ := cc.valueLocked(true)
	if cc.multiple {
		for _, ch := range cc.choices {
			ch.setChoicedLocked(cc.matchesModelLocked(ch), fx)
		}
	} else {
		// equal payloads: the last matching choice wins
		var pick *Choice
		for _, ch := range cc.choices {
			if cc.matchesModelLocked(ch) {
				pick = ch
			}
		}
		for _, ch := range cc.choices {
			ch.setChoicedLocked(ch == pick, fx)
		}
	}
	cc.afterSelectionLocked(prev, before, fx)
}

// adoptSelectionLocked makes the current selection the model.
func (cc *ChoiceControl) adoptSelectionLocked() {
	cur, _ := cc.valueLocked(true)
	cc.model = cloneValue(cur)
}

func (cc *ChoiceControl) matchesModelLocked(ch *Choice) bool {
	if cc.multiple {
		list, _ := cc.model.([]any)
		return containsValue(list, ch.value)
	}
	return cc.model != nil && sameValue(cc.model, ch.value)
}

// afterSelectionLocked notifies once if the derived value differs from
// prev.
func (cc *ChoiceControl) afterSelectionLocked(prev any, before []flagState, fx *effects) {
	cur, _ := cc.valueLocked(true)
	if shallowEqual(prev, cur, cc.multiple) {
		return
	}
	cc.valueChangedLocked(fx, before)
}

func (cc *ChoiceControl) attachChoiceLocked(ch *Choice, fx *effects) error {
	if cc.destroyed {
		return newDestroyedError(cc.name)
	}
	if ch.multiple != cc.multiple {
		return NewChoiceConfigError(cc.name, "choice and control disagree on multiple mode")
	}
	before := cc.flagsLocked()
	prev, _ := cc.valueLocked(true)
	cc.choices = append(cc.choices, ch)
	ch.control = cc
	if ch.initialChoiced {
		ch.selectLocked(true, fx)
		cc.adoptSelectionLocked()
		cc.commitValueLocked(fx)
	} else if cc.matchesModelLocked(ch) {
		ch.selectLocked(true, fx)
	}
	cc.afterSelectionLocked(prev, before, fx)
	return nil
}

func (cc *ChoiceControl) detachChoiceLocked(ch *Choice, fx *effects) {
	idx := -1
	for i, c := range cc.choices {
		if c == ch {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	before := cc.flagsLocked()
	prev, _ := cc.valueLocked(true)
	cc.choices = append(cc.choices[:idx], cc.choices[idx+1:]...)
	ch.control = nil
	if len(cc.choices) == 0 && cc.autoDestroy && !cc.destroyed {
		cc.reg.logger.Debug("auto-created choice control released", "node", cc.id, "name", cc.name)
		cc.destroyLocked(fx)
		return
	}
	if !cc.destroyed {
		cc.afterSelectionLocked(prev, before, fx)
	}
}

// destroyLocked destroys the attached choices along with the control.
func (cc *ChoiceControl) destroyLocked(fx *effects) {
	if cc.destroyed {
		cc.reg.deregisterLocked(cc)
		return
	}
	cc.autoDestroy = false
	for _, ch := range append([]*Choice(nil), cc.choices...) {
		ch.destroyLocked(fx)
	}
	cc.destroyBaseLocked(fx)
}
