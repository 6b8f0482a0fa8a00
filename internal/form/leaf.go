package form

// leaf is the state shared by value-holding controls (fields and choice
// controls): touch tracking, the initial value and multiple mode.
type leaf struct {
	control

	initial  any
	touched  bool
	touchOn  Event
	multiple bool
}

func (l *leaf) initLeaf(r *Registry, kind Kind, cfg *nodeConfig, self controlImpl) error {
	if err := l.initControl(r, kind, cfg, self); err != nil {
		return err
	}
	l.touchOn = cfg.touchOn
	l.multiple = cfg.multiple != nil && *cfg.multiple
	return nil
}

func (l *leaf) defaultValue() any {
	if l.multiple {
		return []any{}
	}
	return nil
}

// Multiple reports whether the control holds a list of values.
func (l *leaf) Multiple() bool {
	return l.multiple
}

func (l *leaf) touchedLocked() bool {
	return l.touched
}

func (l *leaf) pristineLocked() bool {
	v, _ := l.self.valueLocked(true)
	return shallowEqual(v, l.initial, l.multiple)
}

func (l *leaf) touchLocked(ev Event, fx *effects) {
	if ev == l.touchOn {
		l.setTouchedLocked(true, fx)
	}
}

func (l *leaf) sourcesLocked() []*nodeBase {
	return []*nodeBase{&l.nodeBase}
}

func (l *leaf) destroyLocked(fx *effects) {
	l.destroyBaseLocked(fx)
}

// SetTouched sets the touched flag. A transition triggers validation.
func (l *leaf) SetTouched(touched bool) {
	l.reg.update(func(fx *effects) {
		l.setTouchedLocked(touched, fx)
	})
}

func (l *leaf) setTouchedLocked(touched bool, fx *effects) {
	if l.destroyed || l.touched == touched {
		return
	}
	before := l.flagsLocked()
	l.touched = touched
	flagChangesLocked(before, fx)
}

// InitialValue returns the value pristine is measured against.
func (l *leaf) InitialValue() any {
	var v any
	l.reg.read(func() { v = cloneValue(l.initial) })
	return v
}

// UpdateInitialValue makes the current value the initial value.
func (l *leaf) UpdateInitialValue() {
	l.reg.update(func(fx *effects) {
		l.commitValueLocked(fx)
	})
}

func (l *leaf) commitValueLocked(fx *effects) {
	before := l.flagsLocked()
	v, _ := l.self.valueLocked(true)
	l.initial = cloneValue(v)
	flagChangesLocked(before, fx)
}

// Commit is UpdateInitialValue.
func (l *leaf) Commit() {
	l.UpdateInitialValue()
}

// Clear sets the default value (nil, or an empty list in multiple mode) and
// optionally clears errors.
func (l *leaf) Clear(clearErrors bool) {
	_ = l.self.SetValue(l.defaultValue())
	if clearErrors {
		l.ClearErrors()
	}
}

// Reset restores the initial value.
func (l *leaf) Reset() {
	_ = l.self.SetValue(l.InitialValue())
}

// StringValue renders a single value as a string.
func (l *leaf) StringValue() string {
	return ToString(l.self.Value())
}

// StringValues renders every value as a string.
func (l *leaf) StringValues() []string {
	items := valueItems(l.self.Value())
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = ToString(item)
	}
	return out
}

// NumberValue parses a single value as a number. Non-numeric values give 0.
func (l *leaf) NumberValue() float64 {
	f, _ := ToFloat(l.self.Value())
	return f
}

// NumberValues parses every value as a number.
func (l *leaf) NumberValues() []float64 {
	items := valueItems(l.self.Value())
	out := make([]float64, len(items))
	for i, item := range items {
		out[i], _ = ToFloat(item)
	}
	return out
}
