package form

// Event is a UI interaction forwarded to a control.
type Event string

const (
	EventInput  Event = "input"
	EventChange Event = "change"
	EventFocus  Event = "focus"
	EventBlur   Event = "blur"
)

// Valid reports whether e is a known event.
func (e Event) Valid() bool {
	switch e {
	case EventInput, EventChange, EventFocus, EventBlur:
		return true
	}
	return false
}

// IsValidationTiming reports whether e may be used with WithValidateOn.
func (e Event) IsValidationTiming() bool {
	return e == EventInput || e == EventChange || e == EventBlur
}

// Condition is an activation predicate checked before triggered validation
// is scheduled. Conditions are compared by identity when merged.
type Condition struct {
	Name  string
	check func(Control) bool
}

// NewCondition creates a named activation condition.
func NewCondition(name string, fn func(Control) bool) *Condition {
	return &Condition{Name: name, check: fn}
}

// Check evaluates the condition for c.
func (cond *Condition) Check(c Control) bool {
	if cond == nil || cond.check == nil {
		return true
	}
	return cond.check(c)
}

var (
	// ConditionAlways never blocks a trigger.
	ConditionAlways = NewCondition("always", func(Control) bool { return true })

	// ConditionTouched passes once the control is touched.
	ConditionTouched = NewCondition("touched", func(c Control) bool { return c.Touched() })

	// ConditionDirty passes once the value differs from the initial value.
	ConditionDirty = NewCondition("dirty", func(c Control) bool { return c.Dirty() })
)

// ConditionByName returns the built-in condition with the given name.
func ConditionByName(name string) (*Condition, bool) {
	switch name {
	case "always":
		return ConditionAlways, true
	case "touched":
		return ConditionTouched, true
	case "dirty":
		return ConditionDirty, true
	}
	return nil, false
}

func containsEvent(list []Event, ev Event) bool {
	for _, e := range list {
		if e == ev {
			return true
		}
	}
	return false
}
