package form

import (
	"errors"
	"fmt"
	"time"
)

// Kind identifies the node variant.
type Kind int

const (
	KindField Kind = iota + 1
	KindChoiceControl
	KindGroup
	KindArray
	KindForm
	KindChoice
)

func (k Kind) String() string {
	switch k {
	case KindField:
		return "field"
	case KindChoiceControl:
		return "choice-control"
	case KindGroup:
		return "group"
	case KindArray:
		return "array"
	case KindForm:
		return "form"
	case KindChoice:
		return "choice"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// IsControl reports whether nodes of this kind implement Control.
func (k Kind) IsControl() bool {
	return k >= KindField && k <= KindForm
}

// IsComposite reports whether nodes of this kind implement Composite.
func (k Kind) IsComposite() bool {
	return k == KindGroup || k == KindArray || k == KindForm
}

// Node is implemented by every member of a form tree. The set of
// implementations is closed.
type Node interface {
	ID() int64
	Kind() Kind
	Name() string
	Registry() *Registry

	// Disabled reports the effective flag: own flag or any ancestor's.
	Disabled() bool
	Readonly() bool
	SetDisabled(bool)
	SetReadonly(bool)

	Destroyed() bool
	Destroy()

	base() *nodeBase
}

// AsControl downcasts n to a Control.
func AsControl(n Node) (Control, bool) {
	c, ok := n.(Control)
	return c, ok
}

// AsComposite downcasts n to a Composite.
func AsComposite(n Node) (Composite, bool) {
	c, ok := n.(Composite)
	return c, ok
}

// AsChoice downcasts n to a Choice.
func AsChoice(n Node) (*Choice, bool) {
	c, ok := n.(*Choice)
	return c, ok
}

// nodeBase holds what every node kind shares. Fields after name are
// guarded by reg.mu.
type nodeBase struct {
	reg  *Registry
	id   int64
	kind Kind

	name      string
	disabled  bool
	readonly  bool
	destroyed bool

	// Rule configuration. Choice controls merge these with their choices'.
	rules       []ruleEntry
	required    bool
	validateOn  []Event
	conditions  []*Condition
	debounce    time.Duration
	hasDebounce bool
}

func (n *nodeBase) ID() int64           { return n.id }
func (n *nodeBase) Kind() Kind          { return n.kind }
func (n *nodeBase) Registry() *Registry { return n.reg }
func (n *nodeBase) base() *nodeBase     { return n }

// Name is fixed at construction.
func (n *nodeBase) Name() string { return n.name }

func (n *nodeBase) Destroyed() bool {
	n.reg.mu.Lock()
	defer n.reg.mu.Unlock()
	return n.destroyed
}

// configure resolves the shared configuration. Called before the node is
// registered, so no lock is needed.
func (n *nodeBase) configure(reg *Registry, kind Kind, cfg *nodeConfig) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	entries, err := reg.validators.resolveEntries(cfg.rules)
	if err != nil {
		var fe *Error
		if errors.As(err, &fe) && fe.Node == "" {
			fe.Node = cfg.name
		}
		return err
	}
	n.reg = reg
	n.kind = kind
	n.id = reg.CreateID()
	n.name = cfg.name
	n.disabled = cfg.disabled
	n.readonly = cfg.readonly
	n.rules = dedupeRules(entries)
	n.required = cfg.required
	n.validateOn = []Event{EventChange}
	if cfg.validateOnSet {
		n.validateOn = dedupeEvents(cfg.validateOn)
	}
	n.conditions = []*Condition{ConditionTouched}
	if cfg.conditionsSet {
		n.conditions = dedupeConditions(cfg.conditions)
	}
	if cfg.debounce != nil {
		n.debounce = *cfg.debounce
		n.hasDebounce = true
	}
	return nil
}

func dedupeRules(in []ruleEntry) []ruleEntry {
	seen := make(map[any]bool, len(in))
	out := make([]ruleEntry, 0, len(in))
	for _, e := range in {
		if seen[e.key] {
			continue
		}
		seen[e.key] = true
		out = append(out, e)
	}
	return out
}

func dedupeEvents(in []Event) []Event {
	seen := make(map[Event]bool, len(in))
	out := make([]Event, 0, len(in))
	for _, ev := range in {
		if seen[ev] {
			continue
		}
		seen[ev] = true
		out = append(out, ev)
	}
	return out
}

func dedupeConditions(in []*Condition) []*Condition {
	seen := make(map[*Condition]bool, len(in))
	out := make([]*Condition, 0, len(in))
	for _, c := range in {
		if c == nil || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
