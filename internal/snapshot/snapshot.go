package snapshot

import (
	"github.com/roach88/formtree/internal/form"
)

// Node is the recorded state of one control.
type Node struct {
	ID         int64              `json:"id"`
	Kind       string             `json:"kind"`
	Name       string             `json:"name,omitempty"`
	Path       string             `json:"path,omitempty"`
	Disabled   bool               `json:"disabled"`
	Readonly   bool               `json:"readonly"`
	Multiple   bool               `json:"multiple,omitempty"`
	Pristine   bool               `json:"pristine"`
	Touched    bool               `json:"touched"`
	State      form.ValidateState `json:"state"`
	Required   bool               `json:"required,omitempty"`
	Rules      []string           `json:"rules,omitempty"`
	ValidateOn []string           `json:"validateOn,omitempty"`
	DebounceMS int64              `json:"debounceMs,omitempty"`
	Value      any                `json:"value"`
	Errors     form.ControlErrors `json:"errors,omitempty"`
	Watching   []int64            `json:"watching,omitempty"`
	Choices    []Choice           `json:"choices,omitempty"`
	Children   []*Node            `json:"children,omitempty"`
}

// Choice is the recorded state of one choice.
type Choice struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Value    any    `json:"value"`
	Choiced  bool   `json:"choiced"`
	Disabled bool   `json:"disabled"`
}

// Take records c and its descendants. Paths are relative to c.
func Take(c form.Control) *Node {
	root, _ := form.AsComposite(c)
	return take(c, root)
}

func take(c form.Control, root form.Composite) *Node {
	n := &Node{
		ID:         c.ID(),
		Kind:       c.Kind().String(),
		Name:       c.Name(),
		Disabled:   c.Disabled(),
		Readonly:   c.Readonly(),
		Pristine:   c.Pristine(),
		Touched:    c.Touched(),
		State:      c.ValidateState(),
		Required:   c.Required(),
		DebounceMS: c.ComputedDebounce().Milliseconds(),
		Value:      c.Value(),
	}
	if root != nil {
		if path, ok := c.PathFrom(root); ok {
			n.Path = path
		}
	}
	if m, ok := c.(interface{ Multiple() bool }); ok {
		n.Multiple = m.Multiple()
	}
	for _, v := range c.ComputedRules() {
		name := v.Name
		if name == "" {
			name = "anonymous"
		}
		n.Rules = append(n.Rules, name)
	}
	for _, ev := range c.ComputedValidateOn() {
		n.ValidateOn = append(n.ValidateOn, string(ev))
	}
	if errs := c.Errors(); len(errs) > 0 {
		n.Errors = errs
	}
	for _, w := range c.Watching() {
		n.Watching = append(n.Watching, w.ID())
	}
	if cc, ok := c.(*form.ChoiceControl); ok {
		for _, ch := range cc.Choices() {
			n.Choices = append(n.Choices, Choice{
				ID:       ch.ID(),
				Name:     ch.Name(),
				Value:    ch.Value(),
				Choiced:  ch.Choiced(),
				Disabled: ch.Disabled(),
			})
		}
	}
	if comp, ok := form.AsComposite(c); ok {
		for _, child := range comp.Controls() {
			n.Children = append(n.Children, take(child, root))
		}
	}
	return n
}

// Find returns the node at path, or nil.
func (n *Node) Find(path string) *Node {
	if n.Path == path {
		return n
	}
	for _, child := range n.Children {
		if found := child.Find(path); found != nil {
			return found
		}
	}
	return nil
}
