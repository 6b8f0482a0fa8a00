package form

import "fmt"

// Group is a name-keyed composite. A Form is a Group with KindForm.
type Group struct {
	composite
	keys     []string
	children map[string]*control
}

var _ compositeImpl = (*Group)(nil)

// NewGroup creates an empty group.
func NewGroup(r *Registry, opts ...Option) (*Group, error) {
	return newGroup(r, KindGroup, opts)
}

// NewForm creates an empty form: a group that is the root of a tree.
func NewForm(r *Registry, opts ...Option) (*Group, error) {
	return newGroup(r, KindForm, opts)
}

func newGroup(r *Registry, kind Kind, opts []Option) (*Group, error) {
	cfg := newNodeConfig(opts)
	g := &Group{children: make(map[string]*control)}
	if err := g.initComposite(r, kind, cfg, g); err != nil {
		return nil, err
	}
	if err := g.register(cfg); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Group) childrenLocked() []*control {
	out := make([]*control, len(g.keys))
	for i, key := range g.keys {
		out[i] = g.children[key]
	}
	return out
}

func (g *Group) childByKeyLocked(key string) *control {
	return g.children[key]
}

func (g *Group) keyOfLocked(c *control) (string, bool) {
	if g.children[c.name] == c {
		return c.name, true
	}
	return "", false
}

func (g *Group) insertLocked(c *control) error {
	if c.name == "" {
		return newTreeError(g.name, "group children must be named")
	}
	if _, ok := g.children[c.name]; ok {
		return newTreeError(g.name, fmt.Sprintf("a control named %q already exists", c.name))
	}
	g.children[c.name] = c
	g.keys = append(g.keys, c.name)
	return nil
}

func (g *Group) deleteLocked(c *control) {
	if g.children[c.name] != c {
		return
	}
	delete(g.children, c.name)
	for i, key := range g.keys {
		if key == c.name {
			g.keys = append(g.keys[:i], g.keys[i+1:]...)
			break
		}
	}
}

func (g *Group) valueLocked(force bool) (any, bool) {
	if !force && g.disabledLocked() {
		return nil, false
	}
	out := make(map[string]any, len(g.keys))
	for _, key := range g.keys {
		ch := g.children[key]
		if !force && ch.disabledLocked() {
			continue
		}
		out[key], _ = ch.self.valueLocked(true)
	}
	return out, true
}

// SetValue assigns v[name] to every child. Children missing from v are set
// to nil. v must be a map[string]any or nil.
func (g *Group) SetValue(v any) error {
	var m map[string]any
	switch t := v.(type) {
	case nil:
	case map[string]any:
		m = t
	default:
		return &Error{Code: ErrCodeValueShape, Node: g.name, Message: fmt.Sprintf("group value must be map[string]any, got %T", v)}
	}
	if g.Destroyed() {
		return newDestroyedError(g.name)
	}
	for _, ch := range g.Controls() {
		if err := ch.SetValue(m[ch.Name()]); err != nil {
			return fmt.Errorf("set %s: %w", ch.Name(), err)
		}
	}
	return nil
}

// Get returns the child named name.
func (g *Group) Get(name string) Control {
	var out Control
	g.reg.read(func() {
		if ch := g.children[name]; ch != nil {
			out = ch.self
		}
	})
	return out
}
