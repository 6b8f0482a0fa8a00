package form

import (
	"fmt"
	"strconv"
	"strings"
)

// Array is an index-keyed composite.
type Array struct {
	composite
	items []*control
}

var _ compositeImpl = (*Array)(nil)

// NewArray creates an empty array.
func NewArray(r *Registry, opts ...Option) (*Array, error) {
	cfg := newNodeConfig(opts)
	a := &Array{}
	if err := a.initComposite(r, KindArray, cfg, a); err != nil {
		return nil, err
	}
	if err := a.register(cfg); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Array) childrenLocked() []*control {
	out := make([]*control, len(a.items))
	copy(out, a.items)
	return out
}

// childByKeyLocked resolves a bracketed index. Only plain decimal digits
// are indexes; signs and spaces are not.
func (a *Array) childByKeyLocked(key string) *control {
	if key == "" || strings.TrimLeft(key, "0123456789") != "" {
		return nil
	}
	i, err := strconv.Atoi(key)
	if err != nil || i >= len(a.items) {
		return nil
	}
	return a.items[i]
}

func (a *Array) keyOfLocked(c *control) (string, bool) {
	for i, item := range a.items {
		if item == c {
			return "[" + strconv.Itoa(i) + "]", true
		}
	}
	return "", false
}

func (a *Array) insertLocked(c *control) error {
	a.items = append(a.items, c)
	return nil
}

func (a *Array) deleteLocked(c *control) {
	for i, item := range a.items {
		if item == c {
			a.items = append(a.items[:i], a.items[i+1:]...)
			return
		}
	}
}

func (a *Array) valueLocked(force bool) (any, bool) {
	if !force && a.disabledLocked() {
		return nil, false
	}
	out := make([]any, 0, len(a.items))
	for _, item := range a.items {
		if !force && item.disabledLocked() {
			continue
		}
		v, _ := item.self.valueLocked(true)
		out = append(out, v)
	}
	return out, true
}

// SetValue assigns v[i] to the i-th child. Children beyond len(v) are set
// to nil. v must be a slice or nil.
func (a *Array) SetValue(v any) error {
	var items []any
	if v != nil {
		s, ok := ToSlice(v)
		if !ok {
			return &Error{Code: ErrCodeValueShape, Node: a.name, Message: fmt.Sprintf("array value must be a slice, got %T", v)}
		}
		items = s
	}
	if a.Destroyed() {
		return newDestroyedError(a.name)
	}
	for i, ch := range a.Controls() {
		var item any
		if i < len(items) {
			item = items[i]
		}
		if err := ch.SetValue(item); err != nil {
			return fmt.Errorf("set [%d]: %w", i, err)
		}
	}
	return nil
}

// At returns the i-th child, or nil when out of range.
func (a *Array) At(i int) Control {
	var out Control
	a.reg.read(func() {
		if i >= 0 && i < len(a.items) {
			out = a.items[i].self
		}
	})
	return out
}
