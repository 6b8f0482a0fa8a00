package form

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Composite is a control that owns child controls. Its value, pristine and
// touched flags are derived from the children.
type Composite interface {
	Control

	// Controls returns the immediate children in order.
	Controls() []Control
	Len() int
	Add(c Control) error
	Remove(c Control) bool
	ControlByName(name string) Control
	// Find resolves a dot/bracket path such as "addresses[0].zip". It
	// returns nil as soon as a segment cannot be resolved.
	Find(path string) Control
	// AllControls returns the composite and every descendant, depth first.
	AllControls() []Control
	// AllErrors maps paths to the errors of every descendant with errors,
	// or nil when there are none.
	AllErrors() PathErrors
	// ValidateAll validates every control returned by AllControls
	// concurrently and returns AllErrors once all have settled.
	ValidateAll(ctx context.Context) (PathErrors, error)
	AnyPending() bool
	// AggregateState is Pending if any descendant is pending, else Invalid
	// if any has errors, else Valid.
	AggregateState() ValidateState
	OnAllErrorsChange(fn func(PathErrors)) func()

	comp() *composite
}

// compositeImpl is what Group and Array supply to composite. All methods run
// with the registry lock held.
type compositeImpl interface {
	Composite
	controlImpl
	childrenLocked() []*control
	childByKeyLocked(key string) *control
	keyOfLocked(c *control) (string, bool)
	insertLocked(c *control) error
	deleteLocked(c *control)
}

type composite struct {
	control
	impl compositeImpl

	allErrorListeners listenerSet[PathErrors]
}

func (c *composite) initComposite(r *Registry, kind Kind, cfg *nodeConfig, impl compositeImpl) error {
	if err := c.initControl(r, kind, cfg, impl); err != nil {
		return err
	}
	c.impl = impl
	return nil
}

func (c *composite) comp() *composite { return c }

func (c *composite) pristineLocked() bool {
	for _, ch := range c.impl.childrenLocked() {
		if !ch.self.pristineLocked() {
			return false
		}
	}
	return true
}

func (c *composite) touchedLocked() bool {
	for _, ch := range c.impl.childrenLocked() {
		if ch.self.touchedLocked() {
			return true
		}
	}
	return false
}

// touchLocked is a no-op: composite touched is derived.
func (c *composite) touchLocked(Event, *effects) {}

func (c *composite) sourcesLocked() []*nodeBase {
	return []*nodeBase{&c.nodeBase}
}

// destroyLocked destroys every descendant before the composite itself.
func (c *composite) destroyLocked(fx *effects) {
	for _, ch := range c.impl.childrenLocked() {
		ch.self.destroyLocked(fx)
	}
	c.destroyBaseLocked(fx)
}

func (c *composite) Controls() []Control {
	var out []Control
	c.reg.read(func() {
		out = selves(c.impl.childrenLocked())
	})
	return out
}

func (c *composite) Len() int {
	var n int
	c.reg.read(func() { n = len(c.impl.childrenLocked()) })
	return n
}

// Add attaches child, moving it from its current parent if it has one.
func (c *composite) Add(child Control) error {
	if child == nil {
		return newTreeError(c.name, "cannot add a nil control")
	}
	return c.reg.updateErr(func(fx *effects) error {
		return c.attachLocked(child, fx)
	})
}

func (c *composite) attachLocked(child Control, fx *effects) error {
	if child.Registry() != c.reg {
		return newTreeError(child.Name(), "control belongs to another registry")
	}
	ch := child.ctrl()
	if c.destroyed {
		return newDestroyedError(c.name)
	}
	if ch.destroyed {
		return newDestroyedError(ch.name)
	}
	if ch.parent == c {
		return nil
	}
	for n := &c.control; n != nil; n = n.parentControl() {
		if n == ch {
			return newTreeError(ch.name, "cannot add a control to itself or its descendant")
		}
	}
	before := c.flagsLocked()
	if err := c.impl.insertLocked(ch); err != nil {
		return err
	}
	if old := ch.parent; old != nil {
		old.detachLocked(ch, fx)
	}
	ch.parent = c
	c.valueChangedLocked(fx, before)
	c.allErrorsChangedLocked(fx)
	return nil
}

// Remove detaches child. Returns false if child is not a member.
func (c *composite) Remove(child Control) bool {
	if child == nil || child.Registry() != c.reg {
		return false
	}
	removed := false
	c.reg.update(func(fx *effects) {
		ch := child.ctrl()
		if ch.parent != c {
			return
		}
		c.detachLocked(ch, fx)
		removed = true
	})
	return removed
}

func (c *composite) detachLocked(ch *control, fx *effects) {
	if ch.parent != c {
		return
	}
	before := c.flagsLocked()
	c.impl.deleteLocked(ch)
	ch.parent = nil
	c.valueChangedLocked(fx, before)
	c.allErrorsChangedLocked(fx)
}

func (c *composite) ControlByName(name string) Control {
	var out Control
	c.reg.read(func() {
		for _, ch := range c.impl.childrenLocked() {
			if ch.name == name {
				out = ch.self
				return
			}
		}
	})
	return out
}

func (c *composite) Find(path string) Control {
	keys, ok := parsePath(path)
	if !ok {
		return nil
	}
	var out Control
	c.reg.read(func() {
		if n := c.findLocked(keys); n != nil {
			out = n.self
		}
	})
	return out
}

func (c *composite) findLocked(keys []string) *control {
	cur := &c.control
	for _, key := range keys {
		comp, ok := cur.self.(compositeImpl)
		if !ok {
			return nil
		}
		cur = comp.childByKeyLocked(key)
		if cur == nil {
			return nil
		}
	}
	return cur
}

func (c *composite) AllControls() []Control {
	var out []Control
	c.reg.read(func() {
		out = selves(c.allControlsLocked(nil))
	})
	return out
}

func (c *composite) allControlsLocked(acc []*control) []*control {
	acc = append(acc, &c.control)
	for _, ch := range c.impl.childrenLocked() {
		if comp, ok := ch.self.(compositeImpl); ok {
			acc = comp.comp().allControlsLocked(acc)
			continue
		}
		acc = append(acc, ch)
	}
	return acc
}

func (c *composite) AllErrors() PathErrors {
	var out PathErrors
	c.reg.read(func() { out = c.allErrorsLocked() })
	return out
}

func (c *composite) allErrorsLocked() PathErrors {
	var out PathErrors
	for _, ch := range c.allControlsLocked(nil) {
		if len(ch.errors) == 0 {
			continue
		}
		if out == nil {
			out = make(PathErrors)
		}
		key, ok := ch.pathFromLocked(&c.control)
		if !ok {
			key = SelfPath
		}
		out[key] = ch.errors.Clone()
	}
	return out
}

func (c *composite) ValidateAll(ctx context.Context) (PathErrors, error) {
	g, gctx := errgroup.WithContext(ctx)
	for _, ch := range c.AllControls() {
		g.Go(func() error {
			_, err := ch.ValidateSelf(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("validate all: %w", err)
	}
	return c.AllErrors(), nil
}

func (c *composite) AnyPending() bool {
	pending := false
	c.reg.read(func() {
		for _, ch := range c.allControlsLocked(nil) {
			if ch.state == StatePending {
				pending = true
				return
			}
		}
	})
	return pending
}

func (c *composite) AggregateState() ValidateState {
	state := StateValid
	c.reg.read(func() {
		for _, ch := range c.allControlsLocked(nil) {
			switch ch.state {
			case StatePending:
				state = StatePending
				return
			case StateInvalid:
				state = StateInvalid
			}
		}
	})
	return state
}

func (c *composite) OnAllErrorsChange(fn func(PathErrors)) func() {
	return subscribe(c.reg, &c.allErrorListeners, fn)
}

func (c *composite) notifyAllErrorsLocked(fx *effects) {
	if c.allErrorListeners.count() == 0 {
		return
	}
	c.allErrorListeners.emit(fx, c.allErrorsLocked())
}

// allErrorsChangedLocked notifies c and its ancestors after a membership
// change.
func (c *composite) allErrorsChangedLocked(fx *effects) {
	for p := c; p != nil; p = p.control.parent {
		p.notifyAllErrorsLocked(fx)
	}
}

// Clear clears every child, then the composite's own errors.
func (c *composite) Clear(clearErrors bool) {
	for _, ch := range c.Controls() {
		ch.Clear(clearErrors)
	}
	if clearErrors {
		c.ClearErrors()
	}
}

// Reset resets every child to its initial value.
func (c *composite) Reset() {
	for _, ch := range c.Controls() {
		ch.Reset()
	}
}

// Commit commits every child's current value as its initial value.
func (c *composite) Commit() {
	for _, ch := range c.Controls() {
		ch.Commit()
	}
}

func selves(cs []*control) []Control {
	out := make([]Control, len(cs))
	for i, ch := range cs {
		out[i] = ch.self
	}
	return out
}
