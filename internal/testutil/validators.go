package testutil

import (
	"context"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/roach88/formtree/internal/form"
)

// Gate is an async validator that blocks every call until opened.
type Gate struct {
	started chan any
	release chan struct{}
	calls   atomic.Int32
}

// NewGate creates a closed gate.
func NewGate() *Gate {
	return &Gate{
		started: make(chan any, 16),
		release: make(chan struct{}),
	}
}

// Validator returns an async validator named name that reports
// {name: value} when the control value equals bad.
func (g *Gate) Validator(name string, bad any) *form.Validator {
	return form.AsyncFunc(name, func(ctx context.Context, c form.Control) (form.ValidationErrors, error) {
		g.calls.Add(1)
		v := c.Value()
		g.started <- v
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if reflect.DeepEqual(v, bad) {
			return form.ValidationErrors{name: v}, nil
		}
		return nil, nil
	})
}

// Factory wraps Validator for registration in a form.ValidatorRegistry.
func (g *Gate) Factory(bad any) form.Factory {
	return func(args ...any) (*form.Validator, error) {
		return g.Validator("gate", bad), nil
	}
}

// WaitStarted returns the value seen by the next call that reached the gate.
func (g *Gate) WaitStarted(t testing.TB) any {
	t.Helper()
	select {
	case v := <-g.started:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("validator did not start")
		return nil
	}
}

// Open releases every blocked and future call.
func (g *Gate) Open() {
	close(g.release)
}

// Calls returns the number of calls so far.
func (g *Gate) Calls() int {
	return int(g.calls.Load())
}

// Slow returns an async validator that waits d before reporting
// {name: true} when the control value equals bad.
func Slow(name string, d time.Duration, bad any) *form.Validator {
	return form.AsyncFunc(name, func(ctx context.Context, c form.Control) (form.ValidationErrors, error) {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if reflect.DeepEqual(c.Value(), bad) {
			return form.ValidationErrors{name: true}, nil
		}
		return nil, nil
	})
}
