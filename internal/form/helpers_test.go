package form

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setupTestRegistry(t *testing.T, opts ...RegistryOption) *Registry {
	t.Helper()
	opts = append([]RegistryOption{WithSessionGenerator(NewFixedGenerator("test-session"))}, opts...)
	r := NewRegistry(opts...)
	t.Cleanup(r.ResetAll)
	return r
}

func mustField(t *testing.T, r *Registry, opts ...Option) *Field {
	t.Helper()
	f, err := NewField(r, opts...)
	require.NoError(t, err)
	return f
}

func mustForm(t *testing.T, r *Registry, opts ...Option) *Group {
	t.Helper()
	g, err := NewForm(r, opts...)
	require.NoError(t, err)
	return g
}

func mustArray(t *testing.T, r *Registry, opts ...Option) *Array {
	t.Helper()
	a, err := NewArray(r, opts...)
	require.NoError(t, err)
	return a
}

func validate(t *testing.T, c Control) ControlErrors {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	errs, err := c.ValidateSelf(ctx)
	require.NoError(t, err)
	return errs
}

// counter is a synchronous validator that counts its calls and fails on
// the given value.
type counter struct {
	calls atomic.Int32
}

func (c *counter) validator(name string, bad any) *Validator {
	return Func(name, func(_ context.Context, ctl Control) (ValidationErrors, error) {
		c.calls.Add(1)
		if sameValue(ctl.Value(), bad) {
			return ValidationErrors{name: true}, nil
		}
		return nil, nil
	})
}

// gate is an async validator that blocks every call until released.
type gate struct {
	started chan any
	release chan struct{}
	calls   atomic.Int32
}

func newGate() *gate {
	return &gate{
		started: make(chan any, 16),
		release: make(chan struct{}),
	}
}

func (g *gate) validator(name string, bad any) *Validator {
	return AsyncFunc(name, func(ctx context.Context, ctl Control) (ValidationErrors, error) {
		g.calls.Add(1)
		v := ctl.Value()
		g.started <- v
		<-g.release
		if sameValue(v, bad) {
			return ValidationErrors{name: v}, nil
		}
		return nil, nil
	})
}

func (g *gate) waitStarted(t *testing.T) any {
	t.Helper()
	select {
	case v := <-g.started:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("validator did not start")
		return nil
	}
}

func (g *gate) open() {
	close(g.release)
}
