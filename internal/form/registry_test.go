package form

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_IDsAreMonotonic(t *testing.T) {
	r := setupTestRegistry(t)

	a := mustField(t, r, WithName("a"))
	b := mustField(t, r, WithName("b"))
	assert.Less(t, a.ID(), b.ID())

	a.Destroy()
	b.Destroy()
	assert.Equal(t, 0, r.Len())

	c := mustField(t, r, WithName("c"))
	assert.Greater(t, c.ID(), b.ID(), "ids must not restart when the table drains")
}

func TestRegistry_CounterResetOnEmpty(t *testing.T) {
	r := setupTestRegistry(t, WithCounterResetOnEmpty())

	a := mustField(t, r)
	a.Destroy()

	b := mustField(t, r)
	assert.Equal(t, a.ID(), b.ID())
}

func TestRegistry_RegisterIsIdempotent(t *testing.T) {
	r := setupTestRegistry(t)
	f := mustField(t, r)

	pos := r.Register(f)
	assert.Equal(t, pos, r.Register(f))
	assert.Equal(t, 1, r.Len())

	other := setupTestRegistry(t)
	foreign := mustField(t, other)
	assert.Equal(t, -1, r.Register(foreign))
}

func TestRegistry_LookupAndDeregister(t *testing.T) {
	r := setupTestRegistry(t)
	f := mustField(t, r, WithName("email"))

	n, ok := r.Lookup(f.ID())
	require.True(t, ok)
	assert.Same(t, f, n)

	r.Deregister(f)
	_, ok = r.Lookup(f.ID())
	assert.False(t, ok)
	assert.False(t, f.Destroyed(), "deregistering does not destroy")
}

func TestRegistry_ResetAll(t *testing.T) {
	r := setupTestRegistry(t)
	form := mustForm(t, r, WithName("form"))
	f := mustField(t, r, WithName("email"), WithParent(form))
	cc, err := NewChoiceControl(r, WithName("color"), WithParent(form))
	require.NoError(t, err)
	_, err = NewChoice(r, WithControl(cc), WithValue("red"))
	require.NoError(t, err)

	r.ResetAll()

	assert.Equal(t, 0, r.Len())
	assert.True(t, form.Destroyed())
	assert.True(t, f.Destroyed())
	assert.True(t, cc.Destroyed())

	next := mustField(t, r)
	assert.Equal(t, int64(1), next.ID())
}

func TestRegistry_Controls(t *testing.T) {
	r := setupTestRegistry(t)
	cc, err := NewChoiceControl(r, WithName("size"))
	require.NoError(t, err)
	_, err = NewChoice(r, WithControl(cc), WithValue("s"))
	require.NoError(t, err)

	assert.Equal(t, 2, r.Len())
	assert.Len(t, r.Controls(), 1)
}

func TestRegistry_Session(t *testing.T) {
	r := NewRegistry(WithSessionGenerator(NewFixedGenerator("s-1")))
	assert.Equal(t, "s-1", r.Session())

	r2 := NewRegistry()
	assert.Len(t, r2.Session(), 36)
}

func TestRegistry_LogsReset(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	r := setupTestRegistry(t, WithLogger(logger))
	mustField(t, r)

	r.ResetAll()
	assert.Contains(t, buf.String(), "registry reset")
	assert.Contains(t, buf.String(), "destroyed=1")
}
