package testutil

import (
	"testing"

	"github.com/roach88/formtree/internal/form"
)

// NewRegistry creates a registry with a fixed session token that is reset
// when the test ends. opts are applied after the defaults.
func NewRegistry(t testing.TB, opts ...form.RegistryOption) *form.Registry {
	t.Helper()
	opts = append([]form.RegistryOption{
		form.WithSessionGenerator(NewFixedSessionGenerator(t.Name())),
	}, opts...)
	r := form.NewRegistry(opts...)
	t.Cleanup(r.ResetAll)
	return r
}
