package testutil

// FixedSessionGenerator returns the same session token every time.
//
// This enables deterministic journal rows and golden snapshot comparison.
// The same scenario with the same FixedSessionGenerator produces
// byte-identical journal sessions.
//
// Unlike form.FixedGenerator which returns tokens in sequence, this
// generator never runs out, so it can back any number of registries.
//
// Thread-safety: FixedSessionGenerator is stateless and safe for concurrent use.
type FixedSessionGenerator struct {
	token string
}

// NewFixedSessionGenerator creates a new fixed session token generator.
//
// If token is empty, Generate() returns "test-session-default".
func NewFixedSessionGenerator(token string) *FixedSessionGenerator {
	if token == "" {
		token = "test-session-default"
	}
	return &FixedSessionGenerator{token: token}
}

// Generate returns the fixed session token.
//
// Implements form.SessionGenerator.
func (g *FixedSessionGenerator) Generate() string {
	return g.token
}
