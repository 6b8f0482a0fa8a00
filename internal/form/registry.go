package form

import (
	"io"
	"log/slog"
	"sync"
)

// Registry owns one or more form trees: node ids, the live node table, the
// watch graph, the validator registry, the file inspector and the optional
// journal.
//
// Thread-safety: Registry and every node it owns are safe for concurrent
// use. All node state is guarded by the registry mutex.
type Registry struct {
	mu sync.Mutex

	ids   *Clock
	seq   *Clock
	nodes []Node
	index map[int64]Node

	watches *watchGraph

	validators *ValidatorRegistry
	inspector  FileInspector
	logger     *slog.Logger
	journal    Journal
	sessionGen SessionGenerator
	session    string

	// resetOnEmpty restores the legacy behavior of restarting ids once the
	// live table drains.
	resetOnEmpty bool

	autoCreated listenerSet[*ChoiceControl]
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithValidators sets the validator registry rules are resolved against.
func WithValidators(v *ValidatorRegistry) RegistryOption {
	return func(r *Registry) {
		r.validators = v
	}
}

// WithFileInspector sets the inspector used by Files and FileInfos.
func WithFileInspector(fi FileInspector) RegistryOption {
	return func(r *Registry) {
		r.inspector = fi
	}
}

// WithJournal records every finished validation run.
func WithJournal(j Journal) RegistryOption {
	return func(r *Registry) {
		r.journal = j
	}
}

// WithSessionGenerator sets the generator for the registry session token.
func WithSessionGenerator(g SessionGenerator) RegistryOption {
	return func(r *Registry) {
		r.sessionGen = g
	}
}

// WithCounterResetOnEmpty restarts node ids at 1 whenever the last live
// node is deregistered. Ids can then repeat over the registry lifetime.
func WithCounterResetOnEmpty() RegistryOption {
	return func(r *Registry) {
		r.resetOnEmpty = true
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		ids:        NewClock(),
		seq:        NewClock(),
		index:      make(map[int64]Node),
		watches:    newWatchGraph(),
		validators: NewValidatorRegistry(),
		inspector:  NopInspector{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		sessionGen: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.session = r.sessionGen.Generate()
	return r
}

// CreateID issues the next node id.
func (r *Registry) CreateID() int64 {
	return r.ids.Next()
}

// Session returns the token identifying this registry in journal records.
func (r *Registry) Session() string {
	return r.session
}

// Validators returns the validator registry.
func (r *Registry) Validators() *ValidatorRegistry {
	return r.validators
}

// Inspector returns the file inspector.
func (r *Registry) Inspector() FileInspector {
	return r.inspector
}

// Logger returns the registry logger.
func (r *Registry) Logger() *slog.Logger {
	return r.logger
}

// Register adds n to the live table and returns its position. Registering
// a live node again returns its existing position. Nodes of another
// registry are refused with -1.
func (r *Registry) Register(n Node) int {
	if n == nil || n.base().reg != r {
		return -1
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerLocked(n)
}

func (r *Registry) registerLocked(n Node) int {
	if _, ok := r.index[n.ID()]; ok {
		for i, live := range r.nodes {
			if live == n {
				return i
			}
		}
	}
	r.index[n.ID()] = n
	r.nodes = append(r.nodes, n)
	return len(r.nodes) - 1
}

// Deregister removes n from the live table without destroying it.
func (r *Registry) Deregister(n Node) {
	if n == nil || n.base().reg != r {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deregisterLocked(n)
}

func (r *Registry) deregisterLocked(n Node) {
	if _, ok := r.index[n.ID()]; !ok {
		return
	}
	delete(r.index, n.ID())
	for i, live := range r.nodes {
		if live == n {
			r.nodes = append(r.nodes[:i], r.nodes[i+1:]...)
			break
		}
	}
	if len(r.nodes) == 0 && r.resetOnEmpty {
		r.ids.Reset()
	}
}

// Lookup returns the live node with the given id.
func (r *Registry) Lookup(id int64) (Node, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.index[id]
	return n, ok
}

func (r *Registry) controlLocked(id int64) *control {
	n, ok := r.index[id]
	if !ok {
		return nil
	}
	if c, ok := n.(Control); ok {
		return c.ctrl()
	}
	return nil
}

// Len returns the number of live nodes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.nodes)
}

// Nodes returns the live nodes in registration order.
func (r *Registry) Nodes() []Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Node, len(r.nodes))
	copy(out, r.nodes)
	return out
}

// Controls returns the live controls in registration order.
func (r *Registry) Controls() []Control {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Control
	for _, n := range r.nodes {
		if c, ok := n.(Control); ok {
			out = append(out, c)
		}
	}
	return out
}

// ResetAll destroys every live node and restarts the id counter.
func (r *Registry) ResetAll() {
	r.update(func(fx *effects) {
		live := make([]Node, len(r.nodes))
		copy(live, r.nodes)
		for i := len(live) - 1; i >= 0; i-- {
			destroyNodeLocked(live[i], fx)
		}
		r.nodes = nil
		r.index = make(map[int64]Node)
		r.watches = newWatchGraph()
		r.ids.Reset()
		r.logger.Info("registry reset", "session", r.session, "destroyed", len(live))
	})
}

// OnAutoCreate registers fn to be called with every choice control that is
// implicitly created for an unowned choice.
func (r *Registry) OnAutoCreate(fn func(*ChoiceControl)) func() {
	return subscribe(r, &r.autoCreated, fn)
}

func destroyNodeLocked(n Node, fx *effects) {
	switch t := n.(type) {
	case *Choice:
		t.destroyLocked(fx)
	case Control:
		t.ctrl().self.destroyLocked(fx)
	default:
		n.base().reg.deregisterLocked(n)
	}
}
