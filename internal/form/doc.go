// Package form implements the formtree control tree and validation engine.
//
// A tree is rooted in a Registry, which issues node ids, owns the live node
// table, the watch graph used by relational validators, the validator
// registry, and the optional diagnostics journal. Multiple registries can
// coexist; nodes never cross registries.
//
// NODE KINDS:
//
// The node set is closed: Field, ChoiceControl, Group, Array, Form (a Group
// with its own kind) and Choice. Node is sealed. Control and Composite are
// the capability interfaces, and AsControl, AsComposite and AsChoice are the
// only downcasts the package needs.
//
// LOCKING:
//
// All node state of one registry is guarded by a single mutex. The mutex is
// never held while user code runs: validators, activation conditions and
// listeners are called after the lock is released. Side effects discovered
// while locked (triggers, listener calls, journal writes) are queued and run
// once the lock is dropped.
//
// VALIDATION PIPELINE:
//
// Each control owns a request id. ValidateSelf allocates a new id, marks the
// control Pending and runs the resolved rules strictly in order. Synchronous
// validators run on the caller's goroutine; the first asynchronous validator
// moves the remainder of the run onto its own goroutine. Before and after each
// validator the request id is compared with the control's current one, and a
// superseded run is abandoned without touching errors or state. Its waiters
// are served by the run that superseded it.
//
// Validation is re-triggered by configured event timings, by touched/pristine
// transitions and by value changes of watched controls, subject to the
// activation conditions and the merged debounce delay.
package form
