package harness

import (
	"github.com/roach88/formtree/internal/form"
	"github.com/roach88/formtree/internal/snapshot"
)

// TraceEvent records the target control right after a step settled.
type TraceEvent struct {
	Step  int    `json:"step"`
	Op    string `json:"op"`
	Path  string `json:"path,omitempty"`
	Event string `json:"event,omitempty"`

	// State is the control's own state, or the aggregate state for a
	// composite.
	State     form.ValidateState `json:"state"`
	Value     any                `json:"value"`
	Errors    form.ControlErrors `json:"errors,omitempty"`
	AllErrors form.PathErrors    `json:"allErrors,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Trace has one event per step, in step order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Snapshot is the final state of the tree.
	Snapshot *snapshot.Node `json:"snapshot,omitempty"`

	// Session is the registry session the scenario ran under.
	Session string `json:"session"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
