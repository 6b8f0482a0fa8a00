package form

import (
	"context"
	"time"
)

// Outcome is how a validation run ended.
type Outcome string

const (
	// OutcomeCommitted means the run replaced the control's errors.
	OutcomeCommitted Outcome = "committed"

	// OutcomeStale means a newer request superseded the run.
	OutcomeStale Outcome = "stale"

	// OutcomeDestroyed means the control was destroyed mid-run.
	OutcomeDestroyed Outcome = "destroyed"
)

// ValidationRecord describes one finished validation run.
type ValidationRecord struct {
	Session   string
	Seq       int64
	NodeID    int64
	Name      string
	Path      string
	RequestID int64
	Outcome   Outcome
	State     ValidateState
	Errors    ControlErrors
	Duration  time.Duration
}

// Journal receives validation records. Implementations must be safe for
// concurrent use; records arrive from run goroutines.
type Journal interface {
	RecordValidation(ctx context.Context, rec ValidationRecord) error
}

func (r *Registry) writeJournal(rec *ValidationRecord) {
	if r.journal == nil || rec == nil {
		return
	}
	if err := r.journal.RecordValidation(context.Background(), *rec); err != nil {
		r.logger.Warn("journal write failed", "node", rec.NodeID, "request", rec.RequestID, "error", err)
	}
}
