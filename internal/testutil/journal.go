package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/roach88/formtree/internal/form"
)

// Journal is an in-memory form.Journal for tests.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Journal struct {
	mu      sync.Mutex
	records []form.ValidationRecord
}

var _ form.Journal = (*Journal)(nil)

// RecordValidation appends rec.
func (j *Journal) RecordValidation(_ context.Context, rec form.ValidationRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, rec)
	return nil
}

// Records returns a copy of the records in arrival order.
func (j *Journal) Records() []form.ValidationRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]form.ValidationRecord, len(j.records))
	copy(out, j.records)
	return out
}

// WaitFor blocks until at least n records arrived and returns them.
// Records are written after a run settles, so a caller that observed the
// settled state may still be ahead of the journal.
func (j *Journal) WaitFor(t testing.TB, n int) []form.ValidationRecord {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		recs := j.Records()
		if len(recs) >= n {
			return recs
		}
		if time.Now().After(deadline) {
			t.Fatalf("journal has %d records, want %d", len(recs), n)
			return recs
		}
		time.Sleep(5 * time.Millisecond)
	}
}
