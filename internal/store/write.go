package store

import (
	"context"
	"fmt"

	"github.com/roach88/formtree/internal/form"
)

// RecordValidation appends one validation record.
// Uses ON CONFLICT(session, seq) DO NOTHING for idempotency - a record
// delivered twice is stored once.
func (s *Store) RecordValidation(ctx context.Context, rec form.ValidationRecord) error {
	if rec.Session == "" {
		return fmt.Errorf("record validation: empty session")
	}
	blob, err := marshalErrors(rec.Errors)
	if err != nil {
		return fmt.Errorf("record validation: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO validations
		(session, seq, node_id, name, path, request_id, outcome, state, errors, error_count, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session, seq) DO NOTHING
	`,
		rec.Session,
		rec.Seq,
		rec.NodeID,
		rec.Name,
		rec.Path,
		rec.RequestID,
		string(rec.Outcome),
		string(rec.State),
		blob,
		len(rec.Errors),
		rec.Duration.Nanoseconds(),
	)
	if err != nil {
		return fmt.Errorf("record validation: %w", err)
	}

	return nil
}
