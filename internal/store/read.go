package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/formtree/internal/form"
)

// SessionSummary describes the records of one registry session.
type SessionSummary struct {
	Session   string
	Records   int
	Committed int
	Stale     int
	Destroyed int
	FirstSeq  int64
	LastSeq   int64
}

const selectValidations = `
	SELECT session, seq, node_id, name, path, request_id, outcome, state, errors, duration_ns
	FROM validations
`

// ReadSession returns every record of a session ordered by seq.
//
// Returns an empty slice (not nil) if the session has no records.
func (s *Store) ReadSession(ctx context.Context, session string) ([]form.ValidationRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectValidations+`
		WHERE session = ?
		ORDER BY seq ASC, id ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("query validations: %w", err)
	}
	return collect(rows)
}

// ReadNode returns the records of one control within a session ordered by
// seq.
func (s *Store) ReadNode(ctx context.Context, session string, nodeID int64) ([]form.ValidationRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectValidations+`
		WHERE session = ? AND node_id = ?
		ORDER BY seq ASC, id ASC
	`, session, nodeID)
	if err != nil {
		return nil, fmt.Errorf("query validations: %w", err)
	}
	return collect(rows)
}

// Sessions summarizes every session in the journal, oldest first.
func (s *Store) Sessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session,
		       COUNT(*),
		       SUM(outcome = 'committed'),
		       SUM(outcome = 'stale'),
		       SUM(outcome = 'destroyed'),
		       MIN(seq),
		       MAX(seq)
		FROM validations
		GROUP BY session
		ORDER BY MIN(id) ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	out := []SessionSummary{}
	for rows.Next() {
		var sum SessionSummary
		if err := rows.Scan(&sum.Session, &sum.Records, &sum.Committed, &sum.Stale, &sum.Destroyed, &sum.FirstSeq, &sum.LastSeq); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

// LastSeq returns the highest seq recorded for a session, or 0.
func (s *Store) LastSeq(ctx context.Context, session string) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM validations WHERE session = ?`, session).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return seq.Int64, nil
}

func collect(rows *sql.Rows) ([]form.ValidationRecord, error) {
	defer rows.Close()

	out := []form.ValidationRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate validations: %w", err)
	}
	return out, nil
}

func scanRecord(rows *sql.Rows) (form.ValidationRecord, error) {
	var (
		rec        form.ValidationRecord
		outcome    string
		state      string
		blob       []byte
		durationNS int64
	)
	if err := rows.Scan(&rec.Session, &rec.Seq, &rec.NodeID, &rec.Name, &rec.Path, &rec.RequestID, &outcome, &state, &blob, &durationNS); err != nil {
		return form.ValidationRecord{}, fmt.Errorf("scan validation: %w", err)
	}
	errs, err := unmarshalErrors(blob)
	if err != nil {
		return form.ValidationRecord{}, fmt.Errorf("validation seq %d: %w", rec.Seq, err)
	}
	rec.Outcome = form.Outcome(outcome)
	rec.State = form.ValidateState(state)
	rec.Errors = errs
	rec.Duration = time.Duration(durationNS)
	return rec, nil
}
