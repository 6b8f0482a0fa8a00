package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formtree/internal/form"
	"github.com/roach88/formtree/internal/testutil"
)

func record(session string, seq, node int64, outcome form.Outcome, errs form.ControlErrors) form.ValidationRecord {
	state := form.StateValid
	switch {
	case outcome == form.OutcomeStale:
		state = form.StatePending
	case len(errs) > 0:
		state = form.StateInvalid
	}
	return form.ValidationRecord{
		Session:   session,
		Seq:       seq,
		NodeID:    node,
		Name:      "field",
		Path:      "group.field",
		RequestID: seq,
		Outcome:   outcome,
		State:     state,
		Errors:    errs,
		Duration:  1500 * time.Microsecond,
	}
}

func TestRecordValidation_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	errs := form.ControlErrors{
		{"required": true},
		{"pattern": map[string]any{"requiredPattern": "^a$", "actualValue": "b"}},
		{"ratio": map[string]any{"actual": 0.25, "list": []any{"x", true}}},
	}
	rec := record("s1", 1, 7, form.OutcomeCommitted, errs)
	require.NoError(t, s.RecordValidation(ctx, rec))

	got, err := s.ReadSession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec, got[0])
}

func TestRecordValidation_IntegersSurvive(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := record("s1", 1, 1, form.OutcomeCommitted, form.ControlErrors{
		{"min": map[string]any{"min": int64(3), "actual": 1}},
	})
	require.NoError(t, s.RecordValidation(ctx, rec))

	got, err := s.ReadSession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	detail, ok := got[0].Errors[0]["min"].(map[string]any)
	require.True(t, ok, "got %T", got[0].Errors[0]["min"])
	minVal, ok := form.ToFloat(detail["min"])
	require.True(t, ok)
	assert.Equal(t, 3.0, minVal)
	actual, ok := form.ToFloat(detail["actual"])
	require.True(t, ok)
	assert.Equal(t, 1.0, actual)
}

func TestRecordValidation_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := record("s1", 1, 1, form.OutcomeCommitted, nil)
	require.NoError(t, s.RecordValidation(ctx, rec))
	require.NoError(t, s.RecordValidation(ctx, rec))

	got, err := s.ReadSession(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRecordValidation_RejectsEmptySession(t *testing.T) {
	s := createTestStore(t)
	err := s.RecordValidation(context.Background(), record("", 1, 1, form.OutcomeCommitted, nil))
	assert.Error(t, err)
}

func TestReadSession_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Run goroutines deliver records out of order.
	for _, seq := range []int64{3, 1, 2} {
		require.NoError(t, s.RecordValidation(ctx, record("s1", seq, 1, form.OutcomeCommitted, nil)))
	}
	require.NoError(t, s.RecordValidation(ctx, record("s2", 1, 1, form.OutcomeCommitted, nil)))

	got, err := s.ReadSession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, rec := range got {
		assert.Equal(t, int64(i+1), rec.Seq)
		assert.Equal(t, form.ControlErrors{}, rec.Errors)
	}

	empty, err := s.ReadSession(ctx, "missing")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestReadNode(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordValidation(ctx, record("s1", 1, 1, form.OutcomeCommitted, nil)))
	require.NoError(t, s.RecordValidation(ctx, record("s1", 2, 2, form.OutcomeStale, nil)))
	require.NoError(t, s.RecordValidation(ctx, record("s1", 3, 2, form.OutcomeCommitted, form.ControlErrors{{"required": true}})))

	got, err := s.ReadNode(ctx, "s1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, form.OutcomeStale, got[0].Outcome)
	assert.Equal(t, form.StatePending, got[0].State)
	assert.Equal(t, form.StateInvalid, got[1].State)
}

func TestSessions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordValidation(ctx, record("first", 1, 1, form.OutcomeCommitted, nil)))
	require.NoError(t, s.RecordValidation(ctx, record("first", 2, 1, form.OutcomeStale, nil)))
	require.NoError(t, s.RecordValidation(ctx, record("first", 3, 1, form.OutcomeDestroyed, nil)))
	require.NoError(t, s.RecordValidation(ctx, record("second", 5, 1, form.OutcomeCommitted, nil)))

	got, err := s.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []SessionSummary{
		{Session: "first", Records: 3, Committed: 1, Stale: 1, Destroyed: 1, FirstSeq: 1, LastSeq: 3},
		{Session: "second", Records: 1, Committed: 1, FirstSeq: 5, LastSeq: 5},
	}, got)

	last, err := s.LastSeq(ctx, "first")
	require.NoError(t, err)
	assert.Equal(t, int64(3), last)

	last, err = s.LastSeq(ctx, "missing")
	require.NoError(t, err)
	assert.Zero(t, last)
}

func TestStore_AsRegistryJournal(t *testing.T) {
	s := createTestStore(t)
	r := form.NewRegistry(
		form.WithJournal(s),
		form.WithSessionGenerator(form.NewFixedGenerator("registry-session")),
	)
	t.Cleanup(r.ResetAll)

	root, err := form.NewForm(r)
	require.NoError(t, err)
	f, err := form.NewField(r, form.WithName("email"), form.WithParent(root), form.WithRequired())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = f.ValidateSelf(ctx)
	require.NoError(t, err)

	var got []form.ValidationRecord
	require.Eventually(t, func() bool {
		got, err = s.ReadSession(context.Background(), "registry-session")
		return err == nil && len(got) == 1
	}, time.Second, 10*time.Millisecond)

	rec := got[0]
	assert.Equal(t, f.ID(), rec.NodeID)
	assert.Equal(t, "email", rec.Name)
	assert.Equal(t, "email", rec.Path)
	assert.Equal(t, form.OutcomeCommitted, rec.Outcome)
	assert.Equal(t, form.StateInvalid, rec.State)
	assert.Equal(t, form.ControlErrors{{"required": true}}, rec.Errors)
}

func TestStore_RecordsSupersededRun(t *testing.T) {
	s := createTestStore(t)
	gate := testutil.NewGate()
	v := form.NewValidatorRegistry()
	require.NoError(t, v.Register("gate", gate.Factory("b")))
	r := testutil.NewRegistry(t, form.WithJournal(s), form.WithValidators(v))

	f, err := form.NewField(r, form.WithName("code"), form.WithRules("gate"), form.WithValue("a"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done := make(chan form.ControlErrors, 1)
	go func() {
		errs, _ := f.ValidateSelf(ctx)
		done <- errs
	}()
	assert.Equal(t, "a", gate.WaitStarted(t))

	require.NoError(t, f.SetValue("b"))
	assert.Equal(t, "b", gate.WaitStarted(t))
	gate.Open()

	select {
	case errs := <-done:
		assert.Equal(t, form.ControlErrors{{"gate": "b"}}, errs)
	case <-ctx.Done():
		t.Fatal("validation did not settle")
	}

	var got []form.ValidationRecord
	require.Eventually(t, func() bool {
		got, err = s.ReadSession(context.Background(), t.Name())
		return err == nil && len(got) == 2
	}, time.Second, 10*time.Millisecond)

	outcomes := []form.Outcome{got[0].Outcome, got[1].Outcome}
	assert.ElementsMatch(t, []form.Outcome{form.OutcomeStale, form.OutcomeCommitted}, outcomes)
	assert.Equal(t, 2, gate.Calls())
}
