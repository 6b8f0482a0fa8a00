package form

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Validation results
// =============================================================================

func TestValidateSelf_RequiredScenario(t *testing.T) {
	r := setupTestRegistry(t)
	form := mustForm(t, r, WithName("form"))
	email := mustField(t, r, WithName("email"), WithRules("required"), WithParent(form))

	require.NoError(t, email.SetValue(""))
	errs := validate(t, email)
	assert.Equal(t, ControlErrors{{"required": true}}, errs)
	assert.Equal(t, StateInvalid, email.ValidateState())

	require.NoError(t, email.SetValue("a@b.com"))
	errs = validate(t, email)
	assert.Empty(t, errs)
	assert.Equal(t, StateValid, email.ValidateState())
}

func TestValidateSelf_RequiredAppendedAfterExplicitRules(t *testing.T) {
	r := setupTestRegistry(t)
	var c counter
	f := mustField(t, r, WithRequired(), WithRules(c.validator("custom", nil)))

	rules := f.ComputedRules()
	require.Len(t, rules, 2)
	assert.Equal(t, "custom", rules[0].Name)
	assert.Equal(t, "required", rules[1].Name)
	assert.True(t, f.Required())

	errs := validate(t, f)
	assert.Equal(t, ControlErrors{{"custom": true}, {"required": true}}, errs)
}

func TestValidateSelf_Memoized(t *testing.T) {
	r := setupTestRegistry(t)
	var c counter
	f := mustField(t, r, WithRules(c.validator("bad", "x")), WithValue("x"))

	first := validate(t, f)
	second := validate(t, f)

	assert.Equal(t, int32(1), c.calls.Load())
	assert.Equal(t, first, second)

	require.NoError(t, f.SetValue("y"))
	assert.Empty(t, validate(t, f))
	assert.Equal(t, int32(2), c.calls.Load())
}

func TestValidateSelf_RulesRunInOrder(t *testing.T) {
	r := setupTestRegistry(t)
	var order []string
	step := func(name string) *Validator {
		return Func(name, func(context.Context, Control) (ValidationErrors, error) {
			order = append(order, name)
			return nil, nil
		})
	}
	f := mustField(t, r, WithRules(step("a"), step("b"), step("c")))

	validate(t, f)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestValidateSelf_AsyncRuleHoldsLaterRules(t *testing.T) {
	r := setupTestRegistry(t)
	g := newGate()
	var (
		mu    sync.Mutex
		order []string
	)
	seen := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), order...)
	}
	step := func(name string) *Validator {
		return Func(name, func(context.Context, Control) (ValidationErrors, error) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil, nil
		})
	}
	f := mustField(t, r, WithRules(step("before"), g.validator("slow", nil), step("after")), WithValue("v"))

	result := make(chan ControlErrors, 1)
	go func() {
		errs, _ := f.ValidateSelf(context.Background())
		result <- errs
	}()
	assert.Equal(t, "v", g.waitStarted(t))

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []string{"before"}, seen(), "a later rule must wait for the async one")
	assert.True(t, f.Pending())

	g.open()
	select {
	case errs := <-result:
		assert.Empty(t, errs)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter was not resolved")
	}
	assert.Equal(t, []string{"before", "after"}, seen())
	require.Eventually(t, func() bool { return f.Valid() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), g.calls.Load())
}

func TestValidateSelf_ValidatorFailuresBecomeRecords(t *testing.T) {
	r := setupTestRegistry(t)
	plain := errors.New("boom")
	named := &namedErr{name: "timeout"}
	var after counter

	f := mustField(t, r, WithRules(
		Func("plain", func(context.Context, Control) (ValidationErrors, error) { return nil, plain }),
		Func("named", func(context.Context, Control) (ValidationErrors, error) { return nil, named }),
		Func("panics", func(context.Context, Control) (ValidationErrors, error) { panic("kaboom") }),
		after.validator("after", nil),
	))

	errs := validate(t, f)
	require.Len(t, errs, 4)
	assert.Equal(t, plain, errs[0]["exception"])
	assert.Equal(t, named, errs[1]["timeout"])
	var pe *PanicError
	require.ErrorAs(t, errs[2]["exception"].(error), &pe)
	assert.Equal(t, "kaboom", pe.Value)
	assert.Equal(t, int32(1), after.calls.Load(), "a failing validator must not abort the run")
	assert.Equal(t, StateInvalid, f.ValidateState())
}

type namedErr struct{ name string }

func (e *namedErr) Error() string { return e.name + " happened" }
func (e *namedErr) Name() string  { return e.name }

// =============================================================================
// Stale runs and cancellation
// =============================================================================

func TestValidateSelf_ValueChangeSupersedesRun(t *testing.T) {
	r := setupTestRegistry(t)
	g := newGate()
	f := mustField(t, r, WithRules(g.validator("bad", "bad")), WithValue("bad"))

	result := make(chan ControlErrors, 1)
	go func() {
		errs, _ := f.ValidateSelf(context.Background())
		result <- errs
	}()
	assert.Equal(t, "bad", g.waitStarted(t))
	assert.True(t, f.Pending())

	require.NoError(t, f.SetValue("good"))
	assert.Equal(t, "good", g.waitStarted(t))

	g.open()
	select {
	case errs := <-result:
		assert.Empty(t, errs, "the waiter is served by the superseding run")
	case <-time.After(2 * time.Second):
		t.Fatal("waiter was not resolved")
	}
	require.Eventually(t, func() bool { return f.Valid() }, time.Second, 5*time.Millisecond)
	assert.Empty(t, f.Errors())
	assert.Equal(t, int32(2), g.calls.Load())
}

func TestClearErrors_CancelsRunAndResolvesWaiters(t *testing.T) {
	r := setupTestRegistry(t)
	g := newGate()
	f := mustField(t, r, WithRules(g.validator("bad", "bad")), WithValue("bad"))

	result := make(chan ControlErrors, 1)
	go func() {
		errs, _ := f.ValidateSelf(context.Background())
		result <- errs
	}()
	g.waitStarted(t)

	f.ClearErrors()
	select {
	case errs := <-result:
		assert.Empty(t, errs)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter was not resolved by ClearErrors")
	}
	assert.Equal(t, StateValid, f.ValidateState())

	g.open()
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, f.Errors(), "the cancelled run must not commit")
	assert.Equal(t, StateValid, f.ValidateState())
}

func TestClearErrors_AlwaysValid(t *testing.T) {
	r := setupTestRegistry(t)
	f := mustField(t, r, WithRules("required"))

	require.NotEmpty(t, validate(t, f))
	f.ClearErrors()

	assert.Equal(t, StateValid, f.ValidateState())
	assert.Empty(t, f.Errors())
	assert.False(t, f.HasError())
}

func TestValidateSelf_ContextDone(t *testing.T) {
	r := setupTestRegistry(t)
	g := newGate()
	defer g.open()
	f := mustField(t, r, WithRules(g.validator("slow", nil)))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.ValidateSelf(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDestroy_ResolvesWaitersWithLastErrors(t *testing.T) {
	r := setupTestRegistry(t)
	g := newGate()
	f := mustField(t, r, WithRules(g.validator("bad", nil)))

	result := make(chan ControlErrors, 1)
	go func() {
		errs, err := f.ValidateSelf(context.Background())
		assert.NoError(t, err)
		result <- errs
	}()
	g.waitStarted(t)

	f.Destroy()
	select {
	case errs := <-result:
		assert.Empty(t, errs)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter was not resolved on destroy")
	}
	g.open()
	assert.True(t, f.Destroyed())
	_, ok := r.Lookup(f.ID())
	assert.False(t, ok)

	errs, err := f.ValidateSelf(context.Background())
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestDestroy_CancelsValidatorContext(t *testing.T) {
	r := setupTestRegistry(t)
	cancelled := make(chan struct{})
	started := make(chan struct{})
	f := mustField(t, r, WithRules(AsyncFunc("wait", func(ctx context.Context, _ Control) (ValidationErrors, error) {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return ValidationErrors{"late": true}, nil
	})))

	go func() { _, _ = f.ValidateSelf(context.Background()) }()
	<-started
	f.Destroy()

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("validator context was not cancelled")
	}
	require.Eventually(t, func() bool { return f.Valid() }, time.Second, 5*time.Millisecond)
	assert.Empty(t, f.Errors(), "results of a destroyed control are discarded")
}

// =============================================================================
// Triggers
// =============================================================================

func TestEmit_ChangeTouchesAndValidates(t *testing.T) {
	r := setupTestRegistry(t)
	f := mustField(t, r, WithRules("required"))

	require.NoError(t, f.SetValue(""))
	assert.Empty(t, f.Errors(), "untouched controls are not validated")

	f.Emit(EventChange)
	assert.True(t, f.Touched())
	assert.Equal(t, ControlErrors{{"required": true}}, f.Errors())
}

func TestEmit_TouchOnBlur(t *testing.T) {
	r := setupTestRegistry(t)
	f := mustField(t, r, WithTouchOn(EventBlur), WithRules("required"), WithValidateOn(EventBlur))

	f.Emit(EventChange)
	assert.False(t, f.Touched())

	f.Emit(EventBlur)
	assert.True(t, f.Touched())
	assert.True(t, f.Invalid())
}

func TestEmit_ValidateOnInputWithConditionAlways(t *testing.T) {
	r := setupTestRegistry(t)
	var c counter
	f := mustField(t, r,
		WithRules(c.validator("bad", "x")),
		WithValidateOn(EventInput),
		WithConditions(ConditionAlways),
	)

	require.NoError(t, f.SetValue("x"))
	f.Emit(EventInput)
	assert.Equal(t, int32(1), c.calls.Load())
	assert.True(t, f.Invalid())
	assert.False(t, f.Touched())
}

func TestEmit_ConditionDirtyBlocksPristine(t *testing.T) {
	r := setupTestRegistry(t)
	var c counter
	f := mustField(t, r,
		WithRules(c.validator("bad", nil)),
		WithValidateOn(EventInput),
		WithConditions(ConditionDirty),
	)

	f.Emit(EventInput)
	assert.Equal(t, int32(0), c.calls.Load())

	require.NoError(t, f.SetValue("changed"))
	assert.Equal(t, int32(1), c.calls.Load(), "the pristine transition triggers validation")
}

func TestEmit_DebounceCoalesces(t *testing.T) {
	r := setupTestRegistry(t)
	var c counter
	f := mustField(t, r,
		WithRules(c.validator("bad", nil)),
		WithValidateOn(EventInput),
		WithConditions(ConditionAlways),
		WithDebounce(30*time.Millisecond),
	)

	for i := 0; i < 3; i++ {
		require.NoError(t, f.SetValue(i))
		f.Emit(EventInput)
	}
	assert.Equal(t, int32(0), c.calls.Load())

	require.Eventually(t, func() bool { return c.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), c.calls.Load())
}

func TestEmit_DebounceInertAfterDestroy(t *testing.T) {
	r := setupTestRegistry(t)
	var c counter
	f := mustField(t, r,
		WithRules(c.validator("bad", nil)),
		WithValidateOn(EventInput),
		WithConditions(ConditionAlways),
		WithDebounce(20*time.Millisecond),
	)

	f.Emit(EventInput)
	f.Destroy()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), c.calls.Load())
}

func TestEmit_PassesThroughToParent(t *testing.T) {
	r := setupTestRegistry(t)
	var c counter
	form := mustForm(t, r,
		WithName("form"),
		WithRules(c.validator("group", nil)),
		WithValidateOn(EventBlur),
		WithConditions(ConditionAlways),
	)
	f := mustField(t, r, WithName("a"), WithParent(form))

	f.Emit(EventBlur)
	assert.Equal(t, int32(1), c.calls.Load())
}

func TestOptions_Invalid(t *testing.T) {
	r := setupTestRegistry(t)

	_, err := NewField(r, WithValidateOn(EventFocus))
	require.Error(t, err)

	_, err = NewField(r, WithDebounce(-time.Second))
	require.Error(t, err)

	_, err = NewField(r, WithRules("nope"))
	assert.True(t, IsRuleResolutionError(err))

	_, err = NewField(r, WithRules("min-length"))
	assert.True(t, IsRuleResolutionError(err))
}

// =============================================================================
// Listeners
// =============================================================================

func TestListeners_ValueAndErrors(t *testing.T) {
	r := setupTestRegistry(t)
	f := mustField(t, r, WithRules("required"))

	var values []any
	var errorUpdates atomic.Int32
	unsubscribe := f.OnValueChange(func(v any) { values = append(values, v) })
	f.OnErrorsChange(func(ControlErrors) { errorUpdates.Add(1) })

	require.NoError(t, f.SetValue("a"))
	require.NoError(t, f.SetValue("a"))
	require.NoError(t, f.SetValue(""))
	unsubscribe()
	require.NoError(t, f.SetValue("b"))

	assert.Equal(t, []any{"a", ""}, values)

	require.NoError(t, f.SetValue(""))
	validate(t, f)
	assert.Equal(t, int32(1), errorUpdates.Load())
}
