package form

import (
	"context"
	"reflect"
	"time"
)

// ValidateSelf validates the control and returns the resulting errors.
//
// Without a value change since the last completed run it returns the
// current errors at once. Otherwise it starts a run and waits until the run
// serving this call commits, the errors are cleared, or the control is
// destroyed. An error is returned only when ctx is done first.
func (c *control) ValidateSelf(ctx context.Context) (ControlErrors, error) {
	ch := c.requestValidation()
	select {
	case errs := <-ch:
		return errs, nil
	case <-ctx.Done():
		return c.Errors(), ctx.Err()
	}
}

// requestValidation registers a waiter and starts a run if needed.
func (c *control) requestValidation() <-chan ControlErrors {
	ch := make(chan ControlErrors, 1)
	c.reg.update(func(fx *effects) {
		switch {
		case c.destroyed:
			ch <- c.errors.Clone()
		case !c.valueChanged && c.state != StatePending:
			ch <- c.errors.Clone()
		default:
			c.waiters = append(c.waiters, ch)
			if c.valueChanged {
				c.startRunLocked(fx)
			}
		}
	})
	return ch
}

// startRunLocked supersedes any run in flight and queues a new one.
// Waiters are kept and served by the new run.
func (c *control) startRunLocked(fx *effects) {
	c.valueChanged = false
	c.requestID = c.requests.Next()
	c.state = StatePending
	run := &validationRun{
		c:       c,
		id:      c.requestID,
		rules:   c.computedRulesLocked(),
		started: time.Now(),
	}
	c.reg.logger.Debug("validation started", "node", c.id, "name", c.name, "request", run.id, "rules", len(run.rules))
	fx.add(run.execute)
}

// validationRun is one pass of the rule list.
type validationRun struct {
	c       *control
	id      int64
	rules   []*Validator
	next    int
	result  ControlErrors
	started time.Time
	// detached is set once the run has moved to its own goroutine.
	detached bool
}

type runStatus int

const (
	runCurrent runStatus = iota
	runStale
	runDestroyed
)

func (r *validationRun) status() runStatus {
	var s runStatus
	r.c.reg.read(func() {
		switch {
		case r.c.destroyed:
			s = runDestroyed
		case r.c.requestID != r.id:
			s = runStale
		}
	})
	return s
}

// execute runs validators in order. Validators are called without the
// registry lock; the request id is checked before each one.
func (r *validationRun) execute() {
	c := r.c
	for r.next < len(r.rules) {
		v := r.rules[r.next]
		if v.Async && !r.detached {
			r.detached = true
			go r.execute()
			return
		}
		switch r.status() {
		case runStale:
			r.finish(OutcomeStale)
			return
		case runDestroyed:
			r.finish(OutcomeDestroyed)
			return
		}
		res, err := callValidator(c.lifetime, v, c.self)
		r.next++
		if err != nil {
			c.reg.logger.Warn("validator failed",
				"node", c.id,
				"name", c.name,
				"validator", v.Name,
				"request", r.id,
				"error", err,
			)
			r.result = append(r.result, exceptionRecord(err))
			continue
		}
		if len(res) > 0 {
			r.result = append(r.result, res)
		}
	}
	r.finish(OutcomeCommitted)
}

// finish commits the result if the run is still current. A run on a
// destroyed control commits zero errors.
func (r *validationRun) finish(outcome Outcome) {
	c := r.c
	var rec *ValidationRecord
	c.reg.update(func(fx *effects) {
		if c.requestID != r.id {
			outcome = OutcomeStale
		} else {
			if c.destroyed {
				outcome = OutcomeDestroyed
				r.result = nil
			}
			c.commitLocked(r.result, fx)
		}
		rec = c.recordLocked(r, outcome)
		c.reg.logger.Debug("validation finished",
			"node", c.id,
			"name", c.name,
			"request", r.id,
			"outcome", outcome,
			"errors", len(r.result),
		)
	})
	c.reg.writeJournal(rec)
}

func (c *control) recordLocked(r *validationRun, outcome Outcome) *ValidationRecord {
	if c.reg.journal == nil {
		return nil
	}
	path, _ := c.pathFromLocked(c.rootLocked())
	rec := &ValidationRecord{
		Session:   c.reg.session,
		Seq:       c.reg.seq.Next(),
		NodeID:    c.id,
		Name:      c.name,
		Path:      path,
		RequestID: r.id,
		Outcome:   outcome,
		State:     c.state,
		Errors:    r.result.Clone(),
		Duration:  time.Since(r.started),
	}
	if outcome == OutcomeStale {
		rec.State = StatePending
	}
	return rec
}

func callValidator(ctx context.Context, v *Validator, c Control) (res ValidationErrors, err error) {
	defer func() {
		if p := recover(); p != nil {
			res = nil
			if e, ok := p.(error); ok {
				err = e
			} else {
				err = &PanicError{Value: p}
			}
		}
	}()
	return v.Fn(ctx, c)
}

// commitLocked replaces the error list, settles the state and serves every
// waiter.
func (c *control) commitLocked(errs ControlErrors, fx *effects) {
	if len(errs) == 0 {
		errs = nil
	}
	changed := !reflect.DeepEqual(c.errors, errs)
	c.errors = errs
	if len(errs) > 0 {
		c.state = StateInvalid
	} else {
		c.state = StateValid
	}
	c.resolveWaitersLocked(errs)
	if changed {
		c.errorsChangedLocked(fx)
	}
}

func (c *control) resolveWaitersLocked(errs ControlErrors) {
	waiters := c.waiters
	c.waiters = nil
	for _, w := range waiters {
		w <- errs.Clone()
	}
}

// ClearErrors cancels any run in flight, empties the error list and serves
// all waiters with the empty list.
func (c *control) ClearErrors() {
	c.reg.update(func(fx *effects) {
		c.clearErrorsLocked(fx)
	})
}

func (c *control) clearErrorsLocked(fx *effects) {
	if c.state == StatePending {
		// the cancelled run never finished, so the value is still unchecked
		c.valueChanged = true
	}
	c.requestID = c.requests.Next()
	c.commitLocked(nil, fx)
}

// handleTrigger is the common entry for events, flag transitions and watch
// notifications. Conditions are evaluated without the lock.
func (c *control) handleTrigger() {
	var (
		conds     []*Condition
		destroyed bool
	)
	c.reg.read(func() {
		destroyed = c.destroyed
		if !destroyed {
			conds = c.computedConditionsLocked()
		}
	})
	if destroyed {
		return
	}
	for _, cond := range conds {
		if !cond.Check(c.self) {
			return
		}
	}
	c.reg.update(func(fx *effects) {
		if c.destroyed {
			return
		}
		c.stopTimerLocked()
		delay := c.computedDebounceLocked()
		if delay <= 0 {
			fx.add(func() { c.requestValidation() })
			return
		}
		gen := c.timerGen
		c.timer = time.AfterFunc(delay, func() { c.fireTimer(gen) })
	})
}

// stopTimerLocked cancels the pending debounce timer. Bumping the
// generation makes a timer that already fired inert.
func (c *control) stopTimerLocked() {
	c.timerGen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *control) fireTimer(gen int64) {
	current := false
	c.reg.read(func() {
		current = !c.destroyed && c.timerGen == gen
		if current {
			c.timer = nil
		}
	})
	if current {
		c.requestValidation()
	}
}
