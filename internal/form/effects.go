package form

import "sync"

// effects collects work discovered while the registry lock is held. It runs
// in order once the lock is released.
type effects struct {
	fns []func()
}

func (fx *effects) add(fn func()) {
	fx.fns = append(fx.fns, fn)
}

func (fx *effects) run() {
	for _, fn := range fx.fns {
		fn()
	}
}

// update runs fn under the registry lock and then the effects it queued.
func (r *Registry) update(fn func(fx *effects)) {
	fx := &effects{}
	func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		fn(fx)
	}()
	fx.run()
}

// updateErr is update for mutations that can fail. Queued effects run even
// when fn returns an error.
func (r *Registry) updateErr(fn func(fx *effects) error) error {
	fx := &effects{}
	var err error
	func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		err = fn(fx)
	}()
	fx.run()
	return err
}

// read runs fn under the registry lock.
func (r *Registry) read(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn()
}

type listenerEntry[T any] struct {
	id int
	fn func(T)
}

// listenerSet is an ordered set of callbacks guarded by the registry lock.
type listenerSet[T any] struct {
	next    int
	entries []listenerEntry[T]
}

func (s *listenerSet[T]) count() int {
	return len(s.entries)
}

func (s *listenerSet[T]) add(fn func(T)) int {
	s.next++
	s.entries = append(s.entries, listenerEntry[T]{id: s.next, fn: fn})
	return s.next
}

func (s *listenerSet[T]) remove(id int) {
	for i, e := range s.entries {
		if e.id == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return
		}
	}
}

// emit queues a call of every current listener with v.
func (s *listenerSet[T]) emit(fx *effects, v T) {
	if len(s.entries) == 0 {
		return
	}
	fns := make([]func(T), len(s.entries))
	for i, e := range s.entries {
		fns[i] = e.fn
	}
	fx.add(func() {
		for _, fn := range fns {
			fn(v)
		}
	})
}

// subscribe registers fn and returns an idempotent unsubscribe func.
func subscribe[T any](r *Registry, s *listenerSet[T], fn func(T)) func() {
	r.mu.Lock()
	id := s.add(fn)
	r.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			s.remove(id)
			r.mu.Unlock()
		})
	}
}
