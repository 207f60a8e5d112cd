package testkit

import (
	"sync"
	"time"
)

// ObservableState is a concurrency-safe box around a value an actor writes
// to from inside Receive and a test reads from outside, without reaching
// into the actor's own fields (spec.md §8 "state-observation assist").
type ObservableState[T any] struct {
	mu    sync.RWMutex
	value T
}

// NewObservableState constructs a box holding initial.
func NewObservableState[T any](initial T) *ObservableState[T] {
	return &ObservableState[T]{value: initial}
}

// Set overwrites the held value.
func (o *ObservableState[T]) Set(v T) {
	o.mu.Lock()
	o.value = v
	o.mu.Unlock()
}

// Get returns the current value.
func (o *ObservableState[T]) Get() T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.value
}

// WaitFor blocks until predicate(Get()) is true or timeout elapses,
// returning the last observed value and whether predicate held when it
// returned.
func (o *ObservableState[T]) WaitFor(predicate func(T) bool, timeout, interval time.Duration) (T, bool) {
	if interval <= 0 {
		interval = time.Millisecond
	}
	deadline := time.Now().Add(timeout)
	for {
		v := o.Get()
		if predicate(v) {
			return v, true
		}
		if time.Now().After(deadline) {
			return v, false
		}
		time.Sleep(interval)
	}
}
