package testkit

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAwaitReturnsTrueOnceConditionHolds(t *testing.T) {
	var ready atomic.Bool
	go func() {
		time.Sleep(10 * time.Millisecond)
		ready.Store(true)
	}()

	ok := Await(ready.Load, time.Second, time.Millisecond)
	assert.True(t, ok)
}

func TestAwaitTimesOutWhenConditionNeverHolds(t *testing.T) {
	ok := Await(func() bool { return false }, 20*time.Millisecond, time.Millisecond)
	assert.False(t, ok)
}
