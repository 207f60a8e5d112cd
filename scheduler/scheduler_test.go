package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleOnceFiresOnce(t *testing.T) {
	s := New(nil)
	defer s.Close()

	var count int32
	_, err := s.ScheduleOnce(func(data interface{}) {
		atomic.AddInt32(&count, 1)
	}, nil, 10*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)
	assert.EqualValues(t, 1, atomic.LoadInt32(&count))
}

func TestScheduleRepeatsUntilCancelled(t *testing.T) {
	s := New(nil)
	defer s.Close()

	var count int32
	c, err := s.Schedule(func(data interface{}) {
		atomic.AddInt32(&count, 1)
	}, nil, 5*time.Millisecond, 10*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(45 * time.Millisecond)
	c.Cancel()
	countAtCancel := atomic.LoadInt32(&count)
	assert.GreaterOrEqual(t, countAtCancel, int32(2))

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, countAtCancel, atomic.LoadInt32(&count), "no firings after cancel")
}

func TestCancelIsIdempotentAndFirstWins(t *testing.T) {
	s := New(nil)
	defer s.Close()

	c, err := s.ScheduleOnce(func(data interface{}) {}, nil, time.Hour)
	require.NoError(t, err)

	assert.True(t, c.Cancel())
	assert.False(t, c.Cancel())
}

func TestCloseCancelsOutstandingAndRejectsNew(t *testing.T) {
	s := New(nil)

	var fired int32
	_, err := s.ScheduleOnce(func(data interface{}) {
		atomic.AddInt32(&fired, 1)
	}, nil, 20*time.Millisecond)
	require.NoError(t, err)

	s.Close()
	s.Close() // idempotent

	time.Sleep(40 * time.Millisecond)
	assert.EqualValues(t, 0, atomic.LoadInt32(&fired))

	_, err = s.ScheduleOnce(func(data interface{}) {}, nil, time.Millisecond)
	assert.ErrorAs(t, err, &ErrClosed{})
}

func TestCallbackPanicDoesNotAbortSchedule(t *testing.T) {
	s := New(nil)
	defer s.Close()

	var count int32
	c, err := s.Schedule(func(data interface{}) {
		n := atomic.AddInt32(&count, 1)
		if n == 1 {
			panic("boom")
		}
	}, nil, 5*time.Millisecond, 10*time.Millisecond)
	require.NoError(t, err)
	defer c.Cancel()

	time.Sleep(45 * time.Millisecond)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&count), int32(2))
}

func TestScheduledDataIsPassedThrough(t *testing.T) {
	s := New(nil)
	defer s.Close()

	received := make(chan interface{}, 1)
	_, err := s.ScheduleOnce(func(data interface{}) {
		received <- data
	}, "payload", 5*time.Millisecond)
	require.NoError(t, err)

	select {
	case data := <-received:
		assert.Equal(t, "payload", data)
	case <-time.After(time.Second):
		t.Fatal("callback never fired")
	}
}
