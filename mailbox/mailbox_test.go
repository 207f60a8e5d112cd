package mailbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drainAll(m *Mailbox) []interface{} {
	var out []interface{}
	for {
		msg, ok := m.Pop()
		if !ok {
			break
		}
		out = append(out, msg)
	}
	return out
}

func TestUnboundedFIFO(t *testing.T) {
	m := New()
	require.NoError(t, m.Send(1))
	require.NoError(t, m.Send(2))
	require.NoError(t, m.Send(3))

	assert.Equal(t, []interface{}{1, 2, 3}, drainAll(m))
}

// Scenario 2: bounded DropOldest, capacity 3, suspend, send 1..5, resume.
func TestBoundedDropOldest(t *testing.T) {
	m := NewBounded(3, DropOldest)
	m.Suspend()

	for i := 1; i <= 5; i++ {
		require.NoError(t, m.Send(i))
	}
	assert.Equal(t, uint64(2), m.DroppedCount())

	m.Resume()
	assert.Equal(t, []interface{}{3, 4, 5}, drainAll(m))
}

// Scenario 3: bounded Reject, capacity 3, suspend, send 1..5.
func TestBoundedReject(t *testing.T) {
	m := NewBounded(3, Reject)
	var rejected []interface{}
	m.OnOverflowReject(func(msg interface{}, reason string) {
		assert.Equal(t, "mailbox overflow", reason)
		rejected = append(rejected, msg)
	})
	m.Suspend()

	for i := 1; i <= 5; i++ {
		require.NoError(t, m.Send(i))
	}
	assert.Equal(t, uint64(2), m.DroppedCount())
	assert.Equal(t, []interface{}{4, 5}, rejected)

	m.Resume()
	assert.Equal(t, []interface{}{1, 2, 3}, drainAll(m))
}

func TestBoundedDropNewest(t *testing.T) {
	m := NewBounded(3, DropNewest)
	m.Suspend()

	for i := 1; i <= 5; i++ {
		require.NoError(t, m.Send(i))
	}
	assert.Equal(t, uint64(2), m.DroppedCount())

	m.Resume()
	assert.Equal(t, []interface{}{1, 2, 3}, drainAll(m))
}

func TestSuspendBlocksPop(t *testing.T) {
	m := New()
	require.NoError(t, m.Send("a"))
	m.Suspend()

	_, ok := m.Pop()
	assert.False(t, ok, "suspended mailbox must not yield a message")

	m.Resume()
	msg, ok := m.Pop()
	require.True(t, ok)
	assert.Equal(t, "a", msg)
}

func TestCloseDrainsToHandler(t *testing.T) {
	m := New()
	require.NoError(t, m.Send(1))
	require.NoError(t, m.Send(2))

	var drained []interface{}
	m.OnClose(func(msg interface{}, reason string) {
		assert.Equal(t, "actor stopped", reason)
		drained = append(drained, msg)
	})

	m.Close()
	assert.Equal(t, []interface{}{1, 2}, drained)

	err := m.Send(3)
	assert.ErrorAs(t, err, &ErrClosed{})
}

func TestResumeAfterCloseIsNoop(t *testing.T) {
	m := New()
	m.Close()
	m.Resume()
	assert.True(t, m.IsSuspended() == false && m.IsClosed())
}

func TestIsReceivable(t *testing.T) {
	m := New()
	assert.False(t, m.IsReceivable())

	require.NoError(t, m.Send(1))
	assert.True(t, m.IsReceivable())

	m.Suspend()
	assert.False(t, m.IsReceivable())
}

func TestSendControlBypassesCapacityAndPolicy(t *testing.T) {
	m := NewBounded(2, Reject)
	var rejected []interface{}
	m.OnOverflowReject(func(msg interface{}, reason string) { rejected = append(rejected, msg) })
	m.Suspend()

	require.NoError(t, m.Send(1))
	require.NoError(t, m.Send(2))
	require.NoError(t, m.Send(3)) // rejected, queue stays at [1, 2]
	require.NoError(t, m.SendControl("stop"))

	m.Resume()
	assert.Equal(t, []interface{}{1, 2, "stop"}, drainAll(m))
	assert.Equal(t, []interface{}{3}, rejected, "only the overflowing user message is rejected")
}

func TestSendControlRejectedWhenClosed(t *testing.T) {
	m := New()
	m.Close()
	err := m.SendControl("stop")
	assert.ErrorAs(t, err, &ErrClosed{})
}

type fakeControl struct{ control bool }

func (f fakeControl) IsControl() bool { return f.control }

// Suspend blocks new user work but must still allow internal control
// through (spec.md §4.5 step 1): a Stop reaching a fault-suspended actor
// must not wait for Resume.
func TestPopSurfacesControlEnvelopeWhileSuspended(t *testing.T) {
	m := New()
	require.NoError(t, m.Send("user-msg"))
	m.Suspend()
	require.NoError(t, m.SendControl(fakeControl{control: true}))

	msg, ok := m.Pop()
	require.True(t, ok, "a suspended mailbox must still surrender a queued control envelope")
	assert.Equal(t, fakeControl{control: true}, msg)

	_, ok = m.Pop()
	assert.False(t, ok, "the blocked user message stays queued until Resume")

	m.Resume()
	msg, ok = m.Pop()
	require.True(t, ok)
	assert.Equal(t, "user-msg", msg)
}

func TestSendControlNotifiesEvenWhileSuspended(t *testing.T) {
	m := New()
	var notified int
	m.OnDispatchable(func() { notified++ })

	m.Suspend()
	require.NoError(t, m.SendControl(fakeControl{control: true}))
	assert.Equal(t, 1, notified, "control must wake the dispatch loop even while suspended")
}

func TestDispatchableNotifiedOnSendAndResume(t *testing.T) {
	m := New()
	var notified int
	m.OnDispatchable(func() { notified++ })

	require.NoError(t, m.Send(1))
	assert.Equal(t, 1, notified)

	m.Suspend()
	require.NoError(t, m.Send(2))
	assert.Equal(t, 1, notified, "no notification while suspended")

	m.Resume()
	assert.Equal(t, 2, notified, "resume with queued messages notifies")
}
