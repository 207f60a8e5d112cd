package deadletter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordBroadcastsToAllListeners(t *testing.T) {
	d := New()
	rec1 := NewRecorder()
	rec2 := NewRecorder()
	d.Subscribe(rec1)
	d.Subscribe(rec2)

	d.Record("addr-1", "causeError()", "mailbox overflow", nil)

	assert.Equal(t, 1, rec1.Len())
	assert.Equal(t, 1, rec2.Len())
	assert.Equal(t, uint64(1), d.Total())
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	d := New()
	rec := NewRecorder()
	sub := d.Subscribe(rec)
	d.Unsubscribe(sub)

	d.Record("addr-1", "msg", "actor stopped", nil)
	assert.Equal(t, 0, rec.Len())
}

func TestRecorderSearchBySubstring(t *testing.T) {
	d := New()
	rec := NewRecorder()
	d.Subscribe(rec)

	d.Record("addr-1", "causeError()", "mailbox overflow", nil)
	d.Record("addr-2", "increment", "actor stopped", nil)

	found := rec.Search("causeError")
	assert.Len(t, found, 1)
	assert.Equal(t, "addr-1", found[0].Target)
}

func TestEachDropProducesExactlyOneEntry(t *testing.T) {
	d := New()
	rec := NewRecorder()
	d.Subscribe(rec)

	for i := 0; i < 4; i++ {
		d.Record("addr", i, "mailbox overflow", nil)
	}
	assert.Equal(t, 4, rec.Len())
}
