package directory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFreshDirectoryIsEmpty(t *testing.T) {
	d := New(DefaultConfig())
	assert.Equal(t, 0, d.Size())
	assert.Len(t, d.Stats(), DefaultConfig().Buckets)
	for _, n := range d.Stats() {
		assert.Zero(t, n)
	}
}

func TestPutGetRemove(t *testing.T) {
	d := New(SmallConfig())

	d.Put("a1", "actor-a1")
	v, ok := d.Get("a1")
	assert.True(t, ok)
	assert.Equal(t, "actor-a1", v)

	assert.True(t, d.Remove("a1"))
	assert.False(t, d.Remove("a1"), "removing twice reports absence")

	_, ok = d.Get("a1")
	assert.False(t, ok)
}

func TestPutOverwrites(t *testing.T) {
	d := New(SmallConfig())
	d.Put("a1", "v1")
	d.Put("a1", "v2")

	v, ok := d.Get("a1")
	assert.True(t, ok)
	assert.Equal(t, "v2", v)
	assert.Equal(t, 1, d.Size())
}

func TestDistributionAcrossShards(t *testing.T) {
	d := New(Config{Buckets: 8, InitialCapacityPerBucket: 4})
	for i := 0; i < 1000; i++ {
		d.Put(fmt.Sprintf("addr-%d", i), i)
	}
	assert.Equal(t, 1000, d.Size())

	stats := d.Stats()
	assert.Len(t, stats, 8)
	for _, n := range stats {
		assert.Greater(t, n, 0, "every shard should receive some entries with 1000 keys over 8 shards")
	}
}

func TestPresets(t *testing.T) {
	assert.Less(t, SmallConfig().Buckets, DefaultConfig().Buckets)
	assert.Less(t, DefaultConfig().Buckets, HighCapacityConfig().Buckets)
}
