// Package directory implements the sharded Address→actor lookup described in
// spec.md §3/§4.1: O(1)-average get/put/remove/size/stats over a
// configurable number of shards, scaling to tens of thousands of live
// actors without a single global lock.
package directory

import (
	"sync"
)

// Config configures a Directory's shard count and per-bucket capacity hint
// (spec.md §6).
type Config struct {
	Buckets                 int
	InitialCapacityPerBucket int
}

// DefaultConfig is a reasonable general-purpose preset.
func DefaultConfig() Config { return Config{Buckets: 32, InitialCapacityPerBucket: 16} }

// SmallConfig suits short-lived stages (unit tests, small tools).
func SmallConfig() Config { return Config{Buckets: 4, InitialCapacityPerBucket: 8} }

// HighCapacityConfig suits stages expected to host tens of thousands of
// actors.
func HighCapacityConfig() Config { return Config{Buckets: 256, InitialCapacityPerBucket: 64} }

func (c Config) normalized() Config {
	if c.Buckets < 1 {
		c.Buckets = 1
	}
	if c.InitialCapacityPerBucket < 1 {
		c.InitialCapacityPerBucket = 1
	}
	return c
}

// Hasher computes the shard key for an address string. New always installs
// Directory's own fnv64a, the same function address.Address.Hash computes.
type Hasher func(key string) uint64

func fnv64a(s string) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}

type shard struct {
	mu      sync.RWMutex
	buckets map[string]interface{}
}

// Directory is a two-level structure: shards[H(key) mod N] is a bucket
// mapping address strings to actor handles. Actor is stored as
// interface{} so this package has no dependency on the actor package —
// callers narrow the type on Get.
type Directory struct {
	shards []*shard
	hash   Hasher
}

// New constructs a Directory per cfg. A fresh Directory reports size 0 and
// an empty distribution of length cfg.Buckets.
func New(cfg Config) *Directory {
	cfg = cfg.normalized()
	d := &Directory{
		shards: make([]*shard, cfg.Buckets),
		hash:   fnv64a,
	}
	for i := range d.shards {
		d.shards[i] = &shard{buckets: make(map[string]interface{}, cfg.InitialCapacityPerBucket)}
	}
	return d
}

func (d *Directory) shardFor(key string) *shard {
	idx := d.hash(key) % uint64(len(d.shards))
	return d.shards[idx]
}

// Put inserts or overwrites the actor handle registered for key.
func (d *Directory) Put(key string, actor interface{}) {
	s := d.shardFor(key)
	s.mu.Lock()
	s.buckets[key] = actor
	s.mu.Unlock()
}

// Get returns the actor handle registered for key, if any.
func (d *Directory) Get(key string) (interface{}, bool) {
	s := d.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.buckets[key]
	return v, ok
}

// Remove deletes key's entry, reporting whether it existed.
func (d *Directory) Remove(key string) bool {
	s := d.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.buckets[key]
	if ok {
		delete(s.buckets, key)
	}
	return ok
}

// Size returns the total number of registered entries across all shards.
func (d *Directory) Size() int {
	total := 0
	for _, s := range d.shards {
		s.mu.RLock()
		total += len(s.buckets)
		s.mu.RUnlock()
	}
	return total
}

// Stats returns, for each shard in order, the number of entries it holds.
// Its length always equals the configured bucket count, even for a fresh
// Directory.
func (d *Directory) Stats() []int {
	out := make([]int, len(d.shards))
	for i, s := range d.shards {
		s.mu.RLock()
		out[i] = len(s.buckets)
		s.mu.RUnlock()
	}
	return out
}
