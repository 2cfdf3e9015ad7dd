package notify

import (
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// registry is a lock-striped multimap from key to live subscriptions.
// Slices stored in a shard are never mutated in place: writers build a new
// slice, so a snapshot handed to Publish stays valid without any lock.
type registry struct {
	shards []*shard
}

type shard struct {
	mu   sync.RWMutex
	subs map[string][]*Subscription
}

func newRegistry(n int) *registry {
	if n <= 0 {
		n = DefaultShards
	}
	r := &registry{shards: make([]*shard, n)}
	for i := range r.shards {
		r.shards[i] = &shard{subs: make(map[string][]*Subscription)}
	}
	return r
}

func (r *registry) shardFor(key string) *shard {
	return r.shards[xxhash.Sum64String(key)%uint64(len(r.shards))]
}

func (r *registry) add(s *Subscription) {
	sh := r.shardFor(s.key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	cur := sh.subs[s.key]
	next := make([]*Subscription, len(cur), len(cur)+1)
	copy(next, cur)
	sh.subs[s.key] = append(next, s)
}

// remove reports whether s was present.
func (r *registry) remove(s *Subscription) bool {
	sh := r.shardFor(s.key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	cur := sh.subs[s.key]
	i := slices.Index(cur, s)
	if i < 0 {
		return false
	}
	if len(cur) == 1 {
		delete(sh.subs, s.key)
		return true
	}

	next := make([]*Subscription, 0, len(cur)-1)
	next = append(next, cur[:i]...)
	next = append(next, cur[i+1:]...)
	sh.subs[s.key] = next
	return true
}

// snapshot returns the subscriptions of key at this instant.
// The returned slice must not be modified.
func (r *registry) snapshot(key string) []*Subscription {
	sh := r.shardFor(key)
	sh.mu.RLock()
	subs := sh.subs[key]
	sh.mu.RUnlock()
	return subs
}

func (r *registry) count(key string) int {
	return len(r.snapshot(key))
}

// totals returns the number of keys with at least one subscription and the
// number of live subscriptions.
func (r *registry) totals() (keys, subs int) {
	for _, sh := range r.shards {
		sh.mu.RLock()
		keys += len(sh.subs)
		for _, list := range sh.subs {
			subs += len(list)
		}
		sh.mu.RUnlock()
	}
	return keys, subs
}

// all returns every live subscription.
func (r *registry) all() []*Subscription {
	var out []*Subscription
	for _, sh := range r.shards {
		sh.mu.RLock()
		for _, list := range sh.subs {
			out = append(out, list...)
		}
		sh.mu.RUnlock()
	}
	return out
}
