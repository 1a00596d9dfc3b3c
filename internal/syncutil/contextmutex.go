// Package syncutil provides in-process synchronization helpers.
package syncutil

import (
	"context"
	"hash/fnv"
	"sync"
)

// ContextShardedMutex hashes keys onto a fixed pool of channel-based
// locks. Waiters can abandon acquisition when their context is
// cancelled, so a stuck request cannot pin the queue for a key. The
// ingest pipeline uses it to serialize same-user profile cycles.
type ContextShardedMutex struct {
	shards [256]chanMutex
	once   sync.Once
}

// chanMutex is a one-slot channel used as a lock, so acquisition can be
// raced against ctx.Done() in a select.
type chanMutex struct {
	ch chan struct{}
}

// NewContextShardedMutex returns a pool with every shard unlocked.
func NewContextShardedMutex() *ContextShardedMutex {
	m := &ContextShardedMutex{}
	m.init()
	return m
}

func (m *ContextShardedMutex) init() {
	m.once.Do(func() {
		for i := range m.shards {
			m.shards[i].ch = make(chan struct{}, 1)
			m.shards[i].ch <- struct{}{} // Start unlocked.
		}
	})
}

// LockContext acquires the shard for key and returns an unlock function
// the caller must invoke. If the context is cancelled while waiting, it
// returns nil and the context error.
func (m *ContextShardedMutex) LockContext(ctx context.Context, key string) (func(), error) {
	m.init()
	shard := &m.shards[m.shardIdx(key)]

	select {
	case <-shard.ch:
		return func() { shard.ch <- struct{}{} }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *ContextShardedMutex) shardIdx(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % 256
}
