package internal

import (
	"hash/fnv"
	"sync"
)

const keyedMutexShards = 64

// KeyedMutex serializes critical sections per string key using a fixed shard
// table, bounding both memory and contention. Two keys may share a shard;
// that only costs throughput, never correctness.
type KeyedMutex struct {
	shards [keyedMutexShards]sync.Mutex
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{}
}

func (m *KeyedMutex) shard(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &m.shards[h.Sum32()%keyedMutexShards]
}

// Lock acquires the shard lock for key.
func (m *KeyedMutex) Lock(key string) {
	m.shard(key).Lock()
}

// Unlock releases the shard lock for key.
func (m *KeyedMutex) Unlock(key string) {
	m.shard(key).Unlock()
}
