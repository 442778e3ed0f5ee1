/*
Package cache implements the in memory deduplication state of the relay.

It remembers, per transaction kind, the timestamps already recorded on
chain, and keeps the latest sequencer values.  The chain is the source of
truth: the cache only saves reads and submissions, and it can be rebuilt
from the chain after a restart.
*/
package cache

import (
	"sort"
	"sync"

	"randomness-relay/common"

	ethCommon "github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache is the deduplication cache.  It's written by the coordinator loop
// only, but it can be read concurrently (by the API).
type Cache struct {
	rw         sync.RWMutex
	processed  map[common.TxKind]map[uint64]struct{}
	randomness *lru.Cache[uint64, ethCommon.Hash]
}

// NewCache creates a Cache that keeps up to randomnessSize sequencer values
func NewCache(randomnessSize int) (*Cache, error) {
	randomness, err := lru.New[uint64, ethCommon.Hash](randomnessSize)
	if err != nil {
		return nil, common.Wrap(err)
	}
	processed := make(map[common.TxKind]map[uint64]struct{}, len(common.TxKinds))
	for _, kind := range common.TxKinds {
		processed[kind] = make(map[uint64]struct{})
	}
	return &Cache{
		processed:  processed,
		randomness: randomness,
	}, nil
}

// MarkProcessed records that the operation kind of timestamp is on chain
func (c *Cache) MarkProcessed(kind common.TxKind, timestamp uint64) {
	c.rw.Lock()
	defer c.rw.Unlock()
	c.processed[kind][timestamp] = struct{}{}
}

// IsProcessed returns true if the operation kind of timestamp is known to be
// on chain
func (c *Cache) IsProcessed(kind common.TxKind, timestamp uint64) bool {
	c.rw.RLock()
	defer c.rw.RUnlock()
	_, ok := c.processed[kind][timestamp]
	return ok
}

// Processed returns the sorted processed timestamps of kind
func (c *Cache) Processed(kind common.TxKind) []uint64 {
	c.rw.RLock()
	defer c.rw.RUnlock()
	timestamps := make([]uint64, 0, len(c.processed[kind]))
	for ts := range c.processed[kind] {
		timestamps = append(timestamps, ts)
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })
	return timestamps
}

// Len returns the number of processed timestamps of kind
func (c *Cache) Len(kind common.TxKind) int {
	c.rw.RLock()
	defer c.rw.RUnlock()
	return len(c.processed[kind])
}

// Prune forgets the processed timestamps of kind lower than before.  Only
// timestamps that are never scanned again can be pruned, otherwise they
// would be read from the chain again.
func (c *Cache) Prune(kind common.TxKind, before uint64) int {
	c.rw.Lock()
	defer c.rw.Unlock()
	n := 0
	for ts := range c.processed[kind] {
		if ts < before {
			delete(c.processed[kind], ts)
			n++
		}
	}
	return n
}

// SetRandomness stores the final sequencer value of timestamp
func (c *Cache) SetRandomness(timestamp uint64, value ethCommon.Hash) {
	c.randomness.Add(timestamp, value)
}

// Randomness returns the sequencer value of timestamp if it's cached
func (c *Cache) Randomness(timestamp uint64) (ethCommon.Hash, bool) {
	return c.randomness.Get(timestamp)
}

// RandomnessLen returns the number of cached sequencer values
func (c *Cache) RandomnessLen() int {
	return c.randomness.Len()
}
