/*
Package synchronizer keeps track of the head of the chain.

The relay doesn't process blocks: every tick it only needs the height and
the timestamp of the head, which is the time against which the drand
rounds and the sequencer windows are evaluated.
*/
package synchronizer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"randomness-relay/common"
	"randomness-relay/eth"
	"randomness-relay/log"
	"randomness-relay/metric"
)

// Stats of the synchronizer
type Stats struct {
	Eth struct {
		LastBlock common.Block
		// Updated is the local time of the last successful sync
		Updated time.Time
		// Errors is the number of consecutive failed syncs
		Errors int
	}
}

// Synced returns true if the head was read at most maxAge ago
func (s *Stats) Synced(maxAge time.Duration) bool {
	return !s.Eth.Updated.IsZero() && time.Since(s.Eth.Updated) <= maxAge
}

// StatsHolder stores stats and that allows reading and writing them
// concurrently
type StatsHolder struct {
	Stats
	rw sync.RWMutex
}

// NewStatsHolder creates a new StatsHolder
func NewStatsHolder() *StatsHolder {
	return &StatsHolder{}
}

// UpdateEth updates the ethereum stats with a new head
func (s *StatsHolder) UpdateEth(lastBlock *common.Block) {
	now := time.Now()
	s.rw.Lock()
	s.Eth.LastBlock = *lastBlock
	s.Eth.Updated = now
	s.Eth.Errors = 0
	s.rw.Unlock()
}

// UpdateError records a failed sync
func (s *StatsHolder) UpdateError() {
	s.rw.Lock()
	s.Eth.Errors++
	s.rw.Unlock()
}

// CopyStats returns a copy of the inner Stats
func (s *StatsHolder) CopyStats() *Stats {
	s.rw.RLock()
	sCopy := s.Stats
	s.rw.RUnlock()
	return &sCopy
}

// Synchronizer reads the head of the chain
type Synchronizer struct {
	EthClient eth.EthereumInterface
	stats     *StatsHolder
}

// NewSynchronizer creates a new Synchronizer
func NewSynchronizer(ethClient eth.EthereumInterface) *Synchronizer {
	return &Synchronizer{
		EthClient: ethClient,
		stats:     NewStatsHolder(),
	}
}

// Stats returns a copy of the Synchronizer Stats.  It is safe to call it
// concurrently.
func (s *Synchronizer) Stats() *Stats {
	return s.stats.CopyStats()
}

// Sync reads the current head.  A head whose timestamp is older than the
// previous one (a reorg to a shorter chain, or a lagging node behind a load
// balancer) is returned but logged, the scans are idempotent so moving
// back in time is harmless.
func (s *Synchronizer) Sync(ctx context.Context) (*common.Block, error) {
	block, err := s.EthClient.EthBlockByNumber(ctx, -1)
	if err != nil {
		s.stats.UpdateError()
		return nil, common.Wrap(fmt.Errorf("EthBlockByNumber: %w", err))
	}
	prev := s.stats.CopyStats().Eth.LastBlock
	if prev.Num != 0 && block.Timestamp.Before(prev.Timestamp) {
		metric.TimeRegressions.Inc()
		log.Warnw("Synchronizer: head moved back in time",
			"prevBlock", prev.Num, "prevTime", prev.Timestamp,
			"block", block.Num, "time", block.Timestamp)
	}
	s.stats.UpdateEth(block)
	metric.EthLastBlockNum.Set(float64(block.Num))
	metric.EthLastBlockTimestamp.Set(float64(block.Timestamp.Unix()))
	log.Debugw("Synchronizer.Sync", "block", block.Num, "timestamp", block.Unix())
	return block, nil
}
