package coordinator

import (
	"context"
	"fmt"

	"randomness-relay/cache"
	"randomness-relay/common"
	"randomness-relay/eth"
	"randomness-relay/log"
	"randomness-relay/metric"
)

// RevealAdvancer enqueues the reveal of the sequencer commitments whose
// reveal window is open
type RevealAdvancer struct {
	cfg       Config
	ethClient eth.ClientInterface
	queue     *Queue
	cache     *cache.Cache
}

// NewRevealAdvancer creates a new RevealAdvancer
func NewRevealAdvancer(cfg *Config, ethClient eth.ClientInterface, queue *Queue,
	cache *cache.Cache) *RevealAdvancer {
	return &RevealAdvancer{
		cfg:       *cfg,
		ethClient: ethClient,
		queue:     queue,
		cache:     cache,
	}
}

// revealWindow returns the first and last sequencer timestamps that can be
// revealed at head: T + RevealDelay <= head < T + Timeout.  ok is false when
// the window is empty.
func (r *RevealAdvancer) revealWindow(head uint64) (from, to uint64, ok bool) {
	seq := &r.cfg.Sequencer
	if head < seq.RevealDelay {
		return 0, 0, false
	}
	to = head - seq.RevealDelay
	if head+1 > seq.Timeout {
		from = head + 1 - seq.Timeout
	}
	from = alignUp(from, seq.Interval)
	return from, to, from <= to
}

// Scan reads the commit phase of the timestamps in the reveal window and
// enqueues the reveals of the committed ones, unless enqueue is false
func (r *RevealAdvancer) Scan(ctx context.Context, head *common.Block, enqueue bool) error {
	headTs := head.Unix()
	from, to, ok := r.revealWindow(headTs)
	if !ok {
		return nil
	}
	seq := &r.cfg.Sequencer
	for ts := from; ts <= to; ts += seq.Interval {
		key := common.TxKey{Kind: common.TxKindReveal, Timestamp: ts}
		if r.cache.IsProcessed(key.Kind, ts) || r.queue.Contains(key) {
			continue
		}
		info, err := r.ethClient.SequencerOracleCommitPhase(ctx, ts)
		if err != nil {
			metric.ChainReadErrors.WithLabelValues(string(common.TxKindReveal)).Inc()
			return common.Wrap(fmt.Errorf("SequencerOracleCommitPhase(%d): %w", ts, err))
		}
		switch info.Phase {
		case common.CommitPhaseRevealed:
			r.cache.MarkProcessed(common.TxKindCommitment, ts)
			r.cache.MarkProcessed(common.TxKindReveal, ts)
			r.cache.SetRandomness(ts, info.Value)
			continue
		case common.CommitPhasePending:
			if headTs+seq.PrecommitDelay > ts {
				// Too late to be committed by anyone
				r.cache.MarkProcessed(common.TxKindReveal, ts)
			}
			continue
		}
		r.cache.MarkProcessed(common.TxKindCommitment, ts)
		preimage := common.SequencerPreimage(seq.Seed, ts)
		if common.SequencerCommitment(preimage) != info.Commitment {
			log.Warnw("RevealAdvancer: commitment not posted by this seed, abandoning round",
				"timestamp", ts, "commitment", info.Commitment.Hex())
			metric.AbandonedReveals.Inc()
			r.cache.MarkProcessed(common.TxKindReveal, ts)
			continue
		}
		if !enqueue {
			continue
		}
		if r.queue.Push(common.NewQueuedTx(common.TxKindReveal, ts, preimage)) {
			metric.Enqueued.WithLabelValues(string(common.TxKindReveal)).Inc()
			log.Debugw("RevealAdvancer: reveal enqueued", "timestamp", ts)
		}
	}
	return nil
}
