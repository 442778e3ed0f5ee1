package coordinator

import (
	"context"
	"fmt"

	"randomness-relay/cache"
	"randomness-relay/common"
	"randomness-relay/drand"
	"randomness-relay/eth"
	"randomness-relay/log"
	"randomness-relay/metric"
)

// Backfiller finds the drand rounds and the sequencer commitments missing
// on chain and enqueues the txs that record them.  The scans are
// idempotent: the chain is read before enqueuing anything, and timestamps
// already processed or queued are skipped.
type Backfiller struct {
	cfg       Config
	ethClient eth.ClientInterface
	beacon    drand.Client
	queue     *Queue
	cache     *cache.Cache
	cursors   CursorStore
	// nextRound is the first drand round not known to be on chain.  All
	// the rounds before it, starting at the backfill start, are on chain.
	nextRound uint64
}

// CursorStore persists the drand backfill cursor across restarts.  It's
// implemented by kvdb.KVDB.
type CursorStore interface {
	PutDrandCursor(timestamp uint64) error
	DrandCursor() (uint64, error)
}

// NewBackfiller creates a new Backfiller
func NewBackfiller(cfg *Config, ethClient eth.ClientInterface, beacon drand.Client,
	queue *Queue, cache *cache.Cache, cursors CursorStore) *Backfiller {
	return &Backfiller{
		cfg:       *cfg,
		ethClient: ethClient,
		beacon:    beacon,
		queue:     queue,
		cache:     cache,
		cursors:   cursors,
	}
}

// DrandCursor returns the timestamp of the first drand round that is not
// known to be on chain, 0 before the first scan
func (b *Backfiller) DrandCursor() uint64 {
	if b.nextRound == 0 {
		return 0
	}
	return b.beacon.Info().TimeOfRound(b.nextRound)
}

// initCursor starts the scan at the backfill start, or at the stored
// cursor when it's earlier
func (b *Backfiller) initCursor(info *drand.ChainInfo, head uint64) error {
	start := b.cfg.Backfill.StartTimestamp
	if start == 0 && head > b.cfg.Backfill.Lookback {
		start = head - b.cfg.Backfill.Lookback
	}
	round := info.RoundAt(start)
	if round == 0 {
		round = 1
	}
	stored, err := b.cursors.DrandCursor()
	if err != nil {
		return common.Wrap(fmt.Errorf("DrandCursor: %w", err))
	}
	if stored != 0 && stored >= b.cfg.Backfill.StartTimestamp {
		if storedRound := info.RoundAt(stored); storedRound != 0 && storedRound < round {
			round = storedRound
		}
	}
	b.nextRound = round
	log.Infow("Backfiller: drand backfill starts", "round", b.nextRound,
		"timestamp", info.TimeOfRound(b.nextRound), "storedCursor", stored)
	return nil
}

// Drand walks the drand rounds from the cursor up to the head.  Rounds
// missing on chain are fetched from the beacon and enqueued, unless
// enqueue is false, in which case only the chain is read.  A chain read
// error aborts the scan.  Beacon errors end the scan for this tick
// without an error.
func (b *Backfiller) Drand(ctx context.Context, head *common.Block, enqueue bool) error {
	info := b.beacon.Info()
	headTs := head.Unix()
	if b.nextRound == 0 {
		if err := b.initCursor(info, headTs); err != nil {
			return common.Wrap(err)
		}
	}
	defer b.advanceCursor(info, headTs)

	reads, fetches := 0, 0
	for round := b.nextRound; info.TimeOfRound(round) <= headTs; round++ {
		ts := info.TimeOfRound(round)
		key := common.TxKey{Kind: common.TxKindDrand, Timestamp: ts}
		if b.cache.IsProcessed(key.Kind, ts) || b.queue.Contains(key) {
			continue
		}
		if reads >= b.cfg.Backfill.MaxChainReadsPerTick {
			break
		}
		reads++
		value, err := b.ethClient.DrandOracleDrand(ctx, ts)
		if err != nil {
			metric.ChainReadErrors.WithLabelValues(string(common.TxKindDrand)).Inc()
			return common.Wrap(fmt.Errorf("DrandOracleDrand(%d): %w", ts, err))
		}
		if value != nil {
			b.cache.MarkProcessed(common.TxKindDrand, ts)
			continue
		}
		if !enqueue {
			continue
		}
		if fetches >= b.cfg.Backfill.MaxFetchesPerTick {
			break
		}
		fetches++
		drandRound, err := b.beacon.Round(ctx, round)
		if drand.IsErrRoundNotAvailable(err) {
			log.Debugw("Backfiller: drand round not available yet", "round", round)
			break
		} else if err != nil {
			metric.BeaconErrors.Inc()
			log.Warnw("Backfiller: drand fetch failed", "round", round, "err", err)
			break
		}
		roundValue, err := drandRound.Value()
		if err != nil {
			metric.BeaconErrors.Inc()
			log.Warnw("Backfiller: invalid drand round", "round", round, "err", err)
			break
		}
		if b.queue.Push(common.NewQueuedTx(common.TxKindDrand, ts, roundValue)) {
			metric.Enqueued.WithLabelValues(string(common.TxKindDrand)).Inc()
			log.Debugw("Backfiller: drand round enqueued", "round", round, "timestamp", ts)
		}
	}
	return nil
}

func (b *Backfiller) advanceCursor(info *drand.ChainInfo, head uint64) {
	prev := b.nextRound
	for info.TimeOfRound(b.nextRound) <= head &&
		b.cache.IsProcessed(common.TxKindDrand, info.TimeOfRound(b.nextRound)) {
		b.nextRound++
	}
	cursor := info.TimeOfRound(b.nextRound)
	metric.DrandCursor.Set(float64(cursor))
	if b.nextRound == prev {
		return
	}
	if err := b.cursors.PutDrandCursor(cursor); err != nil {
		log.Errorw("Backfiller: store drand cursor", "cursor", cursor, "err", err)
	}
}

// commitWindow returns the first and last sequencer timestamps that can be
// committed at head
func (b *Backfiller) commitWindow(head uint64) (uint64, uint64) {
	seq := &b.cfg.Sequencer
	from := head + seq.PrecommitDelay + seq.CommitMargin
	to := from + seq.CommitHorizon
	return alignUp(from, seq.Interval), to
}

// Commitments reads the commit phase of the sequencer timestamps in the
// commit window, and enqueues the commitments that are missing on chain,
// unless enqueue is false.
func (b *Backfiller) Commitments(ctx context.Context, head *common.Block, enqueue bool) error {
	from, to := b.commitWindow(head.Unix())
	for ts := from; ts <= to; ts += b.cfg.Sequencer.Interval {
		key := common.TxKey{Kind: common.TxKindCommitment, Timestamp: ts}
		if b.cache.IsProcessed(key.Kind, ts) || b.queue.Contains(key) {
			continue
		}
		info, err := b.ethClient.SequencerOracleCommitPhase(ctx, ts)
		if err != nil {
			metric.ChainReadErrors.WithLabelValues(string(common.TxKindCommitment)).Inc()
			return common.Wrap(fmt.Errorf("SequencerOracleCommitPhase(%d): %w", ts, err))
		}
		switch info.Phase {
		case common.CommitPhaseRevealed:
			b.cache.MarkProcessed(common.TxKindReveal, ts)
			b.cache.SetRandomness(ts, info.Value)
			fallthrough
		case common.CommitPhaseCommitted:
			b.cache.MarkProcessed(common.TxKindCommitment, ts)
			continue
		}
		if !enqueue {
			continue
		}
		commitment := common.SequencerCommitment(common.SequencerPreimage(b.cfg.Sequencer.Seed, ts))
		if b.queue.Push(common.NewQueuedTx(common.TxKindCommitment, ts, commitment)) {
			metric.Enqueued.WithLabelValues(string(common.TxKindCommitment)).Inc()
			log.Debugw("Backfiller: commitment enqueued", "timestamp", ts)
		}
	}
	return nil
}

// alignUp returns the lowest multiple of interval greater or equal than ts
func alignUp(ts, interval uint64) uint64 {
	if interval == 0 {
		return ts
	}
	return (ts + interval - 1) / interval * interval
}
