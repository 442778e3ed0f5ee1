/*
Package coordinator drives the randomness oracles.

The Coordinator runs a single goroutine that ticks every TickInterval.  Each
tick reads the head of the chain and runs these phases, in order:

  - Backfill: the drand rounds up to the head that are missing in the
    DrandOracle are fetched from the beacon and enqueued, and the
    sequencer commitments of the upcoming timestamps are enqueued.
  - Queue drain: the TxManager sends the queued txs one at a time and
    waits for their receipt.
  - Reveal: the commitments whose reveal window is open are revealed.

Everything is idempotent: every scan reads the chain before enqueuing, the
Cache remembers what's already on chain, and a tx rejected because the
value was already set counts as done.  This allows several relays to run
against the same contracts, and the relay to be restarted at any point.

Txs sent and not yet resolved are kept in a Journal.  On the first tick
after a start, the Journal is loaded back into the Queue and the cache is
rebuilt from the chain before sending anything.
*/
package coordinator

import (
	"context"
	"sync"
	"time"

	"randomness-relay/cache"
	"randomness-relay/common"
	"randomness-relay/drand"
	"randomness-relay/eth"
	"randomness-relay/log"
	"randomness-relay/metric"
	"randomness-relay/synchronizer"
)

const queueLen = 16

// SequencerConfig is the configuration of the sequencer commit-reveal.
// Durations are in seconds.
type SequencerConfig struct {
	// Seed is the secret from which the pre-images are derived
	Seed []byte
	// Interval between sequencer timestamps
	Interval uint64
	// CommitMargin is the extra time over PrecommitDelay before a
	// timestamp is committed, to absorb the time it takes to mine the tx
	CommitMargin uint64
	// CommitHorizon is the length of the window of timestamps committed
	// ahead
	CommitHorizon uint64
	// RevealDelay is the time after the timestamp to wait before revealing
	RevealDelay uint64
	// PrecommitDelay is the minimum time between a commitment and its
	// timestamp, as enforced by the SequencerRandomOracle
	PrecommitDelay uint64
	// Timeout is the time after the timestamp at which a reveal is no
	// longer accepted by the SequencerRandomOracle
	Timeout uint64
}

// BackfillConfig is the configuration of the drand backfill
type BackfillConfig struct {
	// Lookback is the time before the head at which the backfill starts
	// when StartTimestamp is 0, in seconds
	Lookback uint64
	// StartTimestamp is the timestamp at which the backfill starts
	StartTimestamp uint64
	// MaxChainReadsPerTick bounds the oracle reads of a drand scan
	MaxChainReadsPerTick int
	// MaxFetchesPerTick bounds the beacon requests of a drand scan
	MaxFetchesPerTick int
}

// Config contains the Coordinator configuration
type Config struct {
	// TickInterval is the time between ticks
	TickInterval time.Duration
	// MaxTxsPerTick is the maximum number of txs sent in a tick
	MaxTxsPerTick int
	// MaxAttempts is the number of transient failures after which a tx
	// is considered failed
	MaxAttempts int
	Backfill    BackfillConfig
	Sequencer   SequencerConfig
}

// Status is a snapshot of the state of the Coordinator
type Status struct {
	LastBlock   common.Block          `json:"lastBlock"`
	LastTick    time.Time             `json:"lastTick"`
	LastErr     string                `json:"lastError,omitempty"`
	Restored    bool                  `json:"restored"`
	QueueLen    int                   `json:"queueLength"`
	FailedLen   int                   `json:"failedLength"`
	DrandCursor uint64                `json:"drandCursor"`
	Processed   map[common.TxKind]int `json:"processed"`
}

// MsgRetryFailed asks the Coordinator to enqueue again the failed txs
type MsgRetryFailed struct{}

// Coordinator implements the Coordinator type
type Coordinator struct {
	cfg Config

	sync      *synchronizer.Synchronizer
	cache     *cache.Cache
	queue     *Queue
	journal   Journal
	txManager *TxManager
	backfill  *Backfiller
	reveals   *RevealAdvancer

	restored bool
	status   Status
	statusRW sync.RWMutex

	started bool
	msgCh   chan interface{}
	ctx     context.Context
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// NewCoordinator creates a new Coordinator.  recorder can be nil.
func NewCoordinator(cfg Config,
	ethClient eth.ClientInterface,
	beacon drand.Client,
	syncer *synchronizer.Synchronizer,
	cache *cache.Cache,
	journal Journal,
	recorder SubmissionRecorder,
) *Coordinator {
	queue := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		cfg:       cfg,
		sync:      syncer,
		cache:     cache,
		queue:     queue,
		journal:   journal,
		txManager: NewTxManager(&cfg, ethClient, queue, cache, journal, recorder),
		backfill:  NewBackfiller(&cfg, ethClient, beacon, queue, cache, journal),
		reveals:   NewRevealAdvancer(&cfg, ethClient, queue, cache),
		msgCh:     make(chan interface{}, queueLen),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Queue returns the transaction queue
func (c *Coordinator) Queue() *Queue {
	return c.queue
}

// Status returns a copy of the last published Status.  It is safe to call
// it concurrently.
func (c *Coordinator) Status() Status {
	c.statusRW.RLock()
	defer c.statusRW.RUnlock()
	status := c.status
	status.Processed = make(map[common.TxKind]int, len(c.status.Processed))
	for k, v := range c.status.Processed {
		status.Processed[k] = v
	}
	return status
}

// SendMsg is a thread safe method to pass a message to the Coordinator
func (c *Coordinator) SendMsg(ctx context.Context, msg interface{}) {
	select {
	case c.msgCh <- msg:
	case <-ctx.Done():
	}
}

func (c *Coordinator) handleMsg(msg interface{}) {
	switch msg.(type) {
	case MsgRetryFailed:
		c.RetryFailed()
	default:
		log.Fatalf("Coordinator Unexpected Coordinator msg of type %T: %+v", msg, msg)
	}
}

// RetryFailed moves the failed txs back to the queue.  It must be called
// from the Coordinator goroutine, or while it's stopped.
func (c *Coordinator) RetryFailed() int {
	retried := c.queue.RetryFailed()
	for _, tx := range retried {
		if err := c.journal.PutTx(tx); err != nil {
			log.Errorw("Coordinator: journal", "tx", tx, "err", err)
		}
	}
	metric.PersistentFailures.Set(float64(c.queue.FailedLen()))
	log.Infow("Coordinator: failed txs enqueued again", "count", len(retried))
	return len(retried)
}

// restore loads the journal into the queue and rebuilds the cache from the
// chain
func (c *Coordinator) restore(ctx context.Context, head *common.Block) error {
	txs, err := c.journal.Txs()
	if err != nil {
		return common.Wrap(err)
	}
	for _, tx := range txs {
		if tx.State == common.TxStatePersistentFailure {
			c.queue.MarkFailed(tx)
			continue
		}
		tx.State = common.TxStateEnqueued
		tx.Recovered = true
		c.queue.Push(tx)
	}
	if err := c.backfill.Drand(ctx, head, false); err != nil {
		return common.Wrap(err)
	}
	if err := c.backfill.Commitments(ctx, head, false); err != nil {
		return common.Wrap(err)
	}
	if err := c.reveals.Scan(ctx, head, false); err != nil {
		return common.Wrap(err)
	}
	log.Infow("Coordinator: state restored", "journal", len(txs),
		"failed", c.queue.FailedLen(), "drandCursor", c.backfill.DrandCursor())
	return nil
}

// Tick runs one iteration of the loop.  Errors of a phase are logged and
// don't prevent the next phases from running, except for a failed head
// read or restore.  The last error is returned.
func (c *Coordinator) Tick(ctx context.Context) error {
	start := time.Now()
	defer metric.MeasureDuration(metric.TickDuration, start)

	head, err := c.sync.Sync(ctx)
	if err != nil {
		log.Errorw("Coordinator: Synchronizer.Sync", "err", err)
		c.publish(nil, err)
		return common.Wrap(err)
	}
	if !c.restored {
		if err := c.restore(ctx, head); err != nil {
			log.Errorw("Coordinator: restore", "err", err)
			c.publish(head, err)
			return common.Wrap(err)
		}
		c.restored = true
	}

	var tickErr error
	if err := c.backfill.Drand(ctx, head, true); err != nil {
		log.Errorw("Coordinator: drand backfill", "err", err)
		tickErr = err
	}
	if err := c.backfill.Commitments(ctx, head, true); err != nil {
		log.Errorw("Coordinator: commitments backfill", "err", err)
		tickErr = err
	}
	if n, err := c.txManager.ProcessQueue(ctx, head); err != nil {
		log.Warnw("Coordinator: queue drain stopped", "done", n, "err", err)
		tickErr = err
	}
	if err := c.reveals.Scan(ctx, head, true); err != nil {
		log.Errorw("Coordinator: reveal scan", "err", err)
		tickErr = err
	}
	c.prune(head)
	c.publish(head, tickErr)
	return common.Wrap(tickErr)
}

// prune forgets the processed timestamps that are never scanned again
func (c *Coordinator) prune(head *common.Block) {
	if cursor := c.backfill.DrandCursor(); cursor > 0 {
		c.cache.Prune(common.TxKindDrand, cursor)
	}
	seq := &c.cfg.Sequencer
	if horizon := seq.Timeout + seq.Interval; head.Unix() > horizon {
		c.cache.Prune(common.TxKindCommitment, head.Unix()-horizon)
		c.cache.Prune(common.TxKindReveal, head.Unix()-horizon)
	}
}

func (c *Coordinator) publish(head *common.Block, err error) {
	result := "ok"
	c.statusRW.Lock()
	defer c.statusRW.Unlock()
	c.status.LastTick = time.Now()
	c.status.LastErr = ""
	if err != nil {
		result = "error"
		c.status.LastErr = common.Unwrap(err).Error()
	}
	if head != nil {
		c.status.LastBlock = *head
	}
	c.status.Restored = c.restored
	c.status.QueueLen = c.queue.Len()
	c.status.FailedLen = c.queue.FailedLen()
	c.status.DrandCursor = c.backfill.DrandCursor()
	c.status.Processed = make(map[common.TxKind]int, len(common.TxKinds))
	for _, kind := range common.TxKinds {
		c.status.Processed[kind] = c.cache.Len(kind)
	}
	metric.Ticks.WithLabelValues(result).Inc()
	metric.QueueLength.Set(float64(c.status.QueueLen))
	metric.PersistentFailures.Set(float64(c.status.FailedLen))
}

// Start the coordinator
func (c *Coordinator) Start() {
	if c.started {
		log.Fatal("Coordinator already started")
	}
	c.started = true

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.cfg.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-c.ctx.Done():
				log.Info("Coordinator done")
				return
			case msg := <-c.msgCh:
				c.handleMsg(msg)
			case <-ticker.C:
				// A started tick runs to completion
				_ = c.Tick(context.WithoutCancel(c.ctx))
			}
		}
	}()
}

// Stop the coordinator
func (c *Coordinator) Stop() {
	if !c.started {
		log.Fatal("Coordinator already stopped")
	}
	c.started = false
	log.Infow("Stopping Coordinator...")
	c.cancel()
	c.wg.Wait()
}
