package coordinator

import (
	"context"
	"fmt"
	"time"

	"randomness-relay/cache"
	"randomness-relay/common"
	"randomness-relay/eth"
	"randomness-relay/log"
	"randomness-relay/metric"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// errTransient is returned by ProcessQueue when it stops draining the queue
// due to an error that will be retried in the next tick
var errTransient = fmt.Errorf("transient failure")

// Journal stores the txs whose outcome is not known yet, so that they can
// be checked after a restart, and the drand backfill cursor.  It's
// implemented by kvdb.KVDB.
type Journal interface {
	CursorStore
	PutTx(tx *common.QueuedTx) error
	DeleteTx(key common.TxKey) error
	Txs() ([]*common.QueuedTx, error)
}

// SubmissionRecorder stores the outcome of every submission.  It's
// implemented by historydb.HistoryDB.
type SubmissionRecorder interface {
	AddSubmission(submission *common.Submission) error
}

// TxManager handles everything related to ethereum transactions:  It sends
// the queued txs one at a time, waits for their receipt and classifies the
// outcome.
type TxManager struct {
	cfg       Config
	ethClient eth.ClientInterface
	queue     *Queue
	cache     *cache.Cache
	journal   Journal
	recorder  SubmissionRecorder
}

// NewTxManager creates a new TxManager.  recorder can be nil.
func NewTxManager(cfg *Config, ethClient eth.ClientInterface, queue *Queue,
	cache *cache.Cache, journal Journal, recorder SubmissionRecorder) *TxManager {
	return &TxManager{
		cfg:       *cfg,
		ethClient: ethClient,
		queue:     queue,
		cache:     cache,
		journal:   journal,
		recorder:  recorder,
	}
}

// ProcessQueue sends up to MaxTxsPerTick txs from the head of the queue,
// one at a time.  It stops at the first transient failure, leaving the tx
// at the head of the queue for the next tick.  It returns the number of txs
// that reached a final outcome.
func (t *TxManager) ProcessQueue(ctx context.Context, head *common.Block) (int, error) {
	done := 0
	for i := 0; i < t.cfg.MaxTxsPerTick; i++ {
		tx, err := t.queue.Peek()
		if common.Unwrap(err) == common.ErrQueueEmpty {
			break
		}
		if err := t.process(ctx, tx, head); err != nil {
			return done, common.Wrap(err)
		}
		done++
	}
	metric.QueueLength.Set(float64(t.queue.Len()))
	return done, nil
}

func (t *TxManager) process(ctx context.Context, tx *common.QueuedTx, head *common.Block) error {
	if t.cache.IsProcessed(tx.Kind, tx.Timestamp) {
		log.Debugw("TxManager: tx already processed", "tx", tx)
		return t.complete(tx, common.TxStateConfirmed, head)
	}
	if tx.Attempts > 0 || tx.Recovered {
		// A previous attempt may have been mined
		onChain, err := t.onChain(ctx, tx)
		if err != nil {
			log.Warnw("TxManager: chain check failed", "tx", tx, "err", err)
			return common.Wrap(errTransient)
		}
		if onChain {
			log.Infow("TxManager: tx found on chain", "tx", tx)
			return t.complete(tx, common.TxStateConfirmed, head)
		}
	}

	t.queue.Update(func() {
		tx.State = common.TxStateSubmitted
		tx.Recovered = false
	})
	if err := t.journal.PutTx(tx); err != nil {
		log.Errorw("TxManager: journal", "tx", tx, "err", err)
		t.queue.Update(func() { tx.State = common.TxStateEnqueued })
		return common.Wrap(errTransient)
	}

	ethTx, err := t.send(ctx, tx)
	if err == nil || eth.IsExecutionReverted(err) {
		metric.TxsSent.WithLabelValues(string(tx.Kind)).Inc()
	}
	if eth.IsExecutionReverted(err) {
		return t.reverted(ctx, tx, err, head)
	} else if err != nil {
		return t.fail(tx, err, head)
	}

	t.queue.Update(func() { tx.EthTxHash = ethTx.Hash() })
	if err := t.journal.PutTx(tx); err != nil {
		log.Errorw("TxManager: journal", "tx", tx, "err", err)
	}
	log.Infow("TxManager: tx sent", "tx", tx, "ethTx", ethTx.Hash().Hex())

	start := time.Now()
	receipt, err := t.ethClient.EthWaitReceipt(ctx, ethTx.Hash())
	metric.MeasureDuration(metric.WaitReceipt, start, string(tx.Kind))
	if err != nil {
		return t.fail(tx, err, head)
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return t.reverted(ctx, tx, fmt.Errorf("tx %s failed in block %v",
			ethTx.Hash().Hex(), receipt.BlockNumber), head)
	}
	log.Infow("TxManager: tx confirmed",
		"tx", tx, "ethTx", ethTx.Hash().Hex(), "block", receipt.BlockNumber)
	return t.complete(tx, common.TxStateConfirmed, head)
}

func (t *TxManager) send(ctx context.Context, tx *common.QueuedTx) (*types.Transaction, error) {
	switch tx.Kind {
	case common.TxKindDrand:
		return t.ethClient.DrandOracleSetDrand(ctx, tx.Timestamp, tx.Value)
	case common.TxKindCommitment:
		return t.ethClient.SequencerOraclePostCommitment(ctx, tx.Timestamp, tx.Value)
	case common.TxKindReveal:
		return t.ethClient.SequencerOracleRevealValue(ctx, tx.Timestamp, tx.Value)
	default:
		return nil, common.Wrap(fmt.Errorf("unknown tx kind %q", tx.Kind))
	}
}

// onChain returns true if the operation of tx is already recorded on chain
func (t *TxManager) onChain(ctx context.Context, tx *common.QueuedTx) (bool, error) {
	switch tx.Kind {
	case common.TxKindDrand:
		value, err := t.ethClient.DrandOracleDrand(ctx, tx.Timestamp)
		if err != nil {
			return false, common.Wrap(err)
		}
		return value != nil, nil
	case common.TxKindCommitment, common.TxKindReveal:
		info, err := t.ethClient.SequencerOracleCommitPhase(ctx, tx.Timestamp)
		if err != nil {
			return false, common.Wrap(err)
		}
		if tx.Kind == common.TxKindCommitment {
			return info.Phase != common.CommitPhasePending, nil
		}
		return info.Phase == common.CommitPhaseRevealed, nil
	default:
		return false, common.Wrap(fmt.Errorf("unknown tx kind %q", tx.Kind))
	}
}

// reverted handles a tx rejected by the contract.  It's the expected
// outcome when someone else recorded the same value first, which is only
// trusted after reading it on chain.  Any other revert (out of gas, a
// window already closed) counts as a failed attempt.
func (t *TxManager) reverted(ctx context.Context, tx *common.QueuedTx, err error,
	head *common.Block) error {
	onChain, readErr := t.onChain(ctx, tx)
	if readErr != nil {
		log.Warnw("TxManager: chain check after revert failed", "tx", tx, "err", readErr)
		return t.fail(tx, err, head)
	}
	if !onChain {
		log.Warnw("TxManager: tx reverted and the value is not on chain", "tx", tx, "err", err)
		return t.fail(tx, err, head)
	}
	log.Infow("TxManager: tx reverted, value already set", "tx", tx, "err", err)
	return t.complete(tx, common.TxStateReverted, head)
}

// complete removes tx from the queue and the journal after a final
// outcome, and marks its operation as processed
func (t *TxManager) complete(tx *common.QueuedTx, state common.TxState, head *common.Block) error {
	if _, err := t.queue.Pop(); err != nil {
		return common.Wrap(err)
	}
	t.queue.Update(func() { tx.State = state })
	t.cache.MarkProcessed(tx.Kind, tx.Timestamp)
	if tx.Kind == common.TxKindReveal {
		t.cache.MarkProcessed(common.TxKindCommitment, tx.Timestamp)
		if state == common.TxStateConfirmed {
			t.cache.SetRandomness(tx.Timestamp, tx.Value)
		}
	}
	if err := t.journal.DeleteTx(tx.Key()); err != nil {
		log.Errorw("TxManager: journal delete", "tx", tx, "err", err)
	}
	metric.TxOutcomes.WithLabelValues(string(tx.Kind), string(state)).Inc()
	if tx.EthTxHash != (ethCommon.Hash{}) || state == common.TxStateReverted {
		t.record(tx, head)
	}
	return nil
}

// fail accounts a transient failure of tx.  After MaxAttempts the tx is
// moved to the failed list and stays in the journal.
func (t *TxManager) fail(tx *common.QueuedTx, err error, head *common.Block) error {
	t.queue.Update(func() {
		tx.Attempts++
		tx.LastErr = common.Unwrap(err).Error()
		tx.State = common.TxStateTransientFailure
	})
	if tx.Attempts >= t.cfg.MaxAttempts {
		log.Errorw("TxManager: tx failed persistently", "tx", tx,
			"attempts", tx.Attempts, "err", err)
		t.queue.MarkFailed(tx)
		metric.TxOutcomes.WithLabelValues(string(tx.Kind), string(tx.State)).Inc()
		metric.PersistentFailures.Set(float64(t.queue.FailedLen()))
		if err := t.journal.PutTx(tx); err != nil {
			log.Errorw("TxManager: journal", "tx", tx, "err", err)
		}
		t.record(tx, head)
		return nil
	}
	log.Warnw("TxManager: tx failed, will retry", "tx", tx,
		"attempts", tx.Attempts, "err", err)
	metric.TxOutcomes.WithLabelValues(string(tx.Kind), string(tx.State)).Inc()
	t.record(tx, head)
	t.queue.Update(func() { tx.State = common.TxStateEnqueued })
	if err := t.journal.PutTx(tx); err != nil {
		log.Errorw("TxManager: journal", "tx", tx, "err", err)
	}
	return common.Wrap(errTransient)
}

func (t *TxManager) record(tx *common.QueuedTx, head *common.Block) {
	if t.recorder == nil {
		return
	}
	if err := t.recorder.AddSubmission(common.NewSubmission(tx, head.Num)); err != nil {
		log.Errorw("TxManager: record submission", "tx", tx, "err", err)
	}
}
