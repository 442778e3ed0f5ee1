package common

import (
	"fmt"
	"time"

	ethCommon "github.com/ethereum/go-ethereum/common"
)

// TxKind is the kind of on-chain operation carried by a QueuedTx
type TxKind string

const (
	// TxKindDrand stores a drand round value in the DrandOracle
	TxKindDrand TxKind = "drand"
	// TxKindCommitment posts a sequencer commitment to the SequencerRandomOracle
	TxKindCommitment TxKind = "commitment"
	// TxKindReveal reveals a sequencer pre-image to the SequencerRandomOracle
	TxKindReveal TxKind = "reveal"
)

// TxKinds is the list of all the TxKind values
var TxKinds = []TxKind{TxKindDrand, TxKindCommitment, TxKindReveal}

// Valid returns true if the kind is one of the known kinds
func (k TxKind) Valid() bool {
	switch k {
	case TxKindDrand, TxKindCommitment, TxKindReveal:
		return true
	}
	return false
}

// TxState is the state of a QueuedTx
type TxState string

const (
	// TxStateEnqueued is a tx waiting in the queue
	TxStateEnqueued TxState = "enqueued"
	// TxStateSubmitted is a tx sent to the node and waiting for its receipt
	TxStateSubmitted TxState = "submitted"
	// TxStateConfirmed is a tx mined with success
	TxStateConfirmed TxState = "confirmed"
	// TxStateReverted is a tx rejected by the contract because the value was
	// already set.  It's accounted like a confirmed tx.
	TxStateReverted TxState = "reverted"
	// TxStateTransientFailure is a tx that failed due to a timeout, a dropped
	// transaction or a node error.  It will be retried.
	TxStateTransientFailure TxState = "transient"
	// TxStatePersistentFailure is a tx that exhausted its attempts.  It stays
	// in this state until an operator retries it.
	TxStatePersistentFailure TxState = "failed"
)

// QueuedTx is a pending on-chain operation.  Value is the drand randomness,
// the commitment or the pre-image depending on Kind.
type QueuedTx struct {
	Kind       TxKind         `json:"kind"`
	Timestamp  uint64         `json:"timestamp"`
	Value      ethCommon.Hash `json:"value"`
	State      TxState        `json:"state"`
	Attempts   int            `json:"attempts"`
	EthTxHash  ethCommon.Hash `json:"ethTxHash"`
	LastErr    string         `json:"lastError,omitempty"`
	EnqueuedAt time.Time      `json:"enqueuedAt"`
	// Recovered is set on txs loaded from the journal after a restart.
	// Their outcome is unknown so the chain is checked before resending.
	Recovered bool `json:"recovered"`
}

// NewQueuedTx returns a QueuedTx in the Enqueued state
func NewQueuedTx(kind TxKind, timestamp uint64, value ethCommon.Hash) *QueuedTx {
	return &QueuedTx{
		Kind:       kind,
		Timestamp:  timestamp,
		Value:      value,
		State:      TxStateEnqueued,
		EnqueuedAt: time.Now(),
	}
}

// Key returns the (kind, timestamp) pair that identifies the tx
func (tx *QueuedTx) Key() TxKey {
	return TxKey{Kind: tx.Kind, Timestamp: tx.Timestamp}
}

func (tx *QueuedTx) String() string {
	return fmt.Sprintf("%s@%d", tx.Kind, tx.Timestamp)
}

// TxKey identifies a QueuedTx.  At most one tx per key exists in the queue.
type TxKey struct {
	Kind      TxKind
	Timestamp uint64
}
