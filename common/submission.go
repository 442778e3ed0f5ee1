package common

import (
	"time"

	ethCommon "github.com/ethereum/go-ethereum/common"
)

// Submission is the outcome of one attempt to send a QueuedTx, as stored in
// the history database
type Submission struct {
	ItemID    int64          `meddler:"item_id,pk" json:"itemId"`
	Kind      TxKind         `meddler:"kind" json:"kind"`
	Timestamp int64          `meddler:"timestamp" json:"timestamp"`
	Value     ethCommon.Hash `meddler:"value" json:"value"`
	State     TxState        `meddler:"state" json:"state"`
	Attempt   int            `meddler:"attempt" json:"attempt"`
	EthTxHash ethCommon.Hash `meddler:"eth_tx_hash" json:"ethTxHash"`
	EthBlock  int64          `meddler:"eth_block_num,zeroisnull" json:"ethBlockNum,omitempty"`
	Error     string         `meddler:"error,zeroisnull" json:"error,omitempty"`
	CreatedAt time.Time      `meddler:"created_at,utctime" json:"createdAt"`
}

// NewSubmission builds the Submission that records the current state of tx
func NewSubmission(tx *QueuedTx, ethBlock int64) *Submission {
	return &Submission{
		Kind:      tx.Kind,
		Timestamp: int64(tx.Timestamp),
		Value:     tx.Value,
		State:     tx.State,
		Attempt:   tx.Attempts,
		EthTxHash: tx.EthTxHash,
		EthBlock:  ethBlock,
		Error:     tx.LastErr,
		CreatedAt: time.Now(),
	}
}
