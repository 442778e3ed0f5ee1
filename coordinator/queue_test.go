package coordinator

import (
	"testing"

	"randomness-relay/common"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue(t *testing.T) {
	q := NewQueue()
	_, err := q.Peek()
	assert.Equal(t, common.ErrQueueEmpty, common.Unwrap(err))

	tx1 := common.NewQueuedTx(common.TxKindDrand, 1000, ethCommon.Hash{1})
	tx2 := common.NewQueuedTx(common.TxKindCommitment, 1000, ethCommon.Hash{2})
	tx3 := common.NewQueuedTx(common.TxKindDrand, 1003, ethCommon.Hash{3})
	assert.True(t, q.Push(tx1))
	assert.True(t, q.Push(tx2))
	assert.True(t, q.Push(tx3))
	// Same key, different value
	assert.False(t, q.Push(common.NewQueuedTx(common.TxKindDrand, 1000, ethCommon.Hash{9})))
	assert.Equal(t, 3, q.Len())
	assert.True(t, q.Contains(common.TxKey{Kind: common.TxKindCommitment, Timestamp: 1000}))
	assert.False(t, q.Contains(common.TxKey{Kind: common.TxKindReveal, Timestamp: 1000}))

	tx, err := q.Peek()
	require.NoError(t, err)
	assert.Equal(t, tx1, tx)
	tx, err = q.Pop()
	require.NoError(t, err)
	assert.Equal(t, tx1, tx)
	assert.False(t, q.Contains(tx1.Key()))
	assert.True(t, q.Push(tx1))

	q.MarkFailed(tx2)
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, 1, q.FailedLen())
	assert.True(t, q.Contains(tx2.Key()))
	assert.False(t, q.Push(common.NewQueuedTx(common.TxKindCommitment, 1000, ethCommon.Hash{2})))

	pending, failed := q.Snapshot()
	require.Len(t, pending, 2)
	require.Len(t, failed, 1)
	assert.Equal(t, uint64(1003), pending[0].Timestamp)
	assert.Equal(t, uint64(1000), pending[1].Timestamp)
	assert.Equal(t, common.TxStatePersistentFailure, failed[0].State)

	q.Update(func() { tx2.Attempts = 5 })
	retried := q.RetryFailed()
	require.Len(t, retried, 1)
	assert.Equal(t, 0, retried[0].Attempts)
	assert.Equal(t, common.TxStateEnqueued, retried[0].State)
	assert.True(t, retried[0].Recovered)
	assert.Equal(t, 0, q.FailedLen())
	assert.Equal(t, 3, q.Len())
	assert.True(t, q.Contains(tx2.Key()))
}

func TestAlignUp(t *testing.T) {
	assert.Equal(t, uint64(1042), alignUp(1041, 2))
	assert.Equal(t, uint64(1042), alignUp(1042, 2))
	assert.Equal(t, uint64(1050), alignUp(1041, 10))
	assert.Equal(t, uint64(7), alignUp(7, 0))
}

func TestRevealWindow(t *testing.T) {
	cfg := testConfig()
	r := NewRevealAdvancer(&cfg, nil, NewQueue(), nil)
	from, to, ok := r.revealWindow(1044)
	require.True(t, ok)
	assert.Equal(t, uint64(986), from)
	assert.Equal(t, uint64(1044), to)

	r.cfg.Sequencer.RevealDelay = 4
	from, to, ok = r.revealWindow(1044)
	require.True(t, ok)
	assert.Equal(t, uint64(986), from)
	assert.Equal(t, uint64(1040), to)

	_, _, ok = r.revealWindow(3)
	assert.False(t, ok)
}
