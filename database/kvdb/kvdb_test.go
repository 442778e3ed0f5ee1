package kvdb

import (
	"os"
	"testing"
	"time"

	"randomness-relay/common"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKVDB(t *testing.T) (*KVDB, string) {
	dir, err := os.MkdirTemp("", "tmpdb")
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, os.RemoveAll(dir)) })
	db, err := NewKVDB(Config{Path: dir, NoSync: true})
	require.NoError(t, err)
	return db, dir
}

func TestKVDBTxs(t *testing.T) {
	db, _ := newTestKVDB(t)
	defer db.Close()

	start := time.Now()
	tx1 := common.NewQueuedTx(common.TxKindDrand, 1003, ethCommon.HexToHash("0x01"))
	tx1.EnqueuedAt = start
	tx2 := common.NewQueuedTx(common.TxKindCommitment, 20, ethCommon.HexToHash("0x02"))
	tx2.EnqueuedAt = start.Add(time.Second)
	tx3 := common.NewQueuedTx(common.TxKindDrand, 1000, ethCommon.HexToHash("0x03"))
	tx3.EnqueuedAt = start.Add(2 * time.Second)
	for _, tx := range []*common.QueuedTx{tx3, tx1, tx2} {
		require.NoError(t, db.PutTx(tx))
	}

	txs, err := db.Txs()
	require.NoError(t, err)
	require.Equal(t, 3, len(txs))
	assert.Equal(t, tx1.Key(), txs[0].Key())
	assert.Equal(t, tx2.Key(), txs[1].Key())
	assert.Equal(t, tx3.Key(), txs[2].Key())

	tx1.State = common.TxStateSubmitted
	tx1.Attempts = 1
	tx1.EthTxHash = ethCommon.HexToHash("0xabcd")
	require.NoError(t, db.PutTx(tx1))
	got, err := db.GetTx(tx1.Key())
	require.NoError(t, err)
	assert.Equal(t, common.TxStateSubmitted, got.State)
	assert.Equal(t, 1, got.Attempts)
	assert.Equal(t, tx1.EthTxHash, got.EthTxHash)

	require.NoError(t, db.DeleteTx(tx1.Key()))
	require.NoError(t, db.DeleteTx(tx1.Key()))
	_, err = db.GetTx(tx1.Key())
	assert.Equal(t, ErrNotFound, common.Unwrap(err))
	txs, err = db.Txs()
	require.NoError(t, err)
	assert.Equal(t, 2, len(txs))
}

func TestKVDBReopen(t *testing.T) {
	db, dir := newTestKVDB(t)
	tx := common.NewQueuedTx(common.TxKindReveal, 42, ethCommon.HexToHash("0x42"))
	tx.State = common.TxStateSubmitted
	require.NoError(t, db.PutTx(tx))
	db.Close()

	db, err := NewKVDB(Config{Path: dir})
	require.NoError(t, err)
	defer db.Close()
	txs, err := db.Txs()
	require.NoError(t, err)
	require.Equal(t, 1, len(txs))
	assert.Equal(t, tx.Key(), txs[0].Key())
	assert.Equal(t, tx.Value, txs[0].Value)
}

func TestKVDBDrandCursor(t *testing.T) {
	db, dir := newTestKVDB(t)

	cursor, err := db.DrandCursor()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), cursor)

	require.NoError(t, db.PutDrandCursor(1033))
	require.NoError(t, db.PutDrandCursor(1036))
	require.NoError(t, db.PutTx(common.NewQueuedTx(common.TxKindDrand, 1036, ethCommon.HexToHash("0x01"))))
	db.Close()

	db, err = NewKVDB(Config{Path: dir})
	require.NoError(t, err)
	defer db.Close()
	cursor, err = db.DrandCursor()
	require.NoError(t, err)
	assert.Equal(t, uint64(1036), cursor)
	// The cursor is not a journaled tx
	txs, err := db.Txs()
	require.NoError(t, err)
	assert.Equal(t, 1, len(txs))
}
