package historydb

import (
	"os"
	"testing"
	"time"

	"randomness-relay/common"
	"randomness-relay/database"
	"randomness-relay/log"
	"randomness-relay/test"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var historyDB *HistoryDB

func TestMain(m *testing.M) {
	// init DB
	db, err := database.InitTestSQLDB()
	if err != nil {
		log.Warnw("HistoryDB tests skipped, no test database available", "err", err)
		os.Exit(0)
	}
	apiConnCon := database.NewAPIConnectionController(1, time.Second)
	historyDB = NewHistoryDB(db, db, apiConnCon)

	// Run tests
	result := m.Run()
	// Close DB
	if err := db.Close(); err != nil {
		log.Error("Error closing the history DB", err)
	}
	os.Exit(result)
}

func newSubmission(kind common.TxKind, ts uint64, state common.TxState, attempt int) *common.Submission {
	tx := common.NewQueuedTx(kind, ts, ethCommon.BigToHash(ethCommon.Big1))
	tx.State = state
	tx.Attempts = attempt
	tx.EthTxHash = ethCommon.BigToHash(ethCommon.Big2)
	if state == common.TxStateTransientFailure {
		tx.LastErr = "receipt timeout"
	}
	return common.NewSubmission(tx, 0)
}

func TestSubmissions(t *testing.T) {
	test.WipeDB(historyDB.DB())

	require.NoError(t, historyDB.AddSubmission(
		newSubmission(common.TxKindDrand, 100, common.TxStateTransientFailure, 1)))
	require.NoError(t, historyDB.AddSubmission(
		newSubmission(common.TxKindDrand, 100, common.TxStateConfirmed, 2)))
	require.NoError(t, historyDB.AddSubmission(
		newSubmission(common.TxKindCommitment, 100, common.TxStateReverted, 1)))

	subs, err := historyDB.GetSubmissions(common.TxKindDrand, 100)
	require.NoError(t, err)
	require.Equal(t, 2, len(subs))
	assert.Equal(t, common.TxStateTransientFailure, subs[0].State)
	assert.Equal(t, "receipt timeout", subs[0].Error)
	assert.Equal(t, common.TxStateConfirmed, subs[1].State)
	assert.Equal(t, 2, subs[1].Attempt)
	assert.Equal(t, ethCommon.BigToHash(ethCommon.Big2), subs[1].EthTxHash)

	kind := common.TxKindDrand
	subs, err = historyDB.GetSubmissionsAPI(&SubmissionsFilter{Kind: &kind})
	require.NoError(t, err)
	require.Equal(t, 2, len(subs))
	// newest first
	assert.Equal(t, common.TxStateConfirmed, subs[0].State)

	state := common.TxStateReverted
	subs, err = historyDB.GetSubmissionsAPI(&SubmissionsFilter{State: &state})
	require.NoError(t, err)
	require.Equal(t, 1, len(subs))
	assert.Equal(t, common.TxKindCommitment, subs[0].Kind)

	subs, err = historyDB.GetSubmissionsAPI(&SubmissionsFilter{Limit: 1})
	require.NoError(t, err)
	require.Equal(t, 1, len(subs))
	subs, err = historyDB.GetSubmissionsAPI(&SubmissionsFilter{FromItem: subs[0].ItemID})
	require.NoError(t, err)
	assert.Equal(t, 2, len(subs))

	counts, err := historyDB.CountByState()
	require.NoError(t, err)
	assert.Equal(t, 1, counts[common.TxStateConfirmed])
	assert.Equal(t, 1, counts[common.TxStateTransientFailure])
	assert.Equal(t, 1, counts[common.TxStateReverted])
}
