package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"randomness-relay/cache"
	"randomness-relay/common"
	"randomness-relay/coordinator"
	"randomness-relay/database/historydb"
	"randomness-relay/database/kvdb"
	"randomness-relay/synchronizer"
	"randomness-relay/test"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type response struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   interface{}     `json:"error"`
}

type historyDBMock struct {
	filter      *historydb.SubmissionsFilter
	submissions []common.Submission
	err         error
}

func (h *historyDBMock) GetSubmissionsAPI(filter *historydb.SubmissionsFilter) ([]common.Submission, error) {
	h.filter = filter
	return h.submissions, h.err
}

func (h *historyDBMock) CountByState() (map[common.TxState]int, error) {
	return map[common.TxState]int{common.TxStateConfirmed: len(h.submissions)}, h.err
}

type testAPI struct {
	server *gin.Engine
	client *test.Client
	coord  *coordinator.Coordinator
	cache  *cache.Cache
	hdb    *historyDBMock
}

func newTestAPI(t *testing.T, withHistory bool) *testAPI {
	gin.SetMode(gin.TestMode)
	dir, err := os.MkdirTemp("", "apijournal")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) }) //nolint:errcheck
	journal, err := kvdb.NewKVDB(kvdb.Config{Path: dir, NoSync: true})
	require.NoError(t, err)
	t.Cleanup(journal.Close)

	timer := test.NewManualTimer(1030)
	addr := ethCommon.HexToAddress("0x2c7536E3605D9C16a7a3D7b1898e529396a65c23")
	client := test.NewClient(false, timer, &addr, test.NewClientSetupExample())
	beacon := test.NewBeacon(timer, 1000, 3)
	c, err := cache.NewCache(16)
	require.NoError(t, err)
	coord := coordinator.NewCoordinator(coordinator.Config{
		TickInterval:  time.Second,
		MaxTxsPerTick: 100,
		MaxAttempts:   1,
		Backfill: coordinator.BackfillConfig{
			Lookback:             30,
			MaxChainReadsPerTick: 64,
			MaxFetchesPerTick:    64,
		},
		Sequencer: coordinator.SequencerConfig{
			Seed:           []byte("relay test seed relay test seed!"),
			Interval:       2,
			CommitMargin:   2,
			CommitHorizon:  10,
			PrecommitDelay: 10,
			Timeout:        60,
		},
	}, client, beacon, synchronizer.NewSynchronizer(client), c, journal, nil)

	server := gin.New()
	a := &testAPI{server: server, client: client, coord: coord, cache: c}
	if withHistory {
		a.hdb = &historyDBMock{}
		NewAPI(server, Config{MaxTickAge: time.Minute}, coord, c, client, a.hdb)
	} else {
		NewAPI(server, Config{MaxTickAge: time.Minute}, coord, c, client, nil)
	}
	return a
}

func (a *testAPI) do(t *testing.T, method, path string) (int, *response) {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	a.server.ServeHTTP(w, req)
	var res response
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	}
	return w.Code, &res
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t, false)
	code, res := a.do(t, http.MethodGet, "/v1/health")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "coordinator is not ticking", res.Message)

	require.NoError(t, a.coord.Tick(context.Background()))
	code, _ = a.do(t, http.MethodGet, "/v1/health")
	assert.Equal(t, http.StatusOK, code)
}

func TestStatusAndQueue(t *testing.T) {
	a := newTestAPI(t, false)
	a.client.CtlFailSubmits(1)
	_ = a.coord.Tick(context.Background())

	code, res := a.do(t, http.MethodGet, "/v1/status")
	require.Equal(t, http.StatusOK, code)
	var status coordinator.Status
	require.NoError(t, json.Unmarshal(res.Data, &status))
	assert.True(t, status.Restored)
	assert.Equal(t, 1, status.FailedLen)
	assert.Equal(t, 10, status.Processed[common.TxKindDrand])

	code, res = a.do(t, http.MethodGet, "/v1/queue")
	require.Equal(t, http.StatusOK, code)
	var queue queueResponse
	require.NoError(t, json.Unmarshal(res.Data, &queue))
	assert.Empty(t, queue.Pending)
	require.Len(t, queue.Failed, 1)
	assert.Equal(t, common.TxKindDrand, queue.Failed[0].Kind)
	assert.Equal(t, uint64(1000), queue.Failed[0].Timestamp)

	// The message is handled by the loop goroutine
	a.coord.Start()
	defer a.coord.Stop()
	code, _ = a.do(t, http.MethodPost, "/v1/queue/retry")
	assert.Equal(t, http.StatusAccepted, code)
	require.Eventually(t, func() bool {
		return a.coord.Queue().FailedLen() == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestRandomness(t *testing.T) {
	a := newTestAPI(t, false)
	code, _ := a.do(t, http.MethodGet, "/v1/randomness/abc")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = a.do(t, http.MethodGet, "/v1/randomness/1042")
	assert.Equal(t, http.StatusNotFound, code)

	value := ethCommon.Hash{7}
	a.cache.SetRandomness(1042, value)
	code, res := a.do(t, http.MethodGet, "/v1/randomness/1042")
	require.Equal(t, http.StatusOK, code)
	var randomness randomnessResponse
	require.NoError(t, json.Unmarshal(res.Data, &randomness))
	assert.Equal(t, uint64(1042), randomness.Timestamp)
	require.NotNil(t, randomness.Sequencer)
	assert.Equal(t, value, *randomness.Sequencer)
	assert.Nil(t, randomness.Randomness)

	a.client.CtlSetDrand(1042, ethCommon.Hash{1})
	a.client.CtlReveal(1042, value)
	a.client.CtlMineBlock()
	code, res = a.do(t, http.MethodGet, "/v1/randomness/1042")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(res.Data, &randomness))
	assert.NotNil(t, randomness.Randomness)

	a.client.CtlFailReads(1)
	code, _ = a.do(t, http.MethodGet, "/v1/randomness/1042")
	assert.Equal(t, http.StatusBadGateway, code)
}

func TestSubmissions(t *testing.T) {
	a := newTestAPI(t, false)
	code, _ := a.do(t, http.MethodGet, "/v1/submissions")
	assert.Equal(t, http.StatusNotImplemented, code)

	a = newTestAPI(t, true)
	a.hdb.submissions = []common.Submission{{
		ItemID:    4,
		Kind:      common.TxKindReveal,
		Timestamp: 1042,
		State:     common.TxStateConfirmed,
	}}
	code, res := a.do(t, http.MethodGet, "/v1/submissions?kind=reveal&fromItem=10&limit=5")
	require.Equal(t, http.StatusOK, code)
	var submissions submissionsResponse
	require.NoError(t, json.Unmarshal(res.Data, &submissions))
	require.Len(t, submissions.Submissions, 1)
	assert.Equal(t, int64(4), submissions.Submissions[0].ItemID)
	assert.Equal(t, 1, submissions.Counts[common.TxStateConfirmed])
	require.NotNil(t, a.hdb.filter.Kind)
	assert.Equal(t, common.TxKindReveal, *a.hdb.filter.Kind)
	assert.Nil(t, a.hdb.filter.State)
	assert.Equal(t, int64(10), a.hdb.filter.FromItem)
	assert.Equal(t, uint(5), a.hdb.filter.Limit)

	code, _ = a.do(t, http.MethodGet, "/v1/submissions?kind=other")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = a.do(t, http.MethodGet, fmt.Sprintf("/v1/submissions?limit=%d", maxSubmissionsLimit+1))
	assert.Equal(t, http.StatusBadRequest, code)

	a.hdb.err = fmt.Errorf("connection refused")
	code, _ = a.do(t, http.MethodGet, "/v1/submissions")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestMetrics(t *testing.T) {
	a := newTestAPI(t, false)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	a.server.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "txmanager_queue_length")
}
