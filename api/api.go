/*
Package api implements the operator HTTP API of the relay.

	GET  /v1/health                   200 while the coordinator ticks
	GET  /v1/status                   coordinator status
	GET  /v1/queue                    pending and failed txs
	POST /v1/queue/retry              enqueue the failed txs again
	GET  /v1/submissions              submission history (needs PostgreSQL)
	GET  /v1/randomness/:timestamp    sequencer and combined randomness
	GET  /metrics                     prometheus metrics
*/
package api

import (
	"context"
	"time"

	"randomness-relay/cache"
	"randomness-relay/common"
	"randomness-relay/coordinator"
	"randomness-relay/database/historydb"
	"randomness-relay/eth"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Coordinator is the part of coordinator.Coordinator used by the API
type Coordinator interface {
	Status() coordinator.Status
	Queue() *coordinator.Queue
	SendMsg(ctx context.Context, msg interface{})
}

// HistoryDB is the part of historydb.HistoryDB used by the API
type HistoryDB interface {
	GetSubmissionsAPI(filter *historydb.SubmissionsFilter) ([]common.Submission, error)
	CountByState() (map[common.TxState]int, error)
}

// Config of the API
type Config struct {
	// MaxTickAge is the maximum time since the last tick for the relay
	// to be healthy
	MaxTickAge time.Duration
}

// API serves the relay state
type API struct {
	cfg              Config
	coord            Coordinator
	cache            *cache.Cache
	randomnessOracle eth.RandomnessOracleInterface
	h                HistoryDB
}

// NewAPI sets the endpoints of the API in server.  randomnessOracle and
// hdb can be nil.
func NewAPI(
	server *gin.Engine,
	cfg Config,
	coord Coordinator,
	cache *cache.Cache,
	randomnessOracle eth.RandomnessOracleInterface,
	hdb HistoryDB,
) *API {
	a := &API{
		cfg:              cfg,
		coord:            coord,
		cache:            cache,
		randomnessOracle: randomnessOracle,
		h:                hdb,
	}

	v1 := server.Group("/v1")
	v1.GET("/health", a.getHealth)
	v1.GET("/status", a.getStatus)
	v1.GET("/queue", a.getQueue)
	v1.POST("/queue/retry", a.postRetryFailed)
	v1.GET("/submissions", a.getSubmissions)
	v1.GET("/randomness/:timestamp", a.getRandomness)
	server.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return a
}

type queueResponse struct {
	Pending []common.QueuedTx `json:"pending"`
	Failed  []common.QueuedTx `json:"failed"`
}

type randomnessResponse struct {
	Timestamp  uint64          `json:"timestamp"`
	Sequencer  *ethCommon.Hash `json:"sequencer,omitempty"`
	Randomness *ethCommon.Hash `json:"randomness,omitempty"`
}

type submissionsResponse struct {
	Submissions []common.Submission    `json:"submissions"`
	Counts      map[common.TxState]int `json:"counts"`
}
