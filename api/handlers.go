package api

import (
	"net/http"
	"strconv"
	"time"

	"randomness-relay/common"
	"randomness-relay/coordinator"
	"randomness-relay/database/historydb"
	"randomness-relay/log"

	"github.com/gin-gonic/gin"
)

const maxSubmissionsLimit = 100

func (a *API) getHealth(c *gin.Context) {
	status := a.coord.Status()
	if status.LastTick.IsZero() || time.Since(status.LastTick) > a.cfg.MaxTickAge {
		errorResponseHandler(c, http.StatusServiceUnavailable, "coordinator is not ticking")
		return
	}
	if !status.Restored {
		errorResponseHandler(c, http.StatusServiceUnavailable, "coordinator is restoring",
			status.LastErr)
		return
	}
	successResponseHandler(c, http.StatusOK, "ok", gin.H{
		"lastBlock": status.LastBlock.Num,
		"lastTick":  status.LastTick,
	})
}

func (a *API) getStatus(c *gin.Context) {
	successResponseHandler(c, http.StatusOK, "status", a.coord.Status())
}

func (a *API) getQueue(c *gin.Context) {
	pending, failed := a.coord.Queue().Snapshot()
	successResponseHandler(c, http.StatusOK, "queue", queueResponse{
		Pending: pending,
		Failed:  failed,
	})
}

func (a *API) postRetryFailed(c *gin.Context) {
	n := a.coord.Queue().FailedLen()
	a.coord.SendMsg(c.Request.Context(), coordinator.MsgRetryFailed{})
	log.Infow("API: retry of failed txs requested", "failed", n)
	successResponseHandler(c, http.StatusAccepted, "retry requested", gin.H{"failed": n})
}

func (a *API) getSubmissions(c *gin.Context) {
	if a.h == nil {
		errorResponseHandler(c, http.StatusNotImplemented, "history database not configured")
		return
	}
	var filter historydb.SubmissionsFilter
	if kind := c.Query("kind"); kind != "" {
		k := common.TxKind(kind)
		if !k.Valid() {
			errorResponseHandler(c, http.StatusBadRequest, "invalid kind", kind)
			return
		}
		filter.Kind = &k
	}
	if state := c.Query("state"); state != "" {
		s := common.TxState(state)
		filter.State = &s
	}
	if fromItem := c.Query("fromItem"); fromItem != "" {
		v, err := strconv.ParseInt(fromItem, 10, 64)
		if err != nil {
			errorResponseHandler(c, http.StatusBadRequest, "invalid fromItem", err)
			return
		}
		filter.FromItem = v
	}
	if limit := c.Query("limit"); limit != "" {
		v, err := strconv.ParseUint(limit, 10, 32)
		if err != nil || v > maxSubmissionsLimit {
			errorResponseHandler(c, http.StatusBadRequest, "invalid limit", limit)
			return
		}
		filter.Limit = uint(v)
	}
	submissions, err := a.h.GetSubmissionsAPI(&filter)
	if err != nil {
		log.Errorw("API: GetSubmissionsAPI", "err", err)
		errorResponseHandler(c, http.StatusServiceUnavailable, "history database error", err)
		return
	}
	counts, err := a.h.CountByState()
	if err != nil {
		log.Errorw("API: CountByState", "err", err)
		errorResponseHandler(c, http.StatusServiceUnavailable, "history database error", err)
		return
	}
	successResponseHandler(c, http.StatusOK, "submissions", submissionsResponse{
		Submissions: submissions,
		Counts:      counts,
	})
}

func (a *API) getRandomness(c *gin.Context) {
	timestamp, err := strconv.ParseUint(c.Param("timestamp"), 10, 64)
	if err != nil {
		errorResponseHandler(c, http.StatusBadRequest, "invalid timestamp", err)
		return
	}
	res := randomnessResponse{Timestamp: timestamp}
	if value, ok := a.cache.Randomness(timestamp); ok {
		res.Sequencer = &value
	}
	if a.randomnessOracle != nil {
		value, err := a.randomnessOracle.RandomnessOracleRandomness(c.Request.Context(), timestamp)
		if err != nil {
			log.Warnw("API: RandomnessOracleRandomness", "timestamp", timestamp, "err", err)
			errorResponseHandler(c, http.StatusBadGateway, "randomness oracle error", err)
			return
		}
		res.Randomness = value
	}
	if res.Sequencer == nil && res.Randomness == nil {
		errorResponseHandler(c, http.StatusNotFound, "randomness not available")
		return
	}
	successResponseHandler(c, http.StatusOK, "randomness", res)
}
