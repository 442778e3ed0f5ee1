package metric

import (
	"time"

	"randomness-relay/log"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespaceSync        = "synchronizer"
	namespaceCoordinator = "coordinator"
	namespaceTxManager   = "txmanager"
	namespaceBackfill    = "backfill"
)

var (
	// TimeRegressions counts the heads older than the previous one
	TimeRegressions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespaceSync,
			Name:      "time_regressions",
			Help:      "",
		})

	// EthLastBlockNum last eth block synced
	EthLastBlockNum = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespaceSync,
			Name:      "eth_last_block_num",
			Help:      "",
		})

	// EthLastBlockTimestamp timestamp of the last eth block synced
	EthLastBlockTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespaceSync,
			Name:      "eth_last_block_timestamp",
			Help:      "",
		})

	// Ticks counts the coordinator ticks by result
	Ticks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespaceCoordinator,
			Name:      "ticks_total",
			Help:      "",
		}, []string{"result"})

	// TickDuration duration of a coordinator tick in ms
	TickDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespaceCoordinator,
			Name:      "tick_duration",
			Help:      "",
			Buckets:   []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 15000, 60000},
		}, []string{})

	// QueueLength pending transactions
	QueueLength = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespaceTxManager,
			Name:      "queue_length",
			Help:      "",
		})

	// PersistentFailures transactions that exhausted their attempts and
	// wait for an operator
	PersistentFailures = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespaceTxManager,
			Name:      "persistent_failures",
			Help:      "",
		})

	// TxsSent sent transactions by kind
	TxsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespaceTxManager,
			Name:      "txs_sent_total",
			Help:      "",
		}, []string{"kind"})

	// TxOutcomes transaction outcomes by kind and state
	TxOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespaceTxManager,
			Name:      "tx_outcomes_total",
			Help:      "",
		}, []string{"kind", "state"})

	// WaitReceipt duration of the wait for a transaction receipt in ms
	WaitReceipt = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespaceTxManager,
			Name:      "wait_receipt",
			Help:      "",
			Buckets:   []float64{100, 500, 1000, 2500, 5000, 15000, 30000, 60000},
		}, []string{"kind"})

	// Enqueued transactions enqueued by the scans, by kind
	Enqueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespaceBackfill,
			Name:      "enqueued_total",
			Help:      "",
		}, []string{"kind"})

	// BeaconErrors failed drand requests
	BeaconErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespaceBackfill,
			Name:      "beacon_errors_total",
			Help:      "",
		})

	// ChainReadErrors failed oracle reads, by kind
	ChainReadErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespaceBackfill,
			Name:      "chain_read_errors_total",
			Help:      "",
		}, []string{"kind"})

	// AbandonedReveals rounds that can't be revealed by this relay
	AbandonedReveals = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespaceBackfill,
			Name:      "abandoned_reveals_total",
			Help:      "",
		})

	// DrandCursor every drand round up to this timestamp is on chain
	DrandCursor = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespaceBackfill,
			Name:      "drand_cursor",
			Help:      "",
		})
)

func init() {
	collectors := []prometheus.Collector{
		TimeRegressions,
		EthLastBlockNum,
		EthLastBlockTimestamp,
		Ticks,
		TickDuration,
		QueueLength,
		PersistentFailures,
		TxsSent,
		TxOutcomes,
		WaitReceipt,
		Enqueued,
		BeaconErrors,
		ChainReadErrors,
		AbandonedReveals,
		DrandCursor,
	}
	for _, collector := range collectors {
		if err := prometheus.Register(collector); err != nil {
			log.Errorw("metric: register collector", "err", err)
		}
	}
}

// MeasureDuration measure the method execution duration
// and save it into a histogram metric
func MeasureDuration(histogram *prometheus.HistogramVec, start time.Time, lvs ...string) {
	duration := time.Since(start)
	histogram.WithLabelValues(lvs...).Observe(float64(duration.Milliseconds()))
}
