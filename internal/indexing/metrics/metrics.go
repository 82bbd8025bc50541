package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BlocksProcessed tracks blocks that completed the pipeline
	BlocksProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tronwatch_blocks_processed_total",
			Help: "Total number of blocks processed",
		},
	)

	// BlockFailures tracks failed blocks by classified cause
	BlockFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tronwatch_block_failures_total",
			Help: "Total number of failed blocks by cause",
		},
		[]string{"cause"},
	)

	// BlockDuration tracks end-to-end processing time per block
	BlockDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tronwatch_block_duration_seconds",
			Help:    "Block processing duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// TransactionsTotal tracks normalizer outcomes (normalized, skipped, corrupt)
	TransactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tronwatch_transactions_total",
			Help: "Transactions seen by the normalizer by outcome",
		},
		[]string{"outcome"},
	)

	// SchedulerTicks tracks scheduler ticks by result (ok, contended, error)
	SchedulerTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tronwatch_scheduler_ticks_total",
			Help: "Scheduler ticks by result",
		},
		[]string{"result"},
	)

	// TargetsEnqueued tracks block jobs submitted by source
	TargetsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tronwatch_targets_enqueued_total",
			Help: "Block jobs enqueued by selection source",
		},
		[]string{"source"},
	)

	// ChainLatestBlock tracks the latest block height of the chain
	ChainLatestBlock = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tronwatch_chain_latest_block",
			Help: "Latest block height of the chain",
		},
	)

	// CursorBlock tracks the persisted cursor
	CursorBlock = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tronwatch_cursor_block",
			Help: "Last block number successfully processed",
		},
	)

	// BackfillSize tracks the number of pending backfill entries
	BackfillSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tronwatch_backfill_size",
			Help: "Number of blocks waiting in the backfill set",
		},
	)

	// ObserverQueueLength tracks pending batches per observer
	ObserverQueueLength = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tronwatch_observer_queue_length",
			Help: "Pending batches per observer",
		},
		[]string{"observer"},
	)

	// ObserverDropped tracks items dropped on queue overflow
	ObserverDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tronwatch_observer_dropped_total",
			Help: "Items dropped because the observer queue was full",
		},
		[]string{"observer"},
	)

	// ObserverErrors tracks batches whose handler failed
	ObserverErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tronwatch_observer_errors_total",
			Help: "Observer batches that failed",
		},
		[]string{"observer"},
	)

	// RPCCallsTotal tracks HTTP API calls per provider
	RPCCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tronwatch_rpc_calls_total",
			Help: "Total number of API calls",
		},
		[]string{"provider", "method"},
	)

	// RPCErrorsTotal tracks API errors per provider
	RPCErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tronwatch_rpc_errors_total",
			Help: "Total number of API errors",
		},
		[]string{"provider", "error_type"},
	)

	// RPCLatency tracks API call latency
	RPCLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tronwatch_rpc_latency_seconds",
			Help:    "API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "method"},
	)

	// DBConnectionPoolUsage tracks open connections as a percentage of the pool
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tronwatch_db_connection_pool_usage_percent",
			Help: "Open database connections as a percentage of the maximum",
		},
	)
)
