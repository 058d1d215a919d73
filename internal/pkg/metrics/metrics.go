// Package metrics defines and registers all custom Prometheus metrics for the
// timer service. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry at package
// initialisation via promauto; the /metrics endpoint exposes them together
// with the HTTP request metrics collected by echoprometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const Namespace = "timetrack"

// ── Timer metrics ─────────────────────────────────────────────────────────────

// TimersStartedTotal counts timers successfully started.
var TimersStartedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "timers_started_total",
		Help:      "Total number of timers started.",
	},
)

// TimersStoppedTotal counts timers successfully stopped.
var TimersStoppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "timers_stopped_total",
		Help:      "Total number of timers stopped.",
	},
)

// TimerRejectionsTotal counts lifecycle operations refused by the state machine.
// Label:
//   - reason: "already_active" or "no_active"
var TimerRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "timer_rejections_total",
		Help:      "Total number of start/stop requests rejected by the single-active rule.",
	},
	[]string{"reason"},
)

// TimerDurationSeconds observes the recorded duration of stopped timers.
var TimerDurationSeconds = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "timer_duration_seconds",
		Help:      "Duration of stopped timers.",
		Buckets:   []float64{60, 300, 900, 1800, 3600, 7200, 14400, 28800},
	},
)

// ── Progress writer metrics ───────────────────────────────────────────────────

// ProgressQueueDepth tracks the number of batches waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var ProgressQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "progress_queue_depth",
		Help:      "Current number of progress batches pending in each worker channel.",
	},
	[]string{"worker_id"},
)

// ProgressWritesTotal counts progress batches by outcome.
// Label:
//   - result: "ok", "error" or "dropped"
var ProgressWritesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "progress_writes_total",
		Help:      "Total number of progress batches handled, by result.",
	},
	[]string{"result"},
)

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthAttemptsTotal counts login and signup attempts.
// Labels:
//   - operation: "login" or "signup"
//   - result: "ok", "invalid_credentials", "username_taken", "error"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of authentication attempts, by operation and result.",
	},
	[]string{"operation", "result"},
)

// ── WebSocket metrics ─────────────────────────────────────────────────────────

// WSConnectionsActive tracks currently open WebSocket connections.
var WSConnectionsActive = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "ws_connections_active",
		Help:      "Number of open WebSocket connections.",
	},
)

// WSMessagesTotal counts handled WebSocket frames.
// Labels:
//   - type: the client message type, or "invalid"
//   - result: "success" or "error"
var WSMessagesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "ws_messages_total",
		Help:      "Total number of WebSocket frames handled, by type and result.",
	},
	[]string{"type", "result"},
)
