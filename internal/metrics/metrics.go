// Package metrics defines the prometheus instruments of the canvas client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "placeclient"

type Metrics struct {
	// FramesReceived counts incoming frames by message kind.
	FramesReceived *prometheus.CounterVec
	// FramesDropped counts frames that were not applied, by reason.
	FramesDropped *prometheus.CounterVec
	// FramesDeferred counts frames queued until authentication finishes.
	FramesDeferred *prometheus.CounterVec
	// CommandsSent counts outgoing commands by keyword.
	CommandsSent *prometheus.CounterVec
	// CommandsSuppressed counts commands a gate kept from being sent.
	CommandsSuppressed *prometheus.CounterVec
	SessionState       prometheus.Gauge
	SnapshotBytes      prometheus.Gauge
}

// New registers the instruments with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FramesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Frames received from the canvas server",
		}, []string{"kind"}),
		FramesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Frames that were logged and ignored",
		}, []string{"reason"}),
		FramesDeferred: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_deferred_total",
			Help:      "Frames held back until the session could apply them",
		}, []string{"kind"}),
		CommandsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_sent_total",
			Help:      "Commands written to the canvas server",
		}, []string{"command"}),
		CommandsSuppressed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_suppressed_total",
			Help:      "Commands not sent because a gate was closed",
		}, []string{"command", "gate"}),
		SessionState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_state",
			Help:      "Current session state (0 connecting, 1 open, 2 authenticating, 3 authenticated, 4 banned, 5 closed)",
		}),
		SnapshotBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_bytes",
			Help:      "Size of the last canvas snapshot",
		}),
	}
}

// Discard returns instruments registered with a private registry, for
// callers that do not export metrics.
func Discard() *Metrics {
	return New(prometheus.NewRegistry())
}
