package registry

import "github.com/prometheus/client_golang/prometheus"

var (
	dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "plugind",
			Subsystem: "dispatch",
			Name:      "events_total",
			Help:      "Dispatch calls by status (dispatched or suspended)",
		},
		[]string{"status"},
	)

	invocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "plugind",
			Subsystem: "plugin",
			Name:      "invocations_total",
			Help:      "Plugin results by outcome",
		},
		[]string{"plugin", "outcome"},
	)

	invocationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "plugind",
			Subsystem: "plugin",
			Name:      "invocation_duration_seconds",
			Help:      "Duration of plugin invocations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"plugin"},
	)

	autoDisabledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "plugind",
			Subsystem: "plugin",
			Name:      "auto_disabled_total",
			Help:      "Plugins disabled after a failed invocation",
		},
		[]string{"plugin"},
	)

	reloadsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "plugind",
			Subsystem: "registry",
			Name:      "reloads_total",
			Help:      "Total number of discovery passes",
		},
	)

	discoveryErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "plugind",
			Subsystem: "registry",
			Name:      "discovery_errors_total",
			Help:      "Discovery units that failed to load",
		},
	)
)

func init() {
	prometheus.MustRegister(dispatchTotal, invocationsTotal, invocationDuration, autoDisabledTotal, reloadsTotal, discoveryErrorsTotal)
}
