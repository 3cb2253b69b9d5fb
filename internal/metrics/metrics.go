package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type (
	WatcherMetrics struct {
		Events       *Counter // by kind
		Errors       *Counter
		WatchedRoots *Gauge // by backend
	}
	ForwarderMetrics struct {
		Forwarded   *Counter
		Dropped     *Counter
		QueueLength *Gauge
		Connected   *Gauge
		Dials       *Counter // by result
	}
)

const (
	namespace          = "fswatch"
	watcherSubsystem   = "watcher"
	forwarderSubsystem = "forwarder"
)

var (
	wm = WatcherMetrics{
		Events: NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: watcherSubsystem,
			Name:      "events_total",
			Help:      "How many change events were detected, partitioned by kind",
		}, "kind"),
		Errors: NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: watcherSubsystem,
			Name:      "errors_total",
			Help:      "How many non-fatal watch errors occurred",
		}),
		WatchedRoots: NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: watcherSubsystem,
			Name:      "roots",
			Help:      "How many watch roots are being watched, partitioned by backend",
		}, "backend"),
	}
	fm = ForwarderMetrics{
		Forwarded: NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: forwarderSubsystem,
			Name:      "forwarded_total",
			Help:      "How many events were written to the remote listener",
		}),
		Dropped: NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: forwarderSubsystem,
			Name:      "dropped_total",
			Help:      "How many queued events were dropped on overflow",
		}),
		QueueLength: NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: forwarderSubsystem,
			Name:      "queue_length",
			Help:      "How many events are waiting to be forwarded",
		}),
		Connected: NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: forwarderSubsystem,
			Name:      "connected",
			Help:      "Whether the connection to the remote listener is up",
		}),
		Dials: NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: forwarderSubsystem,
			Name:      "dials_total",
			Help:      "How many connection attempts were made, partitioned by result",
		}, "result"),
	}
)

func GetWatcherMetrics() *WatcherMetrics {
	return &wm
}

func GetForwarderMetrics() *ForwarderMetrics {
	return &fm
}
