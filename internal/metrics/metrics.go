// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "splitcheck"

var (
	// RPCRequests counts handled RPCs by procedure and result code.
	RPCRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rpc_requests_total",
		Help:      "Handled RPCs by procedure and code.",
	}, []string{"procedure", "code"})

	// RPCDuration observes RPC latency.
	RPCDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "rpc_duration_seconds",
		Help:      "RPC latency by procedure.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"procedure"})

	// OCRAttempts counts model calls by outcome: ok, invalid or upstream.
	OCRAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ocr",
		Name:      "attempts_total",
		Help:      "Receipt extraction attempts by outcome.",
	}, []string{"outcome"})

	// OCRRateLimited counts scans rejected before reaching the model.
	OCRRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ocr",
		Name:      "rate_limited_total",
		Help:      "Receipt scans rejected by the rate limiter.",
	})

	// RealtimeSubscribers tracks open change-feed subscriptions.
	RealtimeSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "realtime",
		Name:      "subscribers",
		Help:      "Open change-feed subscriptions.",
	})

	// RealtimeEvicted counts subscriptions closed because their buffer was full.
	RealtimeEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "realtime",
		Name:      "evicted_subscribers_total",
		Help:      "Change-feed subscriptions closed on a full buffer.",
	})
)
