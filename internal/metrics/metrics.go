// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesReceivedTotal counts frames handed over by a link
	FramesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "losenet_frames_received_total",
			Help: "Total number of frames received from the link",
		},
		[]string{"link"},
	)

	// PacketsDecodedTotal counts decoded frames by packet kind
	PacketsDecodedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "losenet_packets_decoded_total",
			Help: "Total number of frames decoded, by packet kind",
		},
		[]string{"kind"},
	)

	// DecodeErrorsTotal counts dropped frames by reason
	DecodeErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "losenet_decode_errors_total",
			Help: "Total number of frames dropped because they could not be decoded",
		},
		[]string{"reason"},
	)

	// RepliesSentTotal counts frames sent back on the link
	RepliesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "losenet_replies_sent_total",
			Help: "Total number of reply frames sent, by packet kind and flags",
		},
		[]string{"kind", "flags"},
	)

	// RepliesLimitedTotal counts replies suppressed by the per-source limiter
	RepliesLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "losenet_replies_limited_total",
			Help: "Total number of replies suppressed by the per-source rate limiter",
		},
	)

	// LimiterActiveSources tracks source addresses in the current limiter window
	LimiterActiveSources = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "losenet_limiter_active_sources",
			Help: "Number of distinct source addresses in the current rate limiter window",
		},
	)

	// FrameLatencySeconds measures receive-to-last-send time per frame
	FrameLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "losenet_frame_latency_seconds",
			Help:    "Time from decoding a frame to sending its last reply, in seconds",
			Buckets: prometheus.ExponentialBuckets(0.000001, 2, 20), // 1µs to ~1s
		},
		[]string{"kind"},
	)
)
