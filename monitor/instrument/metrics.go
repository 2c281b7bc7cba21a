package instrument

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "authority_monitor",
		Name:      "operation_duration_seconds",
		Help:      "End-to-end duration of wrapped authority operations.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	}, []string{"authority", "action"})

	samplesRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "authority_monitor",
		Name:      "samples_recorded_total",
		Help:      "Samples that reached a terminal recorded state with timing data.",
	}, []string{"authority", "action"})

	samplesDiscarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "authority_monitor",
		Name:      "samples_discarded_total",
		Help:      "Samples deleted without usable timing data, by reason.",
	}, []string{"authority", "action", "reason"})
)

// Discard reasons for the samples_discarded_total counter.
const (
	discardReasonError          = "operation_error"
	discardReasonNoPayload      = "no_payload"
	discardReasonInvalidPayload = "invalid_payload"
	discardReasonUpdateFailed   = "update_failed"
)
