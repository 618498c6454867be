package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values for lookups_total.
const (
	outcomeRejectedDisabled = "rejected_disabled"
	outcomeRejectedCredits  = "rejected_credits"
	outcomeSuccess          = "success"
	outcomeNoData           = "no_data"
	outcomeError            = "error"
	outcomeTimeout          = "timeout"
)

var (
	// lookupsTotal counts lookup attempts by kind slug and final outcome.
	lookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookups_total",
			Help: "Lookup attempts by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	// lookupDuration measures registration to resolution.
	lookupDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lookup_duration_seconds",
			Help:    "Time from registration to terminal resolution.",
			Buckets: []float64{1, 2, 4, 8, 15, 30, 60, 90, 120, 180},
		},
		[]string{"kind"},
	)

	// creditsCharged sums credits moved by successful lookups.
	creditsCharged = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookup_credits_charged_total",
			Help: "Credits charged for successful lookups.",
		},
		[]string{"kind"},
	)

	// lookupsInflight gauges running lookup workers.
	lookupsInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "lookups_inflight",
			Help: "Lookup workers currently submitting or polling.",
		},
	)
)

func init() {
	prometheus.MustRegister(lookupsTotal, lookupDuration, creditsCharged, lookupsInflight)
}
