package collector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// reportsReceived counts submissions by outcome: accepted, duplicate,
	// rejected, throttled or error.
	reportsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mayday_reports_received_total",
		Help: "Crash report submissions by outcome",
	}, []string{"outcome"})

	reportBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mayday_report_bytes",
		Help:    "Size of accepted crash archives in bytes",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
	})

	reportsPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mayday_reports_purged_total",
		Help: "Reports removed by the retention janitor",
	})
)
