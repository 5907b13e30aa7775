package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bubbleflow_parsing_seconds",
		Help:    "Time spent parsing a flow source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language", "mode"})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bubbleflow_analysis_seconds",
		Help:    "Time spent on analysis stages.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	BubblesExtracted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bubbleflow_bubbles_extracted_total",
		Help: "Total number of registered bubble instantiations extracted.",
	})

	SitesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bubbleflow_sites_skipped_total",
		Help: "Total number of constructor sites ignored because the class is not registered.",
	})

	ValidationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bubbleflow_validation_seconds",
		Help:    "Latency of a single incremental validation call.",
		Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
	})

	DiagnosticsReported = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bubbleflow_diagnostics_total",
		Help: "Total number of diagnostics produced, by code and whether suppressed.",
	}, []string{"code", "suppressed"})

	ProjectLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bubbleflow_project_loads_total",
		Help: "Project loads into the validator pool, by outcome.",
	}, []string{"outcome"})

	ProjectPoolSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bubbleflow_project_pool_size",
		Help: "Number of projects currently held by the validator pool.",
	})

	ModuleReads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bubbleflow_module_reads_total",
		Help: "Declaration files read from disk by the module-resolution cache.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bubbleflow_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	WatcherThrottledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bubbleflow_watcher_throttled_total",
		Help: "Total number of re-analysis requests dropped by the rate limiter.",
	})
)
