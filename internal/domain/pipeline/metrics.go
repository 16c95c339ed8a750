package pipeline

import "github.com/prometheus/client_golang/prometheus"

var (
	evalSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "datagrid",
			Subsystem: "pipeline",
			Name:      "eval_seconds",
			Help:      "Time spent filtering, searching and sorting rows.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
		[]string{"table"},
	)

	memoHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "datagrid",
			Subsystem: "pipeline",
			Name:      "memo_hits_total",
			Help:      "Evaluations served from the memoized row set.",
		},
		[]string{"table"},
	)

	fallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "datagrid",
			Subsystem: "pipeline",
			Name:      "filter_fallbacks_total",
			Help:      "Filters that reached no evaluation rule and kept the row.",
		},
		[]string{"table", "variant", "operator"},
	)
)

// RegisterMetrics registers the pipeline collectors.
func RegisterMetrics(reg prometheus.Registerer) {
	for _, c := range []prometheus.Collector{evalSeconds, memoHits, fallbacks} {
		_ = reg.Register(c)
	}
}
