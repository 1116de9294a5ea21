package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline kinds used as the "kind" label.
const (
	KindSearch   = "search"
	KindCategory = "category"
)

var (
	// pipelineLat records engine run time by kind (search or category).
	pipelineLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "discovery_pipeline_duration_seconds",
			Help:    "Duration of discovery pipeline runs in seconds.",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"kind"},
	)

	// itemsGenerated counts synthetic items added by pool expansion.
	itemsGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "discovery_items_generated_total",
			Help: "Synthetic items added by pool expansion.",
		},
	)

	// dupRemoved counts items removed by each dedupe stage.
	dupRemoved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_duplicates_removed_total",
			Help: "Items removed as duplicates, by stage.",
		},
		[]string{"stage"},
	)

	// cacheReqs counts result cache lookups by outcome (hit or miss).
	cacheReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_cache_requests_total",
			Help: "Result cache lookups by outcome.",
		},
		[]string{"result"},
	)

	// fallbacks counts requests answered with default data after an engine error.
	fallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_fallbacks_total",
			Help: "Requests answered with default recommendations after a failure.",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(pipelineLat, itemsGenerated, dupRemoved, cacheReqs, fallbacks)
}

// PipelineRun describes one engine run for ObservePipeline.
type PipelineRun struct {
	Kind         string
	Duration     time.Duration
	Generated    int
	Dropped      int // within-category (diversify)
	CrossRemoved int // cross-category
}

// ObservePipeline records the counters of one engine run.
func ObservePipeline(r PipelineRun) {
	pipelineLat.WithLabelValues(r.Kind).Observe(r.Duration.Seconds())
	if r.Generated > 0 {
		itemsGenerated.Add(float64(r.Generated))
	}
	if r.Dropped > 0 {
		dupRemoved.WithLabelValues("diversify").Add(float64(r.Dropped))
	}
	if r.CrossRemoved > 0 {
		dupRemoved.WithLabelValues("cross_category").Add(float64(r.CrossRemoved))
	}
}

// ObserveCache records a result cache lookup.
func ObserveCache(hit bool) {
	if hit {
		cacheReqs.WithLabelValues("hit").Inc()
		return
	}
	cacheReqs.WithLabelValues("miss").Inc()
}

// ObserveFallback records a request served from defaults.
func ObserveFallback(kind string) {
	fallbacks.WithLabelValues(kind).Inc()
}
