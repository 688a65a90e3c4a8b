package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder exposes pipeline and read-path metrics via Prometheus.
type Recorder struct {
	runsTotal     *prometheus.CounterVec
	stageFailures *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
	stageDuration *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		runsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_pipeline_runs_total",
				Help: "Total number of pipeline runs by outcome",
			},
			[]string{"outcome"},
		),
		stageFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_stage_failures_total",
				Help: "Total number of per-symbol stage failures",
			},
			[]string{"stage"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "finsight_last_close",
				Help: "Last fetched close price for a symbol",
			},
			[]string{"symbol"},
		),
		stageDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finsight_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
	}
}

// RecordRun records a completed pipeline run outcome.
func (r *Recorder) RecordRun(outcome string) {
	r.runsTotal.WithLabelValues(outcome).Inc()
}

// RecordStageFailure records a per-symbol stage failure.
func (r *Recorder) RecordStageFailure(stage string) {
	r.stageFailures.WithLabelValues(stage).Inc()
}

// RecordLastClose records the most recent close price for a symbol.
func (r *Recorder) RecordLastClose(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordStageDuration records stage latency in seconds.
func (r *Recorder) RecordStageDuration(stage string, seconds float64) {
	r.stageDuration.WithLabelValues(stage).Observe(seconds)
}

// Handler returns the HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
