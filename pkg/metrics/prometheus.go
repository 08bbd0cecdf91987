package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	candlesTotal *prometheus.CounterVec
	labelsTotal  *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastClose    *prometheus.GaugeVec
	windowSize   *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		candlesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainpull_candles_appended_total",
				Help: "Closed candles appended per timeframe",
			},
			[]string{"timeframe"},
		),
		labelsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainpull_labels_applied_total",
				Help: "Forecast labels merged into windows per timeframe",
			},
			[]string{"timeframe"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainpull_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastClose: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "chainpull_last_close",
				Help: "Close price of the last appended candle",
			},
			[]string{"timeframe"},
		),
		windowSize: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "chainpull_window_size",
				Help: "Current number of candles held per timeframe",
			},
			[]string{"timeframe"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chainpull_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordCandle counts an appended candle and records its close price.
func (r *Recorder) RecordCandle(tf string, closePrice float64) {
	r.candlesTotal.WithLabelValues(tf).Inc()
	r.lastClose.WithLabelValues(tf).Set(closePrice)
}

// RecordWindowSize records the current window length for a timeframe.
func (r *Recorder) RecordWindowSize(tf string, n int) {
	r.windowSize.WithLabelValues(tf).Set(float64(n))
}

// RecordLabels counts labels merged for a timeframe.
func (r *Recorder) RecordLabels(tf string, n int) {
	r.labelsTotal.WithLabelValues(tf).Add(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
