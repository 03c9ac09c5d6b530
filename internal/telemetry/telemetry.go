// Package telemetry instruments the plotting pipeline with prometheus
// collectors.
package telemetry

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds the pipeline collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	CacheRequests  *prometheus.CounterVec
	CacheEvictions *prometheus.CounterVec
	StageDuration  *prometheus.HistogramVec
	AxisOutcomes   *prometheus.CounterVec
	Requests       *prometheus.CounterVec
	RowsLoaded     *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	return NewWith(reg, reg)
}

// NewWith registers the collectors on reg; g is used by Dump.
func NewWith(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CacheRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dssatview_cache_requests_total",
				Help: "Plot cache lookups by cache and result",
			},
			[]string{"cache", "result"},
		),
		CacheEvictions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dssatview_cache_evictions_total",
				Help: "Entries evicted from plot caches",
			},
			[]string{"cache"},
		),
		StageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dssatview_stage_duration_seconds",
				Help:    "Pipeline stage latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		AxisOutcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dssatview_axis_outcomes_total",
				Help: "Missing-axis synthesis outcomes",
			},
			[]string{"outcome"},
		),
		Requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dssatview_requests_total",
				Help: "Plot and metrics requests by operation and status",
			},
			[]string{"op", "status"},
		),
		RowsLoaded: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dssatview_rows_loaded_total",
				Help: "Table rows read by source",
			},
			[]string{"source"},
		),
		gatherer: g,
	}
}

// CacheHit counts a cache lookup.
func (m *Metrics) CacheHit(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequests.WithLabelValues(cache, result).Inc()
}

// CacheEvicted counts an eviction.
func (m *Metrics) CacheEvicted(cache string) {
	if m == nil {
		return
	}
	m.CacheEvictions.WithLabelValues(cache).Inc()
}

// Axis counts a synthesis outcome.
func (m *Metrics) Axis(outcome string) {
	if m == nil {
		return
	}
	m.AxisOutcomes.WithLabelValues(outcome).Inc()
}

// Request counts a finished request.
func (m *Metrics) Request(op string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.Requests.WithLabelValues(op, status).Inc()
}

// Rows counts loaded rows.
func (m *Metrics) Rows(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RowsLoaded.WithLabelValues(source).Add(float64(n))
}

// Stage starts a timer; call the returned func when the stage ends.
func (m *Metrics) Stage(name string) func() {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}
}

// Dump writes every non-zero series as "name{labels} value" lines, sorted.
// Histograms are reported as count and sum.
func (m *Metrics) Dump(w io.Writer) error {
	if m == nil || m.gatherer == nil {
		return nil
	}
	families, err := m.gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	var lines []string
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			labels := formatLabels(metric.GetLabel())
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				if v := metric.GetCounter().GetValue(); v != 0 {
					lines = append(lines, fmt.Sprintf("%s%s %g", mf.GetName(), labels, v))
				}
			case dto.MetricType_HISTOGRAM:
				h := metric.GetHistogram()
				if h.GetSampleCount() == 0 {
					continue
				}
				lines = append(lines,
					fmt.Sprintf("%s_count%s %d", mf.GetName(), labels, h.GetSampleCount()),
					fmt.Sprintf("%s_sum%s %.6f", mf.GetName(), labels, h.GetSampleSum()))
			}
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}

func formatLabels(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = fmt.Sprintf("%s=%q", p.GetName(), p.GetValue())
	}
	return "{" + strings.Join(parts, ",") + "}"
}
