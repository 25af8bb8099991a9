// Package metrics exposes extraction counters on a private Prometheus
// registry. Callers use the package-level helpers, which record on Default.
package metrics

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

const namespace = "rfqextract"

type Metrics struct {
	startTime time.Time
	registry  *prometheus.Registry

	documents      *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	lineItems      *prometheus.CounterVec
	placeholders   prometheus.Counter
	panics         prometheus.Counter
	classified     *prometheus.CounterVec
	ocrPages       prometheus.Counter
	ocrRotations   *prometheus.CounterVec
	toolRuns       *prometheus.CounterVec
	tempCleanupErr prometheus.Counter
	inFlight       prometheus.Gauge
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = New()
	})
	return defaultMetrics
}

func New() *Metrics {
	m := &Metrics{
		startTime: time.Now(),
		registry:  prometheus.NewRegistry(),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_extracted_total",
			Help:      "Documents extracted, by format and extraction method.",
		}, []string{"format", "method"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_seconds",
			Help:      "Wall time spent extracting one document.",
			Buckets:   []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"format"}),
		lineItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "line_items_total",
			Help:      "Line items produced, by strategy.",
		}, []string{"strategy"}),
		placeholders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "placeholder_items_total",
			Help:      "Documents that fell back to a placeholder item.",
		}),
		panics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractor_panics_total",
			Help:      "Panics recovered inside format extractors.",
		}),
		classified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attachments_classified_total",
			Help:      "Attachments classified, by category.",
		}, []string{"category"}),
		ocrPages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ocr_pages_total",
			Help:      "Pages or images sent through OCR.",
		}),
		ocrRotations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ocr_rotation_selected_total",
			Help:      "Rotation chosen as best OCR result.",
		}, []string{"degrees"}),
		toolRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_runs_total",
			Help:      "External tool invocations, by tool and result.",
		}, []string{"tool", "result"}),
		tempCleanupErr: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "temp_cleanup_errors_total",
			Help:      "Temp files that could not be removed.",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "extractions_in_flight",
			Help:      "Extractions currently running.",
		}),
	}

	m.registry.MustRegister(
		m.documents, m.duration, m.lineItems, m.placeholders, m.panics,
		m.classified, m.ocrPages, m.ocrRotations, m.toolRuns, m.tempCleanupErr,
		m.inFlight,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry exposes the underlying registry, e.g. for promhttp.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordDocument(format, method string, d time.Duration) {
	m.documents.WithLabelValues(format, method).Inc()
	m.duration.WithLabelValues(format).Observe(d.Seconds())
}

func (m *Metrics) RecordLineItems(strategy string, n int) {
	if n > 0 {
		m.lineItems.WithLabelValues(strategy).Add(float64(n))
	}
}

func (m *Metrics) RecordPlaceholder() {
	m.placeholders.Inc()
}

func (m *Metrics) RecordPanic() {
	m.panics.Inc()
}

func (m *Metrics) RecordClassification(category string) {
	m.classified.WithLabelValues(category).Inc()
}

func (m *Metrics) RecordOCRPage(rotation int) {
	m.ocrPages.Inc()
	m.ocrRotations.WithLabelValues(strconv.Itoa(rotation)).Inc()
}

func (m *Metrics) RecordToolRun(tool string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.toolRuns.WithLabelValues(tool, result).Inc()
}

func (m *Metrics) RecordTempCleanupError() {
	m.tempCleanupErr.Inc()
}

// TrackInFlight increments the in-flight gauge and returns the matching
// decrement.
func (m *Metrics) TrackInFlight() func() {
	m.inFlight.Inc()
	return m.inFlight.Dec
}

type Snapshot struct {
	Uptime            time.Duration    `json:"uptime"`
	Documents         int64            `json:"documents"`
	DocumentsByFormat map[string]int64 `json:"documents_by_format"`
	LineItems         int64            `json:"line_items"`
	ItemsByStrategy   map[string]int64 `json:"items_by_strategy"`
	Placeholders      int64            `json:"placeholders"`
	Panics            int64            `json:"panics"`
	OCRPages          int64            `json:"ocr_pages"`
	ToolFailures      int64            `json:"tool_failures"`
	PlaceholderRate   float64          `json:"placeholder_rate"`
}

func (m *Metrics) Snapshot() *Snapshot {
	s := &Snapshot{
		Uptime:            time.Since(m.startTime),
		DocumentsByFormat: make(map[string]int64),
		ItemsByStrategy:   make(map[string]int64),
	}

	families, err := m.registry.Gather()
	if err != nil {
		return s
	}
	for _, mf := range families {
		switch mf.GetName() {
		case namespace + "_documents_extracted_total":
			for _, mt := range mf.GetMetric() {
				v := int64(mt.GetCounter().GetValue())
				s.Documents += v
				s.DocumentsByFormat[label(mt, "format")] += v
			}
		case namespace + "_line_items_total":
			for _, mt := range mf.GetMetric() {
				v := int64(mt.GetCounter().GetValue())
				s.LineItems += v
				s.ItemsByStrategy[label(mt, "strategy")] += v
			}
		case namespace + "_placeholder_items_total":
			s.Placeholders = sumCounters(mf)
		case namespace + "_extractor_panics_total":
			s.Panics = sumCounters(mf)
		case namespace + "_ocr_pages_total":
			s.OCRPages = sumCounters(mf)
		case namespace + "_tool_runs_total":
			for _, mt := range mf.GetMetric() {
				if label(mt, "result") == "error" {
					s.ToolFailures += int64(mt.GetCounter().GetValue())
				}
			}
		}
	}

	if s.Documents > 0 {
		s.PlaceholderRate = float64(s.Placeholders) / float64(s.Documents) * 100
	}
	return s
}

// Prometheus renders the registry in the text exposition format, our own
// families first.
func (m *Metrics) Prometheus() string {
	families, err := m.registry.Gather()
	if err != nil {
		return ""
	}
	sort.SliceStable(families, func(i, j int) bool {
		oi := strings.HasPrefix(families[i].GetName(), namespace)
		oj := strings.HasPrefix(families[j].GetName(), namespace)
		return oi && !oj
	})

	var sb strings.Builder
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&sb, mf); err != nil {
			break
		}
	}
	return sb.String()
}

func sumCounters(mf *dto.MetricFamily) int64 {
	var total float64
	for _, mt := range mf.GetMetric() {
		total += mt.GetCounter().GetValue()
	}
	return int64(total)
}

func label(mt *dto.Metric, name string) string {
	for _, lp := range mt.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func RecordDocument(format, method string, d time.Duration) {
	Default().RecordDocument(format, method, d)
}

func RecordLineItems(strategy string, n int) {
	Default().RecordLineItems(strategy, n)
}

func RecordPlaceholder() {
	Default().RecordPlaceholder()
}

func RecordPanic() {
	Default().RecordPanic()
}

func RecordClassification(category string) {
	Default().RecordClassification(category)
}

func RecordOCRPage(rotation int) {
	Default().RecordOCRPage(rotation)
}

func RecordToolRun(tool string, err error) {
	Default().RecordToolRun(tool, err)
}

func RecordTempCleanupError() {
	Default().RecordTempCleanupError()
}

func TrackInFlight() func() {
	return Default().TrackInFlight()
}

func GetSnapshot() *Snapshot {
	return Default().Snapshot()
}

func Prometheus() string {
	return Default().Prometheus()
}
