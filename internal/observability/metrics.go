package observability

import (
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/yungbote/termbase-backend/internal/platform/envutil"
	"github.com/yungbote/termbase-backend/internal/platform/logger"
)

// Metrics holds the process-wide collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	apiRequests   *CounterVec
	apiLatency    *HistogramVec
	apiInflight   *Gauge
	jobRuns       *CounterVec
	jobLatency    *HistogramVec
	jobDropped    *CounterVec
	searchLatency *HistogramVec
	vectorIndex   *Gauge

	all []collector
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool { return envutil.Bool("METRICS_ENABLED", false) }

// Init returns the shared registry, or nil when METRICS_ENABLED is off.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

func NewMetrics() *Metrics {
	latency := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}
	m := &Metrics{
		apiRequests: NewCounterVec("termbase_api_requests_total", "API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency:  NewHistogramVec("termbase_api_request_duration_seconds", "API request latency by method/route.", []string{"method", "route"}, latency),
		apiInflight: NewGauge("termbase_api_inflight_requests", "In-flight API requests."),
		jobRuns:     NewCounterVec("termbase_job_runs_total", "Cascade job runs by kind/status.", []string{"kind", "status"}),
		jobLatency: NewHistogramVec("termbase_job_duration_seconds", "Cascade job run time by kind.", []string{"kind"},
			[]float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120}),
		jobDropped:    NewCounterVec("termbase_job_dropped_total", "Jobs dropped on a full queue by kind.", []string{"kind"}),
		searchLatency: NewHistogramVec("termbase_search_duration_seconds", "Search latency by status.", []string{"status"}, latency),
		vectorIndex:   NewGauge("termbase_vector_index_entries", "Vectors held by the in-memory index."),
	}
	m.all = []collector{m.apiRequests, m.apiLatency, m.apiInflight, m.jobRuns, m.jobLatency, m.jobDropped, m.searchLatency, m.vectorIndex}
	return m
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, _ *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range m.all {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.Inc(method, route, strconv.Itoa(status))
	m.apiLatency.Observe(dur.Seconds(), method, route)
}

func (m *Metrics) ApiInflightInc() {
	if m != nil {
		m.apiInflight.Inc()
	}
}

func (m *Metrics) ApiInflightDec() {
	if m != nil {
		m.apiInflight.Dec()
	}
}

func (m *Metrics) ObserveJob(kind, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.jobRuns.Inc(kind, status)
	m.jobLatency.Observe(dur.Seconds(), kind)
}

func (m *Metrics) IncJobDropped(kind string) {
	if m != nil {
		m.jobDropped.Inc(kind)
	}
}

func (m *Metrics) ObserveSearch(status string, dur time.Duration) {
	if m != nil {
		m.searchLatency.Observe(dur.Seconds(), status)
	}
}

func (m *Metrics) SetVectorIndexSize(n int) {
	if m != nil {
		m.vectorIndex.Set(float64(n))
	}
}
