package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides observability for survey loads, the map bridge and the
// HTTP surface.
type Metrics struct {
	// Load attempts by source kind and outcome
	Loads *prometheus.CounterVec

	// Fetch latency by source kind
	LoadLatency *prometheus.HistogramVec

	// Respondents in the last successful aggregation
	Respondents prometheus.Gauge

	// Recommendation points currently served
	Points prometheus.Gauge

	// District selection changes pushed to subscribers
	SelectionChanges prometheus.Counter

	// HTTP requests by route and status code
	Requests *prometheus.CounterVec

	registry *prometheus.Registry
}

// New registers every metric on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Loads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qoparu_loads_total",
			Help: "Total data loads by source and status",
		}, []string{"source", "status"}), // source: "survey", "points", "geojson"

		LoadLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "qoparu_load_duration_seconds",
			Help:    "Duration of data loads by source",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),

		Respondents: f.NewGauge(prometheus.GaugeOpts{
			Name: "qoparu_survey_respondents",
			Help: "Respondents counted in the current aggregation",
		}),

		Points: f.NewGauge(prometheus.GaugeOpts{
			Name: "qoparu_points",
			Help: "Recommendation points currently loaded",
		}),

		SelectionChanges: f.NewCounter(prometheus.CounterOpts{
			Name: "qoparu_selection_changes_total",
			Help: "District selection changes",
		}),

		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qoparu_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),

		registry: reg,
	}
}

// ObserveLoad records one load attempt.
func (m *Metrics) ObserveLoad(source, status string, d time.Duration) {
	if m != nil {
		m.Loads.WithLabelValues(source, status).Inc()
		m.LoadLatency.WithLabelValues(source).Observe(d.Seconds())
	}
}

// SetRespondents sets the respondents gauge.
func (m *Metrics) SetRespondents(n int) {
	if m != nil {
		m.Respondents.Set(float64(n))
	}
}

// SetPoints sets the points gauge.
func (m *Metrics) SetPoints(n int) {
	if m != nil {
		m.Points.Set(float64(n))
	}
}

// IncrementSelection counts a selection change.
func (m *Metrics) IncrementSelection() {
	if m != nil {
		m.SelectionChanges.Inc()
	}
}

// ObserveRequest counts one HTTP request.
func (m *Metrics) ObserveRequest(route, code string) {
	if m != nil {
		m.Requests.WithLabelValues(route, code).Inc()
	}
}

// Registry exposes the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
