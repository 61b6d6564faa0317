// Package metrics exposes Prometheus metrics for access code issuance and
// validation.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Validation outcomes
const (
	OutcomeValid    = "valid"
	OutcomeRequired = "required"
	OutcomeInvalid  = "invalid"
	OutcomeExpired  = "expired"
	OutcomeError    = "error"
)

// Metrics holds all application metrics. A nil *Metrics is a no-op.
type Metrics struct {
	CodesGenerated   prometheus.Counter
	CodesDeactivated prometheus.Counter
	CodesDeleted     prometheus.Counter
	CodesSwept       prometheus.Counter
	Validations      *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CodesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "access_codes_generated_total",
			Help: "Total access codes issued",
		}),
		CodesDeactivated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "access_codes_deactivated_total",
			Help: "Total access codes explicitly deactivated",
		}),
		CodesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "access_codes_deleted_total",
			Help: "Total access codes hard deleted",
		}),
		CodesSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "access_codes_swept_total",
			Help: "Total expired access codes deactivated by the sweep job",
		}),
		Validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "access_code_validations_total",
			Help: "Access code validations by outcome",
		}, []string{"outcome"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		m.CodesGenerated,
		m.CodesDeactivated,
		m.CodesDeleted,
		m.CodesSwept,
		m.Validations,
		m.HTTPRequests,
		m.HTTPDuration,
	)

	return m
}

func (m *Metrics) CodeGenerated() {
	if m == nil {
		return
	}
	m.CodesGenerated.Inc()
}

func (m *Metrics) CodeDeactivated() {
	if m == nil {
		return
	}
	m.CodesDeactivated.Inc()
}

func (m *Metrics) CodeDeleted() {
	if m == nil {
		return
	}
	m.CodesDeleted.Inc()
}

func (m *Metrics) CodesSweptBy(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.CodesSwept.Add(float64(n))
}

func (m *Metrics) Validation(outcome string) {
	if m == nil {
		return
	}
	m.Validations.WithLabelValues(outcome).Inc()
}

// Middleware records request counts and latency keyed by the chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := routePattern(r)
		m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		m.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
