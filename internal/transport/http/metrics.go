package http

import (
	"net/http"
	"strconv"
	"time"

	"assessment-engine/internal/domain"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the HTTP and assessment counters on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	assembled *prometheus.CounterVec
	answers   *prometheus.CounterVec
	finalized *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		assembled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assessment_tests_assembled_total",
				Help: "Tests assembled, by mode and whether the draw was under-filled",
			},
			[]string{"mode", "underfilled"},
		),
		answers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assessment_answers_total",
				Help: "Answer submissions by outcome",
			},
			[]string{"outcome"},
		),
		finalized: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assessment_attempts_finalized_total",
				Help: "Attempts finalized, by terminal state and band",
			},
			[]string{"state", "band"},
		),
	}
	m.registry.MustRegister(m.requests, m.duration, m.assembled, m.answers, m.finalized)
	return m
}

// Middleware records request counts and latency per route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := routePattern(r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeAssembled(t domain.AssembledTest) {
	if m == nil {
		return
	}
	m.assembled.WithLabelValues(string(t.Mode), strconv.FormatBool(t.Underfilled)).Inc()
}

func (m *Metrics) observeAnswer(receipt domain.AnswerReceipt, err error) {
	if m == nil {
		return
	}
	outcome := "ungraded"
	switch {
	case err != nil:
		outcome = domain.CodeOf(err)
	case receipt.Correct == nil:
	case *receipt.Correct:
		outcome = "correct"
	default:
		outcome = "incorrect"
	}
	m.answers.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeFinalized(res domain.FinalizationResult) {
	if m == nil {
		return
	}
	m.finalized.WithLabelValues(string(res.State), string(res.Band)).Inc()
}
