// Package metrics exposes Prometheus counters for the prediction service
// calls, view transitions and HTTP traffic.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"loanpredictor/internal/services/flow"
)

const namespace = "loanpredictor"

// Service owns a private registry so tests and multiple servers never collide
type Service struct {
	registry *prometheus.Registry

	apiRequests  *prometheus.CounterVec
	apiDuration  *prometheus.HistogramVec
	transitions  *prometheus.CounterVec
	predictions  *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func New() *Service {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Service{
		registry: reg,
		apiRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Requests to the prediction service by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),
		apiDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Latency of prediction service requests",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_transitions_total",
			Help:      "Committed view transitions by event and target view",
		}, []string{"event", "to"}),
		predictions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Predictions shown to users by verdict",
		}, []string{"verdict"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served by method and status",
		}, []string{"method", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency of served HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// ObserveRequest records one prediction service call
func (s *Service) ObserveRequest(endpoint, outcome string, d time.Duration) {
	s.apiRequests.WithLabelValues(endpoint, outcome).Inc()
	s.apiDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// ObserveHTTP records one served request
func (s *Service) ObserveHTTP(method string, status int, d time.Duration) {
	s.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	s.httpDuration.WithLabelValues(method).Observe(d.Seconds())
}

// TransitionHook counts transitions and the verdicts that reach the result view
func (s *Service) TransitionHook() flow.Hook {
	return func(_ context.Context, c flow.Change) {
		s.transitions.WithLabelValues(flow.EventName(c.Event), c.To.State.String()).Inc()
		if _, ok := c.Event.(flow.PredictionSucceeded); ok && c.To.Prediction != nil {
			s.predictions.WithLabelValues(string(c.To.Prediction.Verdict)).Inc()
		}
	}
}

// TrackSessions exports the live session count reported by fn
func (s *Service) TrackSessions(fn func() int) {
	promauto.With(s.registry).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Browser sessions currently held in memory",
	}, func() float64 { return float64(fn()) })
}

// Handler serves the registry in the Prometheus exposition format
func (s *Service) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})
}
