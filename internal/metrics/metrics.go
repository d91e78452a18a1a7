// Package metrics holds the Prometheus collectors for the server and the
// trainer. A nil *Manager records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "repcoach"

type Manager struct {
	reg *prometheus.Registry

	// counters
	CounterRequests         *prometheus.CounterVec
	CounterFrames           *prometheus.CounterVec
	CounterReps             *prometheus.CounterVec
	CounterAttemptsFinished *prometheus.CounterVec

	// gauges
	GaugeActiveAttempts prometheus.Gauge

	// histograms
	HistRequestDuration *prometheus.HistogramVec
}

// NewRegistry returns a registry with the Go runtime, process and build
// info collectors plus any extra collectors given.
func NewRegistry(extra ...prometheus.Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	reg.MustRegister(extra...)
	return reg
}

// NewTestManager returns a manager on a bare registry.
func NewTestManager() *Manager {
	return NewManager(prometheus.NewRegistry())
}

func NewManager(reg *prometheus.Registry) *Manager {
	factory := promauto.With(reg)

	return &Manager{
		reg: reg,
		CounterRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "The total number of HTTP requests by method and status.",
		}, []string{"method", "status"}),
		CounterFrames: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trainer",
			Name:      "frames_total",
			Help:      "Classified frames by exercise and result (correct, incorrect, abstain).",
		}, []string{"exercise", "result"}),
		CounterReps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trainer",
			Name:      "reps_total",
			Help:      "Credited repetitions by exercise.",
		}, []string{"exercise"}),
		CounterAttemptsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trainer",
			Name:      "attempts_finished_total",
			Help:      "Finished attempts by exercise and outcome (passed, failed, surrendered).",
		}, []string{"exercise", "outcome"}),
		GaugeActiveAttempts: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "trainer",
			Name:      "active_attempts",
			Help:      "Attempts started and not yet finished or discarded.",
		}),
		HistRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		}, []string{"method"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Request records one served HTTP request.
func (m *Manager) Request(method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.CounterRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.HistRequestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// Frame records one classified frame.
func (m *Manager) Frame(exercise string, observed, correct bool) {
	if m == nil {
		return
	}
	result := "abstain"
	switch {
	case observed && correct:
		result = "correct"
	case observed:
		result = "incorrect"
	}
	m.CounterFrames.WithLabelValues(exercise, result).Inc()
}

// Rep records one credited repetition.
func (m *Manager) Rep(exercise string) {
	if m == nil {
		return
	}
	m.CounterReps.WithLabelValues(exercise).Inc()
}

// AttemptStarted records a new live attempt.
func (m *Manager) AttemptStarted() {
	if m == nil {
		return
	}
	m.GaugeActiveAttempts.Inc()
}

// AttemptDiscarded records an unfinished attempt dropped without scoring.
func (m *Manager) AttemptDiscarded() {
	if m == nil {
		return
	}
	m.GaugeActiveAttempts.Dec()
}

// AttemptFinished records a scored attempt.
func (m *Manager) AttemptFinished(exercise string, passed, surrendered bool) {
	if m == nil {
		return
	}
	outcome := "failed"
	switch {
	case surrendered:
		outcome = "surrendered"
	case passed:
		outcome = "passed"
	}
	m.GaugeActiveAttempts.Dec()
	m.CounterAttemptsFinished.WithLabelValues(exercise, outcome).Inc()
}
