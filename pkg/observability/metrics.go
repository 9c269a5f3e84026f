package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type EngineMetrics struct {
	transitions *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	risk        *prometheus.CounterVec
	scores      prometheus.Histogram
	portErrors  *prometheus.CounterVec
	mirrorFails prometheus.Counter
	ruleCache   *prometheus.CounterVec
	tasks       *prometheus.CounterVec
}

var (
	engineMetricsOnce sync.Once
	engineRegistry    *EngineMetrics
)

// Metrics returns the lazily registered engine metrics.
func Metrics() *EngineMetrics {
	engineMetricsOnce.Do(func() {
		engineRegistry = &EngineMetrics{
			transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "trustescrow",
				Subsystem: "escrow",
				Name:      "transitions_total",
				Help:      "Escrow state transitions segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "trustescrow",
				Subsystem: "escrow",
				Name:      "operation_duration_seconds",
				Help:      "Latency of escrow operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			risk: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "trustescrow",
				Subsystem: "risk",
				Name:      "assessments_total",
				Help:      "Risk assessments segmented by level.",
			}, []string{"level"}),
			scores: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "trustescrow",
				Subsystem: "trust",
				Name:      "score",
				Help:      "Distribution of recalculated trust scores.",
				Buckets:   []float64{100, 200, 300, 400, 500, 600, 700, 800, 900, 1000},
			}),
			portErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "trustescrow",
				Subsystem: "payment",
				Name:      "port_errors_total",
				Help:      "Payment port failures segmented by call.",
			}, []string{"call"}),
			mirrorFails: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "trustescrow",
				Subsystem: "mirror",
				Name:      "failures_total",
				Help:      "Escrow mirror writes that failed and were skipped.",
			}),
			ruleCache: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "trustescrow",
				Subsystem: "risk",
				Name:      "rule_cache_total",
				Help:      "Custom risk rule program cache lookups.",
			}, []string{"result"}),
			tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "trustescrow",
				Subsystem: "worker",
				Name:      "tasks_total",
				Help:      "Background tasks segmented by type and outcome.",
			}, []string{"type", "outcome"}),
		}
		prometheus.MustRegister(
			engineRegistry.transitions,
			engineRegistry.latency,
			engineRegistry.risk,
			engineRegistry.scores,
			engineRegistry.portErrors,
			engineRegistry.mirrorFails,
			engineRegistry.ruleCache,
			engineRegistry.tasks,
		)
	})
	return engineRegistry
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *EngineMetrics) ObserveTransition(operation string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(operation, outcome(err)).Inc()
	m.latency.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

func (m *EngineMetrics) ObserveRisk(level string) {
	if m == nil {
		return
	}
	m.risk.WithLabelValues(level).Inc()
}

func (m *EngineMetrics) ObserveScore(score int) {
	if m == nil {
		return
	}
	m.scores.Observe(float64(score))
}

func (m *EngineMetrics) PortError(call string) {
	if m == nil {
		return
	}
	m.portErrors.WithLabelValues(call).Inc()
}

func (m *EngineMetrics) MirrorFailure() {
	if m == nil {
		return
	}
	m.mirrorFails.Inc()
}

func (m *EngineMetrics) RuleCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.ruleCache.WithLabelValues("hit").Inc()
		return
	}
	m.ruleCache.WithLabelValues("miss").Inc()
}

func (m *EngineMetrics) ObserveTask(taskType string, err error) {
	if m == nil {
		return
	}
	m.tasks.WithLabelValues(taskType, outcome(err)).Inc()
}
