package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/tripwire/pkg/config"
)

// TriggerMetrics tracks metrics for mutation interception.
//
// Metrics:
//   - tripwire_policy_evaluations_total: evaluations by entity, policy, decision
//   - tripwire_policy_evaluation_duration_seconds: Before-pass duration by entity
//   - tripwire_mutations_rejected_total: rejections by entity and policy
//   - tripwire_rows_transformed_total: row rewrites by entity and policy
//   - tripwire_operations_substituted_total: op substitutions by entity and policy
//   - tripwire_events_appended_total: audit events appended by entity and label
//   - tripwire_events_dropped_total: audit append failures by entity and label
type TriggerMetrics struct {
	evaluationsTotal    *prometheus.CounterVec
	evaluationDuration  *prometheus.HistogramVec
	rejectedTotal       *prometheus.CounterVec
	transformedTotal    *prometheus.CounterVec
	substitutedTotal    *prometheus.CounterVec
	eventsAppendedTotal *prometheus.CounterVec
	eventsDroppedTotal  *prometheus.CounterVec
}

// NewTriggerMetrics creates and registers trigger metrics with the provided
// registry.
func NewTriggerMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *TriggerMetrics {
	if cfg == nil {
		cfg = &config.MetricsConfig{Namespace: config.DefaultMetricsNamespace}
	}

	tm := &TriggerMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policy_evaluations_total",
				Help:      "Total number of policy evaluations",
			},
			[]string{"entity", "policy", "decision"},
		),

		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policy_evaluation_duration_seconds",
				Help:      "Duration of the Before-policy pass in seconds",
				// The pass runs inside the caller's transaction; it should
				// stay well under a millisecond.
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15), // 1µs to 16ms
			},
			[]string{"entity"},
		),

		rejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "mutations_rejected_total",
				Help:      "Total number of mutations rejected by a policy",
			},
			[]string{"entity", "policy"},
		),

		transformedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rows_transformed_total",
				Help:      "Total number of proposed rows rewritten by a transform policy",
			},
			[]string{"entity", "policy"},
		),

		substitutedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "operations_substituted_total",
				Help:      "Total number of mutations whose operation was substituted",
			},
			[]string{"entity", "policy"},
		),

		eventsAppendedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "events_appended_total",
				Help:      "Total number of audit events appended",
			},
			[]string{"entity", "label"},
		),

		eventsDroppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "events_dropped_total",
				Help:      "Total number of audit events that failed to append",
			},
			[]string{"entity", "label"},
		),
	}

	registry.MustRegister(
		tm.evaluationsTotal,
		tm.evaluationDuration,
		tm.rejectedTotal,
		tm.transformedTotal,
		tm.substitutedTotal,
		tm.eventsAppendedTotal,
		tm.eventsDroppedTotal,
	)

	return tm
}

// RecordEvaluation records one policy evaluation outcome.
func (m *TriggerMetrics) RecordEvaluation(entity, policy, decision string) {
	if m == nil {
		return
	}
	m.evaluationsTotal.WithLabelValues(entity, policy, decision).Inc()
}

// RecordPass records the duration of one Before-policy pass.
func (m *TriggerMetrics) RecordPass(entity string, d time.Duration) {
	if m == nil {
		return
	}
	m.evaluationDuration.WithLabelValues(entity).Observe(d.Seconds())
}

// RecordRejection records a policy rejection.
func (m *TriggerMetrics) RecordRejection(entity, policy string) {
	if m == nil {
		return
	}
	m.rejectedTotal.WithLabelValues(entity, policy).Inc()
}

// RecordTransform records a row rewrite.
func (m *TriggerMetrics) RecordTransform(entity, policy string) {
	if m == nil {
		return
	}
	m.transformedTotal.WithLabelValues(entity, policy).Inc()
}

// RecordSubstitution records an operation substitution.
func (m *TriggerMetrics) RecordSubstitution(entity, policy string) {
	if m == nil {
		return
	}
	m.substitutedTotal.WithLabelValues(entity, policy).Inc()
}

// RecordEventAppended records a successful audit append.
func (m *TriggerMetrics) RecordEventAppended(entity, label string) {
	if m == nil {
		return
	}
	m.eventsAppendedTotal.WithLabelValues(entity, label).Inc()
}

// RecordEventDropped records a failed audit append.
func (m *TriggerMetrics) RecordEventDropped(entity, label string) {
	if m == nil {
		return
	}
	m.eventsDroppedTotal.WithLabelValues(entity, label).Inc()
}
