package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/tripwire/pkg/eventlog"
	"mercator-hq/tripwire/pkg/telemetry/metrics"
	"mercator-hq/tripwire/pkg/telemetry/tracing"
	"mercator-hq/tripwire/pkg/trigger"
	"mercator-hq/tripwire/pkg/trigger/registry"
)

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithMetrics attaches prometheus instrumentation.
func WithMetrics(m *metrics.TriggerMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTracer attaches an OpenTelemetry tracer.
func WithTracer(t *tracing.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithAppendErrorHandler installs a callback invoked on every failed audit
// append, after the failure has been logged and counted. The mutation
// outcome is already settled when it runs.
func WithAppendErrorHandler(fn func(*trigger.EventAppendError)) Option {
	return func(e *Engine) { e.onAppendError = fn }
}

// Engine is the mutation interceptor. It holds no per-mutation state and is
// safe for concurrent use; concurrency control is inherited from the
// underlying store's transactions.
type Engine struct {
	registry      *registry.Registry
	appender      eventlog.Appender
	metrics       *metrics.TriggerMetrics
	tracer        *tracing.Tracer
	logger        *slog.Logger
	onAppendError func(*trigger.EventAppendError)
}

// New creates an engine over the given registry. The appender receives audit
// events; pass nil to disable audit emission entirely (Audit policies are
// then skipped).
func New(reg *registry.Registry, appender eventlog.Appender, opts ...Option) *Engine {
	e := &Engine{
		registry: reg,
		appender: appender,
		logger:   slog.Default().With("component", "trigger.engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Before runs the Before-timing policies for the proposed mutation. On
// return with nil error the mutation is cleared to commit; m.Op and m.New
// may have been rewritten by Transform policies and m.SourceOp records the
// caller's original operation. A non-nil error is a *trigger.
// PolicyViolationError (or *trigger.UnknownTransitionError) and the caller
// must apply nothing.
func (e *Engine) Before(ctx context.Context, m *trigger.Mutation) error {
	if err := checkMutation(m); err != nil {
		return err
	}
	if m.SourceOp == "" {
		m.SourceOp = m.Op
	}

	start := time.Now()

	var span spanCloser
	if e.tracer != nil {
		var spanCtx context.Context
		spanCtx, sp := e.tracer.StartMutation(ctx, m.Entity, string(m.Op))
		ctx = spanCtx
		span = func(decision string, err error) { e.tracer.EndMutation(sp, decision, err) }
	}

	policies := e.registry.Lookup(m.Entity, m.Op, trigger.Before)

	for i := range policies {
		p := &policies[i]

		if registry.IsSuppressed(ctx, m.Entity, p.Name) {
			e.logger.Debug("policy suppressed",
				"entity", m.Entity,
				"policy", p.Name,
			)
			e.record(m.Entity, p.Name, "suppressed")
			continue
		}

		if p.Condition != nil && !p.Condition.Eval(m.Old, m.New) {
			e.record(m.Entity, p.Name, "no_match")
			continue
		}

		switch p.Kind {
		case trigger.KindProtect:
			err := trigger.NewPolicyViolationError(m.Entity, p.Name, m.Op, "protected operation")
			e.reject(m, p.Name, err)
			span.close("rejected", err)
			e.pass(m.Entity, start)
			return err

		case trigger.KindFSMGuard:
			if err := e.guardTransition(m, p); err != nil {
				e.reject(m, p.Name, err)
				span.close("rejected", err)
				e.pass(m.Entity, start)
				return err
			}
			e.record(m.Entity, p.Name, "allowed")

		case trigger.KindTransform:
			e.transform(m, p)

		default:
			// Audit never reaches the Before pass; the registry rejects the
			// timing at registration.
		}
	}

	span.close("allowed", nil)
	e.pass(m.Entity, start)
	return nil
}

// After fires the After-timing Audit policies for a committed mutation, in
// registration order, honoring suppression and conditions. Append failures
// are reported but never propagated: the commit already happened.
//
// The mutation must be the one Before returned, so a substituted operation
// audits as what was actually applied.
func (e *Engine) After(ctx context.Context, m *trigger.Mutation) {
	if e.appender == nil {
		return
	}

	for _, p := range e.registry.Lookup(m.Entity, m.Op, trigger.After) {
		if p.Kind != trigger.KindAudit {
			continue
		}
		if registry.IsSuppressed(ctx, m.Entity, p.Name) {
			e.record(m.Entity, p.Name, "suppressed")
			continue
		}
		if p.Condition != nil && !p.Condition.Eval(m.Old, m.New) {
			e.record(m.Entity, p.Name, "no_match")
			continue
		}

		ev := buildEvent(ctx, m, &p)
		if err := e.appender.Append(ctx, ev); err != nil {
			appendErr := trigger.NewEventAppendError(m.Entity, p.Name, p.Label, err)
			e.logger.Error("audit event append failed",
				"entity", m.Entity,
				"policy", p.Name,
				"label", p.Label,
				"error", err,
			)
			if e.metrics != nil {
				e.metrics.RecordEventDropped(m.Entity, p.Label)
			}
			if e.onAppendError != nil {
				e.onAppendError(appendErr)
			}
			continue
		}

		e.record(m.Entity, p.Name, "audited")
		if e.metrics != nil {
			e.metrics.RecordEventAppended(m.Entity, p.Label)
		}
	}
}

// guardTransition checks the guarded field's (old, new) pair against the
// allow-list. Exact match required; self-transitions reject unless listed.
func (e *Engine) guardTransition(m *trigger.Mutation, p *trigger.Policy) error {
	var from, to any
	if m.Old != nil {
		from = m.Old[p.Field]
	}
	if m.New != nil {
		to = m.New[p.Field]
	}
	if p.AllowsTransition(from, to) {
		return nil
	}
	return trigger.NewUnknownTransitionError(m.Entity, p.Name, p.Field, from, to)
}

// transform applies a Transform policy and accounts for row rewrites and
// operation substitution.
func (e *Engine) transform(m *trigger.Mutation, p *trigger.Policy) {
	opBefore := m.Op
	p.Transform(m)

	e.record(m.Entity, p.Name, "transformed")
	if e.metrics != nil {
		e.metrics.RecordTransform(m.Entity, p.Name)
		if m.Op != opBefore {
			e.metrics.RecordSubstitution(m.Entity, p.Name)
		}
	}
	if m.Op != opBefore {
		e.logger.Debug("operation substituted",
			"entity", m.Entity,
			"policy", p.Name,
			"from", opBefore,
			"to", m.Op,
		)
	}
}

// reject logs and counts a rejection.
func (e *Engine) reject(m *trigger.Mutation, policy string, err error) {
	e.logger.Info("mutation rejected",
		"entity", m.Entity,
		"policy", policy,
		"op", m.Op,
		"key", m.Key,
		"error", err,
	)
	e.record(m.Entity, policy, "rejected")
	if e.metrics != nil {
		e.metrics.RecordRejection(m.Entity, policy)
	}
}

func (e *Engine) record(entity, policy, decision string) {
	if e.metrics != nil {
		e.metrics.RecordEvaluation(entity, policy, decision)
	}
}

func (e *Engine) pass(entity string, start time.Time) {
	if e.metrics != nil {
		e.metrics.RecordPass(entity, time.Since(start))
	}
}

// buildEvent assembles the audit event for one fired policy.
func buildEvent(ctx context.Context, m *trigger.Mutation, p *trigger.Policy) *eventlog.Event {
	ev := &eventlog.Event{
		Entity:   m.Entity,
		EntityID: m.Key,
		Label:    p.Label,
		Policy:   p.Name,
		Op:       m.Op,
		Meta:     eventlog.MetaFromContext(ctx),
	}

	if p.DiffOnly {
		ev.Diff = eventlog.Diff(m.Old, m.New)
	} else if m.New != nil {
		ev.Snapshot = m.New.Clone()
	} else {
		// Deletes have no new row; capture the last known state.
		ev.Snapshot = m.Old.Clone()
	}

	return ev
}

// checkMutation validates the mutation's shape before evaluation.
func checkMutation(m *trigger.Mutation) error {
	if m == nil {
		return fmt.Errorf("mutation cannot be nil")
	}
	if m.Entity == "" {
		return fmt.Errorf("mutation entity cannot be empty")
	}
	if !m.Op.Valid() {
		return fmt.Errorf("unknown operation %q", m.Op)
	}
	switch m.Op {
	case trigger.OpInsert:
		if m.New == nil {
			return fmt.Errorf("insert mutation needs a new row")
		}
	case trigger.OpUpdate:
		if m.Old == nil || m.New == nil {
			return fmt.Errorf("update mutation needs old and new rows")
		}
	case trigger.OpDelete:
		if m.Old == nil {
			return fmt.Errorf("delete mutation needs an old row")
		}
	}
	return nil
}

// spanCloser defers span finalization without forcing every call site to
// check whether tracing is attached.
type spanCloser func(decision string, err error)

func (s spanCloser) close(decision string, err error) {
	if s != nil {
		s(decision, err)
	}
}
