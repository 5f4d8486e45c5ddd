package trigger

import "fmt"

// PolicyViolationError is returned when a Protect or FSMGuard policy rejects
// a mutation. The mutation has zero persisted effect.
type PolicyViolationError struct {
	Entity string // Target entity
	Policy string // Rejecting policy name
	Op     Op     // Attempted operation
	Reason string // Human-readable rejection reason
}

// Error implements the error interface.
func (e *PolicyViolationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("policy violation [entity=%s, policy=%s, op=%s]: %s", e.Entity, e.Policy, e.Op, e.Reason)
	}
	return fmt.Sprintf("policy violation [entity=%s, policy=%s, op=%s]", e.Entity, e.Policy, e.Op)
}

// NewPolicyViolationError creates a new PolicyViolationError.
func NewPolicyViolationError(entity, policy string, op Op, reason string) *PolicyViolationError {
	return &PolicyViolationError{Entity: entity, Policy: policy, Op: op, Reason: reason}
}

// UnknownTransitionError is the FSMGuard-specific rejection. It wraps a
// PolicyViolationError so errors.As against either type matches, and carries
// the observed (old, new) values for diagnosis.
type UnknownTransitionError struct {
	Violation *PolicyViolationError
	Field     string // Guarded field
	From      any    // Observed old value
	To        any    // Observed new value
}

// Error implements the error interface.
func (e *UnknownTransitionError) Error() string {
	return fmt.Sprintf("unknown transition [entity=%s, policy=%s, field=%s]: %v -> %v",
		e.Violation.Entity, e.Violation.Policy, e.Field, e.From, e.To)
}

// Unwrap returns the underlying policy violation.
func (e *UnknownTransitionError) Unwrap() error {
	return e.Violation
}

// NewUnknownTransitionError creates a new UnknownTransitionError.
func NewUnknownTransitionError(entity, policy, field string, from, to any) *UnknownTransitionError {
	return &UnknownTransitionError{
		Violation: &PolicyViolationError{
			Entity: entity,
			Policy: policy,
			Op:     OpUpdate,
			Reason: fmt.Sprintf("transition %v -> %v not in allow-list for field %q", from, to, field),
		},
		Field: field,
		From:  from,
		To:    to,
	}
}

// DuplicatePolicyError is returned at registration time when a policy name
// already exists on the entity. Fail fast rather than silently overwrite.
type DuplicatePolicyError struct {
	Entity string
	Policy string
}

// Error implements the error interface.
func (e *DuplicatePolicyError) Error() string {
	return fmt.Sprintf("duplicate policy name [entity=%s, policy=%s]", e.Entity, e.Policy)
}

// NewDuplicatePolicyError creates a new DuplicatePolicyError.
func NewDuplicatePolicyError(entity, policy string) *DuplicatePolicyError {
	return &DuplicatePolicyError{Entity: entity, Policy: policy}
}

// InvalidPolicyError is returned at registration time when a policy's shape
// is inconsistent (wrong timing for its kind, missing kind parameters).
type InvalidPolicyError struct {
	Entity string
	Policy string
	Reason string
}

// Error implements the error interface.
func (e *InvalidPolicyError) Error() string {
	return fmt.Sprintf("invalid policy [entity=%s, policy=%s]: %s", e.Entity, e.Policy, e.Reason)
}

// NewInvalidPolicyError creates a new InvalidPolicyError.
func NewInvalidPolicyError(entity, policy, reason string) *InvalidPolicyError {
	return &InvalidPolicyError{Entity: entity, Policy: policy, Reason: reason}
}

// EventAppendError reports a failed audit-event append. It is non-fatal: the
// mutation has already committed, so the failure is surfaced through the
// observability channel and never rolls anything back.
type EventAppendError struct {
	Entity string
	Policy string
	Label  string
	Cause  error
}

// Error implements the error interface.
func (e *EventAppendError) Error() string {
	return fmt.Sprintf("event append failed [entity=%s, policy=%s, label=%s]: %v", e.Entity, e.Policy, e.Label, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *EventAppendError) Unwrap() error {
	return e.Cause
}

// NewEventAppendError creates a new EventAppendError.
func NewEventAppendError(entity, policy, label string, cause error) *EventAppendError {
	return &EventAppendError{Entity: entity, Policy: policy, Label: label, Cause: cause}
}
