// Package engine implements the mutation interceptor: the synchronous hooks
// a storage layer calls around every insert, update, and delete.
//
// Before runs the entity's Before-timing policies in registration order
// inside the caller's transactional unit: a matching Protect or FSMGuard
// rejects and short-circuits, a matching Transform rewrites the proposed row
// (or substitutes the operation itself, as soft delete does) with the result
// visible to the remaining policies in the same pass. After fires Audit
// policies best-effort once the mutation has committed; an append failure is
// reported through logging, metrics, and an optional callback, never as a
// mutation failure.
package engine
