// Package stream holds the cooperative-cancellation state shared between a
// streaming producer loop and whoever wants to stop it.
//
// The producer (the chat service emitting LLM deltas) calls Begin when a
// session starts, polls IsCancelled between emitted units, and calls End on
// any terminal outcome. The HTTP cancel endpoint calls Abort from a
// different goroutine. Cancellation is cooperative, never preemptive: the
// loop decides when it is safe to check and stop, so the latency is at most
// one unit-production interval.
package stream

import "sync"

// Registry tracks the single currently-active streaming session and its
// cancellation flag. All state sits behind one mutex; no lock is held
// across any blocking operation.
//
// Known limitation: the registry is single-tenant. One active request id at
// a time — a second Begin replaces the first session's id, so an Abort
// aimed at the first session will miss. The HTTP layer runs one streaming
// session at a time, which is the usage this design assumes. Scaling to
// concurrent sessions means a map keyed by request id; not done here.
type Registry struct {
	mu        sync.Mutex
	active    string
	cancelled bool
}

// NewRegistry creates an idle Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Begin records requestID as the active session and clears the cancellation
// flag. Any previously active session is silently replaced.
func (r *Registry) Begin(requestID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = requestID
	r.cancelled = false
}

// IsCancelled reports whether requestID is the active session AND has been
// aborted. A stale or unknown id is never cancelled.
func (r *Registry) IsCancelled(requestID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active == requestID && r.cancelled
}

// Abort requests cancellation of requestID. It returns true if requestID is
// the active session and the flag was set; false for stale, unknown, or
// already-ended ids — a no-op, not an error, and never destructive to
// whatever session is actually active.
func (r *Registry) Abort(requestID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != requestID || r.active == "" {
		return false
	}
	r.cancelled = true
	return true
}

// End clears the active session and flag, but only if requestID still is
// the active session. The guard keeps a late End from a replaced session
// from wiping state that now belongs to someone else, and keeps a stale
// cancellation from leaking into the next session.
func (r *Registry) End(requestID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == requestID {
		r.active = ""
		r.cancelled = false
	}
}
