// Package sandbox defines the contract for running untrusted learner Python
// in an isolated worker with a hard wall-clock bound.
//
// The package is split the same way the rest of the app is: this file holds
// the interface and plain data types, the docker/ subpackage holds the one
// real implementation. Handlers and services depend only on Executor, so
// tests swap in a mock and never touch a container runtime.
package sandbox

import (
	"context"
	"time"
)

// Submission is one execution attempt: the raw source text plus the
// wall-clock budget it is allowed. A zero Timeout means "use the executor's
// configured default". Submissions are created per call and never reused.
type Submission struct {
	Source  string        `json:"source"`
	Timeout time.Duration `json:"timeout"`
}

// Executor runs a single submission in a fresh, isolated worker.
//
// Execute blocks the caller until the worker has finished AND been reaped —
// an Outcome is never returned while its worker is still alive. The returned
// error is reserved for infrastructure failures (container runtime down);
// everything the submission itself does wrong (denylist hit, crash, timeout)
// comes back as a structured Outcome, never as an error.
type Executor interface {
	Execute(ctx context.Context, sub Submission) (*Outcome, error)
}
