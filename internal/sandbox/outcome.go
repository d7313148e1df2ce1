package sandbox

import "time"

// Status classifies the result of one execution attempt.
type Status string

const (
	// StatusCompleted means the worker ran to completion and exited cleanly.
	StatusCompleted Status = "completed"
	// StatusTimedOut means the deadline elapsed and the worker was killed.
	StatusTimedOut Status = "timed_out"
	// StatusUnsafe means the safety filter rejected the source before any
	// worker was spawned.
	StatusUnsafe Status = "unsafe"
	// StatusCrashed means the worker ran but reported a failure (non-zero
	// exit, usually an uncaught exception).
	StatusCrashed Status = "crashed"
)

// Outcome is the structured result of one execution attempt. It is produced
// exactly once per Execute call and never mutated after it is returned.
//
// Stdout and Stderr are the worker's captured streams. For a timed-out
// worker they hold whatever partial output made it across before the kill,
// which may be nothing.
type Outcome struct {
	Status       Status        `json:"status"`
	Stdout       string        `json:"stdout"`
	Stderr       string        `json:"stderr"`
	ErrorMessage string        `json:"errorMessage,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// OK reports whether the submission ran to completion without error.
func (o *Outcome) OK() bool {
	return o.Status == StatusCompleted
}
