// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — plain values with JSON tags
// for the API surface, no behaviour attached.
package model

import (
	"time"

	"github.com/ashan/pytutor/internal/sandbox"
)

// Execution is the persisted record of one execution attempt: what was
// submitted and what came back. The live Outcome is ephemeral; this row is
// the only thing that survives the call.
type Execution struct {
	ID           string         `json:"id"`
	Source       string         `json:"source"`
	Status       sandbox.Status `json:"status"`
	Stdout       string         `json:"stdout"`
	Stderr       string         `json:"stderr"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	DurationMS   int64          `json:"durationMs"`
	CreatedAt    time.Time      `json:"createdAt"`
}
