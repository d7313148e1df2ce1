package docker

import (
	"time"

	"github.com/ashan/pytutor/internal/sandbox"
)

// Config holds the configuration for Docker-backed execution.
type Config struct {
	// Image is the Docker image workers run in.
	Image string
	// MemoryLimit is the maximum memory a worker may use (in bytes).
	MemoryLimit int64
	// CPULimit is the number of CPUs a worker may use.
	CPULimit float64
	// DefaultTimeout applies when a submission carries no timeout of its own.
	DefaultTimeout time.Duration
	// MaxTimeout caps the per-submission timeout a caller may request.
	MaxTimeout time.Duration
	// PoolSize is the number of pre-warmed containers kept ready.
	PoolSize int
	// Denylist overrides the safety filter's denylist; nil means
	// sandbox.DefaultDenylist.
	Denylist []string
}

// DefaultConfig provides sensible defaults for a learner-code sandbox.
func DefaultConfig() Config {
	return Config{
		Image: "python:3.12-alpine",
		// 128 MB memory limit
		MemoryLimit: 128 * 1024 * 1024,
		// half a CPU
		CPULimit:       0.5,
		DefaultTimeout: 5 * time.Second,
		MaxTimeout:     30 * time.Second,
		PoolSize:       3,
		Denylist:       sandbox.DefaultDenylist,
	}
}
