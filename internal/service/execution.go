// Package service contains the business logic layer of the application.
//
// The split is the usual three layers:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, enforces bounds, orchestrates
//	Repository (data layer)  → reads/writes the database
//
// The service depends on the sandbox.Executor and repository interfaces,
// not their concrete types, so tests swap in mocks with plain structs.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashan/pytutor/internal/apperror"
	"github.com/ashan/pytutor/internal/model"
	"github.com/ashan/pytutor/internal/repository"
	"github.com/ashan/pytutor/internal/sandbox"
)

// Validation bounds for submissions and history listing.
const (
	MaxSourceLength  = 100000 // ~100KB of code
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ExecutionService runs submissions through the sandbox and records each
// attempt in the history repository.
type ExecutionService struct {
	exec   sandbox.Executor
	repo   repository.ExecutionRepository
	logger *slog.Logger
}

// NewExecutionService creates an ExecutionService. exec may be nil when the
// sandbox runtime is unavailable; Run then fails with ErrUnavailable
// instead of panicking, and the rest of the app keeps working.
func NewExecutionService(exec sandbox.Executor, repo repository.ExecutionRepository, logger *slog.Logger) *ExecutionService {
	return &ExecutionService{
		exec:   exec,
		repo:   repo,
		logger: logger,
	}
}

// Run validates and executes one submission, records the attempt, and
// returns the outcome. Unsafe, crashed, and timed-out submissions are
// normal outcomes here — the error return is for validation failures and
// infrastructure trouble only.
func (s *ExecutionService) Run(ctx context.Context, source string, timeout time.Duration) (*sandbox.Outcome, error) {
	if s.exec == nil {
		return nil, fmt.Errorf("running submission: %w", apperror.Unavailable("sandbox executor"))
	}
	if source == "" {
		return nil, fmt.Errorf("running submission: %w", apperror.ValidationFailed("code", "code cannot be empty"))
	}
	if len(source) > MaxSourceLength {
		return nil, fmt.Errorf("running submission: %w", apperror.ValidationFailed("code",
			fmt.Sprintf("code exceeds maximum length of %d bytes", MaxSourceLength)))
	}
	if timeout < 0 {
		return nil, fmt.Errorf("running submission: %w", apperror.ValidationFailed("timeoutSeconds", "timeout cannot be negative"))
	}

	outcome, err := s.exec.Execute(ctx, sandbox.Submission{Source: source, Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("running submission: %w", err)
	}

	s.logger.Info("submission executed",
		slog.String("status", string(outcome.Status)),
		slog.Duration("duration", outcome.Duration),
	)

	// History is best effort: a failed insert must not turn a perfectly
	// good outcome into an error for the caller.
	record := &model.Execution{
		Source:       source,
		Status:       outcome.Status,
		Stdout:       outcome.Stdout,
		Stderr:       outcome.Stderr,
		ErrorMessage: outcome.ErrorMessage,
		DurationMS:   outcome.Duration.Milliseconds(),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		s.logger.Error("failed to record execution", slog.String("error", err.Error()))
	}

	return outcome, nil
}

// History lists past execution attempts, newest first.
func (s *ExecutionService) History(ctx context.Context, limit, offset int) ([]model.Execution, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	executions, err := s.repo.List(ctx, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("listing executions: %w", err)
	}
	return executions, nil
}

// GetExecution retrieves one past execution attempt by id.
func (s *ExecutionService) GetExecution(ctx context.Context, id string) (*model.Execution, error) {
	if id == "" {
		return nil, fmt.Errorf("getting execution: %w", apperror.ValidationFailed("id", "id cannot be empty"))
	}
	exec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting execution: %w", err)
	}
	return exec, nil
}
