package repository

import (
	"context"

	"github.com/ashan/pytutor/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// ExecutionRepository stores the history of execution attempts.
type ExecutionRepository interface {
	Create(ctx context.Context, exec *model.Execution) error
	GetByID(ctx context.Context, id string) (*model.Execution, error)
	List(ctx context.Context, opts ListOptions) ([]model.Execution, error)
}
