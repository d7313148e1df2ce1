package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/ashan/pytutor/internal/apperror"
	"github.com/ashan/pytutor/internal/model"
	"github.com/ashan/pytutor/internal/repository"
	"github.com/ashan/pytutor/internal/sandbox"
)

// Compile-time check that *DB implements repository.ExecutionRepository.
var _ repository.ExecutionRepository = (*DB)(nil)

// Create inserts a new execution record. The record's ID and CreatedAt are
// assigned here: xid gives 20-char, URL-safe ids that sort by creation
// time, which keeps the history listing cheap.
func (db *DB) Create(ctx context.Context, exec *model.Execution) error {
	exec.ID = xid.New().String()
	exec.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO executions (id, source, status, stdout, stderr, error_message, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		exec.ID,
		exec.Source,
		string(exec.Status),
		exec.Stdout,
		exec.Stderr,
		exec.ErrorMessage,
		exec.DurationMS,
		exec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating execution: %w", err)
	}

	return nil
}

// GetByID retrieves a single execution record. sql.ErrNoRows is translated
// to the domain's NotFound error so the handler can map it to 404.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Execution, error) {
	var exec model.Execution
	var status string

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, source, status, stdout, stderr, error_message, duration_ms, created_at
		 FROM executions
		 WHERE id = ?`,
		id,
	).Scan(
		&exec.ID,
		&exec.Source,
		&status,
		&exec.Stdout,
		&exec.Stderr,
		&exec.ErrorMessage,
		&exec.DurationMS,
		&exec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("execution", id)
		}
		return nil, fmt.Errorf("sqlite: getting execution %s: %w", id, err)
	}

	exec.Status = sandbox.Status(status)
	return &exec, nil
}

// List returns execution records newest-first.
func (db *DB) List(ctx context.Context, opts repository.ListOptions) ([]model.Execution, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, source, status, stdout, stderr, error_message, duration_ms, created_at
		 FROM executions
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		opts.Limit,
		opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing executions: %w", err)
	}
	defer rows.Close()

	executions := []model.Execution{}
	for rows.Next() {
		var exec model.Execution
		var status string
		if err := rows.Scan(
			&exec.ID,
			&exec.Source,
			&status,
			&exec.Stdout,
			&exec.Stderr,
			&exec.ErrorMessage,
			&exec.DurationMS,
			&exec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning execution row: %w", err)
		}
		exec.Status = sandbox.Status(status)
		executions = append(executions, exec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating execution rows: %w", err)
	}

	return executions, nil
}
