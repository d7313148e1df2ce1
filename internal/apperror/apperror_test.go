package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("execution", "abc123"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("code", "code is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Unavailable wraps ErrUnavailable",
			err:       Unavailable("sandbox executor"),
			target:    ErrUnavailable,
			wantMatch: true,
		},
		{
			name:      "Unauthorized wraps ErrUnauthorized",
			err:       Unauthorized("missing token"),
			target:    ErrUnauthorized,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("execution", "abc123"),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "wrapped AppError still matches through fmt.Errorf",
			err:       fmt.Errorf("getting execution: %w", NotFound("execution", "abc123")),
			target:    ErrNotFound,
			wantMatch: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.wantMatch {
				t.Errorf("errors.Is() = %v, want %v", got, tt.wantMatch)
			}
		})
	}
}

func TestErrorsAs(t *testing.T) {
	err := fmt.Errorf("running submission: %w", ValidationFailed("code", "code cannot be empty"))

	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatal("errors.As() should find the AppError in the chain")
	}
	if appErr.Message != "code cannot be empty" {
		t.Errorf("Message = %q, want %q", appErr.Message, "code cannot be empty")
	}
	if appErr.Field != "code" {
		t.Errorf("Field = %q, want %q", appErr.Field, "code")
	}
}
