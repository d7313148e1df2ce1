package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashan/pytutor/internal/service"
)

// ExecuteRequest is the submission payload for POST /api/execute.
type ExecuteRequest struct {
	Code string `json:"code"`
	// TimeoutSeconds is optional; zero means the executor's default, and
	// the executor caps whatever is asked for.
	TimeoutSeconds int `json:"timeoutSeconds"`
}

// ExecuteHandler handles code execution requests.
type ExecuteHandler struct {
	svc    *service.ExecutionService
	logger *slog.Logger
}

// NewExecuteHandler creates a new ExecuteHandler.
func NewExecuteHandler(svc *service.ExecutionService, logger *slog.Logger) *ExecuteHandler {
	return &ExecuteHandler{
		svc:    svc,
		logger: logger,
	}
}

// HandleExecute processes an incoming code execution request and returns
// the structured outcome. Unsafe, crashed, and timed-out submissions are
// 200s with the status in the body — the request itself succeeded.
func (h *ExecuteHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid execution request body", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid request body",
		})
		return
	}

	outcome, err := h.svc.Run(r.Context(), req.Code, time.Duration(req.TimeoutSeconds)*time.Second)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}
