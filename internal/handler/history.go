package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ashan/pytutor/internal/service"
)

// HistoryHandler serves the execution history.
type HistoryHandler struct {
	svc    *service.ExecutionService
	logger *slog.Logger
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(svc *service.ExecutionService, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{
		svc:    svc,
		logger: logger,
	}
}

// HandleList returns past execution attempts, newest first.
// Query params: limit (default 20, max 100), offset (default 0).
func (h *HistoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	executions, err := h.svc.History(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list executions", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, executions)
}

// HandleGetByID returns a single past execution attempt.
func (h *HistoryHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	exec, err := h.svc.GetExecution(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, exec)
}
