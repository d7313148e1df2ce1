package handler

import (
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/ashan/pytutor/internal/auth"
)

// SessionHandler issues anonymous session tokens.
type SessionHandler struct {
	tokens *auth.TokenService
	logger *slog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(tokens *auth.TokenService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		tokens: tokens,
		logger: logger,
	}
}

// HandleCreate mints a fresh session id and returns a signed token for it.
// There are no user accounts — the token just gives the rest of the API a
// stable, verifiable caller identity.
func (h *SessionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	sessionID := xid.New().String()

	token, err := h.tokens.Generate(sessionID)
	if err != nil {
		h.logger.Error("failed to issue session token", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "could not issue session token",
		})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"sessionId": sessionID,
		"token":     token,
	})
}
