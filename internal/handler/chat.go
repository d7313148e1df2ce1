package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/xid"

	"github.com/ashan/pytutor/internal/apperror"
	"github.com/ashan/pytutor/internal/chat"
)

// ChatRequest is the payload for POST /api/chat.
type ChatRequest struct {
	// RequestID identifies the streaming session for later cancellation.
	// Generated server-side when absent and echoed in the X-Request-ID
	// header, so a client can cancel a stream it did not name itself.
	RequestID string `json:"requestId"`
	Prompt    string `json:"prompt"`
}

// CancelResponse is the result of a cancellation request.
type CancelResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ChatHandler streams tutoring answers over SSE and handles cancellation.
type ChatHandler struct {
	svc    *chat.Service
	logger *slog.Logger
}

// NewChatHandler creates a new ChatHandler. svc may be nil when no LLM is
// configured; the handler then reports the endpoint unavailable.
func NewChatHandler(svc *chat.Service, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		svc:    svc,
		logger: logger,
	}
}

// HandleStream runs one streaming chat session as a Server-Sent Events
// response: one "data:" event per text delta, then a terminal "done" event
// carrying the session's terminal state (completed, errored, or aborted).
func (h *ChatHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	if h.svc == nil {
		writeError(w, apperror.Unavailable("chat service"))
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid chat request body", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid request body",
		})
		return
	}
	if req.Prompt == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "prompt cannot be empty",
		})
		return
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = xid.New().String()
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "streaming unsupported by connection",
		})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	result, err := h.svc.StreamAnswer(r.Context(), requestID, req.Prompt, func(delta string) {
		// json.Marshal escapes newlines, keeping each delta on one SSE line
		data, _ := json.Marshal(delta)
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	})
	if err != nil {
		// The stream is already open; all we can do is report the failure
		// as the terminal event.
		fmt.Fprintf(w, "event: error\ndata: %q\n\n", "stream failed")
	}

	done, _ := json.Marshal(result)
	fmt.Fprintf(w, "event: done\ndata: %s\n\n", done)
	flusher.Flush()
}

// HandleCancel requests cancellation of an in-flight streaming session.
// Cancelling an unknown or already-finished session is a no-op reported as
// success=false, never an HTTP error.
func (h *ChatHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	if h.svc == nil {
		writeError(w, apperror.Unavailable("chat service"))
		return
	}

	requestID := chi.URLParam(r, "requestID")
	if h.svc.Cancel(requestID) {
		writeJSON(w, http.StatusOK, CancelResponse{Success: true})
		return
	}

	writeJSON(w, http.StatusOK, CancelResponse{
		Success: false,
		Error:   fmt.Sprintf("no active session with id %s", requestID),
	})
}

// ExplainRequest is the payload for POST /api/explain.
type ExplainRequest struct {
	Concept string `json:"concept"`
	Level   string `json:"level"`
}

// HandleExplain returns a non-streaming explanation of a Python concept.
func (h *ChatHandler) HandleExplain(w http.ResponseWriter, r *http.Request) {
	if h.svc == nil {
		writeError(w, apperror.Unavailable("chat service"))
		return
	}

	var req ExplainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Concept == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "concept cannot be empty",
		})
		return
	}

	text, err := h.svc.ExplainConcept(r.Context(), req.Concept, req.Level)
	if err != nil {
		h.logger.Error("explain concept failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"response": text})
}

// QuizRequest is the payload for POST /api/quiz.
type QuizRequest struct {
	Topic        string `json:"topic"`
	Difficulty   string `json:"difficulty"`
	NumQuestions int    `json:"numQuestions"`
}

// HandleQuiz returns a generated quiz on a Python topic.
func (h *ChatHandler) HandleQuiz(w http.ResponseWriter, r *http.Request) {
	if h.svc == nil {
		writeError(w, apperror.Unavailable("chat service"))
		return
	}

	var req QuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Topic == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "topic cannot be empty",
		})
		return
	}

	text, err := h.svc.GenerateQuiz(r.Context(), req.Topic, req.Difficulty, req.NumQuestions)
	if err != nil {
		h.logger.Error("generate quiz failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"response": text})
}

// CheckAnswerRequest is the payload for POST /api/check-answer.
type CheckAnswerRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// HandleCheckAnswer returns tutor feedback on a student's answer.
func (h *ChatHandler) HandleCheckAnswer(w http.ResponseWriter, r *http.Request) {
	if h.svc == nil {
		writeError(w, apperror.Unavailable("chat service"))
		return
	}

	var req CheckAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" || req.Answer == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "question and answer are required",
		})
		return
	}

	text, err := h.svc.CheckAnswer(r.Context(), req.Question, req.Answer)
	if err != nil {
		h.logger.Error("check answer failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"response": text})
}
