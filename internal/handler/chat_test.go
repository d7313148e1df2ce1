package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashan/pytutor/internal/chat"
	"github.com/ashan/pytutor/internal/handler"
	"github.com/ashan/pytutor/internal/stream"
)

// mockChatClient emits a fixed set of deltas.
type mockChatClient struct {
	deltas []string
}

func (m *mockChatClient) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	return strings.Join(m.deltas, ""), nil
}

func (m *mockChatClient) Stream(ctx context.Context, systemPrompt, prompt string, h chat.StreamHandler) error {
	for _, d := range m.deltas {
		if err := h(d); err != nil {
			return err
		}
	}
	return nil
}

// newChatRouter mounts the chat routes the way the server does, so
// chi.URLParam resolves in tests.
func newChatRouter(svc *chat.Service) *chi.Mux {
	h := handler.NewChatHandler(svc, testLogger())
	r := chi.NewRouter()
	r.Post("/api/chat", h.HandleStream)
	r.Post("/api/chat/{requestID}/cancel", h.HandleCancel)
	r.Post("/api/explain", h.HandleExplain)
	r.Post("/api/quiz", h.HandleQuiz)
	return r
}

func TestChatHandler_HandleStream(t *testing.T) {
	registry := stream.NewRegistry()
	svc := chat.NewService(&mockChatClient{deltas: []string{"Hi", " there"}}, registry, testLogger())
	router := newChatRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		bytes.NewBufferString(`{"requestId":"r1","prompt":"hello"}`))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))
	assert.Equal(t, "r1", rr.Header().Get("X-Request-ID"))

	body := rr.Body.String()
	assert.Contains(t, body, `data: "Hi"`)
	assert.Contains(t, body, `data: " there"`)
	assert.Contains(t, body, "event: done")
	assert.Contains(t, body, `"terminal":"completed"`)
}

func TestChatHandler_GeneratesRequestID(t *testing.T) {
	svc := chat.NewService(&mockChatClient{deltas: []string{"ok"}}, stream.NewRegistry(), testLogger())
	router := newChatRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		bytes.NewBufferString(`{"prompt":"hello"}`))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"), "server assigns an id when the client sends none")
}

func TestChatHandler_EmptyPrompt(t *testing.T) {
	svc := chat.NewService(&mockChatClient{}, stream.NewRegistry(), testLogger())
	router := newChatRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		bytes.NewBufferString(`{"prompt":""}`))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestChatHandler_HandleCancel(t *testing.T) {
	registry := stream.NewRegistry()
	svc := chat.NewService(&mockChatClient{}, registry, testLogger())
	router := newChatRouter(svc)

	t.Run("cancel active session", func(t *testing.T) {
		registry.Begin("r1")
		defer registry.End("r1")

		req := httptest.NewRequest(http.MethodPost, "/api/chat/r1/cancel", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp handler.CancelResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.True(t, resp.Success)
		assert.True(t, registry.IsCancelled("r1"))
	})

	t.Run("cancel unknown session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/chat/ghost/cancel", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		// A miss is a no-op, reported in the body — not an HTTP error.
		assert.Equal(t, http.StatusOK, rr.Code)

		var resp handler.CancelResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.False(t, resp.Success)
		assert.Contains(t, resp.Error, "ghost")
	})

	t.Run("stale abort leaves the active session alone", func(t *testing.T) {
		registry.Begin("r2")
		defer registry.End("r2")

		req := httptest.NewRequest(http.MethodPost, "/api/chat/old-id/cancel", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		var resp handler.CancelResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.False(t, resp.Success)
		assert.False(t, registry.IsCancelled("r2"))
	})
}

func TestChatHandler_NilService(t *testing.T) {
	router := newChatRouter(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		bytes.NewBufferString(`{"prompt":"hello"}`))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestChatHandler_HandleExplain(t *testing.T) {
	svc := chat.NewService(&mockChatClient{deltas: []string{"A dict maps keys to values."}},
		stream.NewRegistry(), testLogger())
	router := newChatRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/explain",
		bytes.NewBufferString(`{"concept":"dictionaries"}`))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "A dict maps keys to values.", resp["response"])
}

func TestChatHandler_HandleQuiz(t *testing.T) {
	svc := chat.NewService(&mockChatClient{deltas: []string{"Q1: What is a tuple?"}},
		stream.NewRegistry(), testLogger())
	router := newChatRouter(svc)

	t.Run("valid request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/quiz",
			bytes.NewBufferString(`{"topic":"tuples","difficulty":"easy","numQuestions":2}`))
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp map[string]string
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "Q1: What is a tuple?", resp["response"])
	})

	t.Run("missing topic", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/quiz",
			bytes.NewBufferString(`{"difficulty":"easy"}`))
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
