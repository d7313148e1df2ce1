package chat_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashan/pytutor/internal/chat"
)

// fakeOpenAI serves canned /chat/completions responses.
func fakeOpenAI(t *testing.T, handler http.HandlerFunc) *chat.OpenAICompatClient {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return chat.NewClient(ts.URL, "test-key", "test-model")
}

func TestOpenAICompatClient_Generate(t *testing.T) {
	client := fakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"A list is ordered."}}]}`)
	})

	text, err := client.Generate(context.Background(), "system", "what is a list?")
	require.NoError(t, err)
	assert.Equal(t, "A list is ordered.", text)
}

func TestOpenAICompatClient_Stream_DeliversDeltas(t *testing.T) {
	client := fakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\" there\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	var deltas []string
	err := client.Stream(context.Background(), "system", "hello", func(d string) error {
		deltas = append(deltas, d)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Hi", " there"}, deltas)
}

func TestOpenAICompatClient_Stream_ServerError(t *testing.T) {
	// A non-rate-limit failure is returned without entering the delta loop.
	client := fakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		// Tells the SDK not to retry on its own.
		w.Header().Set("x-should-retry", "false")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"message":"boom"}}`)
	})

	err := client.Stream(context.Background(), "system", "hello", func(string) error {
		t.Fatal("handler must not run for a failed stream")
		return nil
	})

	require.Error(t, err)
}

func TestOpenAICompatClient_Stream_HandlerErrorStops(t *testing.T) {
	client := fakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	stop := fmt.Errorf("stop here")
	var seen []string
	err := client.Stream(context.Background(), "system", "hello", func(d string) error {
		seen = append(seen, d)
		return stop
	})

	assert.ErrorIs(t, err, stop, "handler errors surface unchanged")
	assert.Equal(t, []string{"a"}, seen)
}
