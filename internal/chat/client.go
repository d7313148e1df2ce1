// Package chat produces tutoring answers from an OpenAI-compatible LLM,
// streaming them one text delta at a time under cooperative cancellation.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
)

// StreamHandler receives text deltas during streaming. Returning a non-nil
// error stops the stream; the error is surfaced by Stream unchanged, which
// is how the producer loop turns a cancellation check into a stop.
type StreamHandler func(delta string) error

// Client is the interface for LLM interactions. The chat service depends on
// this, not on the concrete OpenAI client, so tests script deltas without a
// network.
type Client interface {
	Generate(ctx context.Context, systemPrompt, prompt string) (string, error)
	Stream(ctx context.Context, systemPrompt, prompt string, handler StreamHandler) error
}

// OpenAICompatClient works with any OpenAI-compatible API (OpenAI, Ollama,
// vLLM, and friends) via a configurable base URL.
type OpenAICompatClient struct {
	client *openai.Client
	model  string
}

var _ Client = (*OpenAICompatClient)(nil)

// NewClient creates an LLM client for the given endpoint and model.
func NewClient(baseURL, apiKey, model string) *OpenAICompatClient {
	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)
	return &OpenAICompatClient{
		client: &client,
		model:  model,
	}
}

// Generate sends a non-streaming chat completion request and returns the
// full response text. Rate-limit responses are retried with backoff.
func (c *OpenAICompatClient) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: buildMessages(systemPrompt, prompt),
	}

	var completion *openai.ChatCompletion
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		completion, err = c.client.Chat.Completions.New(ctx, params)
		if err == nil {
			break
		}
		if !strings.Contains(err.Error(), "429") || attempt == 2 {
			return "", fmt.Errorf("chat completion: %w", err)
		}
		wait := time.Duration(2<<attempt) * time.Second // 2s, 4s
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return "", fmt.Errorf("chat completion: %w", ctx.Err())
		}
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return completion.Choices[0].Message.Content, nil
}

// Stream sends a streaming chat completion request. The handler is called
// with each text delta as it arrives; a handler error stops the stream and
// is returned as-is.
func (c *OpenAICompatClient) Stream(ctx context.Context, systemPrompt, prompt string, handler StreamHandler) error {
	params := openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: buildMessages(systemPrompt, prompt),
	}

	var stream *ssestream.Stream[openai.ChatCompletionChunk]
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		stream = c.client.Chat.Completions.NewStreaming(ctx, params)
		err = stream.Err()
		if err == nil {
			break
		}
		if !strings.Contains(err.Error(), "429") || attempt == 2 {
			stream.Close()
			return fmt.Errorf("chat completion stream: %w", err)
		}
		stream.Close()
		wait := time.Duration(2<<attempt) * time.Second
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return fmt.Errorf("chat completion stream: %w", ctx.Err())
		}
	}
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		if err := handler(delta); err != nil {
			return err
		}
	}

	if err := stream.Err(); err != nil {
		return fmt.Errorf("streaming: %w", err)
	}
	return nil
}

func buildMessages(systemPrompt, prompt string) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(prompt))
	return messages
}
