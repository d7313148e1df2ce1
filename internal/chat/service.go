package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashan/pytutor/internal/stream"
)

// ErrAborted is returned from inside the producer loop when the registry
// reports the session cancelled. It never escapes StreamAnswer; it only
// exists to stop the underlying stream.
var ErrAborted = errors.New("chat: stream aborted by caller")

// Terminal is the terminal state of one streaming session.
type Terminal string

const (
	TerminalCompleted Terminal = "completed"
	TerminalErrored   Terminal = "errored"
	TerminalAborted   Terminal = "aborted"
)

// StreamResult summarises a finished streaming session.
type StreamResult struct {
	RequestID string   `json:"requestId"`
	Terminal  Terminal `json:"terminal"`
	Text      string   `json:"text"`
}

const tutorSystemPrompt = "You are a Python programming tutor. Answer the " +
	"student's question clearly and patiently, with short runnable code " +
	"examples where they help."

// Service is the streaming producer: it drives the LLM client and owns the
// session lifecycle in the cancellation registry.
type Service struct {
	client   Client
	registry *stream.Registry
	logger   *slog.Logger
}

// NewService creates a chat Service.
func NewService(client Client, registry *stream.Registry, logger *slog.Logger) *Service {
	return &Service{
		client:   client,
		registry: registry,
		logger:   logger,
	}
}

// StreamAnswer streams a tutoring answer for prompt, calling emit once per
// text delta.
//
// This is the producer loop the registry exists for: the session is
// registered under requestID before the first delta, the cancellation flag
// is polled between deltas, and the session is ended on every exit path so
// a stale flag cannot leak into the next session. The terminal state is
// reported in the StreamResult; an aborted session is a normal result, not
// an error.
func (s *Service) StreamAnswer(ctx context.Context, requestID, prompt string, emit func(delta string)) (*StreamResult, error) {
	s.registry.Begin(requestID)
	defer s.registry.End(requestID)

	var full strings.Builder
	err := s.client.Stream(ctx, tutorSystemPrompt, prompt, func(delta string) error {
		// Poll between units — cooperative, so cancellation lands at a
		// delta boundary, never mid-write.
		if s.registry.IsCancelled(requestID) {
			return ErrAborted
		}
		full.WriteString(delta)
		emit(delta)
		return nil
	})

	result := &StreamResult{
		RequestID: requestID,
		Text:      full.String(),
	}

	switch {
	case err == nil:
		result.Terminal = TerminalCompleted
	case errors.Is(err, ErrAborted):
		result.Terminal = TerminalAborted
		s.logger.Info("chat stream aborted", slog.String("requestId", requestID))
	default:
		result.Terminal = TerminalErrored
		s.logger.Error("chat stream failed",
			slog.String("requestId", requestID),
			slog.String("error", err.Error()),
		)
		return result, fmt.Errorf("streaming answer: %w", err)
	}

	return result, nil
}

// Cancel requests cancellation of the in-flight session requestID. It
// reports false when the id is stale, unknown, or already terminal — the
// producer loop is unaffected in that case.
func (s *Service) Cancel(requestID string) bool {
	ok := s.registry.Abort(requestID)
	if ok {
		s.logger.Info("cancellation requested", slog.String("requestId", requestID))
	}
	return ok
}

// ExplainConcept asks the tutor for an explanation of a Python concept at
// the given level ("beginner" when empty).
func (s *Service) ExplainConcept(ctx context.Context, concept, level string) (string, error) {
	if level == "" {
		level = "beginner"
	}
	prompt := fmt.Sprintf(
		"Explain the Python concept %q at a %s level. Use simple language and include a code example where it helps.",
		concept, level,
	)
	text, err := s.client.Generate(ctx, tutorSystemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("explaining concept: %w", err)
	}
	return text, nil
}

// GenerateQuiz asks the tutor for a short quiz on topic. difficulty
// defaults to "medium" and numQuestions to 5 when unset.
func (s *Service) GenerateQuiz(ctx context.Context, topic, difficulty string, numQuestions int) (string, error) {
	if difficulty == "" {
		difficulty = "medium"
	}
	if numQuestions <= 0 {
		numQuestions = 5
	}
	prompt := fmt.Sprintf(
		"Generate %d quiz questions about %s for a student learning Python, at a %s difficulty. For each question give the question text, options if it is multiple choice, the correct answer, and a short explanation.",
		numQuestions, topic, difficulty,
	)
	text, err := s.client.Generate(ctx, tutorSystemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("generating quiz: %w", err)
	}
	return text, nil
}

// CheckAnswer asks the tutor to judge a student's answer and provide
// feedback.
func (s *Service) CheckAnswer(ctx context.Context, question, answer string) (string, error) {
	prompt := fmt.Sprintf(
		"As a Python tutor, judge whether the student's answer is correct and give feedback.\n\nQuestion: %s\nStudent answer: %s",
		question, answer,
	)
	text, err := s.client.Generate(ctx, tutorSystemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("checking answer: %w", err)
	}
	return text, nil
}
