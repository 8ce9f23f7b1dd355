package assistant

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nexahealth/triagebot/internal/circuitbreaker"
	"github.com/nexahealth/triagebot/internal/fallback"
	"github.com/nexahealth/triagebot/internal/privacy"
	"github.com/nexahealth/triagebot/internal/prompt"
	"github.com/nexahealth/triagebot/pkg/llm"
)

const maxPriorTurns = 10

// KeywordMatcher finds health keywords in free text
type KeywordMatcher interface {
	MatchKeywords(text string) []string
}

// Service produces summaries and replies, degrading to fallback text on failure
type Service struct {
	client         llm.Client
	promptBuilder  *prompt.Builder
	keywords       KeywordMatcher
	circuitBreaker *circuitbreaker.CircuitBreaker
	aiTimeout      time.Duration
	maxTokens      int
}

// Options tune a Service
type Options struct {
	Timeout   time.Duration // Default: 30s
	MaxTokens int           // Default: 400
}

// NewService creates an assistant over an LLM client. client may be nil,
// in which case every call falls back.
func NewService(client llm.Client, keywords KeywordMatcher, opts Options) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 400
	}
	return &Service{
		client:         client,
		promptBuilder:  prompt.NewBuilder(),
		keywords:       keywords,
		circuitBreaker: circuitbreaker.NewCircuitBreaker("ai", 5, 5*time.Minute),
		aiTimeout:      opts.Timeout,
		maxTokens:      opts.MaxTokens,
	}
}

// Configured reports whether an AI provider is wired
func (s *Service) Configured() bool {
	return s.client != nil
}

// Summarize returns a triage summary with a severity line, or the summary fallback
func (s *Service) Summarize(ctx context.Context, symptoms []string, details map[string]map[string]string) string {
	msgs := s.promptBuilder.BuildSummary(prompt.Request{Symptoms: symptoms, Details: details})

	text, reason := s.complete(ctx, msgs)
	if reason != "" {
		return fallback.SummaryResponse(reason).Content
	}
	return text
}

// Reply answers a free-text message in the context of recorded symptoms
func (s *Service) Reply(ctx context.Context, message string, symptoms []string, details map[string]map[string]string) string {
	if privacy.ContainsPII(message) {
		log.Printf("Redacting personal data before AI call")
	}
	msgs := s.promptBuilder.BuildReply(prompt.Request{
		Symptoms: symptoms,
		Details:  details,
		Message:  privacy.SanitizeForAPI(message),
	})

	text, reason := s.complete(ctx, msgs)
	if reason != "" {
		return fallback.ReplyResponse(reason).Content
	}
	return text
}

// ChatWithContext answers the last user message of a web conversation.
// Health keywords found in that message seed the symptom context and the
// turns before it are sent along as history.
func (s *Service) ChatWithContext(ctx context.Context, messages []llm.ChatMessage) string {
	msgs, ok, notice := s.webPrompt(messages)
	if !ok {
		return notice
	}

	text, reason := s.complete(ctx, msgs)
	if reason != "" {
		return fallback.ReplyResponse(reason).Content
	}
	return text
}

// StreamChatWithContext is ChatWithContext delivered incrementally through
// onChunk. It returns the full text that was sent.
func (s *Service) StreamChatWithContext(ctx context.Context, messages []llm.ChatMessage, onChunk func(string) error) (string, error) {
	msgs, ok, notice := s.webPrompt(messages)
	if !ok {
		return notice, onChunk(notice)
	}

	var full strings.Builder
	var deliverErr error
	err := s.circuitBreaker.Call(func() error {
		ctx, cancel := context.WithTimeout(ctx, s.aiTimeout)
		defer cancel()

		stream, err := s.client.StreamChatCompletion(ctx, s.request(msgs))
		if err != nil {
			return err
		}
		for chunk := range stream {
			if chunk.Err != nil {
				return chunk.Err
			}
			text := chunk.Text()
			if text == "" {
				continue
			}
			full.WriteString(text)
			// A gone client is not a provider failure
			if deliverErr = onChunk(text); deliverErr != nil {
				return nil
			}
		}
		return ctx.Err()
	})

	if deliverErr != nil {
		return full.String(), fmt.Errorf("deliver chunk: %w", deliverErr)
	}
	if err != nil {
		log.Printf("AI stream failed: %v", err)
	}
	// Fall back only if nothing reached the client yet
	if full.Len() == 0 {
		return fallback.Reply, onChunk(fallback.Reply)
	}
	return full.String(), nil
}

func (s *Service) webPrompt(messages []llm.ChatMessage) ([]llm.ChatMessage, bool, string) {
	if !s.Configured() {
		return nil, false, fallback.NotConfigured
	}
	if len(messages) == 0 {
		return nil, false, fallback.NoMessages
	}

	last := -1
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llm.RoleUser {
			last = i
			break
		}
	}
	if last < 0 {
		return nil, false, fallback.NoUserMessage
	}
	message := messages[last].Content

	var symptoms []string
	if s.keywords != nil {
		symptoms = s.keywords.MatchKeywords(message)
	}

	return s.promptBuilder.BuildReply(prompt.Request{
		Symptoms: symptoms,
		Message:  privacy.SanitizeForAPI(message),
		Persona:  true,
		History:  priorTurns(messages[:last]),
	}), true, ""
}

// priorTurns keeps the newest maxPriorTurns user and assistant turns, sanitized
func priorTurns(messages []llm.ChatMessage) []llm.ChatMessage {
	turns := make([]llm.ChatMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role != llm.RoleUser && m.Role != llm.RoleAssistant {
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		turns = append(turns, llm.ChatMessage{Role: m.Role, Content: privacy.SanitizeForAPI(m.Content)})
	}
	if len(turns) > maxPriorTurns {
		turns = turns[len(turns)-maxPriorTurns:]
	}
	return turns
}

func (s *Service) request(msgs []llm.ChatMessage) llm.ChatRequest {
	return llm.ChatRequest{
		Messages:    msgs,
		Temperature: 0.4,
		MaxTokens:   s.maxTokens,
	}
}

// complete runs one non-streaming call. A non-empty reason means the
// caller must use fallback text.
func (s *Service) complete(ctx context.Context, msgs []llm.ChatMessage) (string, fallback.Reason) {
	if s.client == nil {
		return "", fallback.ReasonError
	}

	var text string
	err := s.circuitBreaker.Call(func() error {
		ctx, cancel := context.WithTimeout(ctx, s.aiTimeout)
		defer cancel()

		resp, err := s.client.ChatCompletion(ctx, s.request(msgs))
		if err != nil {
			return err
		}
		text = resp.Text()
		return nil
	})

	switch {
	case errors.Is(err, circuitbreaker.ErrCircuitOpen), errors.Is(err, circuitbreaker.ErrTooManyRequests):
		log.Printf("Circuit breaker open, using fallback response")
		return "", fallback.ReasonCircuitOpen
	case errors.Is(err, context.DeadlineExceeded):
		log.Printf("AI call timed out after %s", s.aiTimeout)
		return "", fallback.ReasonTimeout
	case err != nil:
		log.Printf("AI call failed: %v", err)
		return "", fallback.ReasonError
	case text == "":
		log.Printf("AI returned an empty answer")
		return "", fallback.ReasonEmpty
	}

	log.Printf("AI response received: %d bytes", len(text))
	return text, ""
}
