// Package openai adapts OpenAI-compatible chat APIs (OpenAI, DeepSeek) to llm.Client.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"

	gogpt "github.com/sashabaranov/go-openai"

	"github.com/nexahealth/triagebot/pkg/llm"
)

// DeepSeekBaseURL can be set as BaseURL to talk to DeepSeek instead of OpenAI
const DeepSeekBaseURL = "https://api.deepseek.com/v1"

// Client implements llm.Client on top of go-openai
type Client struct {
	client *gogpt.Client
	model  string
}

var _ llm.Client = (*Client)(nil)

// Config holds configuration for the OpenAI-compatible client
type Config struct {
	APIKey  string
	BaseURL string // Default: https://api.openai.com/v1
	Model   string // Default: gpt-4o-mini
}

// NewClient creates a client for an OpenAI-compatible endpoint
func NewClient(config Config) *Client {
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}

	cfg := gogpt.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		cfg.BaseURL = config.BaseURL
	}

	return &Client{
		client: gogpt.NewClientWithConfig(cfg),
		model:  config.Model,
	}
}

func (c *Client) toRequest(req llm.ChatRequest) gogpt.ChatCompletionRequest {
	model := req.Model
	if model == "" {
		model = c.model
	}

	msgs := make([]gogpt.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := m.Role
		if role != gogpt.ChatMessageRoleSystem && role != gogpt.ChatMessageRoleUser && role != gogpt.ChatMessageRoleAssistant {
			role = gogpt.ChatMessageRoleUser
		}
		msgs = append(msgs, gogpt.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	return gogpt.ChatCompletionRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	}
}

// ChatCompletion implements llm.Client.ChatCompletion
func (c *Client) ChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	resp, err := c.client.CreateChatCompletion(ctx, c.toRequest(req))
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	out := &llm.ChatResponse{
		ID:    resp.ID,
		Model: resp.Model,
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	for _, ch := range resp.Choices {
		out.Choices = append(out.Choices, llm.Choice{
			Index:        ch.Index,
			Message:      llm.ChatMessage{Role: ch.Message.Role, Content: ch.Message.Content},
			FinishReason: string(ch.FinishReason),
		})
	}
	return out, nil
}

// StreamChatCompletion implements llm.Client.StreamChatCompletion
func (c *Client) StreamChatCompletion(ctx context.Context, req llm.ChatRequest) (<-chan llm.ChatChunk, error) {
	streamReq := c.toRequest(req)
	streamReq.Stream = true

	stream, err := c.client.CreateChatCompletionStream(ctx, streamReq)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}

	ch := make(chan llm.ChatChunk, 32)

	go func() {
		defer close(ch)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}

			var chunk llm.ChatChunk
			if err != nil {
				chunk = llm.ChatChunk{Model: c.model, Err: fmt.Errorf("read stream: %w", err)}
			} else {
				chunk = llm.ChatChunk{ID: resp.ID, Model: resp.Model}
				for _, choice := range resp.Choices {
					sc := llm.StreamChoice{
						Index: choice.Index,
						Delta: llm.Delta{Role: choice.Delta.Role, Content: choice.Delta.Content},
					}
					if choice.FinishReason != "" {
						fr := string(choice.FinishReason)
						sc.FinishReason = &fr
					}
					chunk.Choices = append(chunk.Choices, sc)
				}
			}

			select {
			case ch <- chunk:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	return ch, nil
}
