// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package query

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/pdiddy/textbridge/pkg/types"
)

// CompletionRequest is one system+user prompt pair sent to a chat model.
type CompletionRequest struct {
	Model       string
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// Usage is the token accounting reported by the completion API.
type Usage struct {
	PromptTokens     int64 `json:"promptTokens" yaml:"prompt_tokens"`
	CompletionTokens int64 `json:"completionTokens" yaml:"completion_tokens"`
	TotalTokens      int64 `json:"totalTokens" yaml:"total_tokens"`
}

// Completion is the model's reply.
type Completion struct {
	Text  string
	Model string
	Usage Usage
}

// Completer abstracts the chat completion API so tests can supply a fake.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

// OpenAI is a Completer backed by an OpenAI-compatible chat endpoint.
type OpenAI struct {
	client openai.Client
}

// NewOpenAI builds a client for apiKey. An empty baseURL selects the public
// OpenAI endpoint. Requests are never retried.
func NewOpenAI(apiKey, baseURL string) *OpenAI {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAI{client: openai.NewClient(opts...)}
}

// Complete sends one chat completion request and returns the first choice.
func (o *OpenAI) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		MaxTokens:   openai.Int(int64(req.MaxTokens)),
		Temperature: openai.Float(req.Temperature),
	})
	if err != nil {
		return Completion{}, classify(err)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, fmt.Errorf("completion returned no choices: %w", types.ErrUpstream)
	}

	return Completion{
		Text:  resp.Choices[0].Message.Content,
		Model: resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// classify maps an API failure onto the error taxonomy. Context
// cancellation is returned as is.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("completion request: %v: %w", err, types.ErrUpstream)
	}
	switch apiErr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("invalid API key (HTTP %d): %w", apiErr.StatusCode, types.ErrAuthentication)
	case http.StatusTooManyRequests:
		return fmt.Errorf("rate limit exceeded, try again later: %w", types.ErrRateLimited)
	default:
		return fmt.Errorf("completion API returned HTTP %d: %w", apiErr.StatusCode, types.ErrUpstream)
	}
}
