// Package llm adapts OpenAI-compatible chat completion APIs (OpenAI, Groq,
// DeepSeek) to ports.CompletionBackend.
package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/updateme/engine/internal/core/domain/completion"
	"github.com/updateme/engine/internal/core/ports"
)

// Base URLs of the supported vendors.
const (
	GroqBaseURL     = "https://api.groq.com/openai/v1"
	DeepSeekBaseURL = "https://api.deepseek.com"
)

// ErrEmptyResponse is returned when the API answers without choices.
var ErrEmptyResponse = errors.New("completion response has no choices")

// Config describes one OpenAI-compatible endpoint.
type Config struct {
	Name    string
	APIKey  string
	BaseURL string // empty uses the OpenAI default
	Model   string
	Timeout time.Duration
}

// Backend calls a chat completion endpoint through go-openai.
type Backend struct {
	name    string
	model   string
	timeout time.Duration
	client  *openai.Client
	logger  *logrus.Logger
}

var _ ports.CompletionBackend = (*Backend)(nil)

func NewBackend(cfg Config, logger *logrus.Logger) (*Backend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: api key not configured", cfg.Name)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%s: model not configured", cfg.Name)
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &Backend{
		name:    cfg.Name,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		client:  openai.NewClientWithConfig(oc),
		logger:  logger,
	}, nil
}

func (b *Backend) Complete(ctx context.Context, req *completion.Request) (*completion.Response, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	started := time.Now()
	resp, err := b.client.CreateChatCompletion(ctx, b.chatRequest(req))
	fields := logrus.Fields{"backend": b.name, "model": b.model, "duration": time.Since(started).String()}
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			fields["status"] = apiErr.HTTPStatusCode
		}
		if b.logger != nil {
			b.logger.WithFields(fields).WithError(err).Warn("chat completion failed")
		}
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}
	if b.logger != nil {
		fields["total_tokens"] = resp.Usage.TotalTokens
		b.logger.WithFields(fields).Debug("chat completion finished")
	}

	msg := resp.Choices[0].Message
	out := &completion.Response{Content: msg.Content, Model: resp.Model}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, completion.ToolCall{Name: tc.Function.Name, Arguments: tc.Function.Arguments})
	}
	return out, nil
}

func (b *Backend) chatRequest(req *completion.Request) openai.ChatCompletionRequest {
	var msgs []openai.ChatCompletionMessage
	if req.SystemPrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt})

	out := openai.ChatCompletionRequest{
		Model:    b.model,
		Messages: msgs,
	}
	if req.Temperature != nil {
		out.Temperature = *req.Temperature
		if out.Temperature == 0 {
			// go-openai omits a zero temperature from the request body.
			out.Temperature = math.SmallestNonzeroFloat32
		}
	}
	if req.JSONMode {
		out.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}
	for _, t := range req.Tools {
		out.Tools = append(out.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	if len(out.Tools) > 0 {
		out.ToolChoice = "auto"
	}
	return out
}
