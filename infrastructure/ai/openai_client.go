package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"noteflow-backend/application/ports"
)

// Generation parameters carried over from the original deployment.
const (
	temperature = 0.7
	maxTokens   = 1000
)

// Client implements ports.Completer against an OpenAI-compatible chat
// completion API. Calls run through a circuit breaker so a flapping
// upstream fails fast instead of holding every request open until its
// timeout.
type Client struct {
	client  *openai.Client
	model   string
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient creates a completion client. An empty API key is a
// configuration error; the caller treats it as fatal at startup.
func NewClient(apiKey, model string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is not configured")
	}
	if model == "" {
		model = openai.GPT4oMini
		logger.Warn("OPENAI_MODEL not set, defaulting", zap.String("model", model))
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openai",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.8
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	logger.Info("Initializing completion client", zap.String("model", model))

	return &Client{
		client:  openai.NewClient(apiKey),
		model:   model,
		breaker: breaker,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Complete sends the prompt and returns the model's text
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.model,
			Temperature: temperature,
			MaxTokens:   maxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return nil, errors.New("model returned no choices")
		}
		return strings.TrimSpace(resp.Choices[0].Message.Content), nil
	})
	if err != nil {
		return "", err
	}

	return result.(string), nil
}

var _ ports.Completer = (*Client)(nil)
