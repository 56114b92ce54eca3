package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"supportkb/internal/domain"
)

const (
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultAnthropicModel = "claude-sonnet-4-20250514"

	// AnthropicBaseURL is Anthropic's OpenAI-compatible endpoint.
	AnthropicBaseURL = "https://api.anthropic.com/v1/"
)

// ClientConfig holds configuration for a chat completion client.
type ClientConfig struct {
	APIKeyEnv   string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// OpenAIClient generates text through any OpenAI-compatible chat endpoint.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	logger      *zap.Logger
}

// NewOpenAIClient creates a chat client reading its key from cfg.APIKeyEnv.
func NewOpenAIClient(cfg ClientConfig, logger *zap.Logger) (*OpenAIClient, error) {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", cfg.APIKeyEnv)
	}
	return newOpenAIClient(apiKey, cfg, logger), nil
}

func newOpenAIClient(apiKey string, cfg ClientConfig, logger *zap.Logger) *OpenAIClient {
	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1500
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		logger:      logger,
	}
}

// GenerateWithSystem sends one system and one user message and returns the reply text.
// Refusals, empty replies and account-level API failures come back as
// *domain.JudgmentError; other failures are returned wrapped.
func (c *OpenAIClient) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", classify(c.model, err)
	}

	if len(resp.Choices) == 0 {
		return "", domain.NewJudgmentError(domain.ReasonEmpty, fmt.Errorf("model %s returned no choices", c.model))
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter || choice.Message.Refusal != "" {
		c.logger.Warn("model refused to answer", zap.String("model", c.model))
		return "", domain.NewJudgmentError(domain.ReasonRefusal, fmt.Errorf("model %s refused: %s", c.model, choice.Message.Refusal))
	}

	if strings.TrimSpace(choice.Message.Content) == "" {
		return "", domain.NewJudgmentError(domain.ReasonEmpty, fmt.Errorf("model %s returned empty content", c.model))
	}

	return choice.Message.Content, nil
}

func (c *OpenAIClient) ModelName() string {
	return c.model
}

// classify maps API failures onto judgment-unavailable reasons.
// Errors it does not recognize are wrapped unchanged.
func classify(model string, err error) error {
	status, code, message := 0, "", ""

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
		if apiErr.Code != nil {
			code = fmt.Sprint(apiErr.Code)
		}
		if code == "" {
			code = apiErr.Type
		}
		message = apiErr.Message
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		return fmt.Errorf("chat completion with %s: %w", model, err)
	}

	lower := strings.ToLower(message)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.NewJudgmentError(domain.ReasonAuth, err)
	case status == http.StatusPaymentRequired,
		code == "insufficient_quota",
		strings.Contains(lower, "credit balance is too low"):
		return domain.NewJudgmentError(domain.ReasonLowBalance, err)
	case status == http.StatusTooManyRequests:
		return domain.NewJudgmentError(domain.ReasonRateLimit, err)
	case status == http.StatusNotFound || code == "model_not_found":
		return domain.NewJudgmentError(domain.ReasonModelNotFound, fmt.Errorf("model %s: %w", model, err))
	}

	return fmt.Errorf("chat completion with %s: %w", model, err)
}
