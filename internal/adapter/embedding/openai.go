package embedding

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
	"supportkb/internal/util"
)

// OpenAIConfig configures an OpenAI-compatible embeddings endpoint.
type OpenAIConfig struct {
	APIKeyEnv  string
	BaseURL    string
	Model      string
	Dimension  int
	BatchSize  int
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
}

// OpenAIEmbedder calls the embeddings API through go-openai.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimension  int
	requestDim int
	batchSize  int
	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration
	logger     *zap.Logger
}

// knownDimensions lists default output sizes of common embedding models.
var knownDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"all-minilm":             384,
}

func NewOpenAIEmbedder(cfg OpenAIConfig, logger *zap.Logger) (*OpenAIEmbedder, error) {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", cfg.APIKeyEnv)
	}
	return newOpenAIEmbedder(apiKey, cfg, logger), nil
}

func newOpenAIEmbedder(apiKey string, cfg OpenAIConfig, logger *zap.Logger) *OpenAIEmbedder {
	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dimension, requestDim := ResolveDimension(cfg.Model, cfg.Dimension)
	if cfg.Dimension > 0 && dimension != cfg.Dimension {
		logger.Warn("configured embedding dimension does not match model, using model output size",
			zap.String("model", cfg.Model),
			zap.Int("configured", cfg.Dimension),
			zap.Int("dimension", dimension))
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 100
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		dimension:  dimension,
		requestDim: requestDim,
		batchSize:  batch,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		timeout:    timeout,
		logger:     logger,
	}
}

// shortenable reports whether the model accepts a dimensions parameter.
func shortenable(model string) bool {
	return strings.HasPrefix(model, "text-embedding-3")
}

// ResolveDimension returns the vector size the model will produce for the
// configured dimension, and the dimensions value to send (0 for none).
// Models with a fixed output size ignore the configured value.
func ResolveDimension(model string, configured int) (dimension, request int) {
	native, known := knownDimensions[model]
	switch {
	case configured <= 0 && known:
		return native, 0
	case configured <= 0:
		return 1536, 0
	case !known:
		return configured, 0
	case shortenable(model) && configured < native:
		return configured, configured
	default:
		return native, 0
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := i + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		embeddings, err := e.embedWithRetry(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, embeddings...)
	}

	return all, nil
}

func (e *OpenAIEmbedder) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error

	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			if err := util.Sleep(ctx, util.Backoff(e.retryDelay, attempt)); err != nil {
				return nil, err
			}
			e.logger.Debug("retrying embedding batch",
				zap.Int("attempt", attempt+1),
				zap.Error(lastErr))
		}

		embeddings, err := e.embedBatch(ctx, texts)
		if err == nil {
			return embeddings, nil
		}
		lastErr = err
		if !retryable(err) || ctx.Err() != nil {
			break
		}
	}

	return nil, fmt.Errorf("embedding %d texts with %s: %w", len(texts), e.model, lastErr)
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input:      texts,
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: e.requestDim,
	})
	if err != nil {
		return nil, err
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index >= 0 && data.Index < len(embeddings) {
			embeddings[data.Index] = data.Embedding
		}
	}
	for i, v := range embeddings {
		if v == nil {
			return nil, fmt.Errorf("no embedding returned for input %d", i)
		}
		if len(v) != e.dimension {
			return nil, fmt.Errorf("input %d: got %d values, want %d: %w", i, len(v), e.dimension, domain.ErrDimensionMismatch)
		}
	}

	return embeddings, nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}

// retryable reports whether err is worth another attempt: rate limits,
// server errors and transport failures.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, domain.ErrDimensionMismatch) {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}

	return true
}
