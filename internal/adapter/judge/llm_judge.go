package judge

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"supportkb/internal/adapter/llm"
	"supportkb/internal/domain"
	"supportkb/internal/port"
)

// DefaultPreviewLen is how many characters of article content the model sees.
const DefaultPreviewLen = 500

// LLMJudge asks a language model to judge retrieved candidates.
type LLMJudge struct {
	model      port.LLM
	previewLen int
	logger     *zap.Logger
}

func NewLLMJudge(model port.LLM, previewLen int, logger *zap.Logger) *LLMJudge {
	if previewLen <= 0 {
		previewLen = DefaultPreviewLen
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMJudge{
		model:      model,
		previewLen: previewLen,
		logger:     logger,
	}
}

// Judge makes exactly one model call. Unparseable replies are reported as
// malformed judgment errors; the raw reply is logged at debug level.
func (j *LLMJudge) Judge(ctx context.Context, ticket domain.TicketAnalysis, candidates []domain.Candidate) (*domain.Judgment, error) {
	prompt := buildUserPrompt(ticket, candidates, j.previewLen)

	raw, err := j.model.GenerateWithSystem(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("judge %d candidates with %s: %w", len(candidates), j.model.ModelName(), err)
	}

	var judgment domain.Judgment
	if err := llm.DecodeJSONReply(raw, &judgment); err != nil {
		j.logger.Debug("unparseable judgment reply",
			zap.String("model", j.model.ModelName()),
			zap.String("raw", raw))
		return nil, fmt.Errorf("judge reply from %s: %w", j.model.ModelName(), err)
	}

	return &judgment, nil
}
