package port

import (
	"context"

	"supportkb/internal/domain"
)

// LLM represents a language model for text generation.
type LLM interface {
	// GenerateWithSystem generates text with a system prompt.
	GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}

// Judge asks for a qualitative judgment of retrieved candidates.
type Judge interface {
	// Judge returns per-candidate summaries and solution steps plus
	// ticket-level recommendations. Failures that make the judgment
	// unusable match domain.ErrJudgmentUnavailable.
	Judge(ctx context.Context, ticket domain.TicketAnalysis, candidates []domain.Candidate) (*domain.Judgment, error)
}
