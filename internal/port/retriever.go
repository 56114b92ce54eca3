package port

import (
	"context"

	"supportkb/internal/domain"
)

// KnowledgeRetriever is the knowledge stage consumed by the support pipeline.
type KnowledgeRetriever interface {
	Retrieve(ctx context.Context, ticket domain.TicketAnalysis, topK int) (*domain.KnowledgeRetrievalResult, error)
}
