package usecase

import "supportkb/internal/domain"

// Relevance maps a squared L2 distance onto (0, 1]: 1 / (1 + d).
// It preserves ordering; it is not a probability.
func Relevance(distance float64) float64 {
	if distance < 0 {
		distance = 0
	}
	return 1 / (1 + distance)
}

// RankCandidates resolves neighbors to articles, keeping search order.
// Positions outside the article list are skipped, as are candidates whose
// relevance falls below minRelevance when it is positive.
func RankCandidates(neighbors []domain.Neighbor, articles []domain.Article, minRelevance float64) []domain.Candidate {
	candidates := make([]domain.Candidate, 0, len(neighbors))
	for _, n := range neighbors {
		if n.Position < 0 || n.Position >= len(articles) {
			continue
		}
		score := Relevance(n.Distance)
		if minRelevance > 0 && score < minRelevance {
			continue
		}
		candidates = append(candidates, domain.Candidate{
			Article:   articles[n.Position],
			Distance:  n.Distance,
			Relevance: score,
		})
	}
	return candidates
}
