package usecase

import "supportkb/internal/domain"

// FusionMode records how judged entries were paired with candidates.
type FusionMode string

const (
	FusionPositional FusionMode = "positional"
	FusionByID       FusionMode = "article_id"
)

// AssembleResult fuses search-ranked candidates with the model's judgment.
//
// When every judged entry names a distinct candidate by article_id, entries are
// paired by id. Otherwise candidate i pairs with judged entry i. In both modes
// results follow search rank and candidates without a judged entry are dropped.
func AssembleResult(candidates []domain.Candidate, judgment *domain.Judgment) (*domain.KnowledgeRetrievalResult, FusionMode) {
	if judgment == nil {
		judgment = &domain.Judgment{}
	}

	mode := FusionPositional
	byID := keyedJudgments(candidates, judgment.RelevantArticles)
	if byID != nil {
		mode = FusionByID
	}

	results := make([]domain.RetrievalResult, 0, len(candidates))
	for i, c := range candidates {
		var judged domain.ArticleJudgment
		if mode == FusionByID {
			j, ok := byID[c.Article.ID]
			if !ok {
				continue
			}
			judged = j
		} else {
			if i >= len(judgment.RelevantArticles) {
				break
			}
			judged = judgment.RelevantArticles[i]
		}

		steps := judged.SolutionSteps
		if steps == nil {
			steps = []string{}
		}
		results = append(results, domain.RetrievalResult{
			ArticleID:      c.Article.ID,
			Title:          c.Article.Title,
			RelevanceScore: c.Relevance,
			Summary:        judged.Summary,
			SolutionSteps:  steps,
		})
	}

	return &domain.KnowledgeRetrievalResult{
		RelevantArticles:     results,
		RecommendedSolutions: nonNil(judgment.RecommendedSolutions),
		RelatedIssues:        nonNil(judgment.RelatedIssues),
	}, mode
}

// keyedJudgments indexes judged entries by article id, or returns nil when
// any entry lacks an id, repeats one, or names an article that was not a candidate.
func keyedJudgments(candidates []domain.Candidate, judged []domain.ArticleJudgment) map[string]domain.ArticleJudgment {
	if len(judged) == 0 {
		return nil
	}

	known := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		known[c.Article.ID] = struct{}{}
	}

	byID := make(map[string]domain.ArticleJudgment, len(judged))
	for _, j := range judged {
		if j.ArticleID == "" {
			return nil
		}
		if _, ok := known[j.ArticleID]; !ok {
			return nil
		}
		if _, dup := byID[j.ArticleID]; dup {
			return nil
		}
		byID[j.ArticleID] = j
	}
	return byID
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
