package judge

import (
	"context"
	"strings"
	"unicode"

	"supportkb/internal/domain"
)

// maxOfflineSteps bounds the solution steps extracted per article.
const maxOfflineSteps = 5

// Offline builds judgments from article text without calling a model.
// It backs mock mode and keeps the CLI usable without API credentials.
type Offline struct{}

func NewOffline() *Offline {
	return &Offline{}
}

func (o *Offline) Judge(ctx context.Context, ticket domain.TicketAnalysis, candidates []domain.Candidate) (*domain.Judgment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	judgment := &domain.Judgment{
		RelevantArticles:     make([]domain.ArticleJudgment, 0, len(candidates)),
		RecommendedSolutions: []string{},
		RelatedIssues:        []string{},
	}

	seenIssue := make(map[string]struct{})
	for _, c := range candidates {
		sentences := splitSentences(c.Article.Content)

		summary := c.Article.Title
		if len(sentences) > 0 {
			summary = sentences[0]
		}

		steps := sentences
		if len(steps) > maxOfflineSteps {
			steps = steps[:maxOfflineSteps]
		}
		if steps == nil {
			steps = []string{}
		}

		judgment.RelevantArticles = append(judgment.RelevantArticles, domain.ArticleJudgment{
			ArticleID:     c.Article.ID,
			Summary:       summary,
			SolutionSteps: steps,
		})

		if len(steps) > 0 {
			judgment.RecommendedSolutions = append(judgment.RecommendedSolutions, c.Article.Title+": "+steps[0])
		}

		for _, tag := range c.Article.Tags {
			if _, ok := seenIssue[tag]; ok || tag == "" {
				continue
			}
			seenIssue[tag] = struct{}{}
			judgment.RelatedIssues = append(judgment.RelatedIssues, tag)
		}
	}

	return judgment, nil
}

// splitSentences breaks text on line breaks and sentence terminators,
// dropping list markers such as "1." or "-".
func splitSentences(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		start := 0
		runes := []rune(line)
		for i, r := range runes {
			if (r == '.' || r == '!' || r == '?') && (i+1 == len(runes) || unicode.IsSpace(runes[i+1])) {
				out = appendSentence(out, string(runes[start:i+1]))
				start = i + 1
			}
		}
		if start < len(runes) {
			out = appendSentence(out, string(runes[start:]))
		}
	}
	return out
}

func appendSentence(out []string, s string) []string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "-*• ")
	if isListMarker(s) {
		return out
	}
	s = strings.TrimSpace(stripNumbering(s))
	if s == "" {
		return out
	}
	return append(out, s)
}

// isListMarker reports whether s is only an ordinal like "1." or "12)".
func isListMarker(s string) bool {
	if s == "" {
		return false
	}
	trimmed := strings.TrimRight(s, ".)")
	if trimmed == s || trimmed == "" {
		return false
	}
	for _, r := range trimmed {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func stripNumbering(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i < len(s) && (s[i] == '.' || s[i] == ')') {
		return s[i+1:]
	}
	return s
}
