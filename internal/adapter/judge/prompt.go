package judge

import (
	"fmt"
	"strings"

	"supportkb/internal/adapter/analyzer"
	"supportkb/internal/domain"
)

const systemPrompt = `You are a knowledge retrieval specialist for customer support.

Given search results from our knowledge base, analyze and extract:
1. The most relevant solution steps from the articles
2. Recommended solutions based on the issue
3. Related issues that might be connected

Focus on practical, actionable solutions. Respond with valid JSON only.`

// buildUserPrompt renders the ticket context and the numbered candidates.
func buildUserPrompt(ticket domain.TicketAnalysis, candidates []domain.Candidate, previewLen int) string {
	errorCodes := "None"
	if len(ticket.ErrorCodes) > 0 {
		errorCodes = strings.Join(ticket.ErrorCodes, ", ")
	}

	var articles strings.Builder
	for i, c := range candidates {
		if i > 0 {
			articles.WriteString("\n\n")
		}
		fmt.Fprintf(&articles, "Article %d (ID: %s, Relevance: %.2f):\nTitle: %s\nContent: %s",
			i+1, c.Article.ID, c.Relevance, c.Article.Title, analyzer.Preview(c.Article.Content, previewLen))
	}

	return fmt.Sprintf(`Based on these knowledge base articles, provide solutions for the customer issue:

Customer Issue Summary:
- Category: %s
- Key Issues: %s
- Error Codes: %s
- Customer Intent: %s

Relevant Articles:
%s

Provide a JSON response with:
1. relevant_articles: Array with one entry per article above, in the same order, each with article_id, summary and solution_steps (array of strings)
2. recommended_solutions: Array of recommended solutions based on all articles
3. related_issues: Array of related issues that might be connected`,
		ticket.Category,
		strings.Join(ticket.KeyIssues, ", "),
		errorCodes,
		ticket.CustomerIntent,
		articles.String())
}

// RenderPrompt returns the system and user prompts a judgment call would send.
func RenderPrompt(ticket domain.TicketAnalysis, candidates []domain.Candidate, previewLen int) (string, string) {
	if previewLen <= 0 {
		previewLen = DefaultPreviewLen
	}
	return systemPrompt, buildUserPrompt(ticket, candidates, previewLen)
}
