package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"supportkb/internal/domain"
	"supportkb/internal/port"
)

// KnowledgeBase is what the tools need from a loaded retriever.
type KnowledgeBase interface {
	port.KnowledgeRetriever
	Articles() []domain.Article
}

// Handlers contains the handler functions for the MCP tools.
type Handlers struct {
	kb     KnowledgeBase
	logger *zap.Logger
}

func NewHandlers(kb KnowledgeBase, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{kb: kb, logger: logger}
}

// RetrieveKnowledge handles the retrieve_knowledge tool.
func (h *Handlers) RetrieveKnowledge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	intent, err := request.RequireString("customer_intent")
	if err != nil {
		return mcp.NewToolResultError("customer_intent argument is required and must be a string"), nil
	}

	ticket := domain.TicketAnalysis{
		KeyIssues:      request.GetStringSlice("key_issues", []string{}),
		CustomerIntent: intent,
		ErrorCodes:     request.GetStringSlice("error_codes", []string{}),
		Category:       request.GetString("category", ""),
	}
	topK := request.GetInt("top_k", 0)

	result, err := h.kb.Retrieve(ctx, ticket, topK)
	if err != nil {
		if reason, ok := domain.ReasonOf(err); ok {
			h.logger.Warn("retrieve_knowledge unavailable", zap.String("reason", string(reason)))
			return mcp.NewToolResultError(fmt.Sprintf("knowledge judgment unavailable (%s): %v", reason, err)), nil
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return mcp.NewToolResultError(fmt.Sprintf("retrieval failed: %v", err)), nil
	}

	return jsonResult(result)
}

type articleSummary struct {
	ArticleID string   `json:"article_id"`
	Title     string   `json:"title"`
	Category  string   `json:"category"`
	Tags      []string `json:"tags"`
}

// ListArticles handles the list_articles tool.
func (h *Handlers) ListArticles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category := strings.TrimSpace(request.GetString("category", ""))

	summaries := []articleSummary{}
	for _, a := range h.kb.Articles() {
		if category != "" && !strings.EqualFold(a.Category, category) {
			continue
		}
		tags := a.Tags
		if tags == nil {
			tags = []string{}
		}
		summaries = append(summaries, articleSummary{
			ArticleID: a.ID,
			Title:     a.Title,
			Category:  a.Category,
			Tags:      tags,
		})
	}

	return jsonResult(map[string]interface{}{
		"count":    len(summaries),
		"articles": summaries,
	})
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
