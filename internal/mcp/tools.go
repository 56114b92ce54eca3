package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// RegisterTools registers the knowledge base tools with the server.
func RegisterTools(server *mcpserver.MCPServer, kb KnowledgeBase, logger *zap.Logger) *Handlers {
	handlers := NewHandlers(kb, logger)

	server.AddTool(mcp.Tool{
		Name:        "retrieve_knowledge",
		Description: "Find knowledge base articles for an analyzed support ticket and return summaries, solution steps and recommended solutions.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"key_issues": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Key issues extracted from the ticket",
				},
				"customer_intent": map[string]interface{}{
					"type":        "string",
					"description": "What the customer is trying to achieve",
				},
				"error_codes": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Error codes mentioned in the ticket (e.g., 'E401')",
				},
				"category": map[string]interface{}{
					"type":        "string",
					"description": "Ticket category (e.g., 'billing', 'technical')",
				},
				"top_k": map[string]interface{}{
					"type":        "number",
					"description": "Number of articles to search for (default: 5)",
					"default":     5,
				},
			},
			Required: []string{"customer_intent"},
		},
	}, handlers.RetrieveKnowledge)

	server.AddTool(mcp.Tool{
		Name:        "list_articles",
		Description: "List the articles in the loaded knowledge base, optionally filtered by category.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"category": map[string]interface{}{
					"type":        "string",
					"description": "Only list articles in this category",
				},
			},
		},
	}, handlers.ListArticles)

	return handlers
}
