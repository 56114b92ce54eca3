package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"supportkb/internal/mcp"
)

var mcpMock bool

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve knowledge retrieval tools over MCP stdio",
	Long: `Run the knowledge base as an MCP (Model Context Protocol) server on stdio so
agents can call retrieve_knowledge and list_articles.

The corpus is loaded once at startup. Logs are written to stderr.`,
	Example: `  kb mcp
  kb mcp --mock   # judge offline, no model calls`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().BoolVar(&mcpMock, "mock", false, "judge candidates offline without calling a model")
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	logger := GetLogger()

	if mcpMock {
		cfg.LLM.Provider = "mock"
	}
	j, err := newJudge(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	retriever, st, err := loadRetriever(ctx, cfg, GetRootDir(), j, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	server := mcpserver.NewMCPServer("supportkb", Version)
	mcp.RegisterTools(server, retriever, logger.Named("mcp"))

	logger.Info("mcp server starting on stdio", zap.Int("articles", retriever.Size()))

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("server error: %w", err)
		}
	}
	return nil
}
