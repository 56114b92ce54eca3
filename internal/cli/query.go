package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"supportkb/internal/adapter/judge"
	"supportkb/internal/domain"
	"supportkb/internal/port"
	"supportkb/internal/usecase"
)

var (
	retrieveTicketFile string
	retrieveIssues     []string
	retrieveIntent     string
	retrieveCodes      []string
	retrieveCategory   string
	retrieveTopK       int
	retrieveMock       bool
	retrieveSearchOnly bool
	retrieveText       bool
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve",
	Short: "Retrieve knowledge for an analyzed ticket",
	Long: `Search the knowledge base for an analyzed ticket, ask the language model to
summarize the best candidates and print the fused result as JSON.

The ticket is read from --ticket (JSON or YAML with key_issues, customer_intent,
error_codes and category) or built from flags. The command exits with status 2
when the model could not produce a usable judgment.

Examples:
  kb retrieve --ticket ticket.json
  kb retrieve --issue "login failure" --issue "account locked" --intent "regain access" --code E401
  kb retrieve --ticket ticket.yaml --search-only --top-k 10`,
	RunE: runRetrieve,
}

func init() {
	rootCmd.AddCommand(retrieveCmd)
	addTicketFlags(retrieveCmd)
	retrieveCmd.Flags().BoolVar(&retrieveMock, "mock", false, "judge candidates offline without calling a model")
	retrieveCmd.Flags().BoolVar(&retrieveSearchOnly, "search-only", false, "print ranked candidates without judging them")
	retrieveCmd.Flags().BoolVar(&retrieveText, "text", false, "print a human-readable summary instead of JSON")
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	logger := GetLogger()

	ticket, err := readTicket()
	if err != nil {
		return err
	}

	var j port.Judge
	if retrieveMock || retrieveSearchOnly {
		j = judge.NewOffline()
	} else {
		j, err = newJudge(cfg, logger)
		if err != nil {
			return err
		}
	}

	retriever, st, err := loadRetriever(cmd.Context(), cfg, GetRootDir(), j, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	if retrieveSearchOnly {
		candidates, err := retriever.Search(cmd.Context(), usecase.BuildQuery(ticket), retrieveTopK)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		return printCandidates(candidates)
	}

	result, err := retriever.Retrieve(cmd.Context(), ticket, retrieveTopK)
	if err != nil {
		if reason, ok := domain.ReasonOf(err); ok {
			fmt.Fprintf(os.Stderr, "Knowledge judgment unavailable (%s). Consider escalating to human support.\n", reason)
		}
		return err
	}

	if retrieveText {
		printResultText(result)
		return nil
	}
	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(output))
	return nil
}

// addTicketFlags registers the flags read by readTicket.
func addTicketFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&retrieveTicketFile, "ticket", "t", "", "ticket analysis file (JSON or YAML)")
	cmd.Flags().StringArrayVar(&retrieveIssues, "issue", nil, "key issue (repeatable)")
	cmd.Flags().StringVar(&retrieveIntent, "intent", "", "customer intent")
	cmd.Flags().StringArrayVar(&retrieveCodes, "code", nil, "error code (repeatable)")
	cmd.Flags().StringVar(&retrieveCategory, "category", "", "ticket category")
	cmd.Flags().IntVarP(&retrieveTopK, "top-k", "k", 0, "number of articles to search (default from config)")
}

// readTicket loads the ticket file when given and lets flags override its fields.
func readTicket() (domain.TicketAnalysis, error) {
	var ticket domain.TicketAnalysis

	if retrieveTicketFile != "" {
		data, err := os.ReadFile(retrieveTicketFile)
		if err != nil {
			return ticket, fmt.Errorf("failed to read ticket: %w", err)
		}
		switch strings.ToLower(filepath.Ext(retrieveTicketFile)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, &ticket)
		default:
			err = json.Unmarshal(data, &ticket)
		}
		if err != nil {
			return ticket, fmt.Errorf("failed to parse ticket: %w", err)
		}
	}

	if len(retrieveIssues) > 0 {
		ticket.KeyIssues = retrieveIssues
	}
	if retrieveIntent != "" {
		ticket.CustomerIntent = retrieveIntent
	}
	if len(retrieveCodes) > 0 {
		ticket.ErrorCodes = retrieveCodes
	}
	if retrieveCategory != "" {
		ticket.Category = retrieveCategory
	}

	if len(ticket.KeyIssues) == 0 && strings.TrimSpace(ticket.CustomerIntent) == "" {
		return ticket, errors.New("a ticket needs key issues or a customer intent: use --ticket or --issue/--intent")
	}
	return ticket, nil
}

func printCandidates(candidates []domain.Candidate) error {
	type row struct {
		ArticleID string  `json:"article_id"`
		Title     string  `json:"title"`
		Distance  float64 `json:"distance"`
		Relevance float64 `json:"relevance_score"`
	}

	rows := make([]row, 0, len(candidates))
	for _, c := range candidates {
		rows = append(rows, row{
			ArticleID: c.Article.ID,
			Title:     c.Article.Title,
			Distance:  c.Distance,
			Relevance: c.Relevance,
		})
	}

	if retrieveText {
		if len(rows) == 0 {
			fmt.Println("No results found.")
			return nil
		}
		for i, r := range rows {
			fmt.Printf("[%d] %s %s (relevance: %.2f)\n", i+1, r.ArticleID, r.Title, r.Relevance)
		}
		return nil
	}

	output, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(output))
	return nil
}

func printResultText(result *domain.KnowledgeRetrievalResult) {
	if len(result.RelevantArticles) == 0 {
		fmt.Println("No relevant articles.")
	}
	for i, a := range result.RelevantArticles {
		fmt.Printf("--- [%d] %s: %s (relevance: %.2f) ---\n", i+1, a.ArticleID, a.Title, a.RelevanceScore)
		if a.Summary != "" {
			fmt.Println(a.Summary)
		}
		for n, step := range a.SolutionSteps {
			fmt.Printf("  %d. %s\n", n+1, step)
		}
		fmt.Println()
	}

	if len(result.RecommendedSolutions) > 0 {
		fmt.Println("Recommended solutions:")
		for _, s := range result.RecommendedSolutions {
			fmt.Printf("  - %s\n", s)
		}
	}
	if len(result.RelatedIssues) > 0 {
		fmt.Println("Related issues:")
		for _, s := range result.RelatedIssues {
			fmt.Printf("  - %s\n", s)
		}
	}
}
