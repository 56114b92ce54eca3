package cli

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/spf13/cobra"

	"supportkb/internal/adapter/judge"
	"supportkb/internal/usecase"
)

const promptLayout = `### System
{{.System}}

### User
{{.User}}`

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the judgment prompt for a ticket",
	Long: `Search the knowledge base for a ticket and print the system and user prompts
that would be sent to the language model, without calling it. Useful for manual
LLM orchestration and for tuning the prompt.

Examples:
  kb prompt --ticket ticket.json
  kb prompt --issue "double charge" --intent "refund" --category billing`,
	RunE: runPrompt,
}

func init() {
	rootCmd.AddCommand(promptCmd)
	addTicketFlags(promptCmd)
}

func runPrompt(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	logger := GetLogger()

	ticket, err := readTicket()
	if err != nil {
		return err
	}

	retriever, st, err := loadRetriever(cmd.Context(), cfg, GetRootDir(), judge.NewOffline(), logger)
	if err != nil {
		return err
	}
	defer st.Close()

	candidates, err := retriever.Search(cmd.Context(), usecase.BuildQuery(ticket), retrieveTopK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if len(candidates) > cfg.Retrieve.JudgeCandidates {
		candidates = candidates[:cfg.Retrieve.JudgeCandidates]
	}

	system, user := judge.RenderPrompt(ticket, candidates, cfg.Retrieve.ContentPreview)

	tmpl, err := template.New("prompt").Parse(promptLayout)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ System, User string }{system, user}); err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}

	fmt.Println(buf.String())
	return nil
}
