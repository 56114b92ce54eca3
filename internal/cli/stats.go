package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show information about the stored corpus",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print as JSON")
}

type corpusStats struct {
	Path           string         `json:"path"`
	Articles       int            `json:"articles"`
	EmbeddingModel string         `json:"embedding_model"`
	Dimension      int            `json:"dimension"`
	SchemaVersion  int            `json:"schema_version"`
	Categories     map[string]int `json:"categories"`
	NeedsRebuild   bool           `json:"needs_rebuild"`
	RebuildReason  string         `json:"rebuild_reason,omitempty"`
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	st, err := openExistingStore(cfg, GetRootDir())
	if err != nil {
		return err
	}
	defer st.Close()

	info, err := st.Info()
	if err != nil {
		return fmt.Errorf("failed to read corpus info: %w", err)
	}
	articles, err := st.ListArticles()
	if err != nil {
		return fmt.Errorf("failed to list articles: %w", err)
	}

	stats := corpusStats{
		Path:           cfg.DBPath(GetRootDir()),
		Articles:       info.Articles,
		EmbeddingModel: info.EmbeddingModel,
		Dimension:      info.Dimension,
		SchemaVersion:  info.SchemaVersion,
		Categories:     make(map[string]int),
	}
	for _, a := range articles {
		category := a.Category
		if category == "" {
			category = "(none)"
		}
		stats.Categories[category]++
	}

	fingerprint, err := embeddingFingerprint(cfg)
	if err != nil {
		return err
	}
	stats.NeedsRebuild, stats.RebuildReason, err = st.NeedsRebuild(fingerprint)
	if err != nil {
		return err
	}

	if statsJSON {
		output, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Knowledge base: %s\n", stats.Path)
	fmt.Printf("  Articles:        %d\n", stats.Articles)
	fmt.Printf("  Embedding model: %s (%d dims)\n", stats.EmbeddingModel, stats.Dimension)
	fmt.Printf("  Schema version:  %d\n", stats.SchemaVersion)
	if stats.NeedsRebuild {
		fmt.Printf("  Rebuild needed:  %s\n", stats.RebuildReason)
	}

	if len(stats.Categories) > 0 {
		names := make([]string, 0, len(stats.Categories))
		for name := range stats.Categories {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Println("\nCategories:")
		for _, name := range names {
			fmt.Printf("  %-20s %d\n", name, stats.Categories[name])
		}
	}
	return nil
}
