package cli

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"supportkb/config"
	"supportkb/internal/adapter/fs"
	"supportkb/internal/adapter/store"
	"supportkb/internal/usecase"
)

var importCmd = &cobra.Command{
	Use:   "import [path]",
	Short: "Import and embed knowledge base articles",
	Long: `Import support articles from JSON, YAML or Markdown files, embed them and
store the corpus for retrieval. The stored corpus is replaced on every import.

Examples:
  kb import ./articles
  kb import . --config kb.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	rootDir := GetRootDir()
	logger := GetLogger()

	path := rootDir
	if len(args) > 0 {
		path = args[0]
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	dbPath := cfg.DBPath(rootDir)
	if err := config.EnsureDBDir(dbPath); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	st, err := store.NewBoltStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open knowledge base: %w", err)
	}
	defer st.Close()

	embedder, err := newEmbedder(cfg, logger)
	if err != nil {
		return err
	}

	walker := fs.NewWalker(cfg.Knowledge.Includes, cfg.Knowledge.Excludes)
	importUC := usecase.NewImportUseCase(st, walker, embedder, cfg.Embedding.BatchSize, logger.Named("import"))

	fmt.Printf("Scanning %s...\n", path)

	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	var startTime time.Time

	importUC.OnProgress(func(done, total int) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}

		bar.Set(done)

		if done > 0 && done < total {
			rate := float64(done) / time.Since(startTime).Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-done)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]Embedding[reset] ETA: %s", formatDuration(eta)))
			}
		}
	})

	result, err := importUC.Import(cmd.Context(), path)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Printf("\nImport complete:\n")
	fmt.Printf("  Files read:        %d\n", result.FilesRead)
	fmt.Printf("  Articles imported: %d\n", result.ArticlesImported)
	if result.IDsAssigned > 0 {
		fmt.Printf("  IDs assigned:      %d\n", result.IDsAssigned)
	}
	if result.Duplicates > 0 {
		fmt.Printf("  Duplicates:        %d (skipped)\n", result.Duplicates)
	}
	if result.Skipped > 0 {
		fmt.Printf("  Empty articles:    %d (skipped)\n", result.Skipped)
	}
	fmt.Printf("  Embedding model:   %s\n", embedder.ModelName())

	if len(result.Errors) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}

	fmt.Printf("\nKnowledge base stored at: %s\n", dbPath)
	return nil
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
