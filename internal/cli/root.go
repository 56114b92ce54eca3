package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"supportkb/config"
	"supportkb/internal/domain"
	"supportkb/internal/observability"
)

// Exit codes returned by Execute.
const (
	exitError       = 1
	exitUnavailable = 2
)

// Version is set at build time with -ldflags "-X supportkb/internal/cli.Version=...".
var Version = "dev"

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "kb",
	Short: "Support knowledge base - retrieve help articles for analyzed tickets",
	Long: `kb imports support articles, embeds them into a vector index and retrieves
the most relevant ones for an analyzed ticket. Retrieved candidates are
summarized by a language model into solution steps and recommendations.

Example usage:
  kb import ./articles                              # Import and embed articles
  kb retrieve --issue "login failure" --intent "regain access" --code E401
  kb stats                                          # Show corpus information
  kb mcp                                            # Serve tools over MCP stdio`,
	Version:      Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		// A missing .env file is normal outside development.
		_ = godotenv.Load()

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		logger, err = observability.NewLogger(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the root command. A retrieval whose judgment was unavailable
// exits with status 2; other failures exit with status 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, domain.ErrJudgmentUnavailable) {
			os.Exit(exitUnavailable)
		}
		os.Exit(exitError)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./kb.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}

func GetLogger() *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
