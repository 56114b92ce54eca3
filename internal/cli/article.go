package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"supportkb/internal/adapter/store"
)

var articleCmd = &cobra.Command{
	Use:   "article <id>",
	Short: "Print a stored article as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runArticle,
}

func init() {
	rootCmd.AddCommand(articleCmd)
}

func runArticle(cmd *cobra.Command, args []string) error {
	st, err := openExistingStore(GetConfig(), GetRootDir())
	if err != nil {
		return err
	}
	defer st.Close()

	article, err := st.GetArticle(args[0])
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no article with id %q", args[0])
	}
	if err != nil {
		return err
	}

	output, err := json.MarshalIndent(article, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(output))
	return nil
}
