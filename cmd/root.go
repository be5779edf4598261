package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stwir/clean-bib-file/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "clean-bib-file",
	Short: "Clean BibTeX bibliographies against CrossRef metadata",
	Long:  "Parses a .bib file, looks each entry up on CrossRef by DOI or title, and rewrites fields from the best confident match.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
