package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/stwir/clean-bib-file/internal/bibtex"
)

var (
	cleanInput       string
	cleanOutput      string
	cleanThreshold   float64
	cleanConcurrency int
	cleanReport      string
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean a .bib file against CrossRef",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cleanInput != "" {
			cfg.InputPath = cleanInput
		}
		if cleanOutput != "" {
			cfg.OutputPath = cleanOutput
		}
		if cmd.Flags().Changed("threshold") {
			cfg.MatchThreshold = cleanThreshold
		}
		if cleanConcurrency > 0 {
			cfg.Clean.Concurrency = cleanConcurrency
		}

		src, err := os.ReadFile(cfg.InputPath)
		if err != nil {
			return eris.Wrap(err, "read input")
		}
		lib := bibtex.ParseString(string(src))
		entries := lib.Entries()

		zap.L().Info("parsed bibliography",
			zap.String("path", cfg.InputPath),
			zap.Int("entries", len(entries)),
			zap.Int("blocks", len(lib.Blocks)),
		)

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result := env.Pipeline.Run(ctx, entries)

		// All entries are processed before anything is written, so a partial
		// run never clobbers the output file.
		out, err := os.Create(cfg.OutputPath)
		if err != nil {
			return eris.Wrap(err, "create output")
		}
		if err := bibtex.Write(out, lib); err != nil {
			_ = out.Close()
			return eris.Wrap(err, "write output")
		}
		if err := out.Close(); err != nil {
			return eris.Wrap(err, "close output")
		}

		if cleanReport != "" {
			data, err := yaml.Marshal(result)
			if err != nil {
				return eris.Wrap(err, "marshal report")
			}
			if err := os.WriteFile(cleanReport, data, 0o644); err != nil {
				return eris.Wrap(err, "write report")
			}
		}

		zap.L().Info("wrote cleaned bibliography",
			zap.String("path", cfg.OutputPath),
			zap.Int("updated", result.Updated),
			zap.Int("unchanged", result.Unchanged),
			zap.Int("skipped", result.Skipped),
		)
		return nil
	},
}

func init() {
	cleanCmd.Flags().StringVar(&cleanInput, "input", "", "input .bib path (default from config)")
	cleanCmd.Flags().StringVar(&cleanOutput, "output", "", "output .bib path (default from config)")
	cleanCmd.Flags().Float64Var(&cleanThreshold, "threshold", 0, "minimum match confidence (default from config)")
	cleanCmd.Flags().IntVar(&cleanConcurrency, "concurrency", 0, "parallel lookups (default from config)")
	cleanCmd.Flags().StringVar(&cleanReport, "report", "", "write a YAML change report to this path")
	rootCmd.AddCommand(cleanCmd)
}
