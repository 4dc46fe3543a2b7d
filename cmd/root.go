package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/trueinf/geosight-new-sub000/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "geosight",
	Short: "Multi-provider LLM visibility research",
	Long:  "Asks Claude, OpenAI, Perplexity and Gemini the same question, parses their ranked answers and measures how visible a target is across them.",
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
