package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"urpaq/config"
	"urpaq/internal/logger"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
	log     *zap.SugaredLogger
)

var rootCmd = &cobra.Command{
	Use:   "urpaq",
	Short: "Digital Urpaq AI assistant - RAG pipeline over a local knowledge base",
	Long: `Urpaq is a retrieval-augmented assistant for the Digital Urpaq
school palace. It indexes the document corpus, retrieves relevant fragments
for user questions and generates answers through an LLM backend.

Example usage:
  urpaq ingest                      # Index the docs directory
  urpaq ask -q "расписание звонков" # Ask a one-shot question
  urpaq serve                       # Run the HTTP chat and admin API`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

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

		log, err = logger.New(cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./urpaq.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}
