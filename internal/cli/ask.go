package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"urpaq/internal/adapter/index"
)

var askQuery string

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask a one-shot question",
	Long: `Run the full pipeline for a single question and print the answer
with its source documents.

Examples:
  urpaq ask -q "Какое расписание звонков?"
  urpaq ask -q "контакты администрации"`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askQuery, "query", "q", "", "question to ask (required)")
	askCmd.MarkFlagRequired("query")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	rootDir := GetRootDir()

	dbPath := cfg.IndexDBPath(rootDir)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("no index found. Run 'urpaq ingest' first")
	}

	idx, err := index.NewBoltIndex(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer idx.Close()

	p := buildPipeline(cfg, idx, idx)

	resp := p.orchestrator.ProcessQuery(context.Background(), askQuery)

	fmt.Println(resp.Answer)

	if len(resp.SourceDocuments) > 0 {
		fmt.Println("\nИсточники:")
		for i, doc := range resp.SourceDocuments {
			fmt.Printf("  %d. %s (%.2f)\n", i+1, doc.Document.Name, doc.Score)
		}
	}

	if !resp.Valid {
		fmt.Fprintf(os.Stderr, "warning: response failed validation (%s)\n", resp.ValidationIssue)
	}

	return nil
}
