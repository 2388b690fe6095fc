package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"urpaq/config"
	"urpaq/internal/adapter/fs"
	"urpaq/internal/adapter/index"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Index the document corpus",
	Long: `Index documents in the docs directory (or the given path) for
retrieval. The index is stored in .urpaq/index.db within the root directory.

Examples:
  urpaq ingest              # Index the configured docs directory
  urpaq ingest ./knowledge  # Index a specific directory`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	rootDir := GetRootDir()

	docsDir := cfg.Docs.Dir
	if len(args) > 0 {
		docsDir = args[0]
	}
	if !filepath.IsAbs(docsDir) {
		docsDir = filepath.Join(rootDir, docsDir)
	}

	info, err := os.Stat(docsDir)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", docsDir)
	}

	if err := config.EnsureStateDir(rootDir); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	idx, err := index.NewBoltIndex(cfg.IndexDBPath(rootDir))
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer idx.Close()

	p := buildPipeline(cfg, idx, idx)
	walker := fs.NewWalker(cfg.Docs.Includes, cfg.Docs.Excludes)

	fmt.Printf("Scanning %s...\n", docsDir)

	var bar *progressbar.ProgressBar
	progress := func(done, total int, path string) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Indexing"),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}
		bar.Set(done)
	}

	result, err := p.ingest.IngestDir(docsDir, walker, progress)
	if err != nil {
		return err
	}
	if bar != nil {
		bar.Finish()
	}

	fmt.Printf("Indexed %d files (%d chunks)\n", result.FilesIngested, result.ChunksCreated)
	if len(result.Errors) > 0 {
		fmt.Printf("%d files failed:\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("  %s\n", e)
		}
	}

	return nil
}
