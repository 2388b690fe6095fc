package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"urpaq/config"
	"urpaq/internal/adapter/fs"
	"urpaq/internal/adapter/index"
	"urpaq/internal/adapter/storage"
	"urpaq/internal/adapter/watcher"
	"urpaq/internal/port"
	"urpaq/internal/server"
	"urpaq/internal/usecase"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP chat and admin API",
	Long: `Start the assistant: load the document corpus, then serve the chat
endpoint and the admin surface until interrupted.

Examples:
  urpaq serve
  urpaq serve --config ./urpaq.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	rootDir := GetRootDir()

	if err := config.EnsureStateDir(rootDir); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	idx, err := index.NewBoltIndex(cfg.IndexDBPath(rootDir))
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer idx.Close()

	p := buildPipeline(cfg, idx, idx)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var objects port.ObjectStore
	if cfg.Storage.Enabled {
		s3, err := storage.NewS3Store(cfg.Storage.Endpoint, cfg.Storage.Bucket,
			cfg.Storage.AccessKeyEnv, cfg.Storage.SecretKeyEnv, cfg.Storage.UseSSL, log)
		if err != nil {
			return fmt.Errorf("failed to connect to object storage: %w", err)
		}
		objects = s3

		result, err := p.ingest.IngestBucket(ctx, s3)
		if err != nil {
			return fmt.Errorf("failed to load documents from bucket: %w", err)
		}
		log.Infow("bucket load complete", "files", result.FilesIngested, "chunks", result.ChunksCreated)
	}

	docsDir := cfg.Docs.Dir
	if !filepath.IsAbs(docsDir) {
		docsDir = filepath.Join(rootDir, docsDir)
	}

	walker := fs.NewWalker(cfg.Docs.Includes, cfg.Docs.Excludes)
	if info, err := os.Stat(docsDir); err == nil && info.IsDir() {
		result, err := p.ingest.IngestDir(docsDir, walker, nil)
		if err != nil {
			return fmt.Errorf("failed to ingest docs directory: %w", err)
		}
		log.Infow("docs load complete", "files", result.FilesIngested, "chunks", result.ChunksCreated)

		if cfg.Docs.Watch {
			if err := watchDocs(ctx, docsDir, walker, p.ingest); err != nil {
				return err
			}
		}
	}

	srv := server.New(p.orchestrator, p.ingest, p.caches, p.recorder, objects, log)
	return srv.Run(ctx, cfg.Server.Addr)
}

func watchDocs(ctx context.Context, docsDir string, walker *fs.Walker, ingestUC *usecase.IngestUseCase) error {
	w, err := watcher.New(walker, log)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	events, err := w.Watch(ctx, docsDir)
	if err != nil {
		return fmt.Errorf("failed to watch docs directory: %w", err)
	}

	go func() {
		for event := range events {
			if event.Removed {
				if err := ingestUC.RemoveFile(event.Path); err != nil {
					log.Errorw("failed to remove file from index", "path", event.Path, "err", err)
				}
				continue
			}
			if _, err := ingestUC.IngestFile(event.Path); err != nil {
				log.Errorw("failed to re-ingest file", "path", event.Path, "err", err)
			}
		}
	}()

	log.Infow("watching docs directory", "dir", docsDir)
	return nil
}
