package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"urpaq/internal/adapter/cache"
	"urpaq/internal/adapter/fs"
	"urpaq/internal/domain"
	"urpaq/internal/port"
)

// IngestUseCase loads documents into the index, chunking them first. Every
// mutation invalidates the search cache so stale rankings never survive a
// corpus change.
type IngestUseCase struct {
	store   port.DocumentStore
	chunker port.Chunker
	caches  *cache.Caches
	log     *zap.SugaredLogger
}

func NewIngestUseCase(store port.DocumentStore, chunker port.Chunker, caches *cache.Caches, log *zap.SugaredLogger) *IngestUseCase {
	return &IngestUseCase{store: store, chunker: chunker, caches: caches, log: log}
}

// SaveWithChunking splits the document and stores each chunk as its own
// indexed document. A document too small to chunk is stored whole. Returns
// the number of index entries written.
func (u *IngestUseCase) SaveWithChunking(doc domain.Document) (int, error) {
	chunks := u.chunker.Chunk(doc)

	if len(chunks) == 0 {
		if err := u.store.Put(doc); err != nil {
			return 0, fmt.Errorf("failed to store document %s: %w", doc.ID, err)
		}
		u.caches.InvalidateSearch()
		return 1, nil
	}

	for _, chunk := range chunks {
		if err := u.store.Put(chunk.Document()); err != nil {
			return 0, fmt.Errorf("failed to store chunk %s: %w", chunk.ID, err)
		}
	}

	u.log.Infow("document ingested", "doc_id", doc.ID, "chunks", len(chunks))
	u.caches.InvalidateSearch()
	return len(chunks), nil
}

// Delete removes the document and all of its chunks from the index.
func (u *IngestUseCase) Delete(docID string) error {
	if err := u.store.DeleteByDoc(docID); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", docID, err)
	}
	u.caches.InvalidateSearch()
	return nil
}

// Count reports how many index entries exist.
func (u *IngestUseCase) Count() (int, error) {
	return u.store.Count()
}

// IngestFile reads a corpus file and (re)ingests it. The document id is
// derived from the path so re-ingesting the same file replaces its chunks.
func (u *IngestUseCase) IngestFile(filePath string) (int, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	docID := fileDocID(filePath)
	name := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))

	if err := u.store.DeleteByDoc(docID); err != nil {
		return 0, fmt.Errorf("failed to clear previous chunks for %s: %w", filePath, err)
	}

	return u.SaveWithChunking(domain.Document{
		ID:   docID,
		Name: name,
		Text: string(content),
	})
}

// RemoveFile drops the index entries for a deleted corpus file.
func (u *IngestUseCase) RemoveFile(filePath string) error {
	return u.Delete(fileDocID(filePath))
}

// IngestResult summarizes a bulk ingestion run.
type IngestResult struct {
	FilesIngested int
	ChunksCreated int
	Errors        []string
}

// IngestDir walks the docs directory and ingests every matching file.
// Failures are collected, not fatal. The progress callback, when non-nil,
// fires after each file.
func (u *IngestUseCase) IngestDir(root string, walker *fs.Walker, progress func(done, total int, path string)) (IngestResult, error) {
	files, err := walker.Walk(root)
	if err != nil {
		return IngestResult{}, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	var result IngestResult
	for i, file := range files {
		chunks, err := u.IngestFile(file.Path)
		if err != nil {
			u.log.Errorw("failed to ingest file", "path", file.Path, "err", err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", file.Path, err))
			continue
		}
		result.FilesIngested++
		result.ChunksCreated += chunks

		if progress != nil {
			progress(i+1, len(files), file.Path)
		}
	}

	u.log.Infow("directory ingested", "root", root,
		"files", result.FilesIngested, "chunks", result.ChunksCreated, "errors", len(result.Errors))
	return result, nil
}

// IngestBucket downloads every object from the store and ingests it. Used
// for the initial bulk load from S3.
func (u *IngestUseCase) IngestBucket(ctx context.Context, objects port.ObjectStore) (IngestResult, error) {
	infos, err := objects.List(ctx)
	if err != nil {
		return IngestResult{}, fmt.Errorf("failed to list bucket: %w", err)
	}

	var result IngestResult
	for _, info := range infos {
		content, err := objects.Download(ctx, info.Key)
		if err != nil {
			u.log.Errorw("failed to download object", "key", info.Key, "err", err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", info.Key, err))
			continue
		}

		chunks, err := u.SaveWithChunking(domain.Document{
			ID:   uuid.NewString(),
			Name: path.Base(info.Key),
			Text: string(content),
		})
		if err != nil {
			u.log.Errorw("failed to ingest object", "key", info.Key, "err", err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", info.Key, err))
			continue
		}
		result.FilesIngested++
		result.ChunksCreated += chunks
	}

	u.log.Infow("bucket ingested",
		"files", result.FilesIngested, "chunks", result.ChunksCreated, "errors", len(result.Errors))
	return result, nil
}

func fileDocID(filePath string) string {
	sum := sha256.Sum256([]byte(filePath))
	return hex.EncodeToString(sum[:])[:16]
}
