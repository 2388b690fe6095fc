package usecase

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"urpaq/internal/adapter/cache"
	"urpaq/internal/adapter/chunker"
	"urpaq/internal/adapter/fs"
	"urpaq/internal/adapter/index"
	"urpaq/internal/domain"
	"urpaq/internal/logger"
	"urpaq/internal/port"
)

func newTestIngest(t *testing.T) (*IngestUseCase, *index.MemoryIndex, *cache.Caches) {
	t.Helper()
	log := logger.NewNop()
	idx := index.NewMemoryIndex()
	caches := cache.NewCaches(time.Minute, time.Minute, 100, log)
	chk := chunker.NewParagraphChunker(100, 20, log)
	return NewIngestUseCase(idx, chk, caches, log), idx, caches
}

func TestSaveWithChunkingStoresChunks(t *testing.T) {
	u, idx, _ := newTestIngest(t)

	var paragraphs []string
	for i := 0; i < 5; i++ {
		paragraphs = append(paragraphs, strings.Repeat("слово ", 12))
	}
	doc := domain.Document{ID: "doc1", Name: "doc", Text: strings.Join(paragraphs, "\n\n")}

	n, err := u.SaveWithChunking(doc)
	require.NoError(t, err)
	assert.Greater(t, n, 1)

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, n, count)

	// Chunks are retrievable as independent documents.
	first, err := idx.Get("doc1_chunk_0")
	require.NoError(t, err)
	assert.Equal(t, "doc", first.Name)
}

func TestSaveWithChunkingBlankDocumentStoredWhole(t *testing.T) {
	u, idx, _ := newTestIngest(t)

	n, err := u.SaveWithChunking(domain.Document{ID: "empty", Name: "empty", Text: "   "})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSaveWithChunkingInvalidatesSearchCache(t *testing.T) {
	u, _, caches := newTestIngest(t)

	_, err := caches.Search.GetOrCompute("запрос", func() ([]domain.ScoredDocument, error) {
		return []domain.ScoredDocument{}, nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, caches.Search.Size())

	_, err = u.SaveWithChunking(domain.Document{ID: "d", Name: "d", Text: "новый документ"})
	require.NoError(t, err)

	assert.Equal(t, 0, caches.Search.Size())
}

func TestDeleteRemovesChunks(t *testing.T) {
	u, idx, _ := newTestIngest(t)

	_, err := u.SaveWithChunking(domain.Document{ID: "d", Name: "d", Text: "текст документа"})
	require.NoError(t, err)

	require.NoError(t, u.Delete("d"))

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestIngestFileReplacesOnReingest(t *testing.T) {
	u, idx, _ := newTestIngest(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("Первая версия документа."), 0644))

	n1, err := u.IngestFile(path)
	require.NoError(t, err)
	require.Greater(t, n1, 0)

	require.NoError(t, os.WriteFile(path, []byte("Вторая версия документа."), 0644))
	n2, err := u.IngestFile(path)
	require.NoError(t, err)

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, n2, count, "re-ingest must replace, not accumulate")
}

func TestRemoveFile(t *testing.T) {
	u, idx, _ := newTestIngest(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("Текст документа."), 0644))

	_, err := u.IngestFile(path)
	require.NoError(t, err)

	require.NoError(t, u.RemoveFile(path))

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestIngestDir(t *testing.T) {
	u, _, _ := newTestIngest(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("Документ о расписании."), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("Документ о кружках."), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.bin"), []byte{0x01}, 0644))

	var progressCalls int
	result, err := u.IngestDir(dir, fs.NewWalker(nil, nil), func(done, total int, path string) {
		progressCalls++
		assert.Equal(t, 2, total)
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesIngested)
	assert.Greater(t, result.ChunksCreated, 0)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 2, progressCalls)
}

type fakeObjects struct {
	contents map[string][]byte
	failKey  string
}

func (f *fakeObjects) Upload(ctx context.Context, name, filename, contentType string, content io.Reader, size int64) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeObjects) List(ctx context.Context) ([]port.ObjectInfo, error) {
	var infos []port.ObjectInfo
	for key, data := range f.contents {
		infos = append(infos, port.ObjectInfo{Key: key, Size: int64(len(data))})
	}
	return infos, nil
}

func (f *fakeObjects) Download(ctx context.Context, key string) ([]byte, error) {
	if key == f.failKey {
		return nil, errors.New("object unavailable")
	}
	return f.contents[key], nil
}

func TestIngestBucket(t *testing.T) {
	u, idx, _ := newTestIngest(t)

	objects := &fakeObjects{
		contents: map[string][]byte{
			"documents/bells/1-a.txt": []byte("Расписание звонков первой смены."),
			"documents/clubs/2-b.txt": []byte("Кружки и секции дворца."),
			"documents/broken.txt":    []byte("недоступен"),
		},
		failKey: "documents/broken.txt",
	}

	result, err := u.IngestBucket(context.Background(), objects)
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesIngested)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "documents/broken.txt")

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, result.ChunksCreated, count)
}
