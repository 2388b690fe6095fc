package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"urpaq/internal/adapter/cache"
	"urpaq/internal/adapter/chunker"
	"urpaq/internal/adapter/classifier"
	"urpaq/internal/adapter/index"
	"urpaq/internal/adapter/metrics"
	"urpaq/internal/adapter/retriever"
	"urpaq/internal/domain"
	"urpaq/internal/logger"
	"urpaq/internal/usecase"
)

type staticLLM struct {
	answer string
}

func (s *staticLLM) Generate(ctx context.Context, prompt string) (string, error) {
	return s.answer, nil
}

func (s *staticLLM) ModelName() string { return "static" }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	log := logger.NewNop()

	idx := index.NewMemoryIndex()
	require.NoError(t, idx.Put(domain.Document{
		ID:   "bells",
		Name: "Расписание звонков",
		Text: "Уроки первой смены начинаются в восемь утра.",
	}))

	caches := cache.NewCaches(time.Minute, time.Minute, 100, log)
	recorder := metrics.NewRecorder(log)
	chk := chunker.NewParagraphChunker(500, 100, log)
	ingestUC := usecase.NewIngestUseCase(idx, chk, caches, log)

	orchestrator := usecase.NewOrchestrator(
		classifier.New(log),
		retriever.NewHybridRetriever(idx, log),
		usecase.NewContextAssembler(4000, log),
		usecase.NewValidator(log),
		&staticLLM{answer: "Уроки первой смены начинаются в восемь утра."},
		caches,
		recorder,
		usecase.OrchestratorOptions{},
		log,
	)

	return New(orchestrator, ingestUC, caches, recorder, nil, log)
}

func TestChatMessage(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"message": "Какое расписание звонков?"})
	req := httptest.NewRequest(http.MethodPost, "/api/chat/message", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var msg domain.ChatMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))

	assert.Equal(t, domain.MessageUser, msg.Type)
	assert.Equal(t, "Какое расписание звонков?", msg.Text)
	require.NotNil(t, msg.Response)
	assert.Equal(t, domain.MessageAIHelper, msg.Response.Type)
	assert.NotEmpty(t, msg.Response.Text)
}

func TestChatMessageMissingBody(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/message", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	// One chat request so the counters are non-zero.
	body, _ := json.Marshal(map[string]string{"message": "расписание"})
	req := httptest.NewRequest(http.MethodPost, "/api/chat/message", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/rag/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Metrics struct {
			TotalRequests int64   `json:"totalRequests"`
			SuccessRate   float64 `json:"successRate"`
		} `json:"metrics"`
		Cache struct {
			SearchCacheSize int `json:"searchCacheSize"`
			QueryCacheSize  int `json:"queryCacheSize"`
		} `json:"cache"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))

	assert.Equal(t, int64(1), payload.Metrics.TotalRequests)
	assert.InDelta(t, 100.0, payload.Metrics.SuccessRate, 0.001)
	assert.Equal(t, 1, payload.Cache.QueryCacheSize)
}

func TestDocumentStats(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/rag/documents/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, 1, payload["documentsIndexed"])
}

func TestCacheClear(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/rag/cache/clear?type=search", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/rag/cache/clear", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/rag/cache/clear?type=bogus", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsReset(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"message": "расписание"})
	req := httptest.NewRequest(http.MethodPost, "/api/chat/message", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/rag/metrics/reset", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/rag/metrics", nil))

	var payload struct {
		Metrics struct {
			TotalRequests int64 `json:"totalRequests"`
		} `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Zero(t, payload.Metrics.TotalRequests)
}

func TestUploadIndexesDocument(t *testing.T) {
	srv := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "Кружки.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("Кружок робототехники работает по вторникам и четвергам."))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/upload/txt", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Status        string `json:"status"`
		Name          string `json:"name"`
		ChunksCreated int    `json:"chunksCreated"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "uploaded", payload.Status)
	assert.Equal(t, "Кружки", payload.Name)
	assert.Greater(t, payload.ChunksCreated, 0)
}

func TestUploadMissingFile(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/upload/txt", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/rag/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "UP", payload["status"])
	assert.Equal(t, float64(1), payload["documentsIndexed"])
}
