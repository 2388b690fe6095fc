package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"urpaq/internal/adapter/cache"
	"urpaq/internal/adapter/metrics"
	"urpaq/internal/domain"
	"urpaq/internal/port"
	"urpaq/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Server exposes the chat endpoint and the admin surface over HTTP.
type Server struct {
	orchestrator *usecase.Orchestrator
	ingest       *usecase.IngestUseCase
	caches       *cache.Caches
	metrics      *metrics.Recorder
	objects      port.ObjectStore
	engine       *gin.Engine
	log          *zap.SugaredLogger
}

// New wires the routes. The object store may be nil; uploads are then
// indexed without archival.
func New(
	orchestrator *usecase.Orchestrator,
	ingest *usecase.IngestUseCase,
	caches *cache.Caches,
	recorder *metrics.Recorder,
	objects port.ObjectStore,
	log *zap.SugaredLogger,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		orchestrator: orchestrator,
		ingest:       ingest,
		caches:       caches,
		metrics:      recorder,
		objects:      objects,
		engine:       engine,
		log:          log,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.engine.Group("/api")

	api.POST("/chat/message", s.handleChatMessage)

	admin := api.Group("/admin")
	admin.GET("/rag/metrics", s.handleMetrics)
	admin.GET("/rag/documents/stats", s.handleDocumentStats)
	admin.POST("/rag/cache/clear", s.handleCacheClear)
	admin.POST("/rag/metrics/reset", s.handleMetricsReset)
	admin.GET("/rag/health", s.handleHealth)
	admin.POST("/upload/txt", s.handleUpload)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.log.Infow("http server started", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		s.log.Infow("http server stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

func (s *Server) handleChatMessage(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	resp := s.orchestrator.ProcessQuery(c.Request.Context(), req.Message)

	now := time.Now()
	c.JSON(http.StatusOK, domain.ChatMessage{
		Type:      domain.MessageUser,
		Text:      req.Message,
		Timestamp: now,
		Response: &domain.ChatResponse{
			Type:      domain.MessageAIHelper,
			Text:      resp.Answer,
			Timestamp: now,
		},
	})
}

func (s *Server) handleMetrics(c *gin.Context) {
	snapshot := s.metrics.Snapshot()
	stats := s.caches.Stats()

	c.JSON(http.StatusOK, gin.H{
		"metrics": gin.H{
			"totalRequests":      snapshot.TotalRequests,
			"successfulRequests": snapshot.SuccessfulRequests,
			"failedRequests":     snapshot.FailedRequests,
			"successRate":        snapshot.SuccessRate,
			"avgResponseTimeMs":  snapshot.AvgResponseTimeMs,
			"totalRetries":       snapshot.TotalRetries,
			"validationIssues":   snapshot.ValidationIssues,
			"errorTypes":         snapshot.ErrorTypes,
		},
		"cache": gin.H{
			"searchCacheSize":  stats.SearchCacheSize,
			"queryCacheSize":   stats.QueryCacheSize,
			"searchCacheValid": stats.SearchCacheValid,
			"queryCacheValid":  stats.QueryCacheValid,
		},
	})
}

func (s *Server) handleDocumentStats(c *gin.Context) {
	count, err := s.ingest.Count()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"documentsIndexed": count})
}

func (s *Server) handleCacheClear(c *gin.Context) {
	kind := c.DefaultQuery("type", "all")
	switch kind {
	case "search":
		s.caches.InvalidateSearch()
	case "all":
		s.caches.InvalidateAll()
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be search or all"})
		return
	}

	s.log.Infow("cache cleared", "type", kind)
	c.JSON(http.StatusOK, gin.H{"status": "cleared", "type": kind})
}

func (s *Server) handleMetricsReset(c *gin.Context) {
	s.metrics.Reset()
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

func (s *Server) handleHealth(c *gin.Context) {
	count, err := s.ingest.Count()
	status := "UP"
	if err != nil {
		status = "DOWN"
		s.log.Errorw("health check failed", "err", err)
	}

	snapshot := s.metrics.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":           status,
		"documentsIndexed": count,
		"successRate":      fmt.Sprintf("%.1f%%", snapshot.SuccessRate),
		"cacheStats":       s.caches.Stats(),
	})
}

func (s *Server) handleUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	name := strings.TrimSuffix(fileHeader.Filename, filepath.Ext(fileHeader.Filename))

	var objectKey string
	if s.objects != nil {
		key, err := s.objects.Upload(c.Request.Context(), name, fileHeader.Filename,
			fileHeader.Header.Get("Content-Type"), file, fileHeader.Size)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("upload failed: %v", err)})
			return
		}
		objectKey = key

		// Rewind for indexing; multipart files are seekable.
		if _, err := file.Seek(0, 0); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	content, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	chunks, err := s.ingest.SaveWithChunking(domain.Document{
		ID:   fmt.Sprintf("upload-%d", time.Now().UnixMilli()),
		Name: name,
		Text: string(content),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "uploaded",
		"name":          name,
		"chunksCreated": chunks,
		"objectKey":     objectKey,
	})
}
