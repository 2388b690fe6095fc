package cli

import (
	"time"

	"urpaq/config"
	"urpaq/internal/adapter/cache"
	"urpaq/internal/adapter/chunker"
	"urpaq/internal/adapter/classifier"
	"urpaq/internal/adapter/llm"
	"urpaq/internal/adapter/metrics"
	"urpaq/internal/adapter/retriever"
	"urpaq/internal/port"
	"urpaq/internal/usecase"
)

// pipeline bundles the wired components shared by serve and ask.
type pipeline struct {
	caches       *cache.Caches
	recorder     *metrics.Recorder
	ingest       *usecase.IngestUseCase
	orchestrator *usecase.Orchestrator
}

func buildPipeline(cfg *config.Config, store port.DocumentStore, index port.DocumentIndex) *pipeline {
	caches := cache.NewCaches(
		time.Duration(cfg.RAG.QueryCacheTTLMin)*time.Minute,
		time.Duration(cfg.RAG.SearchCacheTTLMin)*time.Minute,
		cfg.RAG.CacheMaxSize,
		log,
	)
	recorder := metrics.NewRecorder(log)

	chk := chunker.NewParagraphChunker(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap, log)
	ingestUC := usecase.NewIngestUseCase(store, chk, caches, log)

	clf := classifier.New(log)
	hybrid := retriever.NewHybridRetriever(index, log)
	assembler := usecase.NewContextAssembler(cfg.RAG.MaxContextLength, log)
	validator := usecase.NewValidator(log)
	backend := llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKeyEnv, cfg.LLM.Model,
		cfg.LLM.Temperature, cfg.LLM.MaxTokens, log)

	orchestrator := usecase.NewOrchestrator(clf, hybrid, assembler, validator, backend,
		caches, recorder, usecase.OrchestratorOptions{
			TopK:            cfg.RAG.TopK,
			MaxRetries:      cfg.RAG.MaxRetries,
			RetryDelay:      time.Duration(cfg.RAG.RetryDelaySeconds) * time.Second,
			Timeout:         time.Duration(cfg.RAG.TimeoutSeconds) * time.Second,
			GenerateTimeout: time.Duration(cfg.RAG.GenerateTimeoutSecs) * time.Second,
		}, log)

	return &pipeline{
		caches:       caches,
		recorder:     recorder,
		ingest:       ingestUC,
		orchestrator: orchestrator,
	}
}
