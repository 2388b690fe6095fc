package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"urpaq/internal/adapter/cache"
	"urpaq/internal/adapter/classifier"
	"urpaq/internal/adapter/metrics"
	"urpaq/internal/domain"
	"urpaq/internal/port"
)

// ErrInvalidQuery marks a classification input error. It is the one failure
// class the retry policy never retries.
var ErrInvalidQuery = errors.New("invalid query")

const (
	generationFallbackPrefix = "На основе найденной информации:\n\n"
	generationFallbackSuffix = "\n\n(Полный ответ не был сгенерирован из-за технической ошибки)"
	generationErrorText      = "Извините, произошла ошибка при генерации ответа. Попробуйте еще раз."
	fatalErrorPrefix         = "Извините, произошла ошибка при обработке вашего запроса. "
	fatalTimeoutText         = "Превышено время ожидания. Попробуйте упростить запрос."
	fatalGenericText         = "Пожалуйста, попробуйте еще раз позже."

	// NoInfoShortContext replaces the assembler output when retrieval came
	// back empty; the formatting step is skipped entirely.
	NoInfoShortContext = "Информация не найдена"

	fallbackContextChars = 500
)

// OrchestratorOptions tunes the pipeline's budgets.
type OrchestratorOptions struct {
	TopK            int
	MaxRetries      int
	RetryDelay      time.Duration
	Timeout         time.Duration
	GenerateTimeout time.Duration
}

func (o OrchestratorOptions) withDefaults() OrchestratorOptions {
	if o.TopK <= 0 {
		o.TopK = 5
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 2
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = time.Second
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.GenerateTimeout <= 0 {
		o.GenerateTimeout = 60 * time.Second
	}
	return o
}

// Orchestrator sequences the pipeline steps: classify (cached), retrieve
// (cached), assemble, generate, validate. The whole sequence runs under a
// retry policy and an overall timeout. ProcessQuery always returns a
// response object, never an error.
type Orchestrator struct {
	classifier *classifier.Classifier
	retriever  port.Retriever
	assembler  *ContextAssembler
	validator  *Validator
	llm        port.LLM
	caches     *cache.Caches
	metrics    *metrics.Recorder
	opts       OrchestratorOptions
	log        *zap.SugaredLogger
}

func NewOrchestrator(
	clf *classifier.Classifier,
	retriever port.Retriever,
	assembler *ContextAssembler,
	validator *Validator,
	llm port.LLM,
	caches *cache.Caches,
	recorder *metrics.Recorder,
	opts OrchestratorOptions,
	log *zap.SugaredLogger,
) *Orchestrator {
	return &Orchestrator{
		classifier: clf,
		retriever:  retriever,
		assembler:  assembler,
		validator:  validator,
		llm:        llm,
		caches:     caches,
		metrics:    recorder,
		opts:       opts.withDefaults(),
		log:        log,
	}
}

// ProcessQuery runs the whole pipeline for one query. Success or failure is
// recorded exactly once; fatal outcomes surface as an apology response with
// an empty source list.
func (o *Orchestrator) ProcessQuery(ctx context.Context, userQuery string) domain.RagResponse {
	start := time.Now()
	o.log.Infow("rag pipeline started", "query", userQuery)

	ctx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
	defer cancel()

	var response domain.RagResponse
	err := retry.Do(
		func() error {
			r, err := o.runPipeline(ctx, userQuery)
			if err != nil {
				return err
			}
			response = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(o.opts.MaxRetries)+1),
		retry.Delay(o.opts.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, ErrInvalidQuery)
		}),
		retry.OnRetry(func(attempt uint, err error) {
			o.log.Warnw("retrying rag pipeline", "attempt", attempt+1, "err", err)
			o.metrics.RecordRetry()
		}),
	)

	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		// The overall deadline is authoritative over whatever failed last.
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		o.log.Errorw("rag pipeline failed", "elapsed_ms", elapsed, "err", err)
		o.metrics.RecordFailure(err)
		return o.errorResponse(userQuery, err)
	}

	o.log.Infow("rag pipeline completed", "elapsed_ms", elapsed)
	o.metrics.RecordSuccess(elapsed)
	return response
}

func (o *Orchestrator) runPipeline(ctx context.Context, userQuery string) (domain.RagResponse, error) {
	o.log.Infow("step 1: processing query")
	processed, err := o.caches.Query.GetOrCompute(userQuery, func() (domain.ProcessedQuery, error) {
		return o.classifier.Classify(userQuery), nil
	})
	if err != nil {
		return domain.RagResponse{}, err
	}

	o.log.Infow("step 2: searching documents", "category", processed.Category)
	docs, err := o.caches.Search.GetOrCompute(processed.SearchText(), func() ([]domain.ScoredDocument, error) {
		return o.retriever.Search(ctx, processed, o.opts.TopK)
	})
	if err != nil {
		return domain.RagResponse{}, err
	}

	o.log.Infow("step 3: building context", "documents", len(docs))
	var contextText string
	if len(docs) == 0 {
		contextText = NoInfoShortContext
	} else {
		contextText = o.assembler.BuildContext(docs, processed)
	}

	o.log.Infow("step 4: generating response")
	answer := o.generate(ctx, contextText, userQuery, processed)

	o.log.Infow("step 5: validating response")
	validation := o.validator.Validate(answer, userQuery)
	if !validation.Valid {
		o.log.Warnw("response validation failed", "issue", validation.Issue)
		o.metrics.RecordValidationFailure(validation.Issue)
	}

	// An invalid-but-present response beats none: the validator's text is
	// returned regardless of validity.
	return domain.RagResponse{
		Answer:          validation.Processed,
		ProcessedQuery:  processed,
		SourceDocuments: docs,
		Valid:           validation.Valid,
		ValidationIssue: validation.Issue,
	}, nil
}

// generate calls the backend under its own sub-timeout. Generation failures
// are non-fatal: with a non-blank context the answer falls back to a context
// prefix wrapped in an explanatory note.
func (o *Orchestrator) generate(ctx context.Context, contextText, userQuery string, processed domain.ProcessedQuery) string {
	prompt := o.assembler.BuildPrompt(contextText, userQuery, processed)
	o.log.Debugw("calling generation backend", "prompt_length", len(prompt))

	genCtx, cancel := context.WithTimeout(ctx, o.opts.GenerateTimeout)
	defer cancel()

	answer, err := o.llm.Generate(genCtx, prompt)
	if err == nil {
		return answer
	}

	o.log.Errorw("error generating response", "err", err)

	if strings.TrimSpace(contextText) != "" {
		runes := []rune(contextText)
		if len(runes) > fallbackContextChars {
			runes = runes[:fallbackContextChars]
		}
		return generationFallbackPrefix + string(runes) + generationFallbackSuffix
	}
	return generationErrorText
}

func (o *Orchestrator) errorResponse(userQuery string, err error) domain.RagResponse {
	message := fatalErrorPrefix
	if errors.Is(err, context.DeadlineExceeded) {
		message += fatalTimeoutText
	} else {
		message += fatalGenericText
	}

	return domain.RagResponse{
		Answer: message,
		ProcessedQuery: domain.ProcessedQuery{
			OriginalQuery: userQuery,
			Category:      domain.CategoryGeneral,
		},
		SourceDocuments: []domain.ScoredDocument{},
		Valid:           false,
		ValidationIssue: domain.IssueEmptyResponse,
	}
}
