package port

import (
	"context"

	"urpaq/internal/domain"
)

// Retriever defines the interface for ranked document retrieval.
type Retriever interface {
	// Search returns at most topK documents ranked by descending score.
	Search(ctx context.Context, query domain.ProcessedQuery, topK int) ([]domain.ScoredDocument, error)
}
