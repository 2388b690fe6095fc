package port

import (
	"context"

	"urpaq/internal/domain"
)

// SearchCriteria is a field-match expression: an OR over the document name
// and text fields matching the given text. Implementations must tolerate
// blank text.
type SearchCriteria struct {
	Text string
}

// SearchHit is one index match with its raw relevance score.
type SearchHit struct {
	Document domain.Document
	Score    float64
}

// DocumentIndex is the read side of the full-text index.
type DocumentIndex interface {
	Search(ctx context.Context, criteria SearchCriteria) ([]SearchHit, error)
}

// DocumentStore is the write side of the corpus: it persists retrievable
// documents (including chunk documents produced at ingestion).
type DocumentStore interface {
	Put(doc domain.Document) error

	Get(id string) (domain.Document, error)

	// DeleteByDoc removes a document and every chunk document derived
	// from it (ids prefixed with the document id).
	DeleteByDoc(docID string) error

	Count() (int, error)

	Close() error
}
