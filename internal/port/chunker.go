package port

import "urpaq/internal/domain"

// Chunker splits a document into overlapping retrievable chunks.
type Chunker interface {
	Chunk(doc domain.Document) []domain.DocumentChunk
}
