package index

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"urpaq/internal/domain"
	"urpaq/internal/port"
)

// MemoryIndex is an in-memory DocumentIndex/DocumentStore with the same
// scoring as BoltIndex. Used in tests and as a fallback when no database
// path is configured.
type MemoryIndex struct {
	mu   sync.RWMutex
	docs map[string]domain.Document
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{docs: make(map[string]domain.Document)}
}

func (m *MemoryIndex) Put(doc domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = doc
	return nil
}

func (m *MemoryIndex) Get(id string) (domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return domain.Document{}, fmt.Errorf("document not found: %s", id)
	}
	return doc, nil
}

func (m *MemoryIndex) DeleteByDoc(docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.docs {
		if strings.HasPrefix(id, docID) {
			delete(m.docs, id)
		}
	}
	return nil
}

func (m *MemoryIndex) Count() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs), nil
}

func (m *MemoryIndex) Close() error { return nil }

func (m *MemoryIndex) Search(ctx context.Context, criteria port.SearchCriteria) ([]port.SearchHit, error) {
	queryTokens := Tokenize(criteria.Text)
	if len(queryTokens) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	totalDocs := len(m.docs)
	if totalDocs == 0 {
		return nil, nil
	}

	type docTerms struct {
		doc domain.Document
		tf  map[string]int
	}
	corpus := make([]docTerms, 0, totalDocs)
	for _, doc := range m.docs {
		corpus = append(corpus, docTerms{doc: doc, tf: termFrequencies(doc.Name, doc.Text)})
	}

	scores := make(map[string]float64)
	for _, token := range queryTokens {
		prefix := fuzzyPrefix(token)

		matched := make(map[string]float64)
		for _, dt := range corpus {
			var weighted float64
			for term, n := range dt.tf {
				switch {
				case term == token:
					weighted += exactWeight * float64(n)
				case prefix != "" && strings.HasPrefix(term, prefix):
					weighted += fuzzyWeight * float64(n)
				}
			}
			if weighted > 0 {
				matched[dt.doc.ID] = weighted
			}
		}

		idf := math.Log(1 + float64(totalDocs)/float64(1+len(matched)))
		for docID, weighted := range matched {
			scores[docID] += weighted * idf
		}
	}

	hits := make([]port.SearchHit, 0, len(scores))
	for docID, score := range scores {
		hits = append(hits, port.SearchHit{Document: m.docs[docID], Score: score})
	}
	return hits, nil
}
