package retriever

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"urpaq/internal/domain"
	"urpaq/internal/port"
)

const (
	fuzzyMatchWeight    = 1.0
	categoryMatchWeight = 0.5

	// A second occurrence of the same document counts at half value when
	// the two sub-searches are merged.
	mergeSecondFactor = 0.5
)

var unsafeSearchChars = regexp.MustCompile(`["*\[\]{}()?]`)
var spaceRuns = regexp.MustCompile(`\s+`)

// HybridRetriever issues two weighted searches against the document index,
// a fuzzy text match and a category-label match, and merges the results by
// document id. A failed sub-search degrades to empty results; it never fails
// the pipeline.
type HybridRetriever struct {
	index port.DocumentIndex
	log   *zap.SugaredLogger
}

func NewHybridRetriever(index port.DocumentIndex, log *zap.SugaredLogger) *HybridRetriever {
	return &HybridRetriever{index: index, log: log}
}

// Search returns at most topK documents ranked by descending merged score.
func (r *HybridRetriever) Search(ctx context.Context, query domain.ProcessedQuery, topK int) ([]domain.ScoredDocument, error) {
	searchText := query.SearchText()
	category := query.Category.Label()

	r.log.Infow("executing hybrid search",
		"text", searchText, "category", category, "top_k", topK)

	var fuzzy, byCategory []domain.ScoredDocument
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		fuzzy = r.fuzzyMatch(ctx, searchText)
	}()
	go func() {
		defer wg.Done()
		byCategory = r.categoryMatch(ctx, query.Category)
	}()
	wg.Wait()

	merged := mergeAndRank(append(fuzzy, byCategory...))

	r.log.Infow("hybrid search merged", "unique_documents", len(merged))

	if len(merged) > topK {
		merged = merged[:topK]
	}
	return merged, nil
}

// fuzzyMatch searches the free query text against name/text at full weight.
// Blank text skips the search entirely.
func (r *HybridRetriever) fuzzyMatch(ctx context.Context, searchText string) []domain.ScoredDocument {
	if strings.TrimSpace(searchText) == "" {
		return nil
	}
	return r.executeSearch(ctx, sanitizeSearchText(searchText), fuzzyMatchWeight)
}

// categoryMatch searches the category display label at half weight. GENERAL
// queries skip it.
func (r *HybridRetriever) categoryMatch(ctx context.Context, category domain.Category) []domain.ScoredDocument {
	if category == domain.CategoryGeneral {
		return nil
	}
	return r.executeSearch(ctx, category.Label(), categoryMatchWeight)
}

func (r *HybridRetriever) executeSearch(ctx context.Context, text string, weight float64) []domain.ScoredDocument {
	hits, err := r.index.Search(ctx, port.SearchCriteria{Text: text})
	if err != nil {
		// Degraded results beat a lost response.
		r.log.Errorw("search error", "text", text, "err", err)
		return nil
	}

	docs := make([]domain.ScoredDocument, 0, len(hits))
	for _, hit := range hits {
		docs = append(docs, domain.ScoredDocument{
			Document: hit.Document,
			Score:    calculateScore(hit, weight),
		})
	}
	return docs
}

// calculateScore applies the sub-search weight to the raw index score and
// adds a bonus of up to 0.1 for longer, more substantive documents.
func calculateScore(hit port.SearchHit, weight float64) float64 {
	weighted := hit.Score * weight
	lengthBonus := minFloat(float64(utf8.RuneCountInString(hit.Document.Text))/1000.0, 1.0) * 0.1
	return weighted + lengthBonus
}

// mergeAndRank merges by document id, with a second occurrence adding at
// half value, then sorts by descending score, ties stable by insertion
// order.
func mergeAndRank(results []domain.ScoredDocument) []domain.ScoredDocument {
	byID := make(map[string]int, len(results))
	merged := make([]domain.ScoredDocument, 0, len(results))

	for _, doc := range results {
		if i, ok := byID[doc.Document.ID]; ok {
			merged[i].Score += doc.Score * mergeSecondFactor
			continue
		}
		byID[doc.Document.ID] = len(merged)
		merged = append(merged, doc)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	return merged
}

func sanitizeSearchText(text string) string {
	text = unsafeSearchChars.ReplaceAllString(text, "")
	return strings.TrimSpace(spaceRuns.ReplaceAllString(text, " "))
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
