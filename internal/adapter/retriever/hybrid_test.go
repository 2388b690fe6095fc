package retriever

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"urpaq/internal/domain"
	"urpaq/internal/logger"
	"urpaq/internal/port"
)

type fakeIndex struct {
	mu      sync.Mutex
	hits    map[string][]port.SearchHit
	failOn  map[string]bool
	queries []string
}

func (f *fakeIndex) Search(ctx context.Context, criteria port.SearchCriteria) ([]port.SearchHit, error) {
	f.mu.Lock()
	f.queries = append(f.queries, criteria.Text)
	f.mu.Unlock()
	if f.failOn[criteria.Text] {
		return nil, errors.New("index unavailable")
	}
	return f.hits[criteria.Text], nil
}

func doc(id, text string) domain.Document {
	return domain.Document{ID: id, Name: id, Text: text}
}

func TestSearchMergesFuzzyAndCategory(t *testing.T) {
	idx := &fakeIndex{
		hits: map[string][]port.SearchHit{
			"звонки": {
				{Document: doc("a", "текст про звонки"), Score: 2.0},
			},
			"расписание": {
				{Document: doc("a", "текст про звонки"), Score: 1.0},
				{Document: doc("b", "другой документ"), Score: 1.0},
			},
		},
	}
	r := NewHybridRetriever(idx, logger.NewNop())

	query := domain.ProcessedQuery{
		OriginalQuery: "звонки",
		Keywords:      "звонки",
		Category:      domain.CategorySchedule,
	}

	results, err := r.Search(context.Background(), query, 5)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Document a appears in both sub-searches; the second occurrence adds at
	// half value, so it must outrank b.
	assert.Equal(t, "a", results[0].Document.ID)
	assert.Equal(t, "b", results[1].Document.ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearchGeneralSkipsCategoryMatch(t *testing.T) {
	idx := &fakeIndex{hits: map[string][]port.SearchHit{}}
	r := NewHybridRetriever(idx, logger.NewNop())

	query := domain.ProcessedQuery{
		OriginalQuery: "привет",
		Keywords:      "привет",
		Category:      domain.CategoryGeneral,
	}

	_, err := r.Search(context.Background(), query, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"привет"}, idx.queries)
}

func TestSearchBlankTextSkipsFuzzyMatch(t *testing.T) {
	idx := &fakeIndex{hits: map[string][]port.SearchHit{}}
	r := NewHybridRetriever(idx, logger.NewNop())

	query := domain.ProcessedQuery{Category: domain.CategoryGeneral}

	results, err := r.Search(context.Background(), query, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, idx.queries)
}

func TestSearchSubSearchErrorDegrades(t *testing.T) {
	idx := &fakeIndex{
		hits: map[string][]port.SearchHit{
			"расписание": {
				{Document: doc("b", "категорийный документ"), Score: 1.0},
			},
		},
		failOn: map[string]bool{"звонки": true},
	}
	r := NewHybridRetriever(idx, logger.NewNop())

	query := domain.ProcessedQuery{
		OriginalQuery: "звонки",
		Keywords:      "звонки",
		Category:      domain.CategorySchedule,
	}

	results, err := r.Search(context.Background(), query, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].Document.ID)
}

func TestSearchBothSubSearchesFailReturnsEmpty(t *testing.T) {
	idx := &fakeIndex{
		failOn: map[string]bool{"звонки": true, "расписание": true},
	}
	r := NewHybridRetriever(idx, logger.NewNop())

	query := domain.ProcessedQuery{
		OriginalQuery: "звонки",
		Keywords:      "звонки",
		Category:      domain.CategorySchedule,
	}

	results, err := r.Search(context.Background(), query, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchTopKCap(t *testing.T) {
	hits := make([]port.SearchHit, 10)
	for i := range hits {
		hits[i] = port.SearchHit{Document: doc(string(rune('a'+i)), "текст"), Score: float64(10 - i)}
	}
	idx := &fakeIndex{hits: map[string][]port.SearchHit{"запрос": hits}}
	r := NewHybridRetriever(idx, logger.NewNop())

	query := domain.ProcessedQuery{
		OriginalQuery: "запрос",
		Keywords:      "запрос",
		Category:      domain.CategoryGeneral,
	}

	results, err := r.Search(context.Background(), query, 3)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestLengthBonus(t *testing.T) {
	short := port.SearchHit{Document: doc("s", "короткий"), Score: 1.0}
	long := port.SearchHit{Document: doc("l", string(make([]rune, 2000))), Score: 1.0}

	shortScore := calculateScore(short, 1.0)
	longScore := calculateScore(long, 1.0)

	// The bonus caps at 0.1 regardless of length.
	assert.InDelta(t, 1.1, longScore, 0.001)
	assert.Less(t, shortScore, longScore)
}

func TestSanitizeSearchText(t *testing.T) {
	assert.Equal(t, "расписание звонков", sanitizeSearchText(`расписание  "звонков"*`))
	assert.Equal(t, "вопрос", sanitizeSearchText("[вопрос]?"))
}
