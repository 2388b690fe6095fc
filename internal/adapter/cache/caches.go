package cache

import (
	"time"

	"go.uber.org/zap"

	"urpaq/internal/domain"
)

// Caches bundles the pipeline's two caches so the admin surface can expose
// stats and invalidation for both.
type Caches struct {
	Query  *Cache[domain.ProcessedQuery]
	Search *Cache[[]domain.ScoredDocument]
}

// NewCaches builds the query-classification and search-result caches with
// their respective TTLs and a shared size bound.
func NewCaches(queryTTL, searchTTL time.Duration, maxSize int, log *zap.SugaredLogger) *Caches {
	return &Caches{
		Query:  New[domain.ProcessedQuery]("query", queryTTL, maxSize, log),
		Search: New[[]domain.ScoredDocument]("search", searchTTL, maxSize, log),
	}
}

// InvalidateSearch clears cached search results. Called after any corpus
// mutation so stale rankings never survive an ingest.
func (c *Caches) InvalidateSearch() {
	c.Search.Invalidate()
}

// InvalidateAll clears both caches.
func (c *Caches) InvalidateAll() {
	c.Search.Invalidate()
	c.Query.Invalidate()
}

// Stats reports size and non-expired counts per cache kind.
func (c *Caches) Stats() domain.CacheStats {
	return domain.CacheStats{
		SearchCacheSize:  c.Search.Size(),
		QueryCacheSize:   c.Query.Size(),
		SearchCacheValid: c.Search.ValidCount(),
		QueryCacheValid:  c.Query.ValidCount(),
	}
}
