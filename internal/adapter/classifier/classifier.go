package classifier

import (
	"strings"

	"go.uber.org/zap"

	"urpaq/internal/domain"
)

const keywordsMarker = "[ключевые слова]:"

// Classifier maps raw query text to a category and keyword hint. It is pure
// and deterministic; any malformed input degrades to GENERAL instead of
// surfacing an error.
type Classifier struct {
	log *zap.SugaredLogger
}

func New(log *zap.SugaredLogger) *Classifier {
	return &Classifier{log: log}
}

// Classify processes a raw user query. Blank input short-circuits to the
// GENERAL category with empty keywords.
func (c *Classifier) Classify(query string) domain.ProcessedQuery {
	if strings.TrimSpace(query) == "" {
		return domain.ProcessedQuery{
			OriginalQuery: query,
			Normalized:    "",
			Category:      domain.CategoryGeneral,
			Keywords:      "",
		}
	}

	lower := strings.ToLower(query)
	category := determineCategory(lower)
	keywords := extractKeywords(lower)

	c.log.Infow("processed query", "category", category, "keywords", keywords)

	return domain.ProcessedQuery{
		OriginalQuery: query,
		Normalized:    lower,
		Category:      category,
		Keywords:      keywords,
	}
}

// determineCategory scans the trigger table in priority order; the first
// matching category wins.
func determineCategory(lower string) domain.Category {
	for _, trigger := range domain.CategoryTriggers {
		for _, term := range trigger.Terms {
			if strings.Contains(lower, term) {
				return trigger.Category
			}
		}
	}
	return domain.CategoryGeneral
}

// extractKeywords returns the segment between the keywords marker and the
// next bracketed marker (or end of string). Without a marker the keywords
// are the full lowercased text.
func extractKeywords(lower string) string {
	idx := strings.Index(lower, keywordsMarker)
	if idx < 0 {
		return lower
	}

	rest := lower[idx+len(keywordsMarker):]
	if end := strings.Index(rest, "["); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}
