package domain

import "time"

// Document is a retrievable unit in the index. Chunks produced at ingestion
// are persisted as independent documents with their own ids.
type Document struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Text string `json:"text"`
}

// DocumentChunk is a bounded sub-span of a document produced by the chunker.
type DocumentChunk struct {
	ID           string `json:"id"`
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	Text         string `json:"text"`
	Index        int    `json:"index"`
}

// Document converts the chunk into an independently retrievable document.
func (c DocumentChunk) Document() Document {
	return Document{
		ID:   c.ID,
		Name: c.DocumentName,
		Text: c.Text,
	}
}

// ScoredDocument pairs a document with its merged relevance score.
// Scores are non-negative with no fixed upper bound.
type ScoredDocument struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}

// ProcessedQuery is the classifier's output, cached per normalized query.
type ProcessedQuery struct {
	OriginalQuery string   `json:"original_query"`
	Normalized    string   `json:"normalized"`
	Category      Category `json:"category"`
	Keywords      string   `json:"keywords"`
}

// SearchText returns the effective text used for retrieval: the extracted
// keywords when present, otherwise the original query.
func (q ProcessedQuery) SearchText() string {
	if q.Keywords == "" {
		return q.OriginalQuery
	}
	return q.Keywords
}

// RagResponse is the unit returned to callers of the pipeline.
type RagResponse struct {
	Answer          string           `json:"answer"`
	ProcessedQuery  ProcessedQuery   `json:"processed_query"`
	SourceDocuments []ScoredDocument `json:"source_documents"`
	Valid           bool             `json:"is_valid"`
	ValidationIssue ValidationIssue  `json:"validation_issue"`
}

// MessageType distinguishes the two sides of a chat exchange.
type MessageType string

const (
	MessageUser     MessageType = "USER"
	MessageAIHelper MessageType = "AI_HELPER"
)

// ChatResponse is the assistant half of a chat exchange.
type ChatResponse struct {
	Type      MessageType `json:"type"`
	Text      string      `json:"text"`
	Timestamp time.Time   `json:"timestamp"`
}

// ChatMessage is the HTTP-facing chat envelope: the user message plus the
// assistant response.
type ChatMessage struct {
	Type      MessageType   `json:"type"`
	Text      string        `json:"text"`
	Timestamp time.Time     `json:"timestamp"`
	Response  *ChatResponse `json:"response,omitempty"`
}

// RequestMetric is one entry of the bounded recent-request log.
type RequestMetric struct {
	Timestamp      time.Time `json:"timestamp"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	Success        bool      `json:"success"`
	ErrorType      string    `json:"error_type,omitempty"`
}

// MetricsSnapshot is an immutable copy of the recorder's state.
type MetricsSnapshot struct {
	TotalRequests      int64                     `json:"total_requests"`
	SuccessfulRequests int64                     `json:"successful_requests"`
	FailedRequests     int64                     `json:"failed_requests"`
	TotalRetries       int64                     `json:"total_retries"`
	SuccessRate        float64                   `json:"success_rate"`
	AvgResponseTimeMs  float64                   `json:"avg_response_time_ms"`
	ValidationIssues   map[ValidationIssue]int64 `json:"validation_issues"`
	ErrorTypes         map[string]int64          `json:"error_types"`
	RecentRequests     []RequestMetric           `json:"recent_requests"`
}

// CacheStats reports size and non-expired entry counts per cache kind.
type CacheStats struct {
	SearchCacheSize  int   `json:"search_cache_size"`
	QueryCacheSize   int   `json:"query_cache_size"`
	SearchCacheValid int64 `json:"search_cache_valid"`
	QueryCacheValid  int64 `json:"query_cache_valid"`
}
