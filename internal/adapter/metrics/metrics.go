package metrics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"urpaq/internal/domain"
)

const maxRecentRequests = 100

// Recorder collects pipeline counters and a bounded log of recent requests.
// Counters are lock-free; the recent-request ring and the tally maps are
// guarded so append-and-trim happens atomically as a unit.
type Recorder struct {
	totalRequests      atomic.Int64
	successfulRequests atomic.Int64
	failedRequests     atomic.Int64
	retries            atomic.Int64
	totalResponseTime  atomic.Int64

	mu               sync.Mutex
	validationIssues map[domain.ValidationIssue]int64
	errorTypes       map[string]int64
	recentRequests   []domain.RequestMetric

	log *zap.SugaredLogger
}

func NewRecorder(log *zap.SugaredLogger) *Recorder {
	return &Recorder{
		validationIssues: make(map[domain.ValidationIssue]int64),
		errorTypes:       make(map[string]int64),
		log:              log,
	}
}

// RecordSuccess tallies one successful request and its duration.
func (r *Recorder) RecordSuccess(responseTimeMs int64) {
	r.totalRequests.Inc()
	r.successfulRequests.Inc()
	r.totalResponseTime.Add(responseTimeMs)

	r.addRecent(domain.RequestMetric{
		Timestamp:      time.Now(),
		ResponseTimeMs: responseTimeMs,
		Success:        true,
	})

	r.log.Debugw("recorded successful request", "response_time_ms", responseTimeMs)
}

// RecordFailure tallies one failed request by error kind.
func (r *Recorder) RecordFailure(err error) {
	r.totalRequests.Inc()
	r.failedRequests.Inc()

	kind := ErrorKind(err)
	r.mu.Lock()
	r.errorTypes[kind]++
	r.mu.Unlock()

	r.addRecent(domain.RequestMetric{
		Timestamp: time.Now(),
		Success:   false,
		ErrorType: kind,
	})

	r.log.Debugw("recorded failed request", "error_type", kind)
}

// RecordRetry tallies one pipeline retry.
func (r *Recorder) RecordRetry() {
	r.log.Debugw("recorded retry", "total_retries", r.retries.Inc())
}

// RecordValidationFailure tallies a validation issue. Validation issues are
// not request failures.
func (r *Recorder) RecordValidationFailure(issue domain.ValidationIssue) {
	r.mu.Lock()
	r.validationIssues[issue]++
	r.mu.Unlock()
	r.log.Debugw("recorded validation issue", "issue", issue)
}

// Snapshot returns an immutable copy safe for concurrent reads. Success rate
// is successful/total*100; average response time covers successes only.
func (r *Recorder) Snapshot() domain.MetricsSnapshot {
	total := r.totalRequests.Load()
	successful := r.successfulRequests.Load()
	failed := r.failedRequests.Load()
	totalTime := r.totalResponseTime.Load()

	var successRate, avgResponseTime float64
	if total > 0 {
		successRate = float64(successful) / float64(total) * 100
	}
	if successful > 0 {
		avgResponseTime = float64(totalTime) / float64(successful)
	}

	r.mu.Lock()
	issues := make(map[domain.ValidationIssue]int64, len(r.validationIssues))
	for k, v := range r.validationIssues {
		issues[k] = v
	}
	errTypes := make(map[string]int64, len(r.errorTypes))
	for k, v := range r.errorTypes {
		errTypes[k] = v
	}
	recent := make([]domain.RequestMetric, len(r.recentRequests))
	copy(recent, r.recentRequests)
	r.mu.Unlock()

	return domain.MetricsSnapshot{
		TotalRequests:      total,
		SuccessfulRequests: successful,
		FailedRequests:     failed,
		TotalRetries:       r.retries.Load(),
		SuccessRate:        successRate,
		AvgResponseTimeMs:  avgResponseTime,
		ValidationIssues:   issues,
		ErrorTypes:         errTypes,
		RecentRequests:     recent,
	}
}

// Reset zeroes all counters and clears all maps and the recent log.
func (r *Recorder) Reset() {
	r.totalRequests.Store(0)
	r.successfulRequests.Store(0)
	r.failedRequests.Store(0)
	r.retries.Store(0)
	r.totalResponseTime.Store(0)

	r.mu.Lock()
	r.validationIssues = make(map[domain.ValidationIssue]int64)
	r.errorTypes = make(map[string]int64)
	r.recentRequests = nil
	r.mu.Unlock()

	r.log.Infow("metrics reset")
}

func (r *Recorder) addRecent(metric domain.RequestMetric) {
	r.mu.Lock()
	r.recentRequests = append(r.recentRequests, metric)
	if len(r.recentRequests) > maxRecentRequests {
		r.recentRequests = r.recentRequests[len(r.recentRequests)-maxRecentRequests:]
	}
	r.mu.Unlock()
}

// ErrorKind names an error's class for tallying.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "Timeout"
	case errors.Is(err, context.Canceled):
		return "Canceled"
	}

	kind := fmt.Sprintf("%T", err)
	if i := strings.LastIndex(kind, "."); i >= 0 {
		kind = kind[i+1:]
	}
	return strings.TrimPrefix(kind, "*")
}
