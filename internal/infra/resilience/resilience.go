// Package resilience provides fault-tolerance patterns for upstream calls:
// circuit breaker and bulkhead. Calls are never retried automatically.
package resilience

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/boddenberg/insights-bff-go/internal/domain"

	"github.com/sony/gobreaker"
)

// Config holds resilience parameters.
type Config struct {
	MaxConcurrency int
}

// NewCircuitBreaker creates a circuit breaker with sensible defaults.
// Answers the upstream gave on purpose (auth rejections, 4xx) do not trip it.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,                // half-open: allow 3 requests
		Interval:    30 * time.Second, // closed: reset counters every 30s
		Timeout:     10 * time.Second, // open -> half-open after 10s
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		IsSuccessful: IsUpstreamHealthy,
	})
}

// IsUpstreamHealthy reports whether err still proves the upstream is up.
func IsUpstreamHealthy(err error) bool {
	if err == nil {
		return true
	}
	var auth *domain.ErrAuth
	if errors.As(err, &auth) {
		return true
	}
	var fetch *domain.ErrFetch
	if errors.As(err, &fetch) {
		return fetch.Status < http.StatusInternalServerError
	}
	return false
}

// Bulkhead limits concurrent access to a resource.
type Bulkhead struct {
	sem chan struct{}
}

// NewBulkhead creates a bulkhead with the given max concurrency.
func NewBulkhead(maxConcurrency int) *Bulkhead {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &Bulkhead{sem: make(chan struct{}, maxConcurrency)}
}

// Acquire blocks until a slot is available or context is cancelled.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot.
func (b *Bulkhead) Release() {
	<-b.sem
}
