package embeddings

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Circuit breaker defaults.
const (
	defaultBreakerThreshold = 5
	defaultBreakerReset     = time.Minute
)

// CircuitBreaker opens after a run of consecutive failures so a dead
// embedding backend does not stall every batch.
type CircuitBreaker struct {
	threshold           int
	resetAfter          time.Duration
	consecutiveFailures int
	openUntil           time.Time
	mu                  sync.Mutex
	logger              *zerolog.Logger
}

// NewCircuitBreaker creates a breaker with default thresholds.
func NewCircuitBreaker(logger *zerolog.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		threshold:  defaultBreakerThreshold,
		resetAfter: defaultBreakerReset,
		logger:     logger,
	}
}

// CheckCircuit returns ErrUnavailable while the circuit is open.
func (cb *CircuitBreaker) CheckCircuit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if time.Now().Before(cb.openUntil) {
		return fmt.Errorf("%w: circuit open until %v", ErrUnavailable, cb.openUntil)
	}

	return nil
}

// RecordSuccess resets the failure count.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures = 0
}

// RecordFailure counts a failed call and opens the circuit at the threshold.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures++

	if cb.consecutiveFailures >= cb.threshold {
		cb.openUntil = time.Now().Add(cb.resetAfter)

		if cb.logger != nil {
			cb.logger.Warn().
				Int("consecutive_failures", cb.consecutiveFailures).
				Time("open_until", cb.openUntil).
				Msg("embedding circuit breaker opened")
		}
	}
}
