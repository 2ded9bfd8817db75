package processor

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/a11ysuite/aiscan/internal/config"
	"github.com/rs/zerolog"
)

// RetryHandler applies bounded exponential backoff to worker invocations.
// Retries operate on whole mini-batches: a mini-batch is an atomic unit of
// invocation, there is no per-item retry.
type RetryHandler struct {
	maxRetries   int
	baseDelay    time.Duration
	maxDelay     time.Duration
	enableJitter bool
	logger       zerolog.Logger
}

// NewRetryHandler creates a new retry handler
func NewRetryHandler(cfg config.RetryConfig, logger zerolog.Logger) *RetryHandler {
	return &RetryHandler{
		maxRetries:   cfg.MaxRetries,
		baseDelay:    time.Duration(cfg.BaseDelaySecs) * time.Second,
		maxDelay:     time.Duration(cfg.MaxDelaySecs) * time.Second,
		enableJitter: cfg.EnableJitter,
		logger:       logger.With().Str("component", "RetryHandler").Logger(),
	}
}

// MaxRetries returns the configured retry bound.
func (rh *RetryHandler) MaxRetries() int {
	return rh.maxRetries
}

// CalculateDelay calculates the delay for the next retry attempt using exponential backoff
func (rh *RetryHandler) CalculateDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return rh.baseDelay
	}

	delay := rh.baseDelay * time.Duration(math.Pow(2, float64(attempt)))
	if delay > rh.maxDelay {
		delay = rh.maxDelay
	}

	if rh.enableJitter && delay > 0 {
		jitter := time.Duration(rand.Intn(int(delay.Milliseconds()/10)+1)) * time.Millisecond
		delay += jitter
	}

	return delay
}

// WaitForRetry sleeps for the backoff delay, honoring cancellation.
func (rh *RetryHandler) WaitForRetry(ctx context.Context, attempt int, cause error) error {
	delay := rh.CalculateDelay(attempt)

	rh.logger.Warn().
		Int("attempt", attempt+1).
		Int("max_retries", rh.maxRetries).
		Dur("delay", delay).
		Err(cause).
		Msg("Worker invocation failed, waiting before retry")

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}
