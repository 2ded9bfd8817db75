package processor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/a11ysuite/aiscan/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestCalculateDelay(t *testing.T) {
	rh := NewRetryHandler(config.RetryConfig{
		MaxRetries:    3,
		BaseDelaySecs: 2,
		MaxDelaySecs:  30,
	}, zerolog.Nop())

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 2 * time.Second},
		{1, 4 * time.Second},
		{2, 8 * time.Second},
		{3, 16 * time.Second},
		{4, 30 * time.Second}, // capped
		{10, 30 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, rh.CalculateDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestCalculateDelayWithJitter(t *testing.T) {
	rh := NewRetryHandler(config.RetryConfig{
		MaxRetries:    3,
		BaseDelaySecs: 2,
		MaxDelaySecs:  30,
		EnableJitter:  true,
	}, zerolog.Nop())

	for i := 0; i < 20; i++ {
		delay := rh.CalculateDelay(1)
		assert.GreaterOrEqual(t, delay, 4*time.Second)
		assert.Less(t, delay, 5*time.Second)
	}
}

func TestWaitForRetryHonorsCancellation(t *testing.T) {
	rh := NewRetryHandler(config.RetryConfig{
		MaxRetries:    3,
		BaseDelaySecs: 60,
		MaxDelaySecs:  60,
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := rh.WaitForRetry(ctx, 0, errors.New("boom"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWaitForRetryZeroDelay(t *testing.T) {
	rh := NewRetryHandler(config.RetryConfig{MaxRetries: 1}, zerolog.Nop())

	start := time.Now()
	err := rh.WaitForRetry(context.Background(), 0, errors.New("boom"))
	assert.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
