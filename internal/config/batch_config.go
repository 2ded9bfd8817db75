package config

import "time"

// BatchConfig defines configuration for batch organization and pacing.
type BatchConfig struct {
	// Maximum work items per batch
	BatchSize int `json:"batch_size,omitempty" yaml:"batch_size,omitempty" validate:"omitempty,min=1"`
	// Work items per worker invocation. Larger groups degrade response
	// quality and latency, so the upper bound is hard.
	MiniBatchSize int `json:"mini_batch_size,omitempty" yaml:"mini_batch_size,omitempty" validate:"omitempty,min=1,max=10"`
	// Fixed pause between mini-batches, in seconds. This is the pipeline's
	// backpressure mechanism toward the rate-limited worker.
	DelaySecs int `json:"delay_secs,omitempty" yaml:"delay_secs,omitempty" validate:"omitempty,min=0"`
	// First batch to process (1-based); earlier batches are counted as skipped.
	StartBatch int `json:"start_batch,omitempty" yaml:"start_batch,omitempty" validate:"omitempty,min=1"`
}

// NewDefaultBatchConfig creates default batch configuration
func NewDefaultBatchConfig() BatchConfig {
	return BatchConfig{
		BatchSize:     DefaultBatchSize,
		MiniBatchSize: DefaultMiniBatchSize,
		DelaySecs:     DefaultDelaySecs,
		StartBatch:    DefaultStartBatch,
	}
}

// Delay returns the inter-mini-batch pause as a duration.
func (bc BatchConfig) Delay() time.Duration {
	return time.Duration(bc.DelaySecs) * time.Second
}
