package processor

import (
	"context"
	"errors"
	"time"

	"github.com/a11ysuite/aiscan/internal/batch"
	"github.com/a11ysuite/aiscan/internal/checkpoint"
	"github.com/a11ysuite/aiscan/internal/common"
	"github.com/a11ysuite/aiscan/internal/config"
	"github.com/a11ysuite/aiscan/internal/models"
	"github.com/a11ysuite/aiscan/internal/worker"
	"github.com/rs/zerolog"
)

// Outcome aggregates every work item that entered the processor.
// Each item lands in exactly one of: Results, FailedScans, SkippedAtStart
// (before --start-batch), or NotProcessed (after an interruption).
type Outcome struct {
	Results        []models.EnhancedResult
	FailedScans    []models.FailedScan
	SkippedAtStart int
	NotProcessed   int
	Interrupted    bool
	MiniBatches    []models.MiniBatchResult
}

// Processor is the scheduling core: it walks batches strictly sequentially,
// invoking the external worker once per mini-batch with retry and a fixed
// pacing delay, checkpointing after every mini-batch.
type Processor struct {
	invoker    worker.Invoker
	prompts    *worker.PromptBuilder
	parser     *worker.ResultParser
	ckpt       *checkpoint.Manager
	retry      *RetryHandler
	delay      time.Duration
	startBatch int
	logger     zerolog.Logger
}

// NewProcessor creates a new Processor instance
func NewProcessor(
	invoker worker.Invoker,
	prompts *worker.PromptBuilder,
	parser *worker.ResultParser,
	ckpt *checkpoint.Manager,
	retry *RetryHandler,
	batchCfg config.BatchConfig,
	logger zerolog.Logger,
) *Processor {
	return &Processor{
		invoker:    invoker,
		prompts:    prompts,
		parser:     parser,
		ckpt:       ckpt,
		retry:      retry,
		delay:      batchCfg.Delay(),
		startBatch: batchCfg.StartBatch,
		logger:     logger.With().Str("component", "MiniBatchProcessor").Logger(),
	}
}

// ProcessAllBatches processes batches in order, mini-batch by mini-batch.
// Partial failure never aborts the run; cancellation is honored only
// between mini-batches, so an in-flight invocation completes or times out
// before shutdown proceeds.
func (p *Processor) ProcessAllBatches(ctx context.Context, batches []batch.Batch) *Outcome {
	outcome := &Outcome{}
	totalMiniBatches := 0
	for _, b := range batches {
		if b.Number >= p.startBatch {
			totalMiniBatches += len(b.MiniBatches)
		}
	}

	processedMiniBatches := 0
	for _, b := range batches {
		if b.Number < p.startBatch {
			p.logger.Info().
				Int("batch", b.Number).
				Int("items", b.ItemCount()).
				Int("start_batch", p.startBatch).
				Msg("Skipping batch before start batch")
			outcome.SkippedAtStart += b.ItemCount()
			continue
		}

		for mbIndex, items := range b.MiniBatches {
			if ctx.Err() != nil {
				p.logger.Info().
					Int("batch", b.Number).
					Int("completed_mini_batches", processedMiniBatches).
					Msg("Processing interrupted, stopping before next mini-batch")
				outcome.Interrupted = true
				outcome.NotProcessed += countRemaining(batches, b.Number, mbIndex, p.startBatch)
				return outcome
			}

			result := p.processMiniBatch(ctx, b.Number, mbIndex+1, items)
			outcome.MiniBatches = append(outcome.MiniBatches, result)
			outcome.Results = append(outcome.Results, result.Results...)
			outcome.FailedScans = append(outcome.FailedScans, result.FailedScans...)

			p.checkpointMiniBatch(result)

			processedMiniBatches++
			if processedMiniBatches < totalMiniBatches {
				if err := p.sleepBetweenMiniBatches(ctx); err != nil {
					outcome.Interrupted = true
					outcome.NotProcessed += countRemaining(batches, b.Number, mbIndex+1, p.startBatch)
					return outcome
				}
			}
		}

		p.logger.Info().
			Int("batch", b.Number).
			Int("total_batches", len(batches)).
			Msg("Batch completed")
	}

	return outcome
}

// processMiniBatch performs one worker invocation with retries and parses
// the response. Always returns exactly one MiniBatchResult, even when every
// item failed.
func (p *Processor) processMiniBatch(ctx context.Context, batchNumber, miniBatchNumber int, items []models.ScanRecord) models.MiniBatchResult {
	result := models.MiniBatchResult{
		BatchNumber:     batchNumber,
		MiniBatchNumber: miniBatchNumber,
	}

	p.logger.Info().
		Int("batch", batchNumber).
		Int("mini_batch", miniBatchNumber).
		Int("items", len(items)).
		Msg("Processing mini-batch")

	prompt, err := p.prompts.GeneratePrompt(items)
	if err != nil {
		result.FailedScans = failAll(items, models.ErrorTypeInvocationFailed, err)
		return result
	}

	start := time.Now()
	rawOutput, err := p.invokeWithRetry(ctx, prompt)
	elapsed := time.Since(start)

	if err != nil {
		errorType := models.ErrorTypeInvocationFailed
		if errors.Is(err, common.ErrTimeout) {
			errorType = models.ErrorTypeInvocationTimeout
		}
		p.logger.Error().
			Err(err).
			Int("batch", batchNumber).
			Int("mini_batch", miniBatchNumber).
			Str("error_type", errorType).
			Msg("Mini-batch failed after exhausting retries")
		result.FailedScans = failAll(items, errorType, err)
		return result
	}

	results, failed := p.parser.ParseResults(rawOutput, items)
	for i := range results {
		results[i].ProcessingTimeMS = elapsed.Milliseconds()
	}
	result.Results = results
	result.FailedScans = failed

	p.logger.Info().
		Int("batch", batchNumber).
		Int("mini_batch", miniBatchNumber).
		Int("successful", len(results)).
		Int("failed", len(failed)).
		Dur("duration", elapsed).
		Msg("Mini-batch completed")

	return result
}

// invokeWithRetry runs the worker with an explicit attempt loop so stack
// depth and cancellation checkpoints stay predictable.
func (p *Processor) invokeWithRetry(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= p.retry.MaxRetries(); attempt++ {
		if ctx.Err() != nil {
			if lastErr != nil {
				return "", lastErr
			}
			return "", ctx.Err()
		}

		rawOutput, err := p.invoker.Invoke(ctx, prompt)
		if err == nil {
			return rawOutput, nil
		}
		lastErr = err

		if attempt < p.retry.MaxRetries() {
			if waitErr := p.retry.WaitForRetry(ctx, attempt, err); waitErr != nil {
				return "", lastErr
			}
		}
	}

	return "", lastErr
}

// checkpointMiniBatch appends successful scan ids and flushes durably.
// A flush failure is logged, not fatal: losing checkpoint granularity is
// preferable to aborting work the downstream import can still validate.
func (p *Processor) checkpointMiniBatch(result models.MiniBatchResult) {
	if len(result.Results) == 0 {
		return
	}

	ids := make([]string, 0, len(result.Results))
	for _, r := range result.Results {
		ids = append(ids, r.ScanID)
	}

	p.ckpt.Append(ids)
	if err := p.ckpt.Flush(); err != nil {
		p.logger.Error().Err(err).Msg("Failed to flush checkpoint after mini-batch")
	}
}

// sleepBetweenMiniBatches enforces the fixed pacing delay toward the worker.
func (p *Processor) sleepBetweenMiniBatches(ctx context.Context) error {
	if p.delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.delay):
		return nil
	}
}

// failAll maps every item of a mini-batch to a FailedScan with one cause.
func failAll(items []models.ScanRecord, errorType string, cause error) []models.FailedScan {
	failed := make([]models.FailedScan, 0, len(items))
	for _, item := range items {
		failed = append(failed, models.NewFailedScan(item, errorType, cause.Error()))
	}
	return failed
}

// countRemaining counts items in mini-batches at or after the given position
// that will never run because of an interruption.
func countRemaining(batches []batch.Batch, currentBatch, nextMiniBatch, startBatch int) int {
	remaining := 0
	for _, b := range batches {
		if b.Number < startBatch || b.Number < currentBatch {
			continue
		}
		for mbIndex, items := range b.MiniBatches {
			if b.Number == currentBatch && mbIndex < nextMiniBatch {
				continue
			}
			remaining += len(items)
		}
	}
	return remaining
}
