package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/a11ysuite/aiscan/internal/batch"
	"github.com/a11ysuite/aiscan/internal/checkpoint"
	"github.com/a11ysuite/aiscan/internal/common"
	"github.com/a11ysuite/aiscan/internal/config"
	"github.com/a11ysuite/aiscan/internal/models"
	"github.com/a11ysuite/aiscan/internal/worker"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// funcInvoker adapts a function to the worker.Invoker interface.
type funcInvoker func(ctx context.Context, prompt string) (string, error)

func (f funcInvoker) Invoke(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// echoInvoker answers every prompt with a valid result for each scan id it
// finds in the prompt, mimicking a well-behaved worker.
func echoInvoker() worker.Invoker {
	return funcInvoker(func(_ context.Context, prompt string) (string, error) {
		return outputForPrompt(prompt), nil
	})
}

func outputForPrompt(prompt string) string {
	type item struct {
		ScanID          string `json:"scan_id"`
		Summary         string `json:"summary"`
		RemediationPlan string `json:"remediation_plan"`
		TokensUsed      int    `json:"tokens_used"`
	}
	var items []item
	for _, line := range strings.Split(prompt, "\n") {
		if id, ok := strings.CutPrefix(line, "scan_id: "); ok {
			items = append(items, item{
				ScanID:          strings.TrimSpace(id),
				Summary:         "summary for " + id,
				RemediationPlan: "plan for " + id,
				TokensUsed:      100,
			})
		}
	}
	out, _ := json.Marshal(items)
	return string(out)
}

func makeRecords(n int) []models.ScanRecord {
	records := make([]models.ScanRecord, n)
	for i := range records {
		records[i] = models.ScanRecord{
			ScanID: fmt.Sprintf("scan-%d", i+1),
			URL:    fmt.Sprintf("https://example.com/%d", i+1),
		}
	}
	return records
}

func newTestProcessor(t *testing.T, invoker worker.Invoker, batchCfg config.BatchConfig) (*Processor, *checkpoint.Manager) {
	t.Helper()

	prompts, err := worker.NewPromptBuilder()
	require.NoError(t, err)

	ckpt := checkpoint.NewManager(filepath.Join(t.TempDir(), "ckpt.json"), zerolog.Nop())
	retryCfg := config.RetryConfig{MaxRetries: 2, BaseDelaySecs: 0, MaxDelaySecs: 0}

	return NewProcessor(
		invoker,
		prompts,
		worker.NewResultParser("test-model", zerolog.Nop()),
		ckpt,
		NewRetryHandler(retryCfg, zerolog.Nop()),
		batchCfg,
		zerolog.Nop(),
	), ckpt
}

func TestProcessAllBatchesHappyPath(t *testing.T) {
	batchCfg := config.BatchConfig{BatchSize: 100, MiniBatchSize: 3, DelaySecs: 0, StartBatch: 1}
	p, ckpt := newTestProcessor(t, echoInvoker(), batchCfg)

	batches := batch.Organize(makeRecords(7), batchCfg.BatchSize, batchCfg.MiniBatchSize)
	outcome := p.ProcessAllBatches(context.Background(), batches)

	assert.Len(t, outcome.Results, 7)
	assert.Empty(t, outcome.FailedScans)
	assert.False(t, outcome.Interrupted)
	assert.Len(t, outcome.MiniBatches, 3)
	assert.Equal(t, 7, ckpt.ProcessedCount())

	for _, r := range outcome.Results {
		assert.NotZero(t, r.TokensUsed)
		assert.Equal(t, "test-model", r.AIModel)
	}
}

func TestProcessAllBatchesRetriesExhausted(t *testing.T) {
	// First mini-batch fails every attempt; the run must continue with the
	// next mini-batch instead of aborting.
	calls := 0
	invoker := funcInvoker(func(_ context.Context, prompt string) (string, error) {
		calls++
		if calls <= 3 { // initial attempt + 2 retries
			return "", common.NewError("worker crashed")
		}
		return outputForPrompt(prompt), nil
	})

	batchCfg := config.BatchConfig{BatchSize: 100, MiniBatchSize: 2, DelaySecs: 0, StartBatch: 1}
	p, _ := newTestProcessor(t, invoker, batchCfg)

	batches := batch.Organize(makeRecords(4), batchCfg.BatchSize, batchCfg.MiniBatchSize)
	outcome := p.ProcessAllBatches(context.Background(), batches)

	require.Len(t, outcome.FailedScans, 2)
	for _, f := range outcome.FailedScans {
		assert.Equal(t, models.ErrorTypeInvocationFailed, f.ErrorType)
	}
	assert.Len(t, outcome.Results, 2)
	assert.Equal(t, 4, calls)
}

func TestProcessAllBatchesRetrySucceeds(t *testing.T) {
	calls := 0
	invoker := funcInvoker(func(_ context.Context, prompt string) (string, error) {
		calls++
		if calls == 1 {
			return "", common.NewError("transient failure")
		}
		return outputForPrompt(prompt), nil
	})

	batchCfg := config.BatchConfig{BatchSize: 100, MiniBatchSize: 5, DelaySecs: 0, StartBatch: 1}
	p, _ := newTestProcessor(t, invoker, batchCfg)

	batches := batch.Organize(makeRecords(3), batchCfg.BatchSize, batchCfg.MiniBatchSize)
	outcome := p.ProcessAllBatches(context.Background(), batches)

	assert.Len(t, outcome.Results, 3)
	assert.Empty(t, outcome.FailedScans)
	assert.Equal(t, 2, calls)
}

func TestProcessAllBatchesTimeoutClassification(t *testing.T) {
	invoker := funcInvoker(func(_ context.Context, _ string) (string, error) {
		return "", common.WrapError(common.ErrTimeout, "worker invocation exceeded 3m0s")
	})

	batchCfg := config.BatchConfig{BatchSize: 100, MiniBatchSize: 5, DelaySecs: 0, StartBatch: 1}
	p, _ := newTestProcessor(t, invoker, batchCfg)

	batches := batch.Organize(makeRecords(2), batchCfg.BatchSize, batchCfg.MiniBatchSize)
	outcome := p.ProcessAllBatches(context.Background(), batches)

	require.Len(t, outcome.FailedScans, 2)
	for _, f := range outcome.FailedScans {
		assert.Equal(t, models.ErrorTypeInvocationTimeout, f.ErrorType)
	}
}

func TestProcessAllBatchesStartBatchSkips(t *testing.T) {
	batchCfg := config.BatchConfig{BatchSize: 2, MiniBatchSize: 2, DelaySecs: 0, StartBatch: 2}
	p, _ := newTestProcessor(t, echoInvoker(), batchCfg)

	batches := batch.Organize(makeRecords(5), batchCfg.BatchSize, batchCfg.MiniBatchSize)
	outcome := p.ProcessAllBatches(context.Background(), batches)

	assert.Equal(t, 2, outcome.SkippedAtStart)
	assert.Len(t, outcome.Results, 3)
	assert.Empty(t, outcome.FailedScans)
}

func TestProcessAllBatchesInterruption(t *testing.T) {
	// Cancel during the second mini-batch: its invocation still completes,
	// then the run stops before the third.
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	invoker := funcInvoker(func(_ context.Context, prompt string) (string, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return outputForPrompt(prompt), nil
	})

	batchCfg := config.BatchConfig{BatchSize: 100, MiniBatchSize: 2, DelaySecs: 0, StartBatch: 1}
	p, ckpt := newTestProcessor(t, invoker, batchCfg)

	batches := batch.Organize(makeRecords(6), batchCfg.BatchSize, batchCfg.MiniBatchSize)
	outcome := p.ProcessAllBatches(ctx, batches)

	assert.True(t, outcome.Interrupted)
	assert.Len(t, outcome.Results, 4)
	assert.Equal(t, 2, outcome.NotProcessed)
	assert.Equal(t, 2, calls)

	// Completed mini-batches were checkpointed before the stop.
	assert.Equal(t, 4, ckpt.ProcessedCount())
}

func TestProcessAllBatchesCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batchCfg := config.BatchConfig{BatchSize: 100, MiniBatchSize: 5, DelaySecs: 0, StartBatch: 1}
	p, _ := newTestProcessor(t, echoInvoker(), batchCfg)

	batches := batch.Organize(makeRecords(4), batchCfg.BatchSize, batchCfg.MiniBatchSize)
	outcome := p.ProcessAllBatches(ctx, batches)

	assert.True(t, outcome.Interrupted)
	assert.Empty(t, outcome.Results)
	assert.Equal(t, 4, outcome.NotProcessed)
}

func TestProcessAllBatchesEmptyInput(t *testing.T) {
	batchCfg := config.BatchConfig{BatchSize: 100, MiniBatchSize: 5, DelaySecs: 0, StartBatch: 1}
	p, _ := newTestProcessor(t, echoInvoker(), batchCfg)

	outcome := p.ProcessAllBatches(context.Background(), []batch.Batch{})

	assert.Empty(t, outcome.Results)
	assert.Empty(t, outcome.FailedScans)
	assert.False(t, outcome.Interrupted)
}
