package worker

import (
	"context"
	"testing"
	"time"

	"github.com/a11ysuite/aiscan/internal/common"
	"github.com/a11ysuite/aiscan/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shellInvoker(script string, timeoutSecs int) *CLIInvoker {
	return NewCLIInvoker(config.WorkerConfig{
		Command:     "sh",
		Args:        []string{"-c", script},
		TimeoutSecs: timeoutSecs,
	}, zerolog.Nop())
}

func TestInvokeReturnsStdout(t *testing.T) {
	inv := shellInvoker(`echo '[{"scan_id":"scan-1"}]'`, 10)

	out, err := inv.Invoke(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Contains(t, out, `"scan_id":"scan-1"`)
}

func TestInvokeSurvivesRunCancellation(t *testing.T) {
	// A shutdown signal cancels the run context mid-invocation; the in-flight
	// worker must still run to completion and return its output.
	inv := shellInvoker(`sleep 0.5; echo done`, 10)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	out, err := inv.Invoke(ctx, "prompt")
	require.NoError(t, err)
	assert.Contains(t, out, "done")
}

func TestInvokeTimeout(t *testing.T) {
	inv := shellInvoker(`sleep 5`, 1)

	_, err := inv.Invoke(context.Background(), "prompt")
	assert.ErrorIs(t, err, common.ErrTimeout)
}

func TestInvokeFailureIncludesStderr(t *testing.T) {
	inv := shellInvoker(`echo "model overloaded" >&2; exit 3`, 10)

	_, err := inv.Invoke(context.Background(), "prompt")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrTimeout)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestCheckPrerequisitesMissingBinary(t *testing.T) {
	inv := NewCLIInvoker(config.WorkerConfig{
		Command:     "definitely-not-a-real-binary-aiscan",
		TimeoutSecs: 5,
	}, zerolog.Nop())

	err := inv.CheckPrerequisites(context.Background())
	assert.ErrorIs(t, err, common.ErrPrerequisitesMissing)
}
