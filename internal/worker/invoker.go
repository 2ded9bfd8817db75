package worker

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/a11ysuite/aiscan/internal/common"
	"github.com/a11ysuite/aiscan/internal/config"
	"github.com/rs/zerolog"
)

// Invoker is the capability interface over the external AI agent CLI.
// Implementations must be safe for sequential reuse; concurrent invocations
// are not supported by the collaborator and are never issued.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// CLIInvoker shells out to the configured worker binary, one invocation per
// mini-batch, bounded by the configured timeout.
type CLIInvoker struct {
	cfg    config.WorkerConfig
	logger zerolog.Logger
}

// NewCLIInvoker creates a new CLIInvoker instance
func NewCLIInvoker(cfg config.WorkerConfig, logger zerolog.Logger) *CLIInvoker {
	return &CLIInvoker{
		cfg:    cfg,
		logger: logger.With().Str("component", "CLIInvoker").Logger(),
	}
}

// Invoke runs the worker with the prompt as its final argument and returns
// raw stdout. A deadline hit surfaces as common.ErrTimeout so the retry
// layer can classify it.
//
// Cancellation of the run context is honored between mini-batches, never
// mid-invocation: an in-flight worker runs to completion or its timeout, so
// the invocation context is detached from the caller's cancellation.
func (c *CLIInvoker) Invoke(ctx context.Context, prompt string) (string, error) {
	invokeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Timeout())
	defer cancel()

	args := append(append([]string(nil), c.cfg.Args...), prompt)
	cmd := exec.CommandContext(invokeCtx, c.cfg.Command, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.logger.Debug().Str("command", c.cfg.Command).Int("prompt_bytes", len(prompt)).Msg("Invoking worker")
	err := cmd.Run()

	if invokeCtx.Err() == context.DeadlineExceeded {
		return "", common.WrapErrorf(common.ErrTimeout, "worker invocation exceeded %s", c.cfg.Timeout())
	}
	if err != nil {
		detail := strings.TrimSpace(stderr.String())
		if len(detail) > 500 {
			detail = detail[:500]
		}
		if detail != "" {
			return "", common.WrapErrorf(err, "worker invocation failed: %s", detail)
		}
		return "", common.WrapError(err, "worker invocation failed")
	}

	return stdout.String(), nil
}

// CheckPrerequisites verifies the worker binary is resolvable and responds
// to a trivial probe invocation.
func (c *CLIInvoker) CheckPrerequisites(ctx context.Context) error {
	path, err := exec.LookPath(c.cfg.Command)
	if err != nil {
		return common.WrapErrorf(common.ErrPrerequisitesMissing, "worker command '%s' not found on PATH", c.cfg.Command)
	}
	c.logger.Debug().Str("path", path).Msg("Worker binary resolved")

	probeCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout())
	defer cancel()

	cmd := exec.CommandContext(probeCtx, c.cfg.Command, "--version")
	if err := cmd.Run(); err != nil {
		return common.WrapErrorf(common.ErrPrerequisitesMissing, "worker command '%s' failed version probe: %v", c.cfg.Command, err)
	}
	return nil
}
