package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/a11ysuite/aiscan/internal/common"
	"github.com/a11ysuite/aiscan/internal/lockfile"
	"github.com/a11ysuite/aiscan/internal/summary"
)

// LockFileName is the per-directory lock enforcing single-instance runs.
const LockFileName = ".aiscan.lock"

// RunDirectory runs the pipeline over every eligible file in the input
// directory under a directory lock. One bad file never aborts the run:
// it is moved to failed/ and processing continues with the next file.
func (r *Runner) RunDirectory(ctx context.Context, opts Options) (summary.ProcessingSummary, error) {
	lock := lockfile.NewManager(filepath.Join(opts.InputDir, LockFileName), r.logger)

	acquired, err := lock.Acquire()
	if err != nil {
		return summary.ProcessingSummary{}, err
	}
	if !acquired {
		r.reportLockHolder(lock)
		return summary.ProcessingSummary{}, common.ErrLockHeld
	}

	r.guard.Register("lock-release", lock.Release)
	defer func() {
		if err := lock.Release(); err != nil {
			// Best-effort cleanup: a stuck lock beats crashing mid-shutdown.
			r.logger.Error().Err(err).Msg("Failed to release directory lock")
		}
		r.guard.Unregister("lock-release")
	}()

	scan, err := r.scanner.ScanDirectory(opts.InputDir, opts.MaxFiles)
	if err != nil {
		return summary.ProcessingSummary{}, err
	}

	aggregate := summary.RunStats{StartTime: time.Now()}

	for _, file := range scan.Files {
		if ctx.Err() != nil {
			r.logger.Info().Str("next_file", file).Msg("Interrupted before next input file")
			aggregate.Interrupted = true
			break
		}

		fileOpts := opts
		fileOpts.InputFile = file
		fileOpts.OutputFile = ""

		ps, err := r.RunFile(ctx, fileOpts)
		if err != nil {
			r.logger.Error().Err(err).Str("file", file).Msg("Input file failed catastrophically")
			aggregate.Errors = append(aggregate.Errors, fmt.Sprintf("%s: %v", file, err))
			if !opts.DryRun {
				if moveErr := r.scanner.MoveToFailed(file); moveErr != nil {
					r.logger.Error().Err(moveErr).Str("file", file).Msg("Failed to relocate broken input file")
				}
			}
			continue
		}

		aggregate.Total += ps.Total
		aggregate.Successful += ps.Successful
		aggregate.Failed += ps.Failed
		aggregate.Skipped += ps.Skipped
		aggregate.TokensUsed += ps.TokensUsed
		aggregate.OutputFiles = append(aggregate.OutputFiles, ps.OutputFiles...)
		aggregate.FailedFiles = append(aggregate.FailedFiles, ps.FailedFiles...)
		aggregate.Errors = append(aggregate.Errors, ps.Errors...)

		if ps.Interrupted {
			// Leave the file in place: its checkpoint lets a later run resume.
			aggregate.Interrupted = true
			break
		}

		// A dry run plans only; the intake directory stays untouched.
		if opts.DryRun {
			continue
		}

		if err := r.relocateByOutcome(file, ps); err != nil {
			r.logger.Error().Err(err).Str("file", file).Msg("Failed to relocate completed input file")
			aggregate.Errors = append(aggregate.Errors, fmt.Sprintf("%s: relocation failed: %v", file, err))
		}
	}

	aggregate.EndTime = time.Now()
	return summary.Generate(aggregate), nil
}

// relocateByOutcome applies the partial-success policy: any successful item
// makes the file processed/; only zero-success files land in failed/.
func (r *Runner) relocateByOutcome(file string, ps summary.ProcessingSummary) error {
	if ps.Successful > 0 || ps.Failed == 0 {
		return r.scanner.MoveToProcessed(file)
	}
	return r.scanner.MoveToFailed(file)
}

// reportLockHolder logs the competing holder for operator diagnosis.
func (r *Runner) reportLockHolder(lock *lockfile.Manager) {
	status, err := lock.ReadLockInfo()
	if err != nil {
		r.logger.Error().Err(err).Str("lock", lock.Path()).Msg("Another run holds the directory lock (holder unreadable)")
		return
	}
	event := r.logger.Error().
		Str("lock", lock.Path()).
		Int("holder_pid", status.Info.PID).
		Str("holder_host", status.Info.Hostname).
		Time("acquired_at", status.Info.AcquiredAt)
	if status.ProcessAlive {
		event.Msg("Another run holds the directory lock")
	} else {
		event.Msg("Directory lock is held by a dead process; remove the lock file to recover")
	}
}
