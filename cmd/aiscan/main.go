package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/a11ysuite/aiscan/internal/collab"
	"github.com/a11ysuite/aiscan/internal/common"
	"github.com/a11ysuite/aiscan/internal/config"
	"github.com/a11ysuite/aiscan/internal/history"
	"github.com/a11ysuite/aiscan/internal/logger"
	"github.com/a11ysuite/aiscan/internal/runner"
	"github.com/a11ysuite/aiscan/internal/summary"
	"github.com/a11ysuite/aiscan/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	os.Exit(run())
}

func run() int {
	flags, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		printUsage()
		return summary.ExitFatal
	}

	cfg, err := config.LoadGlobalConfig(flags.ConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load configuration: %v\n", err)
		return summary.ExitFatal
	}
	applyFlagOverrides(cfg, flags)

	if err := config.ValidateConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		return summary.ExitFatal
	}

	zLogger, err := logger.New(cfg.LogConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize logger: %v\n", err)
		return summary.ExitFatal
	}

	var historyDB *history.DB
	if cfg.HistoryConfig.Enabled {
		historyDB, err = history.NewDB(cfg.HistoryConfig.SQLiteDBPath, zLogger)
		if err != nil {
			zLogger.Warn().Err(err).Msg("Run history unavailable; continuing without it")
			historyDB = nil
		} else {
			defer historyDB.Close()
		}
	}

	invoker := worker.NewCLIInvoker(cfg.WorkerConfig, zLogger)

	if flags.CheckPrerequisites {
		return checkPrerequisites(invoker, historyDB, zLogger)
	}

	prompts, err := buildPromptBuilder(cfg)
	if err != nil {
		zLogger.Error().Err(err).Msg("Failed to load prompt template")
		return summary.ExitFatal
	}

	guard := runner.NewShutdownGuard()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandling(cancel, guard, zLogger)

	r := runner.NewRunner(
		cfg,
		invoker,
		prompts,
		historyDB,
		collab.NewClient(cfg.CollabConfig, zLogger),
		guard,
		zLogger,
	)

	opts := runner.Options{
		InputFile:       flags.InputFile,
		OutputFile:      flags.OutputFile,
		InputDir:        flags.InputDir,
		MaxFiles:        flags.MaxFiles,
		Resume:          flags.Resume,
		ClearCheckpoint: flags.ClearCheckpoint,
		DryRun:          flags.DryRun,
		JSONSummary:     flags.JSONSummary,
	}

	var ps summary.ProcessingSummary
	if flags.InputDir != "" {
		ps, err = r.RunDirectory(ctx, opts)
	} else {
		ps, err = r.RunFile(ctx, opts)
	}

	guard.Cleanup(zLogger)

	if err != nil {
		if errors.Is(err, common.ErrLockHeld) {
			return summary.ExitLockHeld
		}
		zLogger.Error().Err(err).Msg("Run aborted")
		return summary.ExitFatal
	}

	r.EmitSummary(ps, flags.JSONSummary)
	return ps.ExitCode()
}

// checkPrerequisites probes the worker CLI and reports the last recorded run.
func checkPrerequisites(invoker *worker.CLIInvoker, historyDB *history.DB, zLogger zerolog.Logger) int {
	if err := invoker.CheckPrerequisites(context.Background()); err != nil {
		zLogger.Error().Err(err).Msg("Prerequisite check failed")
		return summary.ExitPrerequisitesMissing
	}
	zLogger.Info().Msg("Worker CLI is available")

	if historyDB != nil {
		lastRun, err := historyDB.GetLastRunTime()
		switch {
		case err == nil:
			zLogger.Info().Time("last_run", *lastRun).Msg("Most recent completed run")
		case errors.Is(err, sql.ErrNoRows):
			zLogger.Info().Msg("No completed runs recorded yet")
		default:
			zLogger.Warn().Err(err).Msg("Could not read run history")
		}
	}
	return summary.ExitCompleted
}

func buildPromptBuilder(cfg *config.GlobalConfig) (*worker.PromptBuilder, error) {
	if cfg.WorkerConfig.PromptTemplateFile != "" {
		return worker.NewPromptBuilderFromFile(cfg.WorkerConfig.PromptTemplateFile)
	}
	return worker.NewPromptBuilder()
}

// setupSignalHandling cancels the run context on the first SIGINT/SIGTERM so
// the processor stops at the next mini-batch boundary. A second signal forces
// cleanup and immediate exit.
func setupSignalHandling(cancel context.CancelFunc, guard *runner.ShutdownGuard, zLogger zerolog.Logger) {
	signalChan := make(chan os.Signal, 2)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-signalChan
		zLogger.Info().Str("signal", sig.String()).Msg("Received shutdown signal, finishing current mini-batch")
		cancel()

		sig = <-signalChan
		zLogger.Warn().Str("signal", sig.String()).Msg("Received second signal, forcing shutdown")
		guard.Cleanup(zLogger)
		os.Exit(summary.ExitFatal)
	}()
}
