package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/a11ysuite/aiscan/internal/batch"
	"github.com/a11ysuite/aiscan/internal/checkpoint"
	"github.com/a11ysuite/aiscan/internal/collab"
	"github.com/a11ysuite/aiscan/internal/config"
	"github.com/a11ysuite/aiscan/internal/csvio"
	"github.com/a11ysuite/aiscan/internal/dirscan"
	"github.com/a11ysuite/aiscan/internal/history"
	"github.com/a11ysuite/aiscan/internal/models"
	"github.com/a11ysuite/aiscan/internal/processor"
	"github.com/a11ysuite/aiscan/internal/summary"
	"github.com/a11ysuite/aiscan/internal/worker"
	"github.com/rs/zerolog"
)

// NotificationTypeEnhancementComplete is sent to scan owners whose scans
// were successfully enhanced.
const NotificationTypeEnhancementComplete = "ai_enhancement_complete"

// Options carries the per-invocation CLI selections into the runner.
type Options struct {
	InputFile       string
	OutputFile      string
	InputDir        string
	MaxFiles        int
	Resume          bool
	ClearCheckpoint bool
	DryRun          bool
	JSONSummary     bool
}

// Runner wires one run of the pipeline: parse, organize, process, write,
// summarize, record history and notify collaborators.
type Runner struct {
	cfg       *config.GlobalConfig
	invoker   worker.Invoker
	prompts   *worker.PromptBuilder
	csvParser *csvio.Parser
	csvWriter *csvio.Writer
	results   *worker.ResultParser
	scanner   *dirscan.Scanner
	collab    *collab.Client
	historyDB *history.DB
	guard     *ShutdownGuard
	logger    zerolog.Logger
}

// NewRunner creates a new Runner instance. historyDB and collabClient may
// be nil; both are best-effort collaborators.
func NewRunner(
	cfg *config.GlobalConfig,
	invoker worker.Invoker,
	prompts *worker.PromptBuilder,
	historyDB *history.DB,
	collabClient *collab.Client,
	guard *ShutdownGuard,
	logger zerolog.Logger,
) *Runner {
	return &Runner{
		cfg:       cfg,
		invoker:   invoker,
		prompts:   prompts,
		csvParser: csvio.NewParser(logger),
		csvWriter: csvio.NewWriter(logger),
		results:   worker.NewResultParser(cfg.WorkerConfig.Model, logger),
		scanner:   dirscan.NewScanner(logger),
		collab:    collabClient,
		historyDB: historyDB,
		guard:     guard,
		logger:    logger.With().Str("component", "Runner").Logger(),
	}
}

// RunFile processes a single input CSV and returns the terminal summary.
// Fatal errors (unreadable input, bad header) return before any output is
// written; item-level failures are folded into the summary instead.
func (r *Runner) RunFile(ctx context.Context, opts Options) (summary.ProcessingSummary, error) {
	sessionID := time.Now().Format("20060102-150405")
	runLogger := r.logger.With().Str("session_id", sessionID).Str("input", opts.InputFile).Logger()
	startTime := time.Now()

	parsed, err := r.csvParser.ParseInputCSV(opts.InputFile)
	if err != nil {
		return summary.ProcessingSummary{}, err
	}

	ckpt := checkpoint.NewManager(checkpointPath(opts.InputFile), runLogger)

	if opts.ClearCheckpoint {
		if err := ckpt.Clear(); err != nil {
			return summary.ProcessingSummary{}, err
		}
	}

	records := parsed.Scans
	resumeFiltered := 0
	if opts.Resume {
		if _, err := ckpt.Load(); err != nil {
			return summary.ProcessingSummary{}, err
		}
		records, resumeFiltered = ckpt.FilterProcessed(records)
		runLogger.Info().
			Int("already_processed", resumeFiltered).
			Int("remaining", len(records)).
			Msg("Resume: filtered checkpointed scan ids")
	}

	batches := batch.Organize(records, r.cfg.BatchConfig.BatchSize, r.cfg.BatchConfig.MiniBatchSize)

	if opts.DryRun {
		r.printBatchPlan(opts.InputFile, parsed, resumeFiltered, batches)
		return summary.Generate(summary.RunStats{
			Total:     len(parsed.Scans),
			Skipped:   len(parsed.Scans),
			StartTime: startTime,
			EndTime:   time.Now(),
		}), nil
	}

	dbRunID := r.recordRunStart(sessionID, opts.InputFile, len(parsed.Scans), startTime)

	r.guard.Register("checkpoint-flush:"+opts.InputFile, ckpt.Flush)
	defer r.guard.Unregister("checkpoint-flush:" + opts.InputFile)

	proc := processor.NewProcessor(
		r.invoker,
		r.prompts,
		r.results,
		ckpt,
		processor.NewRetryHandler(r.cfg.RetryConfig, runLogger),
		r.cfg.BatchConfig,
		runLogger,
	)
	outcome := proc.ProcessAllBatches(ctx, batches)

	outputPath := opts.OutputFile
	if outputPath == "" {
		outputPath = defaultOutputPath(opts.InputFile)
	}

	stats := summary.RunStats{
		Total:       len(parsed.Scans),
		Successful:  len(outcome.Results),
		Failed:      len(outcome.FailedScans),
		Skipped:     resumeFiltered + outcome.SkippedAtStart + outcome.NotProcessed,
		TokensUsed:  sumTokens(outcome.Results),
		StartTime:   startTime,
		Interrupted: outcome.Interrupted,
	}

	if len(outcome.Results) > 0 {
		if err := r.csvWriter.WriteResultsCSV(outputPath, outcome.Results); err != nil {
			return summary.ProcessingSummary{}, err
		}
		stats.OutputFiles = append(stats.OutputFiles, outputPath)
	}

	failedPath, err := r.csvWriter.WriteFailedScansCSV(filepath.Dir(outputPath), filepath.Base(outputPath), outcome.FailedScans)
	if err != nil {
		return summary.ProcessingSummary{}, err
	}
	if failedPath != "" {
		stats.FailedFiles = append(stats.FailedFiles, failedPath)
	}

	if outcome.Interrupted {
		if err := ckpt.Flush(); err != nil {
			runLogger.Error().Err(err).Msg("Final checkpoint flush failed during shutdown")
		}
	} else if stats.Failed == 0 && outcome.NotProcessed == 0 {
		// Full successful completion retires the checkpoint.
		if err := ckpt.Clear(); err != nil {
			runLogger.Warn().Err(err).Msg("Failed to clear checkpoint after completed run")
		}
	}

	stats.EndTime = time.Now()
	ps := summary.Generate(stats)

	r.recordRunCompletion(dbRunID, ps)
	r.notifyCollaborators(outcome.Results, recordsByID(parsed.Scans))

	runLogger.Info().
		Str("status", string(ps.Status)).
		Int("successful", ps.Successful).
		Int("failed", ps.Failed).
		Int("skipped", ps.Skipped).
		Dur("duration", ps.Duration).
		Msg("Run finished")

	return ps, nil
}

// printBatchPlan writes the dry-run plan to stdout without touching the
// worker, output files or checkpoint.
func (r *Runner) printBatchPlan(inputFile string, parsed *models.ParsedInput, resumeFiltered int, batches []batch.Batch) {
	fmt.Printf("Dry run: %s\n", inputFile)
	fmt.Printf("  valid rows:        %d\n", len(parsed.Scans))
	fmt.Printf("  skipped rows:      %d\n", len(parsed.Skipped))
	if resumeFiltered > 0 {
		fmt.Printf("  already processed: %d\n", resumeFiltered)
	}
	fmt.Printf("  batches:           %d\n", len(batches))
	for _, b := range batches {
		sizes := make([]string, 0, len(b.MiniBatches))
		for _, mb := range b.MiniBatches {
			sizes = append(sizes, fmt.Sprintf("%d", len(mb)))
		}
		fmt.Printf("    batch %d: %d items, mini-batches [%s]\n", b.Number, b.ItemCount(), strings.Join(sizes, ", "))
	}
}

// recordRunStart writes the history row; best-effort.
func (r *Runner) recordRunStart(sessionID, inputFile string, total int, startedAt time.Time) int64 {
	if r.historyDB == nil {
		return 0
	}
	id, err := r.historyDB.RecordRunStart(sessionID, inputFile, total, startedAt)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Failed to record run start in history")
		return 0
	}
	return id
}

// recordRunCompletion updates the history row; best-effort.
func (r *Runner) recordRunCompletion(dbRunID int64, ps summary.ProcessingSummary) {
	if r.historyDB == nil || dbRunID == 0 {
		return
	}
	if err := r.historyDB.RecordRunCompletion(dbRunID, ps, time.Now()); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to record run completion in history")
	}
}

// notifyCollaborators applies the post-persistence side effects: one token
// deduction anchored to the first successful scan, and one notification per
// successful scan with a known owner email. Failures are logged, never
// propagated — results are already persisted.
func (r *Runner) notifyCollaborators(results []models.EnhancedResult, recordsByID map[string]models.ScanRecord) {
	if len(results) == 0 {
		return
	}

	// Collaborator calls use their own context: the run context may already
	// be cancelled by the time side effects run.
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.CollabConfig.Timeout())
	defer cancel()

	if err := r.collab.DeductTokens(ctx, results[0].ScanID, sumTokens(results)); err != nil {
		r.logger.Error().Err(err).Msg("Token deduction failed; processed results remain valid")
	}

	for _, result := range results {
		record, ok := recordsByID[result.ScanID]
		if !ok || record.Email == "" {
			continue
		}
		if err := r.collab.EnqueueNotification(ctx, result.ScanID, record.Email, NotificationTypeEnhancementComplete); err != nil {
			r.logger.Warn().Err(err).Str("scan_id", result.ScanID).Msg("Notification enqueue failed")
		}
	}
}

// checkpointPath places the checkpoint alongside its input file.
func checkpointPath(inputFile string) string {
	return inputFile + ".checkpoint.json"
}

// defaultOutputPath derives the output file location from the input file.
func defaultOutputPath(inputFile string) string {
	ext := filepath.Ext(inputFile)
	return strings.TrimSuffix(inputFile, ext) + "_enhanced.csv"
}

func sumTokens(results []models.EnhancedResult) int {
	total := 0
	for _, r := range results {
		total += r.TokensUsed
	}
	return total
}

func recordsByID(records []models.ScanRecord) map[string]models.ScanRecord {
	byID := make(map[string]models.ScanRecord, len(records))
	for _, record := range records {
		byID[record.ScanID] = record
	}
	return byID
}

// EmitSummary renders the terminal summary. With JSONSummary set, the
// machine-parseable object goes to stdout regardless of verbosity.
func (r *Runner) EmitSummary(ps summary.ProcessingSummary, jsonSummary bool) {
	if !jsonSummary {
		return
	}
	out, err := ps.JSON()
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to render JSON summary")
		return
	}
	fmt.Fprintln(os.Stdout, out)
}
