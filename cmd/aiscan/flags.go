package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/a11ysuite/aiscan/internal/config"
)

// AppFlags holds parsed command-line flag values.
type AppFlags struct {
	InputFile          string
	OutputFile         string
	InputDir           string
	MaxFiles           int
	ConfigFile         string
	LogFile            string
	PromptTemplate     string
	BatchSize          int
	MiniBatchSize      int
	DelaySecs          int
	StartBatch         int
	Resume             bool
	ClearCheckpoint    bool
	DryRun             bool
	CheckPrerequisites bool
	Verbose            bool
	Quiet              bool
	JSONSummary        bool

	setFlags map[string]bool
}

// isSet reports whether the named flag was passed explicitly on the command
// line, as opposed to carrying its registered default.
func (f *AppFlags) isSet(name string) bool {
	return f.setFlags[name]
}

// parseFlags defines, parses and validates all command-line flags.
func parseFlags() (*AppFlags, error) {
	flags := &AppFlags{}

	flag.StringVar(&flags.InputFile, "input", "", "Path to the input CSV file of scan records")
	flag.StringVar(&flags.InputFile, "i", "", "Path to the input CSV file (shorthand)")
	flag.StringVar(&flags.OutputFile, "output", "", "Path for the enhanced output CSV (default: <input>_enhanced.csv)")
	flag.StringVar(&flags.OutputFile, "o", "", "Path for the enhanced output CSV (shorthand)")
	flag.StringVar(&flags.InputDir, "input-dir", "", "Directory to scan for input CSV files (unattended mode)")
	flag.IntVar(&flags.MaxFiles, "max-files", 0, "Maximum number of files to process per directory-mode run (0 = no cap)")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to the configuration file (YAML or JSON)")
	flag.StringVar(&flags.ConfigFile, "c", "", "Path to the configuration file (shorthand)")
	flag.StringVar(&flags.LogFile, "log", "", "Path to the log file (appended, rotated)")
	flag.StringVar(&flags.PromptTemplate, "prompt-template", "", "Path to a custom prompt template file")

	flag.IntVar(&flags.BatchSize, "batch-size", config.DefaultBatchSize, "Number of records per batch")
	flag.IntVar(&flags.MiniBatchSize, "mini-batch-size", config.DefaultMiniBatchSize, "Number of records per worker invocation (1-10)")
	flag.IntVar(&flags.DelaySecs, "delay", config.DefaultDelaySecs, "Seconds to wait between worker invocations")
	flag.IntVar(&flags.StartBatch, "start-batch", config.DefaultStartBatch, "First batch number to process (earlier batches are skipped)")

	flag.BoolVar(&flags.Resume, "resume", false, "Resume from the checkpoint file, skipping already-processed records")
	flag.BoolVar(&flags.ClearCheckpoint, "clear-checkpoint", false, "Delete the checkpoint file and start fresh")
	flag.BoolVar(&flags.DryRun, "dry-run", false, "Print the batch plan without invoking the worker")
	flag.BoolVar(&flags.CheckPrerequisites, "check-prerequisites", false, "Verify the worker CLI is available, then exit")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable debug logging")
	flag.BoolVar(&flags.Verbose, "v", false, "Enable debug logging (shorthand)")
	flag.BoolVar(&flags.Quiet, "quiet", false, "Suppress info logging; warnings and errors only")
	flag.BoolVar(&flags.Quiet, "q", false, "Suppress info logging (shorthand)")
	flag.BoolVar(&flags.JSONSummary, "json-summary", false, "Write the final summary to stdout as JSON")

	flag.Usage = printUsage
	flag.Parse()

	flags.setFlags = make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		flags.setFlags[f.Name] = true
	})

	if err := validateFlags(flags); err != nil {
		return nil, err
	}
	return flags, nil
}

// validateFlags enforces mutual exclusions and value ranges that must hold
// before any configuration is loaded.
func validateFlags(flags *AppFlags) error {
	if flags.InputFile == "" && flags.InputDir == "" && !flags.CheckPrerequisites {
		return fmt.Errorf("either --input or --input-dir is required")
	}
	if flags.InputFile != "" && flags.InputDir != "" {
		return fmt.Errorf("--input and --input-dir are mutually exclusive")
	}
	if flags.Resume && flags.ClearCheckpoint {
		return fmt.Errorf("--resume and --clear-checkpoint are mutually exclusive")
	}
	if flags.Verbose && flags.Quiet {
		return fmt.Errorf("--verbose and --quiet are mutually exclusive")
	}
	if flags.OutputFile != "" && flags.InputDir != "" {
		return fmt.Errorf("--output cannot be combined with --input-dir; outputs are derived per file")
	}
	if flags.MiniBatchSize < config.MinMiniBatchSize || flags.MiniBatchSize > config.MaxMiniBatchSize {
		return fmt.Errorf("--mini-batch-size must be between %d and %d", config.MinMiniBatchSize, config.MaxMiniBatchSize)
	}
	if flags.BatchSize < 1 {
		return fmt.Errorf("--batch-size must be at least 1")
	}
	if flags.DelaySecs < 0 {
		return fmt.Errorf("--delay cannot be negative")
	}
	if flags.StartBatch < 1 {
		return fmt.Errorf("--start-batch must be at least 1")
	}
	if flags.MaxFiles < 0 {
		return fmt.Errorf("--max-files cannot be negative")
	}
	return nil
}

// applyFlagOverrides layers parsed flag values over the loaded configuration.
// Only flags the operator passed explicitly override file values; registered
// defaults never clobber a config file.
func applyFlagOverrides(cfg *config.GlobalConfig, flags *AppFlags) {
	if flags.isSet("batch-size") {
		cfg.BatchConfig.BatchSize = flags.BatchSize
	}
	if flags.isSet("mini-batch-size") {
		cfg.BatchConfig.MiniBatchSize = flags.MiniBatchSize
	}
	if flags.isSet("delay") {
		cfg.BatchConfig.DelaySecs = flags.DelaySecs
	}
	if flags.isSet("start-batch") {
		cfg.BatchConfig.StartBatch = flags.StartBatch
	}

	if flags.LogFile != "" {
		cfg.LogConfig.LogFile = flags.LogFile
	}
	switch {
	case flags.Verbose:
		cfg.LogConfig.LogLevel = "debug"
	case flags.Quiet:
		cfg.LogConfig.LogLevel = "warn"
	case flags.InputDir != "" && cfg.LogConfig.LogLevel == config.DefaultLogLevel:
		// Unattended directory runs are quiet unless asked otherwise.
		cfg.LogConfig.LogLevel = "warn"
	}
	if flags.PromptTemplate != "" {
		cfg.WorkerConfig.PromptTemplateFile = flags.PromptTemplate
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Batch AI enhancement for accessibility scan results.\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  %s --input scans.csv\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s --input scans.csv --resume --mini-batch-size 3\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s --input-dir /var/spool/aiscan --max-files 10 --quiet\n", os.Args[0])
}
