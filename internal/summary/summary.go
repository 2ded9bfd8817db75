package summary

import (
	"encoding/json"
	"time"
)

// RunStatus is the terminal classification of one processing run.
type RunStatus string

const (
	StatusCompleted       RunStatus = "completed"
	StatusPartialFailure  RunStatus = "partial_failure"
	StatusCompleteFailure RunStatus = "complete_failure"
)

// Exit codes, distinct so shell/cron callers can branch on the outcome.
const (
	ExitCompleted            = 0
	ExitFatal                = 1
	ExitPartialFailure       = 3
	ExitCompleteFailure      = 4
	ExitPrerequisitesMissing = 5
	ExitLockHeld             = 6
)

// RunStats is the raw aggregate a run produces for classification.
type RunStats struct {
	Total       int
	Successful  int
	Failed      int
	Skipped     int
	TokensUsed  int
	StartTime   time.Time
	EndTime     time.Time
	OutputFiles []string
	FailedFiles []string
	Errors      []string
	Interrupted bool
}

// ProcessingSummary is the derived terminal aggregate over a run.
// Never mutated after creation.
type ProcessingSummary struct {
	Total       int           `json:"total"`
	Successful  int           `json:"successful"`
	Failed      int           `json:"failed"`
	Skipped     int           `json:"skipped"`
	TokensUsed  int           `json:"tokens_used"`
	Status      RunStatus     `json:"status"`
	Duration    time.Duration `json:"-"`
	DurationSec float64       `json:"duration_seconds"`
	OutputFiles []string      `json:"output_files,omitempty"`
	FailedFiles []string      `json:"failed_files,omitempty"`
	Errors      []string      `json:"errors,omitempty"`
	Interrupted bool          `json:"interrupted,omitempty"`
}

// Generate derives the terminal summary. Pure and deterministic:
// completed iff nothing failed and no run errors were recorded;
// partial_failure iff something succeeded alongside failures or run errors;
// complete_failure otherwise.
func Generate(stats RunStats) ProcessingSummary {
	duration := stats.EndTime.Sub(stats.StartTime)

	var status RunStatus
	switch {
	case stats.Failed == 0 && len(stats.Errors) == 0:
		status = StatusCompleted
	case stats.Successful > 0:
		status = StatusPartialFailure
	default:
		status = StatusCompleteFailure
	}

	return ProcessingSummary{
		Total:       stats.Total,
		Successful:  stats.Successful,
		Failed:      stats.Failed,
		Skipped:     stats.Skipped,
		TokensUsed:  stats.TokensUsed,
		Status:      status,
		Duration:    duration,
		DurationSec: duration.Seconds(),
		OutputFiles: stats.OutputFiles,
		FailedFiles: stats.FailedFiles,
		Errors:      stats.Errors,
		Interrupted: stats.Interrupted,
	}
}

// ExitCode maps a terminal status to the process exit code.
// An operator-initiated interruption is reported as success.
func (ps ProcessingSummary) ExitCode() int {
	if ps.Interrupted {
		return ExitCompleted
	}
	switch ps.Status {
	case StatusCompleted:
		return ExitCompleted
	case StatusPartialFailure:
		return ExitPartialFailure
	default:
		return ExitCompleteFailure
	}
}

// JSON renders the machine-parseable summary for cron/alerting integration.
func (ps ProcessingSummary) JSON() (string, error) {
	data, err := json.MarshalIndent(ps, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
