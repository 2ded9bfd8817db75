package summary

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateStatus(t *testing.T) {
	tests := []struct {
		name       string
		stats      RunStats
		wantStatus RunStatus
	}{
		{
			name:       "all successful",
			stats:      RunStats{Total: 10, Successful: 10},
			wantStatus: StatusCompleted,
		},
		{
			name:       "mixed results",
			stats:      RunStats{Total: 10, Successful: 7, Failed: 3},
			wantStatus: StatusPartialFailure,
		},
		{
			name:       "nothing succeeded",
			stats:      RunStats{Total: 10, Failed: 10},
			wantStatus: StatusCompleteFailure,
		},
		{
			name:       "empty run is a clean completion",
			stats:      RunStats{},
			wantStatus: StatusCompleted,
		},
		{
			name:       "everything skipped",
			stats:      RunStats{Total: 10, Skipped: 10},
			wantStatus: StatusCompleted,
		},
		{
			name:       "nothing ran but errors recorded",
			stats:      RunStats{Errors: []string{"broken.csv: missing header"}},
			wantStatus: StatusCompleteFailure,
		},
		{
			name:       "single failure among successes",
			stats:      RunStats{Total: 2, Successful: 1, Failed: 1},
			wantStatus: StatusPartialFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps := Generate(tt.stats)
			assert.Equal(t, tt.wantStatus, ps.Status)
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name     string
		summary  ProcessingSummary
		wantCode int
	}{
		{"completed", ProcessingSummary{Status: StatusCompleted}, ExitCompleted},
		{"partial failure", ProcessingSummary{Status: StatusPartialFailure}, ExitPartialFailure},
		{"complete failure", ProcessingSummary{Status: StatusCompleteFailure}, ExitCompleteFailure},
		{"interrupted run exits clean", ProcessingSummary{Status: StatusPartialFailure, Interrupted: true}, ExitCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, tt.summary.ExitCode())
		})
	}
}

func TestGenerateDuration(t *testing.T) {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	ps := Generate(RunStats{StartTime: start, EndTime: start.Add(90 * time.Second)})

	assert.Equal(t, 90*time.Second, ps.Duration)
	assert.Equal(t, 90.0, ps.DurationSec)
}

func TestSummaryJSON(t *testing.T) {
	ps := Generate(RunStats{
		Total:       5,
		Successful:  4,
		Failed:      1,
		TokensUsed:  1234,
		OutputFiles: []string{"scans_enhanced.csv"},
		FailedFiles: []string{"scans_enhanced_failed.csv"},
	})

	out, err := ps.JSON()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "partial_failure", decoded["status"])
	assert.Equal(t, float64(1234), decoded["tokens_used"])
	assert.NotContains(t, decoded, "interrupted")
}
