package csvio

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/a11ysuite/aiscan/internal/common"
	"github.com/a11ysuite/aiscan/internal/models"
	"github.com/rs/zerolog"
)

// Writer serializes processed results and failures back to CSV.
type Writer struct {
	logger zerolog.Logger
}

// NewWriter creates a new Writer instance
func NewWriter(logger zerolog.Logger) *Writer {
	return &Writer{
		logger: logger.With().Str("component", "CSVWriter").Logger(),
	}
}

// WriteResultsCSV performs a full-file write of the output schema consumed
// by the downstream import.
func (w *Writer) WriteResultsCSV(path string, results []models.EnhancedResult) error {
	rows := make([][]string, 0, len(results)+1)
	rows = append(rows, []string{
		"scan_id", "ai_summary", "ai_remediation_plan", "ai_issues_json",
		"tokens_used", "ai_model", "processing_time",
	})
	for _, r := range results {
		rows = append(rows, []string{
			r.ScanID,
			r.AISummary,
			r.AIRemediationPlan,
			r.AIIssuesJSON,
			strconv.Itoa(r.TokensUsed),
			r.AIModel,
			strconv.FormatInt(r.ProcessingTimeMS, 10),
		})
	}

	if err := w.writeFile(path, rows); err != nil {
		return err
	}
	w.logger.Info().Str("file", path).Int("results", len(results)).Msg("Wrote results CSV")
	return nil
}

// WriteFailedScansCSV writes a sibling failed-scans file next to the output.
// No file is created on a clean run; returns the written path, or "" when
// there was nothing to write.
func (w *Writer) WriteFailedScansCSV(dir, baseName string, failed []models.FailedScan) (string, error) {
	if len(failed) == 0 {
		return "", nil
	}

	rows := make([][]string, 0, len(failed)+1)
	rows = append(rows, []string{"scan_id", "url", "error_type", "error_message"})
	for _, f := range failed {
		rows = append(rows, []string{f.ScanID, f.URL, f.ErrorType, f.ErrorMessage})
	}

	path := filepath.Join(dir, failedFileName(baseName))
	if err := w.writeFile(path, rows); err != nil {
		return "", err
	}
	w.logger.Info().Str("file", path).Int("failed", len(failed)).Msg("Wrote failed-scans CSV")
	return path, nil
}

// failedFileName derives the failed-scans file name from an output base name.
func failedFileName(baseName string) string {
	ext := filepath.Ext(baseName)
	return strings.TrimSuffix(baseName, ext) + "_failed.csv"
}

func (w *Writer) writeFile(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return common.WrapError(err, "failed to create output directory for: "+path)
	}

	file, err := os.Create(path)
	if err != nil {
		return common.WrapError(err, "failed to create CSV file: "+path)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(rows); err != nil {
		return common.WrapError(err, "failed to write CSV rows to: "+path)
	}
	writer.Flush()
	return common.WrapError(writer.Error(), "failed to flush CSV writer for: "+path)
}
