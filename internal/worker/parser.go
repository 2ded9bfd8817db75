package worker

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/a11ysuite/aiscan/internal/models"
	"github.com/rs/zerolog"
)

// ResultParser turns raw worker output into per-item success/failure.
// The worker is non-deterministic, so the parser salvages individual item
// results from degraded responses instead of failing the whole mini-batch.
type ResultParser struct {
	defaultModel string
	logger       zerolog.Logger
}

// NewResultParser creates a new ResultParser instance
func NewResultParser(defaultModel string, logger zerolog.Logger) *ResultParser {
	return &ResultParser{
		defaultModel: defaultModel,
		logger:       logger.With().Str("component", "ResultParser").Logger(),
	}
}

// itemResult is one element of the worker's JSON response array.
type itemResult struct {
	ScanID          string          `json:"scan_id"`
	Summary         string          `json:"summary"`
	RemediationPlan string          `json:"remediation_plan"`
	Issues          json.RawMessage `json:"issues"`
	TokensUsed      int             `json:"tokens_used"`
	Model           string          `json:"model"`
}

// ParseResults extracts per-item results from raw output. Every expected
// record lands in exactly one of the returned lists: parsed results, or
// failed scans with errorType missing_result / invalid_result.
func (rp *ResultParser) ParseResults(rawOutput string, expected []models.ScanRecord) ([]models.EnhancedResult, []models.FailedScan) {
	expectedByID := make(map[string]models.ScanRecord, len(expected))
	for _, record := range expected {
		expectedByID[record.ScanID] = record
	}

	results := make([]models.EnhancedResult, 0, len(expected))
	failed := make([]models.FailedScan, 0)
	seen := make(map[string]bool, len(expected))

	elements, extractErr := extractJSONArray(rawOutput)
	if extractErr != nil {
		rp.logger.Warn().Err(extractErr).Int("output_bytes", len(rawOutput)).Msg("Worker output contained no parseable result array")
	}

	for _, element := range elements {
		var item itemResult
		if err := json.Unmarshal(element, &item); err != nil {
			scanID := salvageScanID(element)
			record, known := expectedByID[scanID]
			if !known || seen[scanID] {
				continue
			}
			seen[scanID] = true
			failed = append(failed, models.NewFailedScan(record, models.ErrorTypeInvalidResult,
				fmt.Sprintf("malformed result element: %v", err)))
			continue
		}

		record, known := expectedByID[item.ScanID]
		if !known {
			rp.logger.Warn().Str("scan_id", item.ScanID).Msg("Worker returned result for unexpected scan id, ignoring")
			continue
		}
		if seen[item.ScanID] {
			rp.logger.Warn().Str("scan_id", item.ScanID).Msg("Worker returned duplicate result, keeping first")
			continue
		}
		seen[item.ScanID] = true

		if item.Summary == "" && item.RemediationPlan == "" {
			failed = append(failed, models.NewFailedScan(record, models.ErrorTypeInvalidResult,
				"result element has neither summary nor remediation plan"))
			continue
		}

		results = append(results, rp.toEnhancedResult(item))
	}

	// Any expected record absent from the parsed output failed as missing.
	for _, record := range expected {
		if !seen[record.ScanID] {
			failed = append(failed, models.NewFailedScan(record, models.ErrorTypeMissingResult,
				"no result for scan id in worker output"))
		}
	}

	return results, failed
}

func (rp *ResultParser) toEnhancedResult(item itemResult) models.EnhancedResult {
	model := item.Model
	if model == "" {
		model = rp.defaultModel
	}

	issuesJSON := "[]"
	if len(item.Issues) > 0 {
		issuesJSON = string(item.Issues)
	}

	return models.EnhancedResult{
		ScanID:            item.ScanID,
		AISummary:         item.Summary,
		AIRemediationPlan: item.RemediationPlan,
		AIIssuesJSON:      issuesJSON,
		TokensUsed:        item.TokensUsed,
		AIModel:           model,
	}
}

// extractJSONArray locates the worker's JSON result array in raw output,
// tolerating markdown fences and surrounding prose.
func extractJSONArray(rawOutput string) ([]json.RawMessage, error) {
	candidate := strings.TrimSpace(rawOutput)

	if fenced := extractFencedBlock(candidate); fenced != "" {
		candidate = fenced
	}

	start := strings.Index(candidate, "[")
	end := strings.LastIndex(candidate, "]")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("no JSON array found in output")
	}

	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(candidate[start:end+1]), &elements); err != nil {
		return nil, fmt.Errorf("result array is not valid JSON: %w", err)
	}
	return elements, nil
}

// extractFencedBlock returns the content of the first ``` fenced block, if any.
func extractFencedBlock(s string) string {
	start := strings.Index(s, "```")
	if start == -1 {
		return ""
	}
	rest := s[start+3:]
	if newline := strings.Index(rest, "\n"); newline != -1 {
		rest = rest[newline+1:]
	}
	end := strings.Index(rest, "```")
	if end == -1 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}

// salvageScanID pulls a scan_id out of an otherwise malformed element.
func salvageScanID(element json.RawMessage) string {
	var probe struct {
		ScanID string `json:"scan_id"`
	}
	if err := json.Unmarshal(element, &probe); err != nil {
		return ""
	}
	return probe.ScanID
}
