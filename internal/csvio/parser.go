package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/a11ysuite/aiscan/internal/common"
	"github.com/a11ysuite/aiscan/internal/models"
	"github.com/rs/zerolog"
)

// Input CSV columns produced by the upstream export.
const (
	colScanID     = "scan_id"
	colURL        = "url"
	colEmail      = "email"
	colWCAGLevel  = "wcag_level"
	colIssuesJSON = "issues_json"
	colCreatedAt  = "created_at"
	colPageTitle  = "page_title"
)

// Parser reads pending scan records from an input CSV file.
type Parser struct {
	logger zerolog.Logger
}

// NewParser creates a new Parser instance
func NewParser(logger zerolog.Logger) *Parser {
	return &Parser{
		logger: logger.With().Str("component", "CSVParser").Logger(),
	}
}

// ParseInputCSV reads the input file and returns validated scan records.
// Row-level validation failures are collected as skipped rows and never
// abort parsing of subsequent rows. An unreadable file or missing required
// header is fatal.
func (p *Parser) ParseInputCSV(path string) (*models.ParsedInput, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, common.WrapError(err, "failed to open input CSV: "+path)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, common.NewError("input CSV '%s' is empty", path)
	}
	if err != nil {
		return nil, common.WrapError(err, "failed to read CSV header from: "+path)
	}

	columns, err := mapHeader(header)
	if err != nil {
		return nil, common.WrapErrorf(err, "invalid CSV header in '%s'", path)
	}

	parsed := &models.ParsedInput{}
	rowNum := 1 // header row

	for {
		rowNum++
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			parsed.TotalRows++
			parsed.Skipped = append(parsed.Skipped, models.SkippedRow{
				Row:    rowNum,
				Reason: fmt.Sprintf("malformed CSV row: %v", err),
			})
			p.logger.Warn().Int("row", rowNum).Err(err).Msg("Skipping malformed CSV row")
			continue
		}

		parsed.TotalRows++
		record, reason := buildRecord(row, columns)
		if reason != "" {
			parsed.Skipped = append(parsed.Skipped, models.SkippedRow{Row: rowNum, Reason: reason})
			p.logger.Warn().Int("row", rowNum).Str("reason", reason).Msg("Skipping invalid CSV row")
			continue
		}

		parsed.Scans = append(parsed.Scans, record)
	}

	p.logger.Info().
		Str("file", path).
		Int("total_rows", parsed.TotalRows).
		Int("valid", len(parsed.Scans)).
		Int("skipped", len(parsed.Skipped)).
		Msg("Parsed input CSV")

	return parsed, nil
}

// mapHeader resolves column indexes by header name. scan_id and url are required.
func mapHeader(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	for _, required := range []string{colScanID, colURL} {
		if _, ok := columns[required]; !ok {
			return nil, common.NewError("required column '%s' not found", required)
		}
	}
	return columns, nil
}

// buildRecord converts one CSV row into a ScanRecord.
// Returns a non-empty reason when the row fails validation.
func buildRecord(row []string, columns map[string]int) (models.ScanRecord, string) {
	field := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	record := models.ScanRecord{
		ScanID:     field(colScanID),
		URL:        field(colURL),
		Email:      field(colEmail),
		WCAGLevel:  field(colWCAGLevel),
		IssuesJSON: field(colIssuesJSON),
		CreatedAt:  field(colCreatedAt),
		PageTitle:  field(colPageTitle),
	}

	if record.ScanID == "" {
		return models.ScanRecord{}, "missing required field: scan_id"
	}
	if record.URL == "" {
		return models.ScanRecord{}, "missing required field: url"
	}
	if !strings.HasPrefix(record.URL, "http://") && !strings.HasPrefix(record.URL, "https://") {
		return models.ScanRecord{}, fmt.Sprintf("malformed url: %s", record.URL)
	}

	return record, ""
}
