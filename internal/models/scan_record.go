package models

// ScanRecord is one unit of work parsed from an input CSV row.
// Records are immutable once parsed.
type ScanRecord struct {
	ScanID     string `json:"scan_id"`
	URL        string `json:"url"`
	Email      string `json:"email,omitempty"`
	WCAGLevel  string `json:"wcag_level,omitempty"`
	IssuesJSON string `json:"issues_json,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
	PageTitle  string `json:"page_title,omitempty"`
}

// SkippedRow records an input row that failed row-level validation.
type SkippedRow struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ParsedInput is the outcome of parsing one input CSV file.
type ParsedInput struct {
	Scans     []ScanRecord
	Skipped   []SkippedRow
	TotalRows int
}
