package models

// Error types recorded on FailedScan entries.
const (
	ErrorTypeInvocationTimeout = "invocation_timeout"
	ErrorTypeInvocationFailed  = "invocation_failed"
	ErrorTypeMissingResult     = "missing_result"
	ErrorTypeInvalidResult     = "invalid_result"
)

// EnhancedResult is one successfully AI-processed scan, serialized to the output CSV.
type EnhancedResult struct {
	ScanID            string `json:"scan_id"`
	AISummary         string `json:"ai_summary"`
	AIRemediationPlan string `json:"ai_remediation_plan"`
	AIIssuesJSON      string `json:"ai_issues_json"`
	TokensUsed        int    `json:"tokens_used"`
	AIModel           string `json:"ai_model"`
	ProcessingTimeMS  int64  `json:"processing_time"`
}

// FailedScan records one work item that could not be processed.
type FailedScan struct {
	ScanID       string `json:"scan_id"`
	URL          string `json:"url"`
	ErrorType    string `json:"error_type"`
	ErrorMessage string `json:"error_message"`
}

// MiniBatchResult is the outcome of exactly one worker invocation.
// A mini-batch always yields one result, even under partial failure.
type MiniBatchResult struct {
	BatchNumber     int
	MiniBatchNumber int
	Results         []EnhancedResult
	FailedScans     []FailedScan
}

// NewFailedScan builds a FailedScan entry from a record and an error classification.
func NewFailedScan(record ScanRecord, errorType, message string) FailedScan {
	return FailedScan{
		ScanID:       record.ScanID,
		URL:          record.URL,
		ErrorType:    errorType,
		ErrorMessage: message,
	}
}
