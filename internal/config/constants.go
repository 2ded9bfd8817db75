package config

// Default values shared by config sections and CLI defaults.
const (
	DefaultBatchSize     = 100
	DefaultMiniBatchSize = 5
	DefaultDelaySecs     = 5
	DefaultStartBatch    = 1

	MinMiniBatchSize = 1
	MaxMiniBatchSize = 10

	DefaultWorkerCommand     = "claude"
	DefaultWorkerTimeoutSecs = 180
	DefaultWorkerModel       = "claude-sonnet-4"

	DefaultMaxRetries        = 3
	DefaultRetryBaseDelaySec = 2
	DefaultRetryMaxDelaySec  = 30

	DefaultLogFile       = "logs/aiscan.log"
	DefaultLogFormat     = "console"
	DefaultLogLevel      = "info"
	DefaultMaxLogBackups = 3
	DefaultMaxLogSizeMB  = 50

	DefaultHistoryDBPath = "data/aiscan_history.db"

	DefaultCollabTimeoutSecs = 15

	// ConfigPathEnvVar overrides config file discovery when set.
	ConfigPathEnvVar = "AISCAN_CONFIG_PATH"
)
