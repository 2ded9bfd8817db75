package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/a11ysuite/aiscan/internal/summary"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// DB wraps the SQL database connection and provides methods for recording
// processing-run history. History is best-effort: callers log failures and
// never fail a run over them.
type DB struct {
	db     *sql.DB
	logger zerolog.Logger
}

// RunHistoryEntry represents a record in the run_history table.
type RunHistoryEntry struct {
	ID          int64
	SessionID   string
	InputFile   string
	StartedAt   time.Time
	EndedAt     sql.NullTime
	Status      string
	Total       int
	Successful  int
	Failed      int
	Skipped     int
	TokensUsed  int
	OutputFile  sql.NullString
	FailedFile  sql.NullString
}

// NewDB initializes a new DB connection and ensures the schema is set up.
func NewDB(dataSourceName string, logger zerolog.Logger) (*DB, error) {
	dbLogger := logger.With().Str("component", "RunHistoryDB").Logger()
	dbLogger.Info().Str("db_path", dataSourceName).Msg("Initializing run-history database connection")

	dbDir := filepath.Dir(dataSourceName)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run-history database directory %s: %w", dbDir, err)
	}

	dbInstance, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("sql.Open failed for %s: %w", dataSourceName, err)
	}

	db := &DB{
		db:     dbInstance,
		logger: dbLogger,
	}

	if err := db.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// initSchema creates the run_history table if it doesn't already exist.
func (d *DB) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS run_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT UNIQUE,
		input_file TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		ended_at DATETIME,
		status TEXT NOT NULL,
		total INTEGER DEFAULT 0,
		successful INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		skipped INTEGER DEFAULT 0,
		tokens_used INTEGER DEFAULT 0,
		output_file TEXT,
		failed_file TEXT
	);
	`
	_, err := d.db.Exec(query)
	if err != nil {
		d.logger.Error().Err(err).Msg("Failed to initialize run_history schema")
		return err
	}
	return nil
}

// RecordRunStart inserts a new record with status "started" and returns
// the ID of the newly inserted row.
func (d *DB) RecordRunStart(sessionID, inputFile string, total int, startedAt time.Time) (int64, error) {
	query := `INSERT INTO run_history (session_id, input_file, total, started_at, status) VALUES (?, ?, ?, ?, ?)`
	result, err := d.db.Exec(query, sessionID, inputFile, total, startedAt, "started")
	if err != nil {
		return 0, fmt.Errorf("failed to insert run start record: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	d.logger.Debug().Int64("db_id", id).Str("session_id", sessionID).Msg("Recorded run start")
	return id, nil
}

// RecordRunCompletion updates an existing record with the terminal summary.
func (d *DB) RecordRunCompletion(dbRunID int64, ps summary.ProcessingSummary, endedAt time.Time) error {
	outputFile := ""
	if len(ps.OutputFiles) > 0 {
		outputFile = ps.OutputFiles[0]
	}
	failedFile := ""
	if len(ps.FailedFiles) > 0 {
		failedFile = ps.FailedFiles[0]
	}

	query := `UPDATE run_history SET ended_at = ?, status = ?, total = ?, successful = ?, failed = ?, skipped = ?, tokens_used = ?, output_file = ?, failed_file = ? WHERE id = ?`
	_, err := d.db.Exec(query,
		endedAt,
		string(ps.Status),
		ps.Total,
		ps.Successful,
		ps.Failed,
		ps.Skipped,
		ps.TokensUsed,
		sql.NullString{String: outputFile, Valid: outputFile != ""},
		sql.NullString{String: failedFile, Valid: failedFile != ""},
		dbRunID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run completion for ID %d: %w", dbRunID, err)
	}
	d.logger.Debug().Int64("db_id", dbRunID).Str("status", string(ps.Status)).Msg("Recorded run completion")
	return nil
}

// GetLastRunTime retrieves the started_at of the most recent completed run.
// Returns sql.ErrNoRows when no run has completed yet.
func (d *DB) GetLastRunTime() (*time.Time, error) {
	query := `SELECT started_at FROM run_history WHERE status != 'started' ORDER BY started_at DESC LIMIT 1`
	var startedAt time.Time
	err := d.db.QueryRow(query).Scan(&startedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to query last run time: %w", err)
	}
	return &startedAt, nil
}
