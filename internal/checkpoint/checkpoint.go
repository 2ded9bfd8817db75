package checkpoint

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/a11ysuite/aiscan/internal/common"
	"github.com/a11ysuite/aiscan/internal/models"
	"github.com/rs/zerolog"
)

// State is the durable checkpoint record. Scan ids are appended in
// completion order, which equals processing order.
type State struct {
	ProcessedScanIDs []string  `json:"processed_scan_ids"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Manager owns the checkpoint file for one input file. The processor appends
// completed scan ids after every mini-batch; Flush is a synchronous atomic
// write so it is safe to call from the shutdown path.
type Manager struct {
	path      string
	fm        *common.FileManager
	logger    zerolog.Logger
	mu        sync.Mutex
	ids       []string
	processed map[string]struct{}
}

// NewManager creates a checkpoint manager for the given file path.
func NewManager(path string, logger zerolog.Logger) *Manager {
	componentLogger := logger.With().Str("component", "CheckpointManager").Logger()
	return &Manager{
		path:      path,
		fm:        common.NewFileManager(componentLogger),
		logger:    componentLogger,
		processed: make(map[string]struct{}),
	}
}

// Path returns the checkpoint file location.
func (m *Manager) Path() string {
	return m.path
}

// Load reads persisted state into memory. Returns nil when no checkpoint
// exists; a corrupt checkpoint is an error so the operator decides whether
// to clear it.
func (m *Manager) Load() (*State, error) {
	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, common.WrapError(err, "failed to read checkpoint: "+m.path)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, common.WrapError(err, "failed to parse checkpoint: "+m.path)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = append([]string(nil), state.ProcessedScanIDs...)
	m.processed = make(map[string]struct{}, len(m.ids))
	for _, id := range m.ids {
		m.processed[id] = struct{}{}
	}

	m.logger.Info().
		Str("file", m.path).
		Int("processed_scan_ids", len(m.ids)).
		Time("updated_at", state.UpdatedAt).
		Msg("Loaded checkpoint")
	return &state, nil
}

// Append records completed scan ids in memory. Call Flush to persist.
func (m *Manager) Append(scanIDs []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range scanIDs {
		if _, ok := m.processed[id]; ok {
			continue
		}
		m.processed[id] = struct{}{}
		m.ids = append(m.ids, id)
	}
}

// Flush durably writes the current in-memory state.
func (m *Manager) Flush() error {
	m.mu.Lock()
	state := State{
		ProcessedScanIDs: append([]string(nil), m.ids...),
		UpdatedAt:        time.Now(),
	}
	m.mu.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return common.WrapError(err, "failed to marshal checkpoint state")
	}

	if err := m.fm.WriteFileAtomic(m.path, data, 0644); err != nil {
		return err
	}

	m.logger.Debug().Int("processed_scan_ids", len(state.ProcessedScanIDs)).Msg("Flushed checkpoint")
	return nil
}

// Clear deletes the persisted checkpoint and resets in-memory state. Idempotent.
func (m *Manager) Clear() error {
	m.mu.Lock()
	m.ids = nil
	m.processed = make(map[string]struct{})
	m.mu.Unlock()

	err := os.Remove(m.path)
	if err != nil && !os.IsNotExist(err) {
		return common.WrapError(err, "failed to remove checkpoint: "+m.path)
	}
	m.logger.Info().Str("file", m.path).Msg("Cleared checkpoint")
	return nil
}

// ProcessedCount returns the number of checkpointed scan ids.
func (m *Manager) ProcessedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ids)
}

// FilterProcessed removes already-checkpointed records, returning the
// remaining work set and the count filtered out. Resumed runs reuse the
// normal batching over the reduced set.
func (m *Manager) FilterProcessed(records []models.ScanRecord) ([]models.ScanRecord, int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	remaining := make([]models.ScanRecord, 0, len(records))
	filtered := 0
	for _, record := range records {
		if _, ok := m.processed[record.ScanID]; ok {
			filtered++
			continue
		}
		remaining = append(remaining, record)
	}
	return remaining, filtered
}
