package lockfile

import (
	"encoding/json"
	"os"
	"time"

	"github.com/a11ysuite/aiscan/internal/common"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/process"
)

// LockInfo is the metadata stored inside the lock file.
type LockInfo struct {
	PID        int       `json:"pid"`
	Hostname   string    `json:"hostname"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// HolderStatus describes the competing lock holder for operator diagnosis.
// Staleness is reported, never auto-expired: acquisition is strictly
// atomic create-or-fail.
type HolderStatus struct {
	Info         LockInfo
	ProcessAlive bool
}

// Manager provides filesystem-based mutual exclusion for directory-mode runs.
type Manager struct {
	path   string
	logger zerolog.Logger
}

// NewManager creates a lock manager for the given lock file path.
func NewManager(path string, logger zerolog.Logger) *Manager {
	return &Manager{
		path:   path,
		logger: logger.With().Str("component", "LockManager").Logger(),
	}
}

// Path returns the lock file location.
func (m *Manager) Path() string {
	return m.path
}

// Acquire attempts atomic exclusive creation of the lock file.
// Returns false (not an error) when another lock already exists; other
// filesystem errors propagate and are fatal to the caller.
func (m *Manager) Acquire() (bool, error) {
	file, err := os.OpenFile(m.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			m.logger.Warn().Str("file", m.path).Msg("Lock file already exists")
			return false, nil
		}
		return false, common.WrapError(err, "failed to create lock file: "+m.path)
	}

	hostname, _ := os.Hostname()
	info := LockInfo{
		PID:        os.Getpid(),
		Hostname:   hostname,
		AcquiredAt: time.Now(),
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err == nil {
		_, err = file.Write(data)
	}
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(m.path)
		return false, common.WrapError(err, "failed to write lock file: "+m.path)
	}

	m.logger.Info().Str("file", m.path).Int("pid", info.PID).Msg("Acquired directory lock")
	return true, nil
}

// Release deletes the lock file. Idempotent and best-effort: a failure here
// is logged by the caller rather than crashing mid-shutdown.
func (m *Manager) Release() error {
	err := os.Remove(m.path)
	if err != nil && !os.IsNotExist(err) {
		return common.WrapError(err, "failed to remove lock file: "+m.path)
	}
	m.logger.Info().Str("file", m.path).Msg("Released directory lock")
	return nil
}

// ReadLockInfo returns the competing holder's metadata plus whether its
// process is still alive on this host.
func (m *Manager) ReadLockInfo() (*HolderStatus, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, common.ErrNotFound
		}
		return nil, common.WrapError(err, "failed to read lock file: "+m.path)
	}

	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, common.WrapError(err, "failed to parse lock file: "+m.path)
	}

	status := &HolderStatus{Info: info}

	hostname, _ := os.Hostname()
	if info.Hostname == hostname {
		alive, err := process.PidExists(int32(info.PID))
		if err != nil {
			m.logger.Warn().Err(err).Int("pid", info.PID).Msg("Could not determine lock holder liveness")
		} else {
			status.ProcessAlive = alive
		}
	} else {
		// Remote holder: liveness cannot be checked from here, assume alive.
		status.ProcessAlive = true
	}

	return status, nil
}
