// Package instance provides a portable single-instance guard for the
// kernel process: a PID file plus an exclusive file lock, so starting a
// second agentaskit against the same workspace fails fast instead of
// corrupting shared state. The kernel targets unix server deployments, so
// the lock uses golang.org/x/sys/unix.Flock and liveness uses
// os.FindProcess/Signal(0).
package instance

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Manager handles lifecycle management for a single agentaskit instance
// bound to one workspace.
type Manager struct {
	pidFilePath  string
	port         int
	lockFile     *os.File
	acquiredLock bool
}

// Info describes a running (or formerly running) instance, read back from
// its PID file.
type Info struct {
	PID          int
	Port         int
	StartTime    time.Time
	IsRunning    bool
	IsResponding bool
	Version      string
	BasePath     string
}

// pidFileData is the JSON structure persisted to the PID file.
type pidFileData struct {
	PID       int       `json:"pid"`
	Port      int       `json:"port"`
	StartedAt time.Time `json:"started_at"`
	Version   string    `json:"version"`
	BasePath  string    `json:"base_path"`
	Hostname  string    `json:"hostname"`
}

// kernelVersion is stamped into every PID file; bumped alongside releases.
const kernelVersion = "1.0.0"

// NewManager creates a Manager guarding pidFilePath, bound to port.
func NewManager(pidFilePath string, port int) *Manager {
	return &Manager{pidFilePath: pidFilePath, port: port}
}

// CheckExistingInstance inspects the PID file and reports whether a live
// instance currently owns it. A stale PID file (process no longer running)
// is removed and (nil, nil) is returned, so a crashed instance never
// blocks the next start.
func (m *Manager) CheckExistingInstance() (*Info, error) {
	data, err := m.readPIDFile()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read pid file: %w", err)
	}

	running, err := IsProcessRunning(data.PID)
	if err != nil {
		return nil, fmt.Errorf("check process %d: %w", data.PID, err)
	}
	if !running {
		_ = m.RemovePIDFile()
		return nil, nil
	}

	responding := HealthCheck(data.Port) == nil

	return &Info{
		PID:          data.PID,
		Port:         data.Port,
		StartTime:    data.StartedAt,
		IsRunning:    true,
		IsResponding: responding,
		Version:      data.Version,
		BasePath:     data.BasePath,
	}, nil
}

// WritePIDFile records this process's identity for future instances to
// discover.
func (m *Manager) WritePIDFile(pid int, basePath string) error {
	hostname, _ := os.Hostname()
	data := pidFileData{
		PID:       pid,
		Port:      m.port,
		StartedAt: time.Now(),
		Version:   kernelVersion,
		BasePath:  basePath,
		Hostname:  hostname,
	}

	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal pid data: %w", err)
	}
	if err := os.WriteFile(m.pidFilePath, encoded, 0644); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	return nil
}

func (m *Manager) readPIDFile() (*pidFileData, error) {
	raw, err := os.ReadFile(m.pidFilePath)
	if err != nil {
		return nil, err
	}
	var data pidFileData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse pid file: %w", err)
	}
	return &data, nil
}

// RemovePIDFile deletes the PID file; removing an already-absent file is
// not an error.
func (m *Manager) RemovePIDFile() error {
	if err := os.Remove(m.pidFilePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove pid file: %w", err)
	}
	return nil
}

// GetPort returns the port this Manager is currently configured for.
func (m *Manager) GetPort() int { return m.port }

// SetPort updates the port, used when a conflict resolver picks a
// different one.
func (m *Manager) SetPort(port int) { m.port = port }
