//go:build unix

package instance

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// AcquireLock takes an exclusive, non-blocking advisory lock on
// "<pidFilePath>.lock", preventing a second instance from starting against
// the same workspace, using flock(2) via golang.org/x/sys/unix.
func (m *Manager) AcquireLock() error {
	lockPath := m.pidFilePath + ".lock"

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return fmt.Errorf("acquire lock (another instance may be starting): %w", err)
	}

	if err := f.Truncate(0); err == nil {
		_, _ = f.WriteString(fmt.Sprintf("%d", os.Getpid()))
	}

	m.lockFile = f
	m.acquiredLock = true
	return nil
}

// ReleaseLock releases the exclusive lock and removes the lock file.
func (m *Manager) ReleaseLock() error {
	if !m.acquiredLock {
		return nil
	}

	if m.lockFile != nil {
		_ = unix.Flock(int(m.lockFile.Fd()), unix.LOCK_UN)
		m.lockFile.Close()
		m.lockFile = nil
	}

	lockPath := m.pidFilePath + ".lock"
	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		m.acquiredLock = false
		return fmt.Errorf("remove lock file: %w", err)
	}

	m.acquiredLock = false
	return nil
}
