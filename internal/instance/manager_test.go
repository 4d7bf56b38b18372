package instance

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWritePIDFileThenCheckExistingInstanceFindsSelf(t *testing.T) {
	dir := t.TempDir()
	pidPath := filepath.Join(dir, "agentaskit.pid")
	m := NewManager(pidPath, 8080)

	if err := m.WritePIDFile(os.Getpid(), dir); err != nil {
		t.Fatalf("write pid file: %v", err)
	}

	info, err := m.CheckExistingInstance()
	if err != nil {
		t.Fatalf("check existing instance: %v", err)
	}
	if info == nil {
		t.Fatalf("expected the current process to be detected as a running instance")
	}
	if info.PID != os.Getpid() {
		t.Errorf("expected pid %d, got %d", os.Getpid(), info.PID)
	}
	if info.Port != 8080 {
		t.Errorf("expected port 8080, got %d", info.Port)
	}
}

func TestCheckExistingInstanceWithNoPIDFileReturnsNil(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(filepath.Join(dir, "agentaskit.pid"), 8080)

	info, err := m.CheckExistingInstance()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info != nil {
		t.Errorf("expected no existing instance, got %+v", info)
	}
}

func TestCheckExistingInstanceRemovesStalePIDFile(t *testing.T) {
	dir := t.TempDir()
	pidPath := filepath.Join(dir, "agentaskit.pid")
	m := NewManager(pidPath, 8080)

	// A PID astronomically unlikely to correspond to a live process.
	if err := m.WritePIDFile(1<<30-1, dir); err != nil {
		t.Fatalf("write pid file: %v", err)
	}

	info, err := m.CheckExistingInstance()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info != nil {
		t.Errorf("expected stale pid file to be treated as no running instance, got %+v", info)
	}
	if _, statErr := os.Stat(pidPath); !os.IsNotExist(statErr) {
		t.Errorf("expected stale pid file to be removed")
	}
}

func TestAcquireLockThenReleaseLockRoundTrips(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(filepath.Join(dir, "agentaskit.pid"), 8080)

	if err := m.AcquireLock(); err != nil {
		t.Fatalf("acquire lock: %v", err)
	}
	if err := m.ReleaseLock(); err != nil {
		t.Fatalf("release lock: %v", err)
	}
}

func TestAcquireLockRejectsSecondHolder(t *testing.T) {
	dir := t.TempDir()
	pidPath := filepath.Join(dir, "agentaskit.pid")
	first := NewManager(pidPath, 8080)
	second := NewManager(pidPath, 8080)

	if err := first.AcquireLock(); err != nil {
		t.Fatalf("first acquire lock: %v", err)
	}
	defer first.ReleaseLock()

	if err := second.AcquireLock(); err == nil {
		t.Errorf("expected second AcquireLock against the same path to fail while the first holds it")
	}
}

func TestSetPortThenGetPortRoundTrips(t *testing.T) {
	m := NewManager("unused", 8080)
	m.SetPort(9090)
	if got := m.GetPort(); got != 9090 {
		t.Errorf("expected port 9090, got %d", got)
	}
}
