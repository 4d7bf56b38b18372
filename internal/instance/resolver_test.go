package instance

import (
	"path/filepath"
	"testing"
	"time"
)

func TestResolveDefaultStrategyIsExit(t *testing.T) {
	t.Setenv("AGENTASKIT_ON_CONFLICT", "")
	m := NewManager(filepath.Join(t.TempDir(), "agentaskit.pid"), 8080)
	r := NewConflictResolver(m)

	info := &Info{PID: 1, Port: 8080, StartTime: time.Now()}
	if err := r.Resolve(info); err == nil {
		t.Errorf("expected the default exit strategy to return an error")
	}
}

func TestResolvePortStrategyAssignsNewPort(t *testing.T) {
	t.Setenv("AGENTASKIT_ON_CONFLICT", "port")
	m := NewManager(filepath.Join(t.TempDir(), "agentaskit.pid"), 8080)
	r := NewConflictResolver(m)

	info := &Info{PID: 1, Port: 8080, StartTime: time.Now()}
	if err := r.Resolve(info); err != nil {
		t.Fatalf("expected port strategy to succeed, got %v", err)
	}
	if m.GetPort() == 8080 {
		t.Errorf("expected a different port to be assigned")
	}
}

func TestResolveUnknownStrategyIsError(t *testing.T) {
	t.Setenv("AGENTASKIT_ON_CONFLICT", "teleport")
	m := NewManager(filepath.Join(t.TempDir(), "agentaskit.pid"), 8080)
	r := NewConflictResolver(m)

	info := &Info{PID: 1, Port: 8080, StartTime: time.Now()}
	if err := r.Resolve(info); err == nil {
		t.Errorf("expected an unknown strategy to return an error")
	}
}
