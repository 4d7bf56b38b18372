package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/FlexNetOS/agentaskit/internal/kernerr"
)

func TestLoadReturnsDefaultsWhenOverlayAbsent(t *testing.T) {
	cfg, err := Load(Dev, t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Default()
	if cfg != want {
		t.Errorf("expected bare defaults %+v, got %+v", want, cfg)
	}
}

func TestLoadAppliesOverlayFields(t *testing.T) {
	dir := t.TempDir()
	overlay := "port: 9090\nquality_gate: false\nrate_burst: 42\n"
	if err := os.WriteFile(filepath.Join(dir, "staging.yaml"), []byte(overlay), 0o644); err != nil {
		t.Fatalf("writing overlay: %v", err)
	}

	cfg, err := Load(Staging, dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("expected overlaid port 9090, got %d", cfg.Port)
	}
	if cfg.QualityGate {
		t.Errorf("expected overlaid quality_gate false, got true")
	}
	if cfg.RateBurst != 42 {
		t.Errorf("expected overlaid rate_burst 42, got %d", cfg.RateBurst)
	}
	// Fields the overlay didn't mention keep their defaults.
	if cfg.WorkspaceRoot != Default().WorkspaceRoot {
		t.Errorf("expected untouched field to keep its default, got %q", cfg.WorkspaceRoot)
	}
}

func TestLoadRejectsMalformedOverlay(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "dev.yaml"), []byte("port: [this is not an int\n"), 0o644); err != nil {
		t.Fatalf("writing overlay: %v", err)
	}

	_, err := Load(Dev, dir)
	if err == nil {
		t.Fatal("expected an error for a malformed overlay")
	}
	if !errors.Is(err, kernerr.ErrParseError) {
		t.Errorf("expected a kernerr.ErrParseError, got %v", err)
	}
}

func TestLoadRejectsUnknownEnv(t *testing.T) {
	_, err := Load(Env("nonexistent"), t.TempDir())
	if err == nil {
		t.Fatal("expected an error for an unrecognized environment")
	}
	if !errors.Is(err, kernerr.ErrValidationFailed) {
		t.Errorf("expected a kernerr.ErrValidationFailed, got %v", err)
	}
}
