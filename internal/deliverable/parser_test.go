package deliverable

import (
	"testing"
	"time"
)

func TestParseSpecSkipsCommentsAndBlankLines(t *testing.T) {
	src := "# a comment\n\nCODE:lib:src/lib.go\n"
	out, err := ParseSpec(src, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 deliverable, got %d", len(out))
	}
	if out[0].ID != "DEL-0001" {
		t.Errorf("expected first id DEL-0001, got %s", out[0].ID)
	}
}

func TestParseSpecAssignsDefaultGatesByKind(t *testing.T) {
	out, err := ParseSpec("TEST:lib_test:tests/lib_test.go\n", time.Unix(0, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out[0].Gates) == 0 {
		t.Errorf("expected default gates assigned for Test kind")
	}
}

func TestParseSpecParsesDependencies(t *testing.T) {
	src := "CODE:lib:src/lib.go\nCODE:consumer:src/consumer.go:lib\n"
	out, err := ParseSpec(src, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out[1].Deps) != 1 || out[1].Deps[0] != "lib" {
		t.Errorf("expected consumer to depend on lib, got %v", out[1].Deps)
	}
}

func TestParseSpecRejectsUnknownKind(t *testing.T) {
	if _, err := ParseSpec("WIDGET:x:y\n", time.Unix(0, 0)); err == nil {
		t.Errorf("expected error for unknown kind")
	}
}

func TestParseSpecRejectsMalformedLine(t *testing.T) {
	if _, err := ParseSpec("CODE:onlyname\n", time.Unix(0, 0)); err == nil {
		t.Errorf("expected error for malformed line")
	}
}
