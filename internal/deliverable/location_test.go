package deliverable

import "testing"

func TestResolveLocationHonorsExplicitPrefix(t *testing.T) {
	cfg := DefaultLocationConfig("/ws")
	loc := ResolveLocation("test:extra/thing.go", cfg)
	if loc.Kind != LocationTest {
		t.Errorf("expected explicit test: prefix to force Test kind, got %s", loc.Kind)
	}
	if loc.RelativePath != "extra/thing.go" {
		t.Errorf("expected prefix stripped from relative path, got %s", loc.RelativePath)
	}
}

func TestResolveLocationInfersTestFromFilename(t *testing.T) {
	cfg := DefaultLocationConfig("/ws")
	loc := ResolveLocation("pkg/foo_test.go", cfg)
	if loc.Kind != LocationTest {
		t.Errorf("expected inferred Test kind for *_test.go, got %s", loc.Kind)
	}
}

func TestResolveLocationInfersDocumentationFromExtension(t *testing.T) {
	cfg := DefaultLocationConfig("/ws")
	loc := ResolveLocation("README.md", cfg)
	if loc.Kind != LocationDocumentation {
		t.Errorf("expected inferred Documentation kind for .md, got %s", loc.Kind)
	}
}

func TestResolveLocationFallsBackToSource(t *testing.T) {
	cfg := DefaultLocationConfig("/ws")
	loc := ResolveLocation("pkg/widget.go", cfg)
	if loc.Kind != LocationSource {
		t.Errorf("expected fallback to Source kind, got %s", loc.Kind)
	}
}
