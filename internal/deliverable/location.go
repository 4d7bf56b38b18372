package deliverable

import (
	"path"
	"strings"
)

// LocationConfig carries the configurable base directory per LocationKind
// and the workspace root they are joined with.
type LocationConfig struct {
	WorkspaceRoot string
	SourceDir     string // default "src"
	TestDir       string // default "tests"
	DocsDir       string // default "docs"
	BuildDir      string // default "target"
	ArtifactDir   string // default "artifacts"
	TempDir       string // default ".tmp"
	ConfigDir     string // default "config"
}

// DefaultLocationConfig returns the kernel's named defaults.
func DefaultLocationConfig(workspaceRoot string) LocationConfig {
	return LocationConfig{
		WorkspaceRoot: workspaceRoot,
		SourceDir:     "src",
		TestDir:       "tests",
		DocsDir:       "docs",
		BuildDir:      "target",
		ArtifactDir:   "artifacts",
		TempDir:       ".tmp",
		ConfigDir:     "config",
	}
}

func (c LocationConfig) baseDir(kind LocationKind) string {
	switch kind {
	case LocationTest:
		return c.TestDir
	case LocationDocumentation:
		return c.DocsDir
	case LocationBuild:
		return c.BuildDir
	case LocationArtifact:
		return c.ArtifactDir
	case LocationTemp:
		return c.TempDir
	case LocationConfig:
		return c.ConfigDir
	case LocationSource:
		return c.SourceDir
	default:
		return c.SourceDir
	}
}

// prefixKinds maps an explicit "<kind>:<path>" prefix form to a
// LocationKind, case-insensitively.
var prefixKinds = map[string]LocationKind{
	"src":      LocationSource,
	"test":     LocationTest,
	"doc":      LocationDocumentation,
	"build":    LocationBuild,
	"config":   LocationConfig,
	"tmp":      LocationTemp,
	"artifact": LocationArtifact,
}

// ResolveLocation computes the target path for a deliverable's (kind,
// name): an explicit "<kind>:<path>" prefix on relativePath is honored
// verbatim; otherwise the kind is inferred from filename conventions.
func ResolveLocation(relativePath string, cfg LocationConfig) TargetLocation {
	if idx := strings.Index(relativePath, ":"); idx > 0 {
		prefix := strings.ToLower(relativePath[:idx])
		if kind, ok := prefixKinds[prefix]; ok {
			rest := relativePath[idx+1:]
			return TargetLocation{
				Kind:         kind,
				BasePath:     path.Join(cfg.WorkspaceRoot, cfg.baseDir(kind)),
				RelativePath: rest,
			}
		}
	}

	kind := inferKind(relativePath)
	return TargetLocation{
		Kind:         kind,
		BasePath:     path.Join(cfg.WorkspaceRoot, cfg.baseDir(kind)),
		RelativePath: relativePath,
	}
}

// inferKind applies a filename-convention fallback: "test" in the name,
// doc extensions, config extensions/keyword, build-directory keywords,
// else Source.
func inferKind(name string) LocationKind {
	lower := strings.ToLower(name)
	ext := strings.ToLower(path.Ext(name))

	switch {
	case strings.Contains(lower, "test"):
		return LocationTest
	case ext == ".md" || ext == ".txt":
		return LocationDocumentation
	case ext == ".toml" || ext == ".yaml" || ext == ".yml" || ext == ".json" || strings.Contains(lower, "config"):
		return LocationConfig
	case strings.Contains(lower, "build") || strings.Contains(lower, "target") || strings.Contains(lower, "dist"):
		return LocationBuild
	default:
		return LocationSource
	}
}
