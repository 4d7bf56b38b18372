// Package config implements the kernel's environment-overlay configuration
// loader: a literal Go struct of defaults, optionally overridden by a YAML
// file selected via the AGENTASKIT_ENV environment variable, with CLI flags
// in cmd/agentaskit given the final say over whatever the overlay file set.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/FlexNetOS/agentaskit/internal/kernerr"
)

// Env is one of the three deployment environments the kernel recognizes.
type Env string

const (
	Dev        Env = "dev"
	Staging    Env = "staging"
	Production Env = "production"
)

// Valid reports whether e is one of the closed Env set.
func (e Env) Valid() bool {
	switch e {
	case Dev, Staging, Production:
		return true
	default:
		return false
	}
}

// EnvFromEnvironment reads AGENTASKIT_ENV, defaulting to Dev when unset.
func EnvFromEnvironment() Env {
	v := os.Getenv("AGENTASKIT_ENV")
	if v == "" {
		return Dev
	}
	return Env(v)
}

// Config holds every overlay-tunable kernel setting. Field names match the
// yaml overlay's keys; CLI flags in cmd/agentaskit assign directly into a
// loaded Config after Load returns, so a flag always overrides whatever
// the overlay file set.
type Config struct {
	Port                 int     `yaml:"port"`
	WorkspaceRoot        string  `yaml:"workspace_root"`
	PIDFile              string  `yaml:"pid_file"`
	RateLimitPerSecond   float64 `yaml:"rate_limit_per_second"`
	RateBurst            int     `yaml:"rate_burst"`
	ShutdownGraceSeconds int     `yaml:"shutdown_grace_seconds"`
	ShutdownPhases       int     `yaml:"shutdown_phases"`
	QualityGate          bool    `yaml:"quality_gate"`
	MCPHost              string  `yaml:"mcp_host"`
}

// Default returns the kernel's built-in defaults, before any overlay or
// flag is applied.
func Default() Config {
	return Config{
		Port:                 8080,
		WorkspaceRoot:        ".",
		PIDFile:              "data/agentaskit.pid",
		RateLimitPerSecond:   5,
		RateBurst:            10,
		ShutdownGraceSeconds: 25, // 5s per shutdown phase, 5 phases
		ShutdownPhases:       5,
		QualityGate:          true,
		MCPHost:              "localhost",
	}
}

// Load returns Default() overlaid with configDir/<env>.yaml's fields, when
// that file exists. A missing overlay file is not an error (every
// environment is runnable with bare defaults); a present but malformed one
// is a kernerr.ParseError.
func Load(env Env, configDir string) (Config, error) {
	cfg := Default()
	if !env.Valid() {
		return cfg, kernerr.ValidationFailed(fmt.Sprintf("unknown AGENTASKIT_ENV %q", env))
	}

	path := filepath.Join(configDir, string(env)+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config overlay %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config overlay %s: %w", path, kernerr.ParseError(path))
	}
	return cfg, nil
}
