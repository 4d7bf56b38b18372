package deliverable

import (
	"context"
	"go/parser"
	"go/token"
	"os"
	"os/exec"
	"path"
	"strings"
	"time"
)

// GateKind identifies one of the built-in quality-gate checks.
type GateKind int

const (
	GateFileExists GateKind = iota
	GateNonEmpty
	GateSyntaxValid
	GateCommand
)

func (k GateKind) String() string {
	switch k {
	case GateFileExists:
		return "FileExists"
	case GateNonEmpty:
		return "NonEmpty"
	case GateSyntaxValid:
		return "SyntaxValid"
	case GateCommand:
		return "Command"
	default:
		return "Unknown"
	}
}

// Gate is a single quality gate attached to a Deliverable.
type Gate struct {
	Kind     GateKind
	Required bool
	Command  string        // for GateCommand: the test runner invocation
	Timeout  time.Duration // for GateCommand: default 30s if zero
}

// DefaultGates returns the required gates for kind: Code/Config get
// FileExists+NonEmpty+SyntaxValid; Test additionally gets Command to run
// the test suite; every other kind gets FileExists+NonEmpty, since syntax
// checking and test execution don't apply to docs, reports, or data.
func DefaultGates(kind Kind) []Gate {
	base := []Gate{
		{Kind: GateFileExists, Required: true},
		{Kind: GateNonEmpty, Required: true},
	}
	switch kind {
	case Code, Config:
		return append(base, Gate{Kind: GateSyntaxValid, Required: true})
	case Test:
		return append(base,
			Gate{Kind: GateSyntaxValid, Required: true},
			Gate{Kind: GateCommand, Required: true, Command: "go test ./..."},
		)
	default:
		return base
	}
}

// Check runs the gate against targetPath, returning pass/fail and, on
// failure, a human-readable reason.
func (g Gate) Check(ctx context.Context, targetPath string) (bool, string) {
	switch g.Kind {
	case GateFileExists:
		if _, err := os.Stat(targetPath); err != nil {
			return false, "file does not exist: " + err.Error()
		}
		return true, ""

	case GateNonEmpty:
		info, err := os.Stat(targetPath)
		if err != nil {
			return false, "cannot stat file: " + err.Error()
		}
		if info.Size() == 0 {
			return false, "file is empty"
		}
		return true, ""

	case GateSyntaxValid:
		return checkSyntax(targetPath)

	case GateCommand:
		return runCommand(ctx, g.Command, g.Timeout)

	default:
		return false, "unknown gate kind"
	}
}

// checkSyntax parses the file as Go source when its extension is .go;
// other extensions pass vacuously since this kernel has no general-purpose
// multi-language parser roster.
func checkSyntax(targetPath string) (bool, string) {
	if strings.ToLower(path.Ext(targetPath)) != ".go" {
		return true, ""
	}
	fset := token.NewFileSet()
	if _, err := parser.ParseFile(fset, targetPath, nil, parser.AllErrors); err != nil {
		return false, "syntax error: " + err.Error()
	}
	return true, ""
}

// runCommand executes the configured test-runner command with a bounded
// timeout (default 30s), passing on a non-zero exit or command-spawn
// failure as a gate failure.
func runCommand(ctx context.Context, command string, timeout time.Duration) (bool, string) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return false, "empty command gate"
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, fields[0], fields[1:]...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return false, "command failed: " + err.Error() + ": " + string(out)
	}
	return true, ""
}
