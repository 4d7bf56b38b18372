package instance

import (
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// ConflictResolver decides what to do when CheckExistingInstance finds a
// live instance already holding the workspace. agentaskit runs headless
// (it is a server process with no terminal to prompt), so resolution is
// always driven by the AGENTASKIT_ON_CONFLICT environment variable rather
// than an interactive prompt.
type ConflictResolver struct {
	manager *Manager
}

// NewConflictResolver builds a ConflictResolver bound to manager.
func NewConflictResolver(manager *Manager) *ConflictResolver {
	return &ConflictResolver{manager: manager}
}

// Strategy is a resolution choice for an already-running instance.
type Strategy string

const (
	// StrategyExit refuses to start and reports the conflict (the safe
	// default).
	StrategyExit Strategy = "exit"
	// StrategyKill stops the existing instance (gracefully, then by
	// force) and lets the caller proceed to start.
	StrategyKill Strategy = "kill"
	// StrategyPort finds a different port and lets the caller proceed.
	StrategyPort Strategy = "port"
)

// Resolve acts on info according to AGENTASKIT_ON_CONFLICT (default
// StrategyExit). It returns nil when the caller may proceed to start (the
// conflict was resolved), and a non-nil error when startup should abort.
func (r *ConflictResolver) Resolve(info *Info) error {
	strategy := Strategy(os.Getenv("AGENTASKIT_ON_CONFLICT"))
	if strategy == "" {
		strategy = StrategyExit
	}

	r.report(info, strategy)

	switch strategy {
	case StrategyExit:
		return fmt.Errorf("another instance is already running on port %d (pid %d)", info.Port, info.PID)
	case StrategyKill:
		return r.stopExisting(info)
	case StrategyPort:
		newPort := FindAvailablePort(r.manager.GetPort() + 1)
		if newPort == 0 {
			return fmt.Errorf("no available port found near %d", r.manager.GetPort())
		}
		r.manager.SetPort(newPort)
		return nil
	default:
		return fmt.Errorf("unknown conflict strategy %q", strategy)
	}
}

// report prints a one-line conflict summary, plain when stdout is not a
// terminal (e.g. under a process supervisor) and with a clearer banner
// otherwise.
func (r *ConflictResolver) report(info *Info, chosen Strategy) {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Fprintf(os.Stderr, "conflict: pid=%d port=%d since=%s strategy=%s\n",
			info.PID, info.Port, info.StartTime.Format(time.RFC3339), chosen)
		return
	}
	fmt.Fprintf(os.Stderr, "Another instance is already running:\n  pid=%d port=%d started=%s\n  resolving via AGENTASKIT_ON_CONFLICT=%s\n",
		info.PID, info.Port, info.StartTime.Format(time.RFC3339), chosen)
}

// stopExisting attempts a graceful shutdown, falling back to a forceful
// kill if the instance does not respond within a short grace window.
func (r *ConflictResolver) stopExisting(info *Info) error {
	if info.IsResponding {
		if err := SendShutdownRequest(info.Port); err == nil {
			if WaitForPortToBeAvailable(info.Port, 3*time.Second) {
				_ = r.manager.RemovePIDFile()
				return nil
			}
		}
	}

	if err := KillProcess(info.PID); err != nil {
		return fmt.Errorf("kill existing instance: %w", err)
	}
	_ = r.manager.RemovePIDFile()
	return nil
}
