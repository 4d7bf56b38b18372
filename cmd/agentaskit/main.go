// Command agentaskit is the kernel's entry point: start runs the
// Orchestrator and its collaborators as a long-lived process, deploy
// checks a manifest by registering its agents against a short-lived
// registry of its own, shutdown asks a running instance to stop, and verify runs the
// Verification Engine over a workspace's deliverable plan.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"golang.org/x/time/rate"

	"github.com/FlexNetOS/agentaskit/internal/broker"
	"github.com/FlexNetOS/agentaskit/internal/capability"
	"github.com/FlexNetOS/agentaskit/internal/config"
	"github.com/FlexNetOS/agentaskit/internal/deliverable"
	"github.com/FlexNetOS/agentaskit/internal/httpapi"
	"github.com/FlexNetOS/agentaskit/internal/ids"
	"github.com/FlexNetOS/agentaskit/internal/instance"
	"github.com/FlexNetOS/agentaskit/internal/observability"
	"github.com/FlexNetOS/agentaskit/internal/orchestrator"
	"github.com/FlexNetOS/agentaskit/internal/registry"
	"github.com/FlexNetOS/agentaskit/internal/scheduler"
	"github.com/FlexNetOS/agentaskit/internal/verification"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: agentaskit <start|deploy|shutdown|verify> [flags]")
		os.Exit(1)
	}

	var code int
	switch os.Args[1] {
	case "start":
		code = runStart(os.Args[2:])
	case "deploy":
		code = runDeploy(os.Args[2:])
	case "shutdown":
		code = runShutdown(os.Args[2:])
	case "verify":
		code = runVerify(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		code = 1
	}
	os.Exit(code)
}

// getBasePath returns the directory the binary runs against: the current
// working directory, since the executable's own path says nothing about
// which workspace it should operate on.
func getBasePath() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getwd: %w", err)
	}
	return wd, nil
}

// colorize returns s wrapped in an ANSI color code only when stdout is a
// real terminal, matching internal/instance/resolver.go's isatty guard.
func colorize(code, s string) string {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return s
	}
	return code + s + "\033[0m"
}

const colorGreen = "\033[32m"

// newManager builds the collaborators a running kernel instance shares
// between start's dispatch loop and httpapi's status surface.
func newManager(cfg config.Config, sink *observability.Sink) (*registry.Registry, *scheduler.Scheduler, *broker.Broker, *capability.Store, *verification.Engine, *orchestrator.Orchestrator) {
	reg := registry.New(sink)
	sched := scheduler.New(sink)
	brk := broker.New()
	var signKey [32]byte
	capStore := capability.NewStore(signKey, sink)
	engine := verification.NewEngine(sink)

	orchCfg := orchestrator.DefaultConfig(cfg.WorkspaceRoot)
	orchCfg.RateLimit = rate.Limit(cfg.RateLimitPerSecond)
	orchCfg.RateBurst = cfg.RateBurst
	orchCfg.ShutdownGrace = time.Duration(cfg.ShutdownGraceSeconds/max1(cfg.ShutdownPhases)) * time.Second
	orchCfg.ShutdownPhases = cfg.ShutdownPhases
	orchCfg.QualityGate = cfg.QualityGate

	orch := orchestrator.New(reg, sched, brk, capStore, engine, sink, orchCfg)
	return reg, sched, brk, capStore, engine, orch
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// runStart launches the kernel: every collaborator (broker, registry,
// scheduler, capability store, verification engine, orchestrator), the
// ambient httpapi status surface, and the instance lock/PID-file lifecycle,
// blocking until a shutdown signal arrives. Exit codes: 0 normal shutdown,
// 1 init failure, 2 shutdown timeout.
func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ContinueOnError)
	port := fs.Int("port", 0, "HTTP status/health port (overrides config overlay)")
	workspace := fs.String("workspace", "", "workspace root (defaults to the current directory)")
	configDir := fs.String("config-dir", "", "directory holding <env>.yaml overlays (defaults to <workspace>/config)")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	basePath, err := getBasePath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to determine base path: %v\n", err)
		return 1
	}
	if *workspace != "" {
		basePath = *workspace
	}
	if *configDir == "" {
		*configDir = filepath.Join(basePath, "config")
	}

	env := config.EnvFromEnvironment()
	cfg, err := config.Load(env, *configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config overlay: %v\n", err)
		return 1
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if cfg.WorkspaceRoot == "." {
		cfg.WorkspaceRoot = basePath
	}

	pidFilePath := cfg.PIDFile
	if !filepath.IsAbs(pidFilePath) {
		pidFilePath = filepath.Join(basePath, pidFilePath)
	}
	if err := os.MkdirAll(filepath.Dir(pidFilePath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create pid directory: %v\n", err)
		return 1
	}

	instanceMgr := instance.NewManager(pidFilePath, cfg.Port)

	existing, err := instanceMgr.CheckExistingInstance()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to check for an existing instance: %v\n", err)
		return 1
	}
	if existing != nil && existing.IsRunning {
		resolver := instance.NewConflictResolver(instanceMgr)
		if err := resolver.Resolve(existing); err != nil {
			fmt.Fprintf(os.Stderr, "failed to resolve instance conflict: %v\n", err)
			return 1
		}
		cfg.Port = instanceMgr.GetPort()
	}

	if err := instanceMgr.AcquireLock(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to acquire instance lock: %v\n", err)
		return 1
	}
	defer instanceMgr.ReleaseLock()

	sink := observability.New(log.New(os.Stderr, "", log.LstdFlags), observability.DesktopNotifier{})

	auditPath := filepath.Join(basePath, "data", "audit.db")
	if err := os.MkdirAll(filepath.Dir(auditPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create data directory: %v\n", err)
		return 1
	}
	if store, err := observability.OpenAuditStore(auditPath); err != nil {
		fmt.Fprintf(os.Stderr, "warning: durable audit store unavailable: %v\n", err)
	} else {
		defer store.Close()
		sink.AttachStore(store)
	}

	reg, _, brk, _, _, orch := newManager(cfg, sink)
	brk.Start()
	orch.Start()

	apiServer := httpapi.NewServer(fmt.Sprintf(":%d", cfg.Port), orch, reg, sink)

	serverErr := make(chan error, 1)
	go func() { serverErr <- apiServer.Start() }()

	started := false
	for i := 0; i < 50; i++ {
		time.Sleep(100 * time.Millisecond)
		select {
		case err := <-serverErr:
			fmt.Fprintf(os.Stderr, "status server failed to start: %v\n", err)
			return 1
		default:
		}
		if instance.HealthCheck(cfg.Port) == nil {
			started = true
			break
		}
	}
	if !started {
		fmt.Fprintln(os.Stderr, "status server failed to become ready within timeout")
		return 1
	}

	if err := instanceMgr.WritePIDFile(os.Getpid(), basePath); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to write pid file: %v\n", err)
	}
	defer instanceMgr.RemovePIDFile()

	fmt.Println(colorize(colorGreen, fmt.Sprintf("agentaskit (%s) ready on port %d", env, cfg.Port)))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			fmt.Fprintf(os.Stderr, "status server error: %v\n", err)
		}
	case <-sig:
		fmt.Println("shutting down (signal received)...")
	case <-apiServer.ShutdownChan:
		fmt.Println("shutting down (api request)...")
	}

	grace := time.Duration(cfg.ShutdownGraceSeconds/max1(cfg.ShutdownPhases)) * time.Duration(cfg.ShutdownPhases) * time.Second
	shutdownStart := time.Now()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	clean := orch.Shutdown(shutdownCtx)
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "status server shutdown error: %v\n", err)
	}

	fmt.Printf("shutdown finished, started %s\n", humanize.Time(shutdownStart))

	if !clean {
		fmt.Fprintln(os.Stderr, "shutdown grace period elapsed with work still outstanding")
		return 2
	}
	return 0
}

// runDeploy parses a JSON deployment manifest, validates every entry against
// the same registry and capability-issuance path runStart wires into a live
// orchestrator, and prints a human-readable summary. It runs against its
// own short-lived registry rather than a running instance's: a manifest
// that fails registration here would fail identically once loaded by
// start, so this doubles as manifest validation ahead of a deploy. Exit
// codes: 0 all agents deployed, 1 manifest invalid, 2 agent registration
// failure.
func runDeploy(args []string) int {
	fs := flag.NewFlagSet("deploy", flag.ContinueOnError)
	manifestPath := fs.String("manifest", "", "deployment manifest JSON file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *manifestPath == "" {
		fmt.Fprintln(os.Stderr, "deploy requires --manifest <file>")
		return 1
	}

	raw, err := os.ReadFile(*manifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read manifest: %v\n", err)
		return 1
	}

	var manifest struct {
		Agents []struct {
			ID           string   `json:"id"`
			Type         string   `json:"type"`
			Capabilities []string `json:"capabilities"`
		} `json:"agents"`
	}
	if err := json.Unmarshal(raw, &manifest); err != nil {
		fmt.Fprintf(os.Stderr, "manifest is not valid JSON: %v\n", err)
		return 1
	}
	if manifest.Agents == nil {
		fmt.Fprintln(os.Stderr, "manifest is missing its \"agents\" array")
		return 1
	}

	sink := observability.New(log.New(os.Stderr, "", log.LstdFlags), nil)
	reg := registry.New(sink)
	var signKey [32]byte
	capStore := capability.NewStore(signKey, sink)

	deployed := 0
	for _, a := range manifest.Agents {
		if a.ID == "" || a.Type == "" {
			fmt.Fprintf(os.Stderr, "agent registration failed: entry missing id or type: %+v\n", a)
			return 2
		}

		agentID := ids.NewAgentIDFromName(a.ID)
		caps := capability.NewSet()
		for _, c := range a.Capabilities {
			caps.Add(capability.Custom(c))
		}

		reg.Register(registry.Agent{
			ID:     agentID,
			Name:   a.ID,
			Type:   a.Type,
			Caps:   caps,
			Status: registry.StatusInitializing,
			Health: registry.HealthUnknown,
		})
		capStore.Issue(agentID, caps, 0)
		if err := reg.UpdateStatus(agentID, registry.StatusActive); err != nil {
			fmt.Fprintf(os.Stderr, "agent registration failed for %s: %v\n", a.ID, err)
			return 2
		}

		deployed++
		fmt.Printf("  deployed %-24s type=%-16s caps=%d\n", a.ID, a.Type, len(a.Capabilities))
	}

	fmt.Printf("%s agents deployed from %s\n", humanize.Comma(int64(deployed)), *manifestPath)
	return 0
}

// runShutdown asks a running instance to stop gracefully and waits for its
// port to free up. Exit codes: 0 clean, 2 timeout.
func runShutdown(args []string) int {
	fs := flag.NewFlagSet("shutdown", flag.ContinueOnError)
	port := fs.Int("port", 8080, "port the running instance is listening on")
	timeout := fs.Duration("timeout", 30*time.Second, "how long to wait for the instance to stop")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if err := instance.SendShutdownRequest(*port); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown request failed: %v\n", err)
		return 2
	}

	if !instance.WaitForPortToBeAvailable(*port, *timeout) {
		fmt.Fprintf(os.Stderr, "instance did not stop within %s\n", *timeout)
		return 2
	}

	fmt.Println("instance stopped")
	return 0
}

// runVerify parses the deliverable plan found under workspace, builds its
// plan, validates every deliverable, runs the Verification Engine over
// the results, and prints the resulting verdict. Exit codes: 0 pass, 1
// fail, 2 requires review.
func runVerify(args []string) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	workspace := fs.String("workspace", "", "workspace root containing deliverables.spec")
	specName := fs.String("spec", "deliverables.spec", "deliverable spec filename, relative to workspace")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *workspace == "" {
		fmt.Fprintln(os.Stderr, "verify requires --workspace <path>")
		return 1
	}

	specPath := filepath.Join(*workspace, *specName)
	raw, err := os.ReadFile(specPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read deliverable spec %s: %v\n", specPath, err)
		return 1
	}

	start := time.Now()
	deliverables, err := deliverable.ParseSpec(string(raw), start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "deliverable spec is malformed: %v\n", err)
		return 1
	}

	locCfg := deliverable.DefaultLocationConfig(*workspace)
	for _, d := range deliverables {
		d.Target = deliverable.ResolveLocation(d.Target.RelativePath, locCfg)
	}

	plan, err := deliverable.BuildPlan(deliverables)
	if err != nil {
		fmt.Fprintf(os.Stderr, "deliverable plan is invalid: %v\n", err)
		return 1
	}

	sink := observability.New(log.New(os.Stderr, "", log.LstdFlags), nil)
	validator := deliverable.NewValidator(plan, sink, ids.SystemClock{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	allValidated := true
	for _, id := range plan.ExecutionOrder {
		result, err := validator.Validate(ctx, id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "validating %s: %v\n", id, err)
			return 1
		}
		if !result.Passed {
			allValidated = false
			fmt.Printf("  %s FAILED gates: %v\n", id, result.FailedGates)
		}
	}

	phaseResults := map[verification.PhaseID]verification.PhaseResult{
		verification.PhaseIngestion:   {Phase: verification.PhaseIngestion, Success: true, Output: map[string]any{"deliverables": len(deliverables)}},
		verification.PhaseDeconstruct: {Phase: verification.PhaseDeconstruct, Success: true, Output: map[string]any{"parallel_groups": len(plan.ParallelGroups)}},
		verification.PhaseDiagnose:    {Phase: verification.PhaseDiagnose, Success: allValidated, Output: map[string]any{"validated": allValidated}},
		verification.PhaseDevelop:     {Phase: verification.PhaseDevelop, Success: allValidated, Output: map[string]any{}},
		verification.PhaseDeliver:     {Phase: verification.PhaseDeliver, Success: allValidated, Output: map[string]any{"execution_order": plan.ExecutionOrder}},
	}
	required := []verification.PhaseID{
		verification.PhaseIngestion,
		verification.PhaseDeconstruct,
		verification.PhaseDiagnose,
		verification.PhaseDevelop,
		verification.PhaseDeliver,
	}

	engine := verification.NewEngine(sink)
	verdict, err := engine.Run(phaseResults, required, allValidated, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "verification engine error: %v\n", err)
		return 1
	}

	fmt.Printf("verified %d deliverables, started %s: %s\n", len(deliverables), humanize.Time(start), verdict.Overall)

	switch verdict.Overall {
	case verification.StatusPassed:
		return 0
	case verification.StatusFailed:
		return 1
	default:
		return 2
	}
}
