package agentjail

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/zhangyunhao116/agentjail/platform"
)

// newBackendFn constructs the isolation backend for the current operating
// system. The default is the no-isolation fallback; the per-OS files replace
// it in init. Tests substitute a fake backend here.
var newBackendFn = func(s *Settings) platform.Backend {
	return platform.NewFallback()
}

// diagnoseFn runs the pre-flight diagnostics for the current operating
// system. It is nil where no diagnostics exist; only the Linux backend can
// probe why namespace creation fails.
var diagnoseFn func(s *Settings) *platform.BlockerReport

// Launch runs command inside the sandbox and returns its exit code. On Linux
// and macOS a successful launch replaces the process image and Launch never
// returns; a returned value therefore always indicates either the fallback
// path or a failure to launch.
//
// The returned exit code is suitable for os.Exit. The error, when non-nil,
// explains the failure: ErrNoCommand, ErrPrimitiveMissing, a *BlockedError,
// or a plan-construction error.
func Launch(s *Settings, command []string) (int, error) {
	if len(command) == 0 {
		return 1, ErrNoCommand
	}
	if err := fillDefaults(s); err != nil {
		return 1, err
	}

	fs, err := LoadFileSettings(SettingsFilePath(s.Home))
	if err != nil {
		return 1, err
	}
	s.ApplyFile(fs)

	if s.Disable {
		warn(s, EnvDisable+" set: running without any sandbox")
		plan := platform.NewPlan("none", s.WorkDir)
		return platform.NewFallback().Exec(plan, command)
	}

	backend := newBackendFn(s)
	if !backend.Available() {
		fmt.Fprintf(os.Stderr, "error: isolation primitive for backend %q not found\n", backend.Name())
		fmt.Fprintf(os.Stderr, "set %s=1 to run without sandboxing (unsafe)\n", EnvDisable)
		return 1, ErrPrimitiveMissing
	}

	if diagnoseFn != nil {
		if report := diagnoseFn(s); report != nil && !report.OK() {
			printBlockerReport(report)
			return 1, &BlockedError{Report: report}
		}
	}

	ws, err := newWorkspace()
	if err != nil {
		return 1, err
	}
	stop := removeOnSignal(ws)
	defer stop()

	plan, err := BuildPlan(s, backend.Name(), ws)
	if err != nil {
		ws.Remove()
		return 1, err
	}
	logPlan(s, plan)

	// A successful replacement never returns, so the workspace outlives the
	// launcher there and is left to OS temp reaping. Whenever Exec does
	// return, supervised or failed, the launcher is still alive and removes
	// it.
	code, err := backend.Exec(plan, command)
	ws.Remove()
	return code, err
}

// notifySignals is overridden in tests to deliver synthetic signals.
var notifySignals = func(ch chan<- os.Signal) {
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
}

// removeOnSignal deletes the workspace if the launcher is interrupted between
// plan assembly and process replacement. Signal handlers do not survive a
// successful exec, so this only covers the launcher's own lifetime. The
// returned stop function disarms the handler; it must be called once the
// exec attempt is over and ordinary cleanup has taken back ownership.
func removeOnSignal(ws *workspace) (stop func()) {
	ch := make(chan os.Signal, 1)
	done := make(chan struct{})
	notifySignals(ch)
	go func() {
		select {
		case sig := <-ch:
			select {
			case <-done:
				return
			default:
			}
			ws.Remove()
			os.Exit(128 + int(sig.(syscall.Signal)))
		case <-done:
		}
	}()
	return func() {
		signal.Stop(ch)
		close(done)
	}
}

// fillDefaults resolves the home and working directories when the caller
// left them empty, and installs a debug logger when requested.
func fillDefaults(s *Settings) error {
	if s.Home == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home directory: %w", err)
		}
		s.Home = home
	}
	if s.WorkDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}
		s.WorkDir = wd
	}
	if s.Debug && s.Logger == nil {
		s.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	return nil
}

// printBlockerReport explains to the user why the sandbox cannot start and
// what to do about it. Diagnostics never run the target command.
func printBlockerReport(report *platform.BlockerReport) {
	fmt.Fprintf(os.Stderr, "error: cannot create sandbox: %s\n", report.Kind)
	if report.Output != "" {
		fmt.Fprintf(os.Stderr, "\n%s\n", report.Output)
	}
	fmt.Fprintf(os.Stderr, "\n%s\n", report.Kind.Remediation())
}

// logPlan emits the computed plan at debug level.
func logPlan(s *Settings, plan *platform.Plan) {
	log := s.logger()
	for _, m := range plan.Mounts() {
		log.Debug("mount", "mode", m.Mode, "source", m.Source, "dest", m.Dest, "required", m.Required)
	}
	log.Debug("plan", "backend", plan.Backend, "workdir", plan.WorkDir, "network", plan.NetworkEnabled)
}
