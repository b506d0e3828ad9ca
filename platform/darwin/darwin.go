//go:build darwin

// Package darwin implements the MAC-policy sandbox backend using macOS
// sandbox-exec (Seatbelt). The plan is rendered into a parameterized SBPL
// profile; every filesystem path travels as a named -D parameter rather than
// being interpolated into the profile text.
package darwin

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/zhangyunhao116/agentjail/internal/envutil"
	"github.com/zhangyunhao116/agentjail/platform"
)

// SandboxExecPath is the path to the sandbox-exec binary. It is a var so
// tests can point it elsewhere.
var SandboxExecPath = "/usr/bin/sandbox-exec"

// Backend is the macOS Seatbelt backend.
type Backend struct{}

// New returns the macOS backend.
func New() *Backend {
	return &Backend{}
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return "darwin-seatbelt" }

// Available reports whether sandbox-exec is present. Seatbelt ships with the
// OS, so this only fails on unusual installations.
func (b *Backend) Available() bool {
	_, err := os.Stat(SandboxExecPath)
	return err == nil
}

// execveFn is overridden in tests to capture the final invocation.
var execveFn = unix.Exec

// Exec replaces the current process with sandbox-exec running command under
// the profile rendered from plan. On success it does not return.
func (b *Backend) Exec(plan *platform.Plan, command []string) (int, error) {
	if len(command) == 0 {
		return 1, errors.New("no command given")
	}
	if _, err := os.Stat(SandboxExecPath); err != nil {
		return 1, fmt.Errorf("sandbox-exec not found at %s: %w", SandboxExecPath, err)
	}

	profile, params := BuildProfile(plan)

	argv := []string{"sandbox-exec", "-p", profile}
	for _, p := range params {
		argv = append(argv, "-D", p)
	}
	argv = append(argv, "--")
	argv = append(argv, command...)

	// DYLD_* and LD_* can inject dynamic libraries into the sandboxed
	// process and are stripped before the replacement.
	env := envutil.RemovePrefix(os.Environ(), "DYLD_")
	env = envutil.RemovePrefix(env, "LD_")
	for k, v := range plan.Env {
		env = append(env, k+"="+v)
	}

	if plan.WorkDir != "" {
		// sandbox-exec has no --chdir; the working directory is inherited.
		if err := os.Chdir(plan.WorkDir); err != nil {
			return 1, fmt.Errorf("chdir %s: %w", plan.WorkDir, err)
		}
	}

	if err := execveFn(SandboxExecPath, argv, env); err != nil {
		return 1, fmt.Errorf("exec %s: %w", SandboxExecPath, err)
	}
	return 0, nil
}
