//go:build linux

// Package linux implements the namespace-based sandbox backend using
// bubblewrap (bwrap). The backend renders a platform.Plan into a bwrap
// argument vector and replaces the launcher process with the bwrap
// invocation, so the target command's exit status and signal behavior pass
// through unchanged.
package linux

import (
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"

	"github.com/zhangyunhao116/agentjail/platform"
)

// Backend is the Linux namespace backend.
type Backend struct {
	// bwrapOverride is an explicit path to the bwrap binary, taking
	// precedence over PATH lookup. Set from AGENTJAIL_BWRAP.
	bwrapOverride string
}

// New returns the Linux backend. bwrapOverride may be empty, in which case
// the bwrap binary is resolved from PATH.
func New(bwrapOverride string) *Backend {
	return &Backend{bwrapOverride: bwrapOverride}
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return "linux-namespace" }

// Available reports whether the bwrap binary can be located.
func (b *Backend) Available() bool {
	_, err := b.bwrapPath()
	return err == nil
}

// bwrapPath resolves the bubblewrap binary.
func (b *Backend) bwrapPath() (string, error) {
	if b.bwrapOverride != "" {
		if _, err := os.Stat(b.bwrapOverride); err != nil {
			return "", fmt.Errorf("bwrap override %s: %w", b.bwrapOverride, err)
		}
		return b.bwrapOverride, nil
	}
	path, err := exec.LookPath("bwrap")
	if err != nil {
		return "", fmt.Errorf("bwrap not found on PATH: %w", err)
	}
	return path, nil
}

// execveFn is overridden in tests to capture the final invocation instead of
// replacing the test process.
var execveFn = unix.Exec

// Exec replaces the current process with bwrap running command inside the
// sandbox described by plan. On success it does not return; any returned
// error means the replacement itself failed (e.g. a bind source vanished
// between discovery and execution is reported by bwrap, not here).
func (b *Backend) Exec(plan *platform.Plan, command []string) (int, error) {
	bwrap, err := b.bwrapPath()
	if err != nil {
		return 1, err
	}

	argv := append([]string{bwrap}, BuildArgs(plan, command)...)
	env := environWith(plan.Env)

	if err := execveFn(bwrap, argv, env); err != nil {
		return 1, fmt.Errorf("exec %s: %w", bwrap, err)
	}
	return 0, nil
}

// environWith returns the current environment extended with extra variables.
// bwrap passes its environment through to the sandboxed process; plan-level
// variables are also set explicitly via --setenv so they survive --clearenv
// setups, but exporting them here keeps bwrap's own expansion consistent.
func environWith(extra map[string]string) []string {
	env := os.Environ()
	for k, v := range extra {
		env = append(env, k+"="+v)
	}
	return env
}
