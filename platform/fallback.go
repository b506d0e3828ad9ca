package platform

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// fallbackName is the name reported by the no-isolation fallback backend.
const fallbackName = "none"

// fallback executes the target command directly, without any isolation. It is
// used on operating systems that have no supported isolation primitive, and
// when sandboxing is explicitly disabled.
type fallback struct{}

// NewFallback returns the backend used when no isolation is applied.
func NewFallback() Backend {
	return &fallback{}
}

func (f *fallback) Name() string { return fallbackName }

func (f *fallback) Available() bool { return true }

// Exec runs command with inherited stdio and returns its exit code. Unlike
// the real backends it cannot replace the process image, so it supervises the
// child and mirrors its exit status.
func (f *fallback) Exec(plan *Plan, command []string) (int, error) {
	if len(command) == 0 {
		return 1, errors.New("no command given")
	}

	fmt.Fprintln(os.Stderr, "warning: no sandbox backend for this platform, running without isolation")

	cmd := exec.Command(command[0], command[1:]...)
	cmd.Dir = plan.WorkDir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	for k, v := range plan.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return 1, err
	}
	return 0, nil
}
