package agentjail

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// workspace is the temporary directory holding files the launcher generates
// for one invocation, currently the agent-scoped SSH configuration. It is
// owned exclusively by the launcher and removed on every exit path that
// returns to the launcher; the success path replaces the process image, so
// the directory is intentionally left to OS temp reaping there (there is no
// launcher left to run cleanup, and the sandboxed process may still be
// reading the files).
type workspace struct {
	dir string
}

// newWorkspace creates the per-invocation scratch directory.
func newWorkspace() (*workspace, error) {
	dir, err := os.MkdirTemp("", "agentjail-")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &workspace{dir: dir}, nil
}

// writeSSHConfig generates an SSH client configuration restricted to the
// given agent key files and returns its path. The file is later remapped
// over ~/.ssh/config inside the sandbox (Linux) or selected via
// GIT_SSH_COMMAND (macOS), so the agent authenticates with its own identity
// and never sees the user's personal keys.
func (w *workspace) writeSSHConfig(keyFiles []string) (string, error) {
	var b strings.Builder
	b.WriteString("# Generated by agentjail; restricts SSH to agent-scoped identities.\n")
	b.WriteString("Host *\n")
	b.WriteString("\tIdentitiesOnly yes\n")
	for _, key := range keyFiles {
		fmt.Fprintf(&b, "\tIdentityFile %s\n", key)
	}

	path := filepath.Join(w.dir, "ssh_config")
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return "", fmt.Errorf("write ssh config: %w", err)
	}
	return path, nil
}

// Remove deletes the workspace. Safe to call on a nil workspace and more
// than once.
func (w *workspace) Remove() {
	if w == nil || w.dir == "" {
		return
	}
	os.RemoveAll(w.dir)
	w.dir = ""
}
