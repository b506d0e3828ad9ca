//go:build linux

package linux

import (
	"sort"

	"github.com/zhangyunhao116/agentjail/platform"
)

// BuildArgs renders a plan into bubblewrap arguments, excluding the bwrap
// binary itself. The output is deterministic: mounts appear in plan order and
// environment variables are sorted by key.
//
// Mount sources are not re-validated here; a source that vanished between
// discovery and execution is surfaced verbatim by bwrap.
func BuildArgs(plan *platform.Plan, command []string) []string {
	args := []string{
		// The child must not outlive the launcher's parent shell.
		"--die-with-parent",
		// New mount, PID, UTS and IPC namespaces. The network namespace is
		// deliberately shared: network access is an all-or-nothing toggle
		// and stays enabled for ordinary development use.
		"--unshare-pid",
		"--unshare-uts",
		"--unshare-ipc",
	}
	if !plan.NetworkEnabled {
		args = append(args, "--unshare-net")
	}

	// Pseudo-filesystems required by ordinary tools (ps, /dev/null, ptys).
	args = append(args, "--proc", "/proc", "--dev", "/dev")

	// Read-only binds first, read-write binds after, in plan order. A
	// read-write mount beneath an earlier read-only ancestor wins because it
	// is applied later.
	for _, m := range plan.ReadOnly {
		args = append(args, bindArgs(m, "--ro-bind")...)
	}
	for _, m := range plan.ReadWrite {
		args = append(args, bindArgs(m, "--bind")...)
	}

	if plan.WorkDir != "" {
		args = append(args, "--chdir", plan.WorkDir)
	}

	keys := make([]string, 0, len(plan.Env))
	for k := range plan.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--setenv", k, plan.Env[k])
	}

	args = append(args, "--")
	return append(args, command...)
}

// bindArgs renders one mount spec. For remapped specs the destination's
// parent hierarchy is created first; bwrap's --dir creates one component at a
// time and fails the bind if the parent does not exist in the sandbox view.
func bindArgs(m platform.MountSpec, bindFlag string) []string {
	dest := m.Dest
	if dest == "" {
		dest = m.Source
	}

	var args []string
	if dest != m.Source {
		hierarchy := platform.PathHierarchy(dest)
		if len(hierarchy) > 1 {
			for _, dir := range hierarchy[:len(hierarchy)-1] {
				args = append(args, "--dir", dir)
			}
		}
	}
	return append(args, bindFlag, m.Source, dest)
}
