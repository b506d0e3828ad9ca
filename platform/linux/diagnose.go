//go:build linux

package linux

import (
	"os"
	"os/exec"
	"strings"

	"github.com/zhangyunhao116/agentjail/platform"
)

// Probe seams, overridden in tests to simulate host configurations.
var (
	// selfTestFn runs a minimal bwrap invocation and returns its combined
	// output on failure.
	selfTestFn = runSelfTest

	// readSysctlFn reads a procfs/sysfs flag file.
	readSysctlFn = func(path string) (string, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	}

	// fileExistsFn reports whether a path exists.
	fileExistsFn = func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	}

	// lookupEnvFn looks up an environment variable.
	lookupEnvFn = os.LookupEnv
)

// Diagnose runs one cheap self-test of the isolation primitive and, on
// failure, classifies the blocker by probing host configuration in a fixed
// order. The first matching probe wins; if none match, the raw self-test
// output is preserved in the report.
//
// Diagnose never retries and is run at most once per invocation, before plan
// assembly.
func (b *Backend) Diagnose() *platform.BlockerReport {
	bwrap, err := b.bwrapPath()
	if err != nil {
		// Missing binary is an environment error handled by the launcher,
		// not a policy blocker.
		return &platform.BlockerReport{Kind: platform.BlockerNone}
	}

	output, ok := selfTestFn(bwrap)
	if ok {
		return &platform.BlockerReport{Kind: platform.BlockerNone}
	}

	return &platform.BlockerReport{
		Kind:   classifyBlocker(),
		Output: output,
	}
}

// runSelfTest attempts the smallest possible sandbox: the whole root bound
// read-only, running true. It exercises exactly the namespace setup the real
// launch needs.
func runSelfTest(bwrap string) (output string, ok bool) {
	cmd := exec.Command(bwrap, "--ro-bind", "/", "/", "--", "true")
	out, err := cmd.CombinedOutput()
	return string(out), err == nil
}

// classifyBlocker probes known blocker conditions in priority order.
func classifyBlocker() platform.BlockerKind {
	// AppArmor's userns restriction produces the same clone failure as a
	// disabled kernel flag, so it is checked first: it is the common case on
	// recent Ubuntu and has a distinct remediation.
	if v, err := readSysctlFn("/proc/sys/kernel/apparmor_restrict_unprivileged_userns"); err == nil && v == "1" {
		return platform.BlockerAppArmorUserNS
	}

	if v, err := readSysctlFn("/proc/sys/kernel/unprivileged_userns_clone"); err == nil && v == "0" {
		return platform.BlockerUserNSDisabled
	}
	if v, err := readSysctlFn("/proc/sys/user/max_user_namespaces"); err == nil && v == "0" {
		return platform.BlockerUserNSDisabled
	}

	if v, err := readSysctlFn("/sys/fs/selinux/enforce"); err == nil && v == "1" {
		return platform.BlockerSELinuxEnforcing
	}

	if inContainer() {
		return platform.BlockerNestedContainer
	}

	return platform.BlockerUnknown
}

// inContainer looks for evidence of a nested container runtime.
func inContainer() bool {
	if fileExistsFn("/.dockerenv") || fileExistsFn("/run/.containerenv") {
		return true
	}
	if v, ok := lookupEnvFn("container"); ok && v != "" {
		return true
	}
	if data, err := readSysctlFn("/proc/1/cgroup"); err == nil {
		if strings.Contains(data, "docker") || strings.Contains(data, "lxc") || strings.Contains(data, "kubepods") {
			return true
		}
	}
	return false
}
