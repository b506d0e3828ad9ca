//go:build linux

package linux

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zhangyunhao116/agentjail/platform"
)

// fakeBwrap creates a stand-in bwrap binary and returns a backend using it.
func fakeBwrap(t *testing.T) *Backend {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bwrap")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return New(path)
}

// stubProbes installs sysctl/file/env probe results for one test. Paths
// absent from sysctls read as errors, mimicking kernels without the flag.
func stubProbes(t *testing.T, sysctls map[string]string, files map[string]bool, env map[string]string) {
	t.Helper()
	origSysctl, origExists, origEnv := readSysctlFn, fileExistsFn, lookupEnvFn
	readSysctlFn = func(path string) (string, error) {
		if v, ok := sysctls[path]; ok {
			return v, nil
		}
		return "", os.ErrNotExist
	}
	fileExistsFn = func(path string) bool { return files[path] }
	lookupEnvFn = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	t.Cleanup(func() {
		readSysctlFn, fileExistsFn, lookupEnvFn = origSysctl, origExists, origEnv
	})
}

// stubSelfTest forces the self-test outcome and counts invocations.
func stubSelfTest(t *testing.T, ok bool, output string) *int {
	t.Helper()
	orig := selfTestFn
	calls := new(int)
	selfTestFn = func(string) (string, bool) {
		*calls++
		return output, ok
	}
	t.Cleanup(func() { selfTestFn = orig })
	return calls
}

func TestDiagnoseSelfTestPasses(t *testing.T) {
	b := fakeBwrap(t)
	stubSelfTest(t, true, "")

	report := b.Diagnose()
	if report.Kind != platform.BlockerNone {
		t.Errorf("Kind = %v, want none", report.Kind)
	}
	if !report.OK() {
		t.Error("report should be OK")
	}
}

func TestDiagnoseKernelUserNSDisabled(t *testing.T) {
	b := fakeBwrap(t)
	stubSelfTest(t, false, "bwrap: setting up uid map: Permission denied")
	stubProbes(t, map[string]string{
		"/proc/sys/kernel/unprivileged_userns_clone": "0",
	}, nil, nil)

	report := b.Diagnose()
	if report.Kind != platform.BlockerUserNSDisabled {
		t.Errorf("Kind = %v, want kernel-userns-disabled", report.Kind)
	}
	if report.Kind.Remediation() == "" {
		t.Error("missing remediation text")
	}
}

func TestDiagnoseMaxUserNamespacesZero(t *testing.T) {
	b := fakeBwrap(t)
	stubSelfTest(t, false, "clone: Operation not permitted")
	stubProbes(t, map[string]string{
		"/proc/sys/user/max_user_namespaces": "0",
	}, nil, nil)

	if got := b.Diagnose().Kind; got != platform.BlockerUserNSDisabled {
		t.Errorf("Kind = %v, want kernel-userns-disabled", got)
	}
}

func TestDiagnoseAppArmorWinsOverUserNS(t *testing.T) {
	b := fakeBwrap(t)
	stubSelfTest(t, false, "bwrap: Permission denied")
	// Both flags set: the AppArmor probe is ordered first and must win.
	stubProbes(t, map[string]string{
		"/proc/sys/kernel/apparmor_restrict_unprivileged_userns": "1",
		"/proc/sys/kernel/unprivileged_userns_clone":             "0",
	}, nil, nil)

	if got := b.Diagnose().Kind; got != platform.BlockerAppArmorUserNS {
		t.Errorf("Kind = %v, want apparmor-userns", got)
	}
}

func TestDiagnoseSELinuxEnforcing(t *testing.T) {
	b := fakeBwrap(t)
	stubSelfTest(t, false, "bwrap: Permission denied")
	stubProbes(t, map[string]string{
		"/sys/fs/selinux/enforce": "1",
	}, nil, nil)

	if got := b.Diagnose().Kind; got != platform.BlockerSELinuxEnforcing {
		t.Errorf("Kind = %v, want selinux-enforcing", got)
	}
}

func TestDiagnoseNestedContainer(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]bool
		env   map[string]string
		cgrp  string
	}{
		{name: "dockerenv", files: map[string]bool{"/.dockerenv": true}},
		{name: "containerenv", files: map[string]bool{"/run/.containerenv": true}},
		{name: "env", env: map[string]string{"container": "podman"}},
		{name: "cgroup", cgrp: "0::/kubepods/besteffort/pod1234"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := fakeBwrap(t)
			stubSelfTest(t, false, "clone: Operation not permitted")
			sysctls := map[string]string{}
			if tt.cgrp != "" {
				sysctls["/proc/1/cgroup"] = tt.cgrp
			}
			stubProbes(t, sysctls, tt.files, tt.env)

			if got := b.Diagnose().Kind; got != platform.BlockerNestedContainer {
				t.Errorf("Kind = %v, want nested-container", got)
			}
		})
	}
}

func TestDiagnoseUnknownKeepsOutput(t *testing.T) {
	b := fakeBwrap(t)
	const raw = "bwrap: something very strange"
	stubSelfTest(t, false, raw)
	stubProbes(t, nil, nil, nil)

	report := b.Diagnose()
	if report.Kind != platform.BlockerUnknown {
		t.Errorf("Kind = %v, want unknown", report.Kind)
	}
	if report.Output != raw {
		t.Errorf("Output = %q, want raw self-test output", report.Output)
	}
}

func TestDiagnoseMissingBinaryIsNotABlocker(t *testing.T) {
	b := New(filepath.Join(t.TempDir(), "no-such-bwrap"))
	calls := stubSelfTest(t, false, "should not run")

	report := b.Diagnose()
	if report.Kind != platform.BlockerNone {
		t.Errorf("Kind = %v, want none (missing binary is an environment error)", report.Kind)
	}
	if *calls != 0 {
		t.Errorf("self-test ran %d times without a binary", *calls)
	}
}
