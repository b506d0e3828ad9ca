package agentjail

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zhangyunhao116/agentjail/platform"
)

// planSources collects the sources of a mount list into a set.
func planSources(specs []platform.MountSpec) map[string]bool {
	out := make(map[string]bool)
	for _, m := range specs {
		out[m.Source] = true
	}
	return out
}

func findMount(specs []platform.MountSpec, source string) (platform.MountSpec, bool) {
	for _, m := range specs {
		if m.Source == source {
			return m, true
		}
	}
	return platform.MountSpec{}, false
}

func TestBuildPlanProjectRootFirst(t *testing.T) {
	s := testSettings(t)

	plan, err := BuildPlan(s, "test", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.ReadWrite) == 0 {
		t.Fatal("no read-write mounts")
	}
	first := plan.ReadWrite[0]
	if first.Source != s.WorkDir || !first.Required {
		t.Errorf("first mount = %+v, want required read-write project root %s", first, s.WorkDir)
	}
}

func TestBuildPlanCreatesAgentStateDirs(t *testing.T) {
	s := testSettings(t)

	plan, err := BuildPlan(s, "test", nil)
	if err != nil {
		t.Fatal(err)
	}

	rw := planSources(plan.ReadWrite)
	for _, dir := range []string{
		filepath.Join(s.Home, ".claude"),
		filepath.Join(s.Home, ".config", "codex"),
		filepath.Join(s.Home, ".cache", "gemini"),
		filepath.Join(s.Home, ".local", "share", "aider"),
	} {
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			t.Errorf("agent state dir %s was not created: %v", dir, err)
		}
		if !rw[dir] {
			t.Errorf("agent state dir %s not mounted read-write", dir)
		}
	}
}

func TestBuildPlanToolCachesNotCreated(t *testing.T) {
	s := testSettings(t)
	existing := filepath.Join(s.Home, ".npm")
	if err := os.MkdirAll(existing, 0o755); err != nil {
		t.Fatal(err)
	}

	plan, err := BuildPlan(s, "test", nil)
	if err != nil {
		t.Fatal(err)
	}

	rw := planSources(plan.ReadWrite)
	if !rw[existing] {
		t.Errorf("existing cache %s not mounted", existing)
	}
	absent := filepath.Join(s.Home, ".cache", "pip")
	if rw[absent] {
		t.Errorf("absent cache %s must not be mounted", absent)
	}
	if _, err := os.Stat(absent); err == nil {
		t.Errorf("absent cache %s must not be created", absent)
	}
}

func TestBuildPlanSearchPathExclusions(t *testing.T) {
	s := testSettings(t)
	homeBin := filepath.Join(s.Home, "bin")
	if err := os.MkdirAll(homeBin, 0o755); err != nil {
		t.Fatal(err)
	}
	s.environ = []string{"PATH=/usr/bin:" + homeBin + ":/nix/store/abc-tool/bin:relative/bin"}

	plan, err := BuildPlan(s, "test", nil)
	if err != nil {
		t.Fatal(err)
	}

	ro := planSources(plan.ReadOnly)
	if !ro["/usr/bin"] {
		t.Error("/usr/bin missing from read-only mounts")
	}
	if ro[homeBin] {
		t.Errorf("%s under home must not be mounted via PATH", homeBin)
	}
	if ro["/nix/store/abc-tool/bin"] {
		t.Error("store paths must be covered by the store root, not individual PATH entries")
	}
}

func TestBuildPlanExtraPathsTildeExpanded(t *testing.T) {
	s := testSettings(t)
	data := filepath.Join(s.Home, "data")
	scratch := filepath.Join(s.Home, "scratch")
	for _, d := range []string{data, scratch} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	s.ExtraReadOnly = []string{"~/data"}
	s.ExtraReadWrite = []string{"~/scratch"}

	plan, err := BuildPlan(s, "test", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !planSources(plan.ReadOnly)[data] {
		t.Errorf("%s missing from read-only mounts", data)
	}
	if !planSources(plan.ReadWrite)[scratch] {
		t.Errorf("%s missing from read-write mounts", scratch)
	}
}

func TestBuildPlanExtraPathUnderProjectRootDeduped(t *testing.T) {
	s := testSettings(t)
	sub := filepath.Join(s.WorkDir, "vendor")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	s.ExtraReadWrite = []string{sub}

	plan, err := BuildPlan(s, "test", nil)
	if err != nil {
		t.Fatal(err)
	}
	if planSources(plan.ReadWrite)[sub] {
		t.Errorf("%s is covered by the project root and must not be re-mounted", sub)
	}
}

func TestBuildPlanUnsafeSSH(t *testing.T) {
	s := testSettings(t)
	sshDir := filepath.Join(s.Home, ".ssh")
	if err := os.MkdirAll(sshDir, 0o700); err != nil {
		t.Fatal(err)
	}
	s.UnsafeSSH = true

	plan, err := BuildPlan(s, "test", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !planSources(plan.ReadOnly)[sshDir] {
		t.Errorf("unsafe-ssh should expose %s read-only", sshDir)
	}
}

func TestBuildPlanAgentKeysRemapLinux(t *testing.T) {
	s := testSettings(t)
	sshDir := filepath.Join(s.Home, ".ssh")
	if err := os.MkdirAll(sshDir, 0o700); err != nil {
		t.Fatal(err)
	}
	key := filepath.Join(sshDir, "agentjail_ed25519")
	if err := os.WriteFile(key, []byte("key"), 0o600); err != nil {
		t.Fatal(err)
	}
	ws := &workspace{dir: t.TempDir()}

	plan, err := BuildPlan(s, "linux-namespace", ws)
	if err != nil {
		t.Fatal(err)
	}

	if !planSources(plan.ReadOnly)[key] {
		t.Errorf("agent key %s not mounted", key)
	}

	cfgDest := filepath.Join(sshDir, "config")
	var remap platform.MountSpec
	found := false
	for _, m := range plan.ReadOnly {
		if m.Dest == cfgDest {
			remap, found = m, true
		}
	}
	if !found {
		t.Fatalf("generated SSH config not remapped over %s", cfgDest)
	}
	if !remap.Required || remap.Source == cfgDest {
		t.Errorf("remap spec = %+v, want required bind of generated file", remap)
	}
	if _, err := os.Stat(remap.Source); err != nil {
		t.Errorf("generated config %s unreadable: %v", remap.Source, err)
	}
	if _, ok := plan.Env["GIT_SSH_COMMAND"]; ok {
		t.Error("GIT_SSH_COMMAND must not be set when the config is remapped")
	}
}

func TestBuildPlanAgentKeysEnvFallback(t *testing.T) {
	s := testSettings(t)
	sshDir := filepath.Join(s.Home, ".ssh")
	if err := os.MkdirAll(sshDir, 0o700); err != nil {
		t.Fatal(err)
	}
	key := filepath.Join(sshDir, "agentjail_rsa")
	if err := os.WriteFile(key, []byte("key"), 0o600); err != nil {
		t.Fatal(err)
	}
	ws := &workspace{dir: t.TempDir()}

	plan, err := BuildPlan(s, "darwin-seatbelt", ws)
	if err != nil {
		t.Fatal(err)
	}

	cmd, ok := plan.Env["GIT_SSH_COMMAND"]
	if !ok {
		t.Fatal("GIT_SSH_COMMAND not set for a backend without path remapping")
	}
	cfg, found := findMount(plan.ReadOnly, filepath.Join(ws.dir, "ssh_config"))
	if !found {
		t.Fatal("generated SSH config not mounted at its real path")
	}
	if cfg.Dest != "" && cfg.Dest != cfg.Source {
		t.Errorf("config mount must be an identity mount, got %+v", cfg)
	}
	if want := "ssh -F " + cfg.Source; cmd != want {
		t.Errorf("GIT_SSH_COMMAND = %q, want %q", cmd, want)
	}
}

func TestBuildPlanNoKeysNoSSHConfig(t *testing.T) {
	s := testSettings(t)
	ws := &workspace{dir: t.TempDir()}

	plan, err := BuildPlan(s, "linux-namespace", ws)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(ws.dir, "ssh_config")); err == nil {
		t.Error("no SSH config should be generated without agent keys")
	}
	if _, ok := plan.Env["GIT_SSH_COMMAND"]; ok {
		t.Error("GIT_SSH_COMMAND must not be set without agent keys")
	}
}

func TestBuildPlanUnsafeHome(t *testing.T) {
	s := testSettings(t)
	s.UnsafeHome = true

	plan, err := BuildPlan(s, "test", nil)
	if err != nil {
		t.Fatal(err)
	}
	m, found := findMount(plan.ReadWrite, s.Home)
	if !found || !m.Required {
		t.Errorf("unsafe-home should mount %s read-write, got %v", s.Home, plan.ReadWrite)
	}
}
