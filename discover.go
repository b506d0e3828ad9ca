package agentjail

import (
	"os"
	"path/filepath"

	"github.com/zhangyunhao116/agentjail/internal/pathutil"
	"github.com/zhangyunhao116/agentjail/platform"
)

// supportedAgents are the coding agents whose state directories are exposed
// read-write. Their configuration, cache, and data directories are created
// if missing: an agent writing its state for the first time must not fail on
// a read-only parent.
var supportedAgents = []string{"claude", "codex", "gemini", "aider"}

// packageStoreRoot is the install root of the system package manager, when
// present (Nix). It is exposed wholesale read-only, and PATH entries beneath
// it are skipped as redundant.
const packageStoreRoot = "/nix"

// trustRootPaths are CA bundles and name-resolution files, exposed read-only
// on a best-effort basis.
var trustRootPaths = []string{
	"/etc/ssl",
	"/etc/ca-certificates",
	"/etc/pki",
	"/etc/hosts",
	"/etc/resolv.conf",
	"/etc/nsswitch.conf",
}

// linkerPaths are the dynamic-linker search directories and configuration,
// exposed read-only on a best-effort basis.
var linkerPaths = []string{
	"/lib",
	"/lib32",
	"/lib64",
	"/usr/lib",
	"/usr/lib64",
	"/usr/local/lib",
	"/etc/ld.so.cache",
	"/etc/ld.so.conf",
	"/etc/ld.so.conf.d",
}

// toolCaches are language package-manager and build caches, relative to the
// home directory. They are exposed read-write but never created: a cache the
// user's tools don't manage must not be conjured onto the host.
var toolCaches = []string{
	".npm",
	".cache/pip",
	".cache/uv",
	".cache/pnpm",
	".cache/yarn",
	".cache/go-build",
	"go/pkg/mod",
	".cargo/registry",
	".cargo/git",
	".gradle/caches",
	".m2/repository",
}

// BuildPlan derives the complete sandbox plan for one launch: every
// AddMount call needed for a working agent session, in a fixed policy order.
// Discovery never creates paths except the per-agent state directories.
// ws may be nil, in which case no generated SSH configuration is exposed.
func BuildPlan(s *Settings, backend string, ws *workspace) (*platform.Plan, error) {
	plan := platform.NewPlan(backend, s.WorkDir)

	// Project root first: the broadest read-write exposure, so narrower
	// requests beneath it dedupe away.
	plan.AddMount(platform.MountSpec{Source: s.WorkDir, Mode: platform.ModeReadWrite, Required: true})

	addRepoMounts(plan, s.WorkDir)
	addGitConfigMounts(plan, s.Home)
	addAgentStateMounts(plan, s)
	if err := addCredentialMounts(plan, s, ws); err != nil {
		return nil, err
	}

	for _, p := range trustRootPaths {
		plan.AddMount(platform.ReadOnly(p))
	}

	plan.AddMount(platform.ReadOnly(packageStoreRoot))
	addSearchPathMounts(plan, s)

	for _, p := range linkerPaths {
		plan.AddMount(platform.ReadOnly(p))
	}

	for _, cache := range toolCaches {
		plan.AddMount(platform.ReadWrite(filepath.Join(s.Home, cache)))
	}

	addExtraMounts(plan, s)

	return plan, nil
}

// addAgentStateMounts exposes per-agent configuration, cache, and data
// directories read-write, creating them if missing.
func addAgentStateMounts(plan *platform.Plan, s *Settings) {
	var dirs []string
	for _, agent := range supportedAgents {
		dirs = append(dirs,
			filepath.Join(s.Home, "."+agent),
			filepath.Join(s.Home, ".config", agent),
			filepath.Join(s.Home, ".cache", agent),
			filepath.Join(s.Home, ".local", "share", agent),
		)
	}
	for _, d := range s.StateDirs {
		dirs = append(dirs, pathutil.ExpandTilde(d, s.Home))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			s.logger().Debug("skipping agent state dir", "dir", dir, "err", err)
			continue
		}
		plan.AddMount(platform.MountSpec{Source: dir, Mode: platform.ModeReadWrite, Required: true})
	}
}

// addCredentialMounts exposes agent-scoped key material read-only. The
// user's default private keys stay invisible unless the unsafe override is
// engaged, which prints a warning because it weakens the isolation boundary.
func addCredentialMounts(plan *platform.Plan, s *Settings, ws *workspace) error {
	sshDir := filepath.Join(s.Home, ".ssh")

	if s.UnsafeHome {
		warn(s, EnvUnsafeHome+" set: exposing the entire home directory read-write")
		plan.AddMount(platform.MountSpec{Source: s.Home, Mode: platform.ModeReadWrite, Required: true})
	}

	if s.UnsafeSSH {
		warn(s, EnvUnsafeSSH+" set: exposing the full personal SSH directory read-only")
		plan.AddMount(platform.ReadOnly(sshDir))
	}

	keys, _ := filepath.Glob(filepath.Join(sshDir, "agentjail_*"))
	for _, key := range keys {
		plan.AddMount(platform.ReadOnly(pathutil.Resolve(key)))
	}
	plan.AddMount(platform.ReadOnly(filepath.Join(sshDir, "known_hosts")))

	if ws == nil || len(keys) == 0 {
		return nil
	}

	cfgPath, err := ws.writeSSHConfig(keys)
	if err != nil {
		return err
	}
	if plan.Backend == "linux-namespace" {
		// Remap the generated configuration over the personal one; the bind
		// target's parents are created inside the sandbox view by the
		// backend.
		plan.AddMount(platform.MountSpec{
			Source:   cfgPath,
			Dest:     filepath.Join(sshDir, "config"),
			Mode:     platform.ModeReadOnly,
			Required: true,
		})
	} else {
		// Seatbelt cannot remap paths; expose the file where it is and
		// point SSH at it instead.
		plan.AddMount(platform.MountSpec{Source: cfgPath, Mode: platform.ModeReadOnly, Required: true})
		plan.Env["GIT_SSH_COMMAND"] = "ssh -F " + cfgPath
	}
	return nil
}

// addSearchPathMounts exposes every directory on the executable search path
// read-only, except entries under the package store root (covered wholesale)
// and under the home directory (handled by the narrower explicit rules).
func addSearchPathMounts(plan *platform.Plan, s *Settings) {
	for _, dir := range s.path() {
		if !filepath.IsAbs(dir) {
			continue
		}
		if pathutil.Under(packageStoreRoot, dir) || pathutil.Under(s.Home, dir) {
			continue
		}
		plan.AddMount(platform.ReadOnly(dir))
	}
}

// addExtraMounts applies the user-supplied extra paths in order, with their
// explicit intent. Absent paths are skipped silently.
func addExtraMounts(plan *platform.Plan, s *Settings) {
	for _, p := range s.ExtraReadOnly {
		plan.AddMount(platform.ReadOnly(pathutil.ExpandTilde(p, s.Home)))
	}
	for _, p := range s.ExtraReadWrite {
		plan.AddMount(platform.ReadWrite(pathutil.ExpandTilde(p, s.Home)))
	}
}

// warn prints an isolation-weakening notice to standard error and mirrors it
// to the structured logger.
func warn(s *Settings, msg string) {
	os.Stderr.WriteString("warning: " + msg + "\n")
	s.logger().Warn(msg)
}
