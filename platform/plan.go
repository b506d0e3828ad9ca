package platform

import (
	"os"
	"path/filepath"
	"strings"
)

// MountMode is the access mode of a filesystem exposure.
type MountMode int

const (
	// ModeReadOnly exposes the path without write access.
	ModeReadOnly MountMode = iota

	// ModeReadWrite exposes the path with full access.
	ModeReadWrite
)

// String returns the string representation of a MountMode.
func (m MountMode) String() string {
	switch m {
	case ModeReadOnly:
		return "ro"
	case ModeReadWrite:
		return "rw"
	default:
		return "unknown"
	}
}

// MountSpec describes one filesystem exposure inside the sandbox.
type MountSpec struct {
	// Source is the host path to expose.
	Source string

	// Dest is the path inside the sandbox. Empty means same as Source.
	Dest string

	// Mode is the access mode of the exposure.
	Mode MountMode

	// Required controls missing-source handling: a required spec whose
	// source has vanished is surfaced as an error by the backend, while an
	// optional spec with a missing source is silently dropped at plan-build
	// time.
	Required bool
}

// ReadOnly returns an optional read-only spec for path.
func ReadOnly(path string) MountSpec {
	return MountSpec{Source: path, Mode: ModeReadOnly}
}

// ReadWrite returns an optional read-write spec for path.
func ReadWrite(path string) MountSpec {
	return MountSpec{Source: path, Mode: ModeReadWrite}
}

// destination returns the effective in-sandbox path of the spec.
func (s MountSpec) destination() string {
	if s.Dest == "" {
		return s.Source
	}
	return s.Dest
}

// remapped reports whether the spec binds the source at a different path.
func (s MountSpec) remapped() bool {
	return s.Dest != "" && s.Dest != s.Source
}

// Plan is the complete launch configuration for one sandboxed invocation.
// It is owned by the launcher for the lifetime of a single call and is never
// cached or shared.
type Plan struct {
	// Backend is the name of the backend the plan was built for.
	Backend string

	// ReadOnly and ReadWrite hold the mount specs in insertion order.
	// Backends apply all read-only binds before the read-write binds, so a
	// read-write exposure always wins over an earlier read-only ancestor.
	ReadOnly  []MountSpec
	ReadWrite []MountSpec

	// WorkDir is the working directory of the sandboxed process.
	WorkDir string

	// NetworkEnabled toggles network access as a whole. There is no
	// finer-grained network policy.
	NetworkEnabled bool

	// Env holds additional environment variables set inside the sandbox.
	Env map[string]string
}

// NewPlan returns an empty plan for the given backend and working directory.
// Network access is enabled by default; the agent needs it to fetch
// dependencies and push branches.
func NewPlan(backend, workDir string) *Plan {
	return &Plan{
		Backend:        backend,
		WorkDir:        workDir,
		NetworkEnabled: true,
		Env:            make(map[string]string),
	}
}

// statSource is overridden in tests to control source existence checks.
var statSource = os.Stat

// AddMount inserts spec into the plan unless an existing entry already covers
// it with equal-or-stronger access. A read-write mount of an ancestor
// directory covers any request beneath it; a read-only ancestor covers only
// read-only requests. Identical entries are a no-op. Optional specs whose
// source does not exist are dropped silently.
//
// A read-write spec supersedes any read-only entry for the same or a
// descendant path, which is dropped so no destination carries two bindings
// with conflicting modes. Surviving entries keep their insertion order, so
// the rendered backend arguments stay deterministic.
//
// It reports whether the spec was added.
func (p *Plan) AddMount(spec MountSpec) bool {
	if spec.Source == "" {
		return false
	}
	spec.Source = filepath.Clean(spec.Source)
	if spec.Dest != "" {
		spec.Dest = filepath.Clean(spec.Dest)
	}

	if !spec.Required {
		if _, err := statSource(spec.Source); err != nil {
			return false
		}
	}

	// A read-only request is covered by read-write entries too; a
	// read-write request only by other read-write entries.
	if p.covered(spec, p.ReadWrite) {
		return false
	}
	if spec.Mode == ModeReadOnly {
		if p.covered(spec, p.ReadOnly) {
			return false
		}
		p.ReadOnly = append(p.ReadOnly, spec)
		return true
	}
	p.pruneSuperseded(spec)
	p.ReadWrite = append(p.ReadWrite, spec)
	return true
}

// pruneSuperseded drops read-only entries that the incoming read-write spec
// now covers, so the plan never carries two conflicting bindings for the
// same destination. Remapped entries expose different content and are only
// dropped on an exact match.
func (p *Plan) pruneSuperseded(spec MountSpec) {
	kept := p.ReadOnly[:0]
	for _, existing := range p.ReadOnly {
		if existing.Source == spec.Source && existing.destination() == spec.destination() {
			continue
		}
		if !existing.remapped() && !spec.remapped() && isPathPrefix(spec.Source, existing.Source) {
			continue
		}
		kept = append(kept, existing)
	}
	p.ReadOnly = kept
}

// covered reports whether an entry in list already provides spec's exposure.
// Ancestor coverage only applies to identity mounts (source == destination);
// remapped entries are compared exactly.
func (p *Plan) covered(spec MountSpec, list []MountSpec) bool {
	for _, existing := range list {
		if existing.Source == spec.Source && existing.destination() == spec.destination() {
			return true
		}
		if existing.remapped() || spec.remapped() {
			continue
		}
		if isPathPrefix(existing.Source, spec.Source) {
			return true
		}
	}
	return false
}

// Mounts returns all specs in application order: read-only first, then
// read-write.
func (p *Plan) Mounts() []MountSpec {
	out := make([]MountSpec, 0, len(p.ReadOnly)+len(p.ReadWrite))
	out = append(out, p.ReadOnly...)
	out = append(out, p.ReadWrite...)
	return out
}

// isPathPrefix reports whether path equals ancestor or lies beneath it.
func isPathPrefix(ancestor, path string) bool {
	if ancestor == path {
		return true
	}
	if ancestor == "/" {
		return strings.HasPrefix(path, "/")
	}
	return strings.HasPrefix(path, ancestor+string(filepath.Separator))
}

// PathHierarchy returns every directory from the root down to path itself,
// e.g. "/home/user/.ssh" yields ["/home", "/home/user", "/home/user/.ssh"].
// Backends use it to create the parent structure of remapped destinations,
// since bwrap's --dir creates a single component at a time.
func PathHierarchy(path string) []string {
	path = filepath.Clean(path)
	if path == "/" || path == "." {
		return nil
	}

	var components []string
	for current := path; current != "/" && current != "."; current = filepath.Dir(current) {
		components = append(components, current)
	}

	// Reverse to root-to-leaf order.
	out := make([]string, 0, len(components))
	for i := len(components) - 1; i >= 0; i-- {
		out = append(out, components[i])
	}
	return out
}
