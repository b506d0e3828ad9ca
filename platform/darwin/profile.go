//go:build darwin

package darwin

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zhangyunhao116/agentjail/platform"
)

// profileBuilder constructs a parameterized SBPL (Sandbox Profile Language)
// profile from a plan. SBPL uses Scheme-like S-expression syntax; paths are
// referenced as (param "NAME") and supplied separately via -D arguments, so
// no filesystem path is ever spliced into the profile text.
type profileBuilder struct {
	buf    strings.Builder
	params []string
}

// BuildProfile renders plan into an SBPL profile plus its matching
// "NAME=value" parameter list. Paths are canonicalized first: TMPDIR and the
// /tmp, /var symlink roots must be resolved to their /private form or the
// policy will not match access attempts.
func BuildProfile(plan *platform.Plan) (profile string, params []string) {
	b := &profileBuilder{}

	b.writeBase()
	b.writeFileRules(plan)
	b.writeNetwork(plan)
	b.writePTY()

	return b.buf.String(), b.params
}

// writeBase emits the profile header and baseline process permissions needed
// by ordinary development tools.
func (b *profileBuilder) writeBase() {
	b.line("(version 1)")
	b.line("(deny default)")
	b.blank()
	b.comment("Basic process operations")
	b.line("(allow process-fork)")
	b.line("(allow process-exec)")
	b.line("(allow signal (target self))")
	b.line("(allow process-info* (target same-sandbox))")
	b.line("(allow sysctl-read)")
	b.line("(allow ipc-posix-shm)")
	b.line("(allow ipc-posix-sem)")
	b.comment("Mach IPC for essential system services")
	b.line("(allow mach-lookup")
	b.line(`  (global-name "com.apple.logd")`)
	b.line(`  (global-name "com.apple.lsd.mapdb")`)
	b.line(`  (global-name "com.apple.system.logger")`)
	b.line(`  (global-name "com.apple.system.notification_center")`)
	b.line(`  (global-name "com.apple.system.opendirectoryd.libinfo")`)
	b.line(`  (global-name "com.apple.system.opendirectoryd.membership")`)
	b.line(`  (global-name "com.apple.SecurityServer")`)
	b.line(`  (global-name "com.apple.securityd.xpc")`)
	b.line(`  (global-name "com.apple.coreservices.launchservicesd")`)
	b.line(")")
	b.line("(allow mach-per-user-lookup)")
	b.blank()
	b.comment("Metadata reads keep stat/realpath working everywhere")
	b.line("(allow file-read-metadata)")
	b.blank()
}

// writeFileRules emits one allow rule per mount spec, each referencing a
// named parameter. Read-only mounts get file-read*, read-write mounts get
// both read and write. Temp directories are always writable; build tools
// assume it.
func (b *profileBuilder) writeFileRules(plan *platform.Plan) {
	b.comment("Read-only exposures")
	for i, m := range plan.ReadOnly {
		name := fmt.Sprintf("RO_%d", i)
		b.param(name, canonicalizePath(m.Source))
		b.linef(`(allow file-read* (subpath (param "%s")))`, name)
	}
	b.blank()

	b.comment("Read-write exposures")
	for i, m := range plan.ReadWrite {
		name := fmt.Sprintf("RW_%d", i)
		b.param(name, canonicalizePath(m.Source))
		b.linef(`(allow file-read* (subpath (param "%s")))`, name)
		b.linef(`(allow file-write* (subpath (param "%s")))`, name)
	}
	b.blank()

	b.comment("Temp directories")
	for i, dir := range tempDirs() {
		name := fmt.Sprintf("TMP_%d", i)
		b.param(name, dir)
		b.linef(`(allow file-read* (subpath (param "%s")))`, name)
		b.linef(`(allow file-write* (subpath (param "%s")))`, name)
	}
	b.blank()
}

// writeNetwork emits the all-or-nothing network rule.
func (b *profileBuilder) writeNetwork(plan *platform.Plan) {
	if plan.NetworkEnabled {
		b.comment("Network: enabled as a whole")
		b.line("(allow network*)")
	} else {
		b.comment("Network: disabled as a whole")
		b.line("(deny network*)")
	}
	b.blank()
}

// writePTY allows the device nodes interactive tools need.
func (b *profileBuilder) writePTY() {
	b.comment("PTY and basic devices")
	b.line("(allow file-read* (regex #\"^/dev/(ttys|pty|null|zero|random|urandom|fd)\"))")
	b.line("(allow file-write* (regex #\"^/dev/ttys[0-9]+$\"))")
	b.line("(allow file-write* (literal \"/dev/null\"))")
	b.line("(allow file-write* (literal \"/dev/zero\"))")
	b.line("(allow file-write* (literal \"/dev/urandom\"))")
	b.line("(allow file-ioctl (regex #\"^/dev/(ttys|pty)\"))")
	b.blank()
}

// param records a named parameter value for the -D argument list.
func (b *profileBuilder) param(name, value string) {
	b.params = append(b.params, name+"="+value)
}

func (b *profileBuilder) line(s string) {
	b.buf.WriteString(s)
	b.buf.WriteByte('\n')
}

func (b *profileBuilder) linef(format string, args ...any) {
	fmt.Fprintf(&b.buf, format, args...)
	b.buf.WriteByte('\n')
}

func (b *profileBuilder) comment(s string) {
	b.buf.WriteString("; ")
	b.buf.WriteString(s)
	b.buf.WriteByte('\n')
}

func (b *profileBuilder) blank() {
	b.buf.WriteByte('\n')
}

// canonicalizePath resolves symlinks and normalizes the path. On macOS /tmp
// and /var are symlinks into /private; Seatbelt matches against the resolved
// form only.
func canonicalizePath(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return filepath.Clean(resolved)
	}
	cleaned := filepath.Clean(p)
	if cleaned == "/tmp" || strings.HasPrefix(cleaned, "/tmp/") {
		return "/private" + cleaned
	}
	if cleaned == "/var" || strings.HasPrefix(cleaned, "/var/") {
		return "/private" + cleaned
	}
	return cleaned
}

// tempDirs returns the canonical writable temp locations, deduplicated and
// in stable order.
func tempDirs() []string {
	dirs := []string{"/private/tmp", "/private/var/folders"}
	if tmpdir := os.Getenv("TMPDIR"); tmpdir != "" {
		cp := canonicalizePath(tmpdir)
		covered := false
		for _, d := range dirs {
			if cp == d || strings.HasPrefix(cp, d+"/") {
				covered = true
				break
			}
		}
		if !covered {
			dirs = append(dirs, cp)
		}
	}
	return dirs
}
