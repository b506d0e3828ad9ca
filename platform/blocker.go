package platform

// BlockerKind classifies why the isolation primitive cannot start on this
// host. It is computed once per invocation, before plan assembly, and only on
// Linux; Seatbelt is always present on macOS.
type BlockerKind int

const (
	// BlockerNone means the isolation primitive self-test succeeded.
	BlockerNone BlockerKind = iota

	// BlockerAppArmorUserNS means an AppArmor policy flag restricts
	// unprivileged user namespace creation.
	BlockerAppArmorUserNS

	// BlockerUserNSDisabled means the kernel disables unprivileged user
	// namespaces outright.
	BlockerUserNSDisabled

	// BlockerSELinuxEnforcing means SELinux is in enforcing mode and denies
	// the namespace setup.
	BlockerSELinuxEnforcing

	// BlockerNestedContainer means the host is itself a container, where
	// nested namespace creation is typically blocked by the runtime's
	// seccomp policy.
	BlockerNestedContainer

	// BlockerUnknown means the self-test failed but no probe matched; the
	// raw error output is preserved in the report.
	BlockerUnknown
)

// String returns the string representation of a BlockerKind.
func (k BlockerKind) String() string {
	switch k {
	case BlockerNone:
		return "none"
	case BlockerAppArmorUserNS:
		return "apparmor-userns"
	case BlockerUserNSDisabled:
		return "kernel-userns-disabled"
	case BlockerSELinuxEnforcing:
		return "selinux-enforcing"
	case BlockerNestedContainer:
		return "nested-container"
	default:
		return "unknown"
	}
}

// Remediation returns fixed, actionable text for resolving the blocker.
// The text is static per kind; it is printed verbatim before the launcher
// exits nonzero.
func (k BlockerKind) Remediation() string {
	switch k {
	case BlockerNone:
		return ""
	case BlockerAppArmorUserNS:
		return "AppArmor restricts unprivileged user namespaces on this system.\n" +
			"Either relax the restriction:\n" +
			"    sudo sysctl -w kernel.apparmor_restrict_unprivileged_userns=0\n" +
			"or disable sandboxing for this invocation with AGENTJAIL_DISABLE=1."
	case BlockerUserNSDisabled:
		return "Unprivileged user namespaces are disabled by the kernel.\n" +
			"Enable them:\n" +
			"    sudo sysctl -w kernel.unprivileged_userns_clone=1\n" +
			"    sudo sysctl -w user.max_user_namespaces=15000\n" +
			"or disable sandboxing for this invocation with AGENTJAIL_DISABLE=1."
	case BlockerSELinuxEnforcing:
		return "SELinux is enforcing and denies sandbox namespace setup.\n" +
			"Switch to permissive mode:\n" +
			"    sudo setenforce 0\n" +
			"or disable sandboxing for this invocation with AGENTJAIL_DISABLE=1."
	case BlockerNestedContainer:
		return "This host appears to be a container; nested sandboxes are usually\n" +
			"blocked by the container runtime's seccomp policy. Run the container\n" +
			"with namespace creation allowed (e.g. docker run --privileged or a\n" +
			"custom seccomp profile), or disable sandboxing with AGENTJAIL_DISABLE=1."
	default:
		return "The sandbox self-test failed for an unrecognized reason. Inspect the\n" +
			"diagnostic output above, or disable sandboxing for this invocation\n" +
			"with AGENTJAIL_DISABLE=1."
	}
}

// BlockerReport is the result of the pre-flight blocker diagnostics.
type BlockerReport struct {
	// Kind is the classified blocker, BlockerNone if the self-test passed.
	Kind BlockerKind

	// Output is the raw stderr/stdout of the failed self-test command.
	// Empty when Kind is BlockerNone.
	Output string
}

// OK reports whether the isolation primitive is usable.
func (r *BlockerReport) OK() bool {
	return r.Kind == BlockerNone
}
