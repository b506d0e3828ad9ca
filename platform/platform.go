// Package platform defines the sandbox plan model and the backend interface
// implemented by the OS-specific isolation adapters (bubblewrap namespaces on
// Linux, Seatbelt on macOS). The root agentjail package assembles a Plan and
// hands it to the Backend selected for the current operating system.
package platform

// Backend renders a Plan into a concrete invocation of the OS isolation
// primitive and executes the target command inside it.
type Backend interface {
	// Name returns a human-readable identifier for this backend
	// (e.g., "linux-namespace", "darwin-seatbelt").
	Name() string

	// Available reports whether the backend's isolation primitive is
	// functional on the current system.
	Available() bool

	// Exec runs command inside the sandbox described by plan. On success the
	// process image is replaced and Exec never returns; backends that cannot
	// replace the process (the no-isolation fallback) run the command to
	// completion and return its exit code.
	Exec(plan *Plan, command []string) (int, error)
}
