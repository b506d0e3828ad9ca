// Package agentjail launches an untrusted command, typically an autonomous
// coding agent, inside a minimum-privilege filesystem view.
//
// The launcher computes the exact set of read-only and read-write exposures
// the agent needs (project tree, version-control metadata, tool caches,
// trust roots, agent state), deduplicates them into a sandbox plan, and hands
// the plan to the isolation backend for the current operating system:
// bubblewrap namespaces on Linux, Seatbelt (sandbox-exec) on macOS. On other
// systems the command runs unsandboxed with a warning.
//
// On Linux a pre-flight diagnostic classifies why namespace creation is
// blocked (AppArmor restriction, disabled kernel flag, SELinux enforcing,
// nested container) and prints fixed remediation text instead of failing
// obscurely.
//
// The target command's exit status passes through unchanged: on success the
// launcher replaces its own process image with the sandboxed invocation.
//
// Basic usage:
//
//	settings := agentjail.ParseEnv(os.Environ())
//	code, err := agentjail.Launch(settings, []string{"claude", "--continue"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.Exit(code)
package agentjail
