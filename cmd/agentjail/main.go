// Command agentjail launches an untrusted coding-agent command inside a
// minimum-privilege filesystem sandbox.
//
// Usage:
//
//	agentjail [flags] -- command [args...]
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zhangyunhao116/agentjail"
)

func main() {
	var (
		disable    bool
		unsafeHome bool
		unsafeSSH  bool
		debug      bool
		bwrapPath  string
		roPaths    []string
		rwPaths    []string
	)

	root := &cobra.Command{
		Use:   "agentjail [flags] -- command [args...]",
		Short: "Run a coding agent inside a minimum-privilege sandbox",
		Long: `agentjail computes the minimal filesystem view a coding agent needs
(project tree, version-control metadata, toolchains, agent state, scoped
credentials) and hands the command to the operating system's isolation
primitive: bubblewrap on Linux, sandbox-exec on macOS.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := agentjail.ParseEnv(os.Environ())
			s.Disable = s.Disable || disable
			s.UnsafeHome = s.UnsafeHome || unsafeHome
			s.UnsafeSSH = s.UnsafeSSH || unsafeSSH
			s.Debug = s.Debug || debug
			if bwrapPath != "" {
				s.BwrapPath = bwrapPath
			}
			s.ExtraReadOnly = append(s.ExtraReadOnly, roPaths...)
			s.ExtraReadWrite = append(s.ExtraReadWrite, rwPaths...)

			code, err := agentjail.Launch(s, args)
			if err != nil {
				// Blocked and missing-primitive failures already explained
				// themselves on stderr.
				if !errors.Is(err, agentjail.ErrBlocked) && !errors.Is(err, agentjail.ErrPrimitiveMissing) {
					fmt.Fprintln(os.Stderr, "error:", err)
				}
				os.Exit(code)
			}
			os.Exit(code)
			return nil
		},
	}

	flags := root.Flags()
	flags.SetInterspersed(false)
	flags.BoolVar(&disable, "disable", false, "run the command without any sandbox (unsafe)")
	flags.BoolVar(&unsafeHome, "unsafe-home", false, "expose the entire home directory read-write (unsafe)")
	flags.BoolVar(&unsafeSSH, "unsafe-ssh", false, "expose the full personal SSH directory read-only (unsafe)")
	flags.BoolVar(&debug, "debug", false, "log the computed sandbox plan")
	flags.StringVar(&bwrapPath, "bwrap", "", "path to the bwrap binary (Linux)")
	flags.StringSliceVar(&roPaths, "ro", nil, "additional read-only path (repeatable)")
	flags.StringSliceVar(&rwPaths, "rw", nil, "additional read-write path (repeatable)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
