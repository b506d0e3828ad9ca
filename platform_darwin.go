//go:build darwin

package agentjail

import (
	"github.com/zhangyunhao116/agentjail/platform"
	"github.com/zhangyunhao116/agentjail/platform/darwin"
)

func init() {
	newBackendFn = func(s *Settings) platform.Backend {
		return darwin.New()
	}
	// Seatbelt has no diagnosable blocker conditions; sandbox-exec either
	// exists or it does not.
}
