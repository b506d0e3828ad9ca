//go:build linux

package agentjail

import (
	"github.com/zhangyunhao116/agentjail/platform"
	"github.com/zhangyunhao116/agentjail/platform/linux"
)

func init() {
	newBackendFn = func(s *Settings) platform.Backend {
		return linux.New(s.BwrapPath)
	}
	diagnoseFn = func(s *Settings) *platform.BlockerReport {
		return linux.New(s.BwrapPath).Diagnose()
	}
}
