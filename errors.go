package agentjail

import (
	"errors"
	"fmt"

	"github.com/zhangyunhao116/agentjail/platform"
)

// Sentinel errors returned by the agentjail package.
var (
	// ErrNoCommand indicates Launch was called without a target command.
	ErrNoCommand = errors.New("agentjail: no command given")

	// ErrPrimitiveMissing indicates the isolation primitive (bwrap,
	// sandbox-exec) could not be located.
	ErrPrimitiveMissing = errors.New("agentjail: isolation primitive not found")

	// ErrBlocked indicates diagnostics classified a host configuration that
	// prevents sandbox creation. The target command was never run.
	ErrBlocked = errors.New("agentjail: sandbox blocked by host configuration")
)

// BlockedError carries the diagnostic report for a blocked sandbox. It wraps
// ErrBlocked so that errors.Is(err, ErrBlocked) still works.
type BlockedError struct {
	// Report is the classification produced by the pre-flight diagnostics.
	Report *platform.BlockerReport
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrBlocked.Error(), e.Report.Kind)
}

func (e *BlockedError) Unwrap() error {
	return ErrBlocked
}
