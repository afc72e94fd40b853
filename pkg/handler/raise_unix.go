//go:build unix

package handler

import (
	"os"
	"os/signal"
	"syscall"
	"time"
)

// defaultExitGrace is how long the process may survive a re-raised signal
// before it exits explicitly.
const defaultExitGrace = 250 * time.Millisecond

// ProcessRaiser restores the default disposition of a signal and sends it to
// the current process again. If the default disposition does not terminate the
// process within the grace period, it exits with status 128+signal.
type ProcessRaiser struct {
	Grace time.Duration
}

// Raise implements Raiser.
func (p ProcessRaiser) Raise(sig syscall.Signal) {
	signal.Reset(sig)

	_ = syscall.Kill(syscall.Getpid(), sig)

	grace := p.Grace
	if grace <= 0 {
		grace = defaultExitGrace
	}

	time.Sleep(grace)
	os.Exit(128 + int(sig))
}
