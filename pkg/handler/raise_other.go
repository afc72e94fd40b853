//go:build !unix

package handler

import (
	"os"
	"os/signal"
	"syscall"
	"time"
)

// ProcessRaiser restores the default disposition of a signal and terminates
// the process with status 128+signal.
type ProcessRaiser struct {
	Grace time.Duration
}

// Raise implements Raiser.
func (ProcessRaiser) Raise(sig syscall.Signal) {
	signal.Reset(sig)
	os.Exit(128 + int(sig))
}
