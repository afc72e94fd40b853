package handler

import (
	"os"
	"strconv"
	"syscall"
)

// FatalSignals returns the signals the registry intercepts.
func FatalSignals() []os.Signal {
	return []os.Signal{
		syscall.SIGABRT,
		syscall.SIGILL,
		syscall.SIGSEGV,
		syscall.SIGFPE,
		syscall.SIGBUS,
		syscall.SIGPIPE,
		syscall.SIGTRAP,
	}
}

// Describe maps a signal to its mnemonic and a short cause.
func Describe(sig syscall.Signal) (name, reason string) {
	switch sig {
	case syscall.SIGILL:
		return "SIGILL", "illegal instruction (not reset when caught)"
	case syscall.SIGTRAP:
		return "SIGTRAP", "trace trap (not reset when caught)"
	case syscall.SIGABRT:
		return "SIGABRT", "abort()"
	case syscall.SIGFPE:
		return "SIGFPE", "floating point exception"
	case syscall.SIGBUS:
		return "SIGBUS", "bus error"
	case syscall.SIGSEGV:
		return "SIGSEGV", "segmentation violation"
	case syscall.SIGPIPE:
		return "SIGPIPE", "write on a pipe with no one to read it"
	default:
		n := strconv.Itoa(int(sig))

		return "SIGNAL " + n, "Signal " + n + " was raised."
	}
}

// SignalName returns only the mnemonic part of Describe.
func SignalName(sig syscall.Signal) string {
	name, _ := Describe(sig)

	return name
}
