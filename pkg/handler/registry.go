// Package handler installs process-wide fault interception: panics reaching a
// recovery boundary and fatal signals. Each intercepted fault is translated into
// a crashinfo.CrashInfo, handed to a callback, and then re-delivered so the
// runtime and the OS still observe the original failure.
package handler

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/cockroachdb/errors"

	"github.com/smykla-labs/crashtrace/pkg/crashinfo"
	"github.com/smykla-labs/crashtrace/pkg/logger"
)

const (
	// DefaultGuardLimit bounds how many signal deliveries are handled per process.
	DefaultGuardLimit = 20

	// DefaultStackLimit bounds the goroutine dump captured for signals.
	DefaultStackLimit = 64 << 10

	maxPanicFrames = 64
)

// Callback receives every intercepted fault.
type Callback func(info crashinfo.CrashInfo)

// Raiser re-delivers a signal once it has been handled.
type Raiser interface {
	Raise(sig syscall.Signal)
}

// Option configures a Registry.
type Option func(*Registry)

// WithRaiser replaces the ProcessRaiser. Tests use it to observe re-delivery
// without terminating.
func WithRaiser(r Raiser) Option {
	return func(reg *Registry) {
		if r != nil {
			reg.raiser = r
		}
	}
}

// WithGuardLimit sets how many signal deliveries are handled before further
// deliveries are dropped.
func WithGuardLimit(n int) Option {
	return func(reg *Registry) {
		if n > 0 {
			reg.guardLimit = n
		}
	}
}

// WithSignals overrides the intercepted signal set.
func WithSignals(sigs ...os.Signal) Option {
	return func(reg *Registry) {
		if len(sigs) > 0 {
			reg.signals = sigs
		}
	}
}

// WithoutSignals disables signal interception. Only the panic path remains.
func WithoutSignals() Option {
	return func(reg *Registry) {
		reg.signals = nil
	}
}

// WithStackLimit sets the buffer size for signal-time goroutine dumps.
func WithStackLimit(n int) Option {
	return func(reg *Registry) {
		if n > 0 {
			reg.stackLimit = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(reg *Registry) {
		if log != nil {
			reg.log = log
		}
	}
}

// Registry owns the fault handlers of one process-scoped context.
type Registry struct {
	mu      sync.Mutex
	started bool
	sigCh   chan os.Signal
	done    chan struct{}
	wg      sync.WaitGroup

	callback     atomic.Pointer[Callback]
	panicEnabled atomic.Bool
	guard        atomic.Int32

	signals    []os.Signal
	guardLimit int
	stackLimit int
	raiser     Raiser
	log        logger.Logger
}

// NewRegistry creates a Registry. Nothing is installed until Start.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		signals:    FatalSignals(),
		guardLimit: DefaultGuardLimit,
		stackLimit: DefaultStackLimit,
		raiser:     ProcessRaiser{},
		log:        logger.NewNoOpLogger(),
	}

	for _, opt := range opts {
		opt(r)
	}

	r.guard.Store(int32(r.guardLimit)) //nolint:gosec // small positive limit

	return r
}

// Start installs the panic path and the signal handlers. Calling it again is a
// no-op.
func (r *Registry) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.panicEnabled.Store(true)

	if r.started {
		return
	}

	r.sigCh = make(chan os.Signal, len(r.signals))
	r.done = make(chan struct{})

	// Notify with no signals would relay every signal.
	if len(r.signals) > 0 {
		signal.Notify(r.sigCh, r.signals...)

		r.wg.Add(1)

		go r.dispatch(r.sigCh, r.done)
	}

	r.started = true

	r.log.Debug("fault handlers installed", "signals", len(r.signals))
}

// Stop restores the default disposition of every intercepted signal and
// clears the callback. Panics passed to HandlePanic afterwards are only
// re-raised.
func (r *Registry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.panicEnabled.Store(false)
	r.callback.Store(nil)

	if !r.started {
		return
	}

	if len(r.signals) > 0 {
		signal.Reset(r.signals...)
		signal.Stop(r.sigCh)
	}

	close(r.done)
	r.wg.Wait()

	r.started = false

	r.log.Debug("fault handlers removed")
}

// OnException sets the callback and starts the registry.
func (r *Registry) OnException(cb Callback) {
	if cb == nil {
		r.callback.Store(nil)
	} else {
		r.callback.Store(&cb)
	}

	r.Start()
}

// Started reports whether the signal handlers are installed.
func (r *Registry) Started() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.started
}

// HandlePanic forwards a recovered panic value to the callback and panics
// again with the same value. It never returns. It must be called from the
// deferred function that called recover.
func (r *Registry) HandlePanic(v any) {
	if r.panicEnabled.Load() {
		r.notify(panicInfo(v, panicFrames()))
	}

	panic(v)
}

func (r *Registry) dispatch(ch <-chan os.Signal, done <-chan struct{}) {
	defer r.wg.Done()

	for {
		select {
		case <-done:
			return
		case sig := <-ch:
			r.handleSignal(sig)
		}
	}
}

func (r *Registry) handleSignal(sig os.Signal) {
	if r.guard.Add(-1) < 0 {
		return
	}

	sysSig, ok := sig.(syscall.Signal)
	if !ok {
		return
	}

	name, reason := Describe(sysSig)

	info := crashinfo.New(
		name,
		reason,
		map[string]crashinfo.Value{"signal": crashinfo.Int(int64(sysSig))},
		r.goroutineDump(),
	)

	r.notify(info)
	r.raiser.Raise(sysSig)
}

// notify runs the callback, swallowing anything it panics with so the fault
// can still be re-delivered.
func (r *Registry) notify(info crashinfo.CrashInfo) {
	cb := r.callback.Load()
	if cb == nil {
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("fault callback panicked", "panic", fmt.Sprint(rec))
		}
	}()

	(*cb)(info)
}

func (r *Registry) goroutineDump() []string {
	buf := make([]byte, r.stackLimit)
	n := runtime.Stack(buf, true)

	lines := strings.Split(string(buf[:n]), "\n")
	frames := lines[:0]

	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			frames = append(frames, line)
		}
	}

	return frames
}

func panicInfo(v any, frames []string) crashinfo.CrashInfo {
	name := fmt.Sprintf("%T", v)
	attrs := map[string]crashinfo.Value{
		"panic_type":      crashinfo.String(name),
		"goroutine_count": crashinfo.Int(int64(runtime.NumGoroutine())),
	}

	var reason string

	switch x := v.(type) {
	case error:
		reason = x.Error()

		var rtErr runtime.Error
		if errors.As(x, &rtErr) {
			attrs["runtime_error"] = crashinfo.Bool(true)
		}

		if hints := errors.FlattenHints(x); hints != "" {
			attrs["hint"] = crashinfo.String(hints)
		}

		if details := errors.FlattenDetails(x); details != "" {
			attrs["detail"] = crashinfo.String(details)
		}
	case string:
		reason = x
	default:
		reason = fmt.Sprint(x)
	}

	return crashinfo.New(name, reason, attrs, frames)
}

// panicFrames captures the stack of the panicking goroutine, dropping the
// recovery machinery so the first frame is the one that panicked.
func panicFrames() []string {
	pcs := make([]uintptr, maxPanicFrames)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var (
		all      []string
		funcs    []string
		panicIdx = -1
	)

	for {
		f, more := frames.Next()

		if f.Function == "runtime.gopanic" {
			panicIdx = len(all)
		}

		all = append(all, fmt.Sprintf("%s (%s:%d)", f.Function, f.File, f.Line))
		funcs = append(funcs, f.Function)

		if !more {
			break
		}
	}

	if panicIdx < 0 {
		return all
	}

	start := panicIdx + 1
	for start < len(funcs) && strings.HasPrefix(funcs[start], "runtime.") {
		start++
	}

	return all[start:]
}
