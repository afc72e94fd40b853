package handler_test

import (
	"sync"
	"syscall"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-labs/crashtrace/pkg/crashinfo"
	"github.com/smykla-labs/crashtrace/pkg/handler"
)

type recordingRaiser struct {
	mu     sync.Mutex
	raised []syscall.Signal
}

func (r *recordingRaiser) Raise(sig syscall.Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.raised = append(r.raised, sig)
}

func (r *recordingRaiser) Raised() []syscall.Signal {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]syscall.Signal(nil), r.raised...)
}

type collector struct {
	mu    sync.Mutex
	infos []crashinfo.CrashInfo
}

func (c *collector) collect(info crashinfo.CrashInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.infos = append(c.infos, info)
}

func (c *collector) All() []crashinfo.CrashInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]crashinfo.CrashInfo(nil), c.infos...)
}

var _ = Describe("Registry", func() {
	var (
		raiser *recordingRaiser
		got    *collector
		reg    *handler.Registry
	)

	BeforeEach(func() {
		raiser = &recordingRaiser{}
		got = &collector{}
		reg = handler.NewRegistry(
			handler.WithRaiser(raiser),
			handler.WithSignals(syscall.SIGUSR2),
		)
	})

	AfterEach(func() {
		reg.Stop()
	})

	Describe("Start", func() {
		It("should be idempotent", func() {
			reg.OnException(got.collect)
			reg.Start()
			reg.Start()
			Expect(reg.Started()).To(BeTrue())

			reg.DeliverSignal(syscall.SIGSEGV)

			Expect(got.All()).To(HaveLen(1))
			Expect(raiser.Raised()).To(Equal([]syscall.Signal{syscall.SIGSEGV}))
		})

		It("should be started implicitly by OnException", func() {
			Expect(reg.Started()).To(BeFalse())
			reg.OnException(got.collect)
			Expect(reg.Started()).To(BeTrue())
		})
	})

	Describe("signal path", func() {
		BeforeEach(func() {
			reg.OnException(got.collect)
		})

		It("should describe the signal and attach its number", func() {
			reg.DeliverSignal(syscall.SIGSEGV)

			infos := got.All()
			Expect(infos).To(HaveLen(1))
			Expect(infos[0].Name()).To(Equal("SIGSEGV"))
			Expect(infos[0].Reason()).To(Equal("segmentation violation"))

			sig, ok := infos[0].Attribute("signal")
			Expect(ok).To(BeTrue())
			n, _ := sig.AsInt()
			Expect(n).To(Equal(int64(syscall.SIGSEGV)))
			Expect(infos[0].StackFrames()).NotTo(BeEmpty())
		})

		It("should re-raise even when the callback panics", func() {
			reg.OnException(func(crashinfo.CrashInfo) {
				panic("callback failure")
			})

			Expect(func() { reg.DeliverSignal(syscall.SIGABRT) }).NotTo(Panic())
			Expect(raiser.Raised()).To(Equal([]syscall.Signal{syscall.SIGABRT}))
		})

		It("should drop deliveries past the guard limit", func() {
			limited := handler.NewRegistry(
				handler.WithRaiser(raiser),
				handler.WithSignals(syscall.SIGUSR2),
				handler.WithGuardLimit(3),
			)
			limited.OnException(got.collect)
			DeferCleanup(limited.Stop)

			for range 5 {
				limited.DeliverSignal(syscall.SIGBUS)
			}

			Expect(got.All()).To(HaveLen(3))
			Expect(raiser.Raised()).To(HaveLen(3))
		})
	})

	Describe("panic path", func() {
		recoverInto := func(r *handler.Registry, fn func()) {
			defer func() {
				if v := recover(); v != nil {
					r.HandlePanic(v)
				}
			}()

			fn()
		}

		It("should forward the panic and panic again with the same value", func() {
			reg.OnException(got.collect)

			Expect(func() {
				recoverInto(reg, func() { panic("boom") })
			}).To(PanicWith("boom"))

			infos := got.All()
			Expect(infos).To(HaveLen(1))
			Expect(infos[0].Name()).To(Equal("string"))
			Expect(infos[0].Reason()).To(Equal("boom"))
			Expect(infos[0].StackFrames()).NotTo(BeEmpty())
			Expect(infos[0].StackFrames()[0]).To(ContainSubstring("handler_test"))
		})

		It("should carry error hints as attributes", func() {
			reg.OnException(got.collect)
			err := errors.WithHint(errors.New("bad input"), "check the payload")

			Expect(func() {
				recoverInto(reg, func() { panic(err) })
			}).To(PanicWith(err))

			infos := got.All()
			Expect(infos).To(HaveLen(1))
			Expect(infos[0].Reason()).To(Equal("bad input"))

			hint, ok := infos[0].Attribute("hint")
			Expect(ok).To(BeTrue())
			Expect(hint.String()).To(ContainSubstring("check the payload"))
		})

		It("should flag runtime errors", func() {
			reg.OnException(got.collect)

			Expect(func() {
				recoverInto(reg, func() {
					var m map[string]int
					m["x"] = 1
				})
			}).To(Panic())

			infos := got.All()
			Expect(infos).To(HaveLen(1))

			rt, ok := infos[0].Attribute("runtime_error")
			Expect(ok).To(BeTrue())
			b, _ := rt.AsBool()
			Expect(b).To(BeTrue())
		})

		It("should only re-panic after Stop", func() {
			reg.OnException(got.collect)
			reg.Stop()
			Expect(reg.Started()).To(BeFalse())

			Expect(func() {
				recoverInto(reg, func() { panic("late") })
			}).To(PanicWith("late"))
			Expect(got.All()).To(BeEmpty())
		})
	})

	Describe("WithoutSignals", func() {
		It("should keep the panic path", func() {
			quiet := handler.NewRegistry(handler.WithoutSignals())
			DeferCleanup(quiet.Stop)

			quiet.OnException(got.collect)
			Expect(quiet.Started()).To(BeTrue())

			Expect(func() {
				defer func() {
					if v := recover(); v != nil {
						quiet.HandlePanic(v)
					}
				}()

				panic("quiet")
			}).To(PanicWith("quiet"))
			Expect(got.All()).To(HaveLen(1))
		})
	})

	Describe("Describe", func() {
		DescribeTable("signal table",
			func(sig syscall.Signal, name string) {
				Expect(handler.SignalName(sig)).To(Equal(name))
			},
			Entry("abort", syscall.SIGABRT, "SIGABRT"),
			Entry("illegal instruction", syscall.SIGILL, "SIGILL"),
			Entry("segmentation violation", syscall.SIGSEGV, "SIGSEGV"),
			Entry("floating point", syscall.SIGFPE, "SIGFPE"),
			Entry("bus error", syscall.SIGBUS, "SIGBUS"),
			Entry("broken pipe", syscall.SIGPIPE, "SIGPIPE"),
			Entry("trace trap", syscall.SIGTRAP, "SIGTRAP"),
		)

		It("should name unknown signals by number", func() {
			name, reason := handler.Describe(syscall.Signal(63))
			Expect(name).To(Equal("SIGNAL 63"))
			Expect(reason).To(Equal("Signal 63 was raised."))
		})
	})
})
