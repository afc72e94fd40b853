package tracer_test

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/smykla-labs/crashtrace/pkg/clock"
	"github.com/smykla-labs/crashtrace/pkg/config"
	"github.com/smykla-labs/crashtrace/pkg/crashinfo"
	"github.com/smykla-labs/crashtrace/pkg/eventlog"
	"github.com/smykla-labs/crashtrace/pkg/handler"
	"github.com/smykla-labs/crashtrace/pkg/launchmarker"
	"github.com/smykla-labs/crashtrace/pkg/report"
	"github.com/smykla-labs/crashtrace/pkg/report/mocks"
	"github.com/smykla-labs/crashtrace/pkg/tracer"
)

const workspace = "/cache/Crashes"

var launchTime = time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC)

// crash panics with v under tr.Recover and returns whatever escaped it.
func crash(tr *tracer.Tracer, v any) (escaped any) {
	defer func() {
		escaped = recover()
	}()

	func() {
		defer tr.Recover()

		panic(v)
	}()

	return nil
}

func boolPtr(b bool) *bool { return &b }

func intPtr(n int) *int { return &n }

var _ = Describe("Tracer", func() {
	var (
		fixed   *clock.Fixed
		storage *report.FSStorage
		cfg     *config.Config
		extra   []tracer.Option
		tr      *tracer.Tracer
	)

	newTracer := func() *tracer.Tracer {
		opts := append([]tracer.Option{
			tracer.WithStorage(storage),
			tracer.WithClock(fixed),
			tracer.WithRegistry(handler.NewRegistry(handler.WithoutSignals())),
		}, extra...)

		t, err := tracer.New(cfg, opts...)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(t.Stop)

		return t
	}

	readFile := func(path string) string {
		data, err := storage.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())

		return string(data)
	}

	BeforeEach(func() {
		fixed = clock.NewFixed(launchTime)
		storage = report.NewMemoryStorage()
		cfg = &config.Config{}
		extra = nil
	})

	JustBeforeEach(func() {
		tr = newTracer()
	})

	Describe("panic capture", func() {
		JustBeforeEach(func() {
			Expect(tr.Start(workspace)).To(Succeed())
		})

		It("should write one report pair and panic again", func() {
			tr.Record(eventlog.SessionApp, "opened", 3)
			fixed.Advance(time.Minute)

			Expect(crash(tr, "boom")).To(Equal("boom"))
			Expect(tr.Crashed()).To(BeTrue())

			files, err := tr.ExportLogFiles()
			Expect(err).NotTo(HaveOccurred())
			Expect(files).To(Equal([]string{
				filepath.Join(workspace, "2026-10-19-140100+0000.json"),
				filepath.Join(workspace, "2026-10-19-140100+0000.log"),
			}))

			text := readFile(files[1])
			Expect(text).To(ContainSubstring("> opened, 3"))
			Expect(text).To(ContainSubstring("reason: boom"))
			Expect(text).To(ContainSubstring("uptime:"))

			objects, err := tr.ExportLogObjects()
			Expect(err).NotTo(HaveOccurred())
			Expect(objects).To(HaveLen(1))
			Expect(objects[0].Fields).To(HaveKeyWithValue("crashName", "string"))
			Expect(objects[0].Fields).To(HaveKeyWithValue("crashReason", "boom"))
		})

		It("should persist only the first fault", func() {
			Expect(crash(tr, "first")).To(Equal("first"))
			fixed.Advance(5 * time.Second)
			Expect(crash(tr, "second")).To(Equal("second"))

			reports, err := tr.Reports()
			Expect(err).NotTo(HaveOccurred())
			Expect(reports).To(HaveLen(1))
			Expect(reports[0].CrashReason).To(Equal("first"))

			_, err = tr.RecordCrash(crashinfo.New("MANUAL", "", nil, nil))
			Expect(errors.Is(err, tracer.ErrAlreadyCrashed)).To(BeTrue())
		})

		It("should not register twice when started twice", func() {
			Expect(tr.Start(workspace)).To(Succeed())

			Expect(crash(tr, "boom")).To(Equal("boom"))

			files, _ := tr.ExportLogFiles()
			Expect(files).To(HaveLen(2))
		})

		It("should clear the crashed flag when started again after a crash", func() {
			Expect(crash(tr, "first")).To(Equal("first"))
			Expect(tr.Start(workspace)).To(Succeed())
			Expect(tr.Crashed()).To(BeFalse())

			fixed.Advance(time.Second)
			Expect(crash(tr, "second")).To(Equal("second"))

			reports, _ := tr.Reports()
			Expect(reports).To(HaveLen(2))
		})

		It("should still panic when a listener panics", func() {
			var seen []string

			tr.OnFault(func(crashinfo.CrashInfo, report.Artifacts) { panic("listener") })
			tr.OnFault(func(info crashinfo.CrashInfo, art report.Artifacts) {
				seen = append(seen, info.Reason(), art.ID)
			})

			Expect(crash(tr, "boom")).To(Equal("boom"))
			Expect(seen).To(Equal([]string{"boom", "2026-10-19-140000+0000"}))
		})

		It("should only re-panic after Stop", func() {
			tr.Stop()

			Expect(crash(tr, "late")).To(Equal("late"))
			Expect(tr.Crashed()).To(BeFalse())

			files, _ := tr.ExportLogFiles()
			Expect(files).To(BeEmpty())
		})
	})

	Describe("RecordCrash", func() {
		It("should persist a caller-built crash", func() {
			Expect(tr.Start(workspace)).To(Succeed())

			art, err := tr.RecordCrash(crashinfo.New("HANG", "main loop blocked", nil, []string{"main.loop"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(tr.Crashed()).To(BeTrue())
			Expect(readFile(art.LogPath)).To(ContainSubstring("name: HANG\nreason: main loop blocked\n"))

			tr.Reset()
			Expect(tr.Crashed()).To(BeFalse())
		})
	})

	Describe("events", func() {
		BeforeEach(func() {
			cfg.Events = &config.EventsConfig{MaxRecordCount: intPtr(2)}
		})

		It("should keep the configured number of events", func() {
			tr.Record(eventlog.SessionApp, 1)
			tr.Record(eventlog.SessionApp, 2)
			tr.CustomRecord("net", "fetch", "timeout")

			events := tr.Events()
			Expect(events).To(HaveLen(2))
			Expect(events[0].Message).To(Equal("> 2"))
			Expect(events[1].Meta).To(Equal("[10-19 14:00:00][net] fetch"))
		})

		It("should attribute events to the caller", func() {
			tr.Record(eventlog.SessionLive, "x")

			Expect(tr.Events()[0].Meta).To(ContainSubstring("tracer_test.go"))
		})

		It("should follow SetMaxRecordCount", func() {
			tr.SetMaxRecordCount(1)
			tr.Record(eventlog.SessionApp, "a")
			tr.Record(eventlog.SessionApp, "b")

			Expect(tr.Events()).To(HaveLen(1))
		})
	})

	Describe("headers", func() {
		BeforeEach(func() {
			extra = []tracer.Option{
				tracer.WithJSONHeaders(report.StaticHeaders{"channel": crashinfo.String("beta")}),
				tracer.WithFileHeaders(report.StaticHeaders{"build": crashinfo.Int(1234)}),
				tracer.WithStatus(report.StaticHeaders{"screen": crashinfo.String("home")}),
			}
		})

		It("should add runtime and caller headers", func() {
			Expect(tr.Start(workspace)).To(Succeed())

			art, err := tr.RecordCrash(crashinfo.New("X", "", nil, nil))
			Expect(err).NotTo(HaveOccurred())

			text := readFile(art.LogPath)
			Expect(text).To(ContainSubstring("build:"))
			Expect(text).To(ContainSubstring("goos:"))
			Expect(text).To(ContainSubstring("-------- status --------"))
			Expect(text).To(ContainSubstring("screen: home"))
			Expect(text).To(ContainSubstring("heap in use:"))

			doc := readFile(art.JSONPath)
			Expect(doc).To(ContainSubstring(`"channel": "beta"`))
			Expect(doc).To(ContainSubstring(`"goVersion"`))
		})

		Context("with runtime headers disabled", func() {
			BeforeEach(func() {
				cfg.Report = &config.ReportConfig{RuntimeHeaders: boolPtr(false), RecordCrashDetail: boolPtr(false)}
			})

			It("should write only caller headers", func() {
				Expect(tr.Start(workspace)).To(Succeed())

				art, err := tr.RecordCrash(crashinfo.New("X", "", nil, nil))
				Expect(err).NotTo(HaveOccurred())

				text := readFile(art.LogPath)
				Expect(text).NotTo(ContainSubstring("goos:"))
				Expect(text).NotTo(ContainSubstring("-------- crash info --------"))
				Expect(readFile(art.JSONPath)).NotTo(ContainSubstring("goVersion"))
			})
		})
	})

	Describe("retention", func() {
		BeforeEach(func() {
			cfg.Report = &config.ReportConfig{MaxReports: intPtr(1)}

			for _, id := range []string{"2026-10-17-090000+0000", "2026-10-18-090000+0000"} {
				Expect(storage.WriteFile(filepath.Join(workspace, id+".json"), []byte(`{}`))).To(Succeed())
				Expect(storage.WriteFile(filepath.Join(workspace, id+".log"), []byte("log"))).To(Succeed())
			}
		})

		It("should prune old reports on start", func() {
			Expect(tr.Start(workspace)).To(Succeed())

			reports, err := tr.Reports()
			Expect(err).NotTo(HaveOccurred())
			Expect(reports).To(HaveLen(1))
			Expect(reports[0].ID).To(Equal("2026-10-18-090000+0000"))
		})
	})

	Describe("workspace", func() {
		Context("with a cache root", func() {
			BeforeEach(func() {
				cfg.Workspace = &config.WorkspaceConfig{CacheRoot: "/var/cache/app"}
			})

			It("should resolve the default folder under the cache root", func() {
				Expect(tr.Start("")).To(Succeed())
				Expect(tr.Workspace()).To(Equal("/var/cache/app/Crashes"))
			})

			It("should prefer the folder argument", func() {
				Expect(tr.Start("Reports")).To(Succeed())
				Expect(tr.Workspace()).To(Equal("/var/cache/app/Reports"))
			})
		})

		It("should keep handlers installed when the workspace cannot be created", func() {
			ctrl := gomock.NewController(GinkgoT())
			failing := mocks.NewMockStorage(ctrl)
			failing.EXPECT().MkdirAll(workspace).Return(os.ErrPermission)

			t, err := tracer.New(nil,
				tracer.WithStorage(failing),
				tracer.WithRegistry(handler.NewRegistry(handler.WithoutSignals())),
			)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(t.Stop)

			Expect(errors.Is(t.Start(workspace), os.ErrPermission)).To(BeTrue())
			Expect(t.Started()).To(BeTrue())
			Expect(crash(t, "boom")).To(Equal("boom"))
			Expect(t.Workspace()).To(BeEmpty())
		})
	})

	Describe("launch marker", func() {
		markerPath := filepath.Join(workspace, launchmarker.FileName)

		It("should write a marker on start and clear it on stop", func() {
			Expect(tr.Start(workspace)).To(Succeed())
			Expect(storage.ReadFile(markerPath)).NotTo(BeEmpty())
			Expect(tr.ExportLogFiles()).To(BeEmpty())

			tr.Stop()

			_, err := storage.ReadFile(markerPath)
			Expect(report.IsNotExist(err)).To(BeTrue())
		})

		It("should clear the marker once a report is written", func() {
			Expect(tr.Start(workspace)).To(Succeed())
			Expect(crash(tr, "boom")).To(Equal("boom"))

			_, err := storage.ReadFile(markerPath)
			Expect(report.IsNotExist(err)).To(BeTrue())
		})

		Context("when a previous launch left its marker", func() {
			BeforeEach(func() {
				prev := launchmarker.NewManager(storage, clock.NewFixed(launchTime.Add(-time.Hour)), workspace)
				Expect(storage.MkdirAll(workspace)).To(Succeed())
				Expect(prev.Set(999, "0.9.0")).To(Succeed())
			})

			It("should report the unclean exit", func() {
				_, ok := tr.PreviousLaunch()
				Expect(ok).To(BeFalse())

				Expect(tr.Start(workspace)).To(Succeed())

				marker, ok := tr.PreviousLaunch()
				Expect(ok).To(BeTrue())
				Expect(marker.PID).To(Equal(999))
				Expect(marker.AppVersion).To(Equal("0.9.0"))
				Expect(marker.LaunchedAt).To(BeTemporally("==", launchTime.Add(-time.Hour)))
			})
		})
	})

	Describe("Go", func() {
		It("should run the function", func() {
			done := make(chan struct{})

			tr.Go(func() { close(done) })

			Eventually(done).Should(BeClosed())
		})
	})

	Describe("New", func() {
		It("should reject an invalid application version", func() {
			bad := &config.Config{Report: &config.ReportConfig{AppVersion: "nope"}}

			_, err := tracer.New(bad, tracer.WithStorage(report.NewMemoryStorage()))
			Expect(err).To(HaveOccurred())
		})
	})
})
