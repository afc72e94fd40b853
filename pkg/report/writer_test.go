package report_test

import (
	"encoding/json"
	"math"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/smykla-labs/crashtrace/pkg/clock"
	"github.com/smykla-labs/crashtrace/pkg/crashinfo"
	"github.com/smykla-labs/crashtrace/pkg/eventlog"
	"github.com/smykla-labs/crashtrace/pkg/report"
	"github.com/smykla-labs/crashtrace/pkg/report/mocks"
)

const workspace = "/cache/Crashes"

var (
	launchTime = time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC)
	crashTime  = time.Date(2026, 10, 19, 14, 3, 7, 0, time.UTC)
)

func segfault() crashinfo.CrashInfo {
	return crashinfo.New(
		"SIGSEGV",
		"segmentation violation",
		map[string]crashinfo.Value{"signal": crashinfo.Int(11)},
		[]string{"frame0", "frame1"},
	)
}

var _ = Describe("Writer", func() {
	var (
		storage *report.FSStorage
		w       *report.Writer
	)

	BeforeEach(func() {
		var err error

		storage = report.NewMemoryStorage()
		w, err = report.NewWriter(storage, report.WithClock(clock.NewFixed(crashTime)))
		Expect(err).NotTo(HaveOccurred())
		w.Configure(workspace, report.Headers{})
	})

	readText := func(art report.Artifacts) string {
		data, err := storage.ReadFile(art.LogPath)
		Expect(err).NotTo(HaveOccurred())

		return string(data)
	}

	readJSON := func(art report.Artifacts) map[string]any {
		data, err := storage.ReadFile(art.JSONPath)
		Expect(err).NotTo(HaveOccurred())

		var doc map[string]any
		Expect(json.Unmarshal(data, &doc)).To(Succeed())

		return doc
	}

	It("should reject a nil storage", func() {
		_, err := report.NewWriter(nil)
		Expect(err).To(HaveOccurred())
	})

	It("should name both artifacts after the crash time", func() {
		art, err := w.Persist(segfault(), nil, launchTime)
		Expect(err).NotTo(HaveOccurred())

		Expect(art.ID).To(Equal("2026-10-19-140307+0000"))
		Expect(art.JSONPath).To(Equal(workspace + "/2026-10-19-140307+0000.json"))
		Expect(art.LogPath).To(Equal(workspace + "/2026-10-19-140307+0000.log"))
	})

	It("should write crash info without an events section when the log is empty", func() {
		art, err := w.Persist(segfault(), nil, launchTime)
		Expect(err).NotTo(HaveOccurred())

		text := readText(art)
		Expect(text).To(ContainSubstring(report.SectionCrashInfo))
		Expect(text).To(ContainSubstring("name: SIGSEGV\n"))
		Expect(text).To(ContainSubstring("reason: segmentation violation\n"))
		Expect(text).To(ContainSubstring("attributes: {signal: 11}\n"))
		Expect(text).To(ContainSubstring("call stack symbols:\nframe0\nframe1\n"))
		Expect(text).NotTo(ContainSubstring(report.SectionEvents))
		Expect(text).NotTo(ContainSubstring(report.SectionStatus))
	})

	It("should align the base info keys", func() {
		art, err := w.Persist(segfault(), nil, launchTime)
		Expect(err).NotTo(HaveOccurred())

		text := readText(art)
		Expect(text).To(HavePrefix(report.SectionBaseInfo + "\n"))
		Expect(text).To(ContainSubstring("launch time: " + clock.Stamp(launchTime) + "\n"))
		Expect(text).To(ContainSubstring("crash time:  " + clock.Stamp(crashTime) + "\n"))
		Expect(text).To(ContainSubstring("uptime:      3 minutes 7 seconds\n"))
	})

	It("should keep the section order", func() {
		w.Configure(workspace, report.Headers{
			File:   []report.HeaderProvider{report.StaticHeaders{"build": crashinfo.String("1234")}},
			Status: []report.HeaderProvider{report.StaticHeaders{"screen": crashinfo.String("home")}},
		})

		events := []eventlog.Record{
			{Meta: "[10-19 14:01:00][app] main.go main.run <line:10>"},
			{Meta: "[10-19 14:02:00][live] room.go live.join <line:22>", Message: "> room, 42"},
		}

		art, err := w.Persist(segfault(), events, launchTime)
		Expect(err).NotTo(HaveOccurred())

		text := readText(art)
		base := strings.Index(text, report.SectionBaseInfo)
		status := strings.Index(text, report.SectionStatus)
		evts := strings.Index(text, report.SectionEvents)
		crash := strings.Index(text, report.SectionCrashInfo)

		Expect(base).To(Equal(0))
		Expect(status).To(BeNumerically(">", base))
		Expect(evts).To(BeNumerically(">", status))
		Expect(crash).To(BeNumerically(">", evts))

		Expect(text).To(ContainSubstring("build:       1234\n"))
		Expect(text).To(ContainSubstring(report.SectionStatus + "\nscreen: home\n"))
		Expect(text).To(ContainSubstring(
			report.SectionEvents + "\n" +
				"[10-19 14:01:00][app] main.go main.run <line:10>\n" +
				"[10-19 14:02:00][live] room.go live.join <line:22>\n" +
				"> room, 42\n",
		))
	})

	It("should build the structured document", func() {
		w.Configure(workspace, report.Headers{
			JSON: []report.HeaderProvider{report.HeaderFunc(func() map[string]crashinfo.Value {
				return map[string]crashinfo.Value{
					"user":  crashinfo.String("u-1"),
					"flags": crashinfo.Map(map[string]crashinfo.Value{"beta": crashinfo.Bool(true)}),
				}
			})},
		})

		art, err := w.Persist(segfault(), nil, launchTime)
		Expect(err).NotTo(HaveOccurred())

		doc := readJSON(art)
		Expect(doc).To(HaveKeyWithValue("launchTime", clock.Stamp(launchTime)))
		Expect(doc).To(HaveKeyWithValue("crashTime", clock.Stamp(crashTime)))
		Expect(doc).To(HaveKeyWithValue("crashName", "SIGSEGV"))
		Expect(doc).To(HaveKeyWithValue("crashReason", "segmentation violation"))
		Expect(doc).To(HaveKeyWithValue("user", "u-1"))
		Expect(doc).To(HaveKeyWithValue("flags", HaveKeyWithValue("beta", true)))
		Expect(doc).To(HaveKeyWithValue("crashInfo", And(
			HaveKeyWithValue("name", "SIGSEGV"),
			HaveKeyWithValue("stackFrames", ConsistOf("frame0", "frame1")),
		)))
	})

	It("should omit crash details when disabled", func() {
		var err error

		w, err = report.NewWriter(storage,
			report.WithClock(clock.NewFixed(crashTime)),
			report.WithCrashDetail(false),
		)
		Expect(err).NotTo(HaveOccurred())
		w.Configure(workspace, report.Headers{})

		art, err := w.Persist(segfault(), nil, launchTime)
		Expect(err).NotTo(HaveOccurred())

		Expect(readText(art)).NotTo(ContainSubstring(report.SectionCrashInfo))
		Expect(readJSON(art)).NotTo(HaveKey("crashInfo"))
		Expect(readJSON(art)).To(HaveKeyWithValue("crashName", "SIGSEGV"))
	})

	It("should still write the text document when JSON is not representable", func() {
		w.Configure(workspace, report.Headers{
			JSON: []report.HeaderProvider{report.StaticHeaders{"ratio": crashinfo.Float(math.NaN())}},
		})

		art, err := w.Persist(segfault(), nil, launchTime)
		Expect(err).To(HaveOccurred())
		Expect(art.JSONPath).To(BeEmpty())
		Expect(art.LogPath).NotTo(BeEmpty())
		Expect(readText(art)).To(ContainSubstring(report.SectionCrashInfo))

		_, statErr := storage.ReadFile(workspace + "/" + art.ID + report.JSONExt)
		Expect(report.IsNotExist(statErr)).To(BeTrue())
	})

	It("should ignore header providers that panic", func() {
		w.Configure(workspace, report.Headers{
			JSON: []report.HeaderProvider{
				report.HeaderFunc(func() map[string]crashinfo.Value { panic("header failure") }),
				report.StaticHeaders{"ok": crashinfo.Bool(true)},
			},
		})

		art, err := w.Persist(segfault(), nil, launchTime)
		Expect(err).NotTo(HaveOccurred())
		Expect(readJSON(art)).To(HaveKeyWithValue("ok", true))
	})

	It("should refuse to persist without a workspace", func() {
		w.Configure("", report.Headers{})

		_, err := w.Persist(segfault(), nil, launchTime)
		Expect(errors.Is(err, report.ErrNoWorkspace)).To(BeTrue())
	})

	Describe("with a failing storage", func() {
		var (
			ctrl *gomock.Controller
			mock *mocks.MockStorage
		)

		BeforeEach(func() {
			ctrl = gomock.NewController(GinkgoT())
			mock = mocks.NewMockStorage(ctrl)

			var err error

			w, err = report.NewWriter(mock, report.WithClock(clock.NewFixed(crashTime)))
			Expect(err).NotTo(HaveOccurred())
			w.Configure(workspace, report.Headers{})
		})

		It("should write the text document when the JSON write fails", func() {
			mock.EXPECT().MkdirAll(workspace).Return(nil)
			mock.EXPECT().
				WriteFile(workspace+"/2026-10-19-140307+0000.json", gomock.Any()).
				Return(syscall.ENOSPC)
			mock.EXPECT().
				WriteFile(workspace+"/2026-10-19-140307+0000.log", gomock.Any()).
				Return(nil)

			art, err := w.Persist(segfault(), nil, launchTime)
			Expect(err).To(MatchError(ContainSubstring("structured report")))
			Expect(art.JSONPath).To(BeEmpty())
			Expect(art.LogPath).NotTo(BeEmpty())
		})

		It("should report both failures", func() {
			mock.EXPECT().MkdirAll(workspace).Return(nil)
			mock.EXPECT().WriteFile(gomock.Any(), gomock.Any()).Return(syscall.EIO).Times(2)

			art, err := w.Persist(segfault(), nil, launchTime)
			Expect(err).To(HaveOccurred())
			Expect(art.JSONPath).To(BeEmpty())
			Expect(art.LogPath).To(BeEmpty())
		})

		It("should not write anything when the workspace cannot be created", func() {
			mock.EXPECT().MkdirAll(workspace).Return(os.ErrPermission)

			_, err := w.Persist(segfault(), nil, launchTime)
			Expect(errors.Is(err, os.ErrPermission)).To(BeTrue())
		})
	})
})
