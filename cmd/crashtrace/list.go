package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
	"github.com/spf13/cobra"

	"github.com/smykla-labs/crashtrace/pkg/report"
)

func newListCmd(load loader) *cobra.Command {
	var match string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored crash reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load(cmd)
			if err != nil {
				return err
			}

			if match != "" && !doublestar.ValidatePattern(match) {
				return errors.Newf("invalid --match pattern %q", match)
			}

			summaries, err := a.writer.List()
			if err != nil {
				return err
			}

			summaries = filterSummaries(summaries, match)
			if len(summaries) == 0 {
				fmt.Fprintf(a.stdout, "no reports in %s\n", a.writer.Workspace())

				return nil
			}

			return printSummaries(a, summaries, time.Now())
		},
	}

	cmd.Flags().StringVar(&match, "match", "", "only show reports whose id or crash name match this glob")

	return cmd
}

func filterSummaries(summaries []report.Summary, pattern string) []report.Summary {
	if pattern == "" {
		return summaries
	}

	out := summaries[:0:0]

	for _, s := range summaries {
		idMatch, _ := doublestar.Match(pattern, s.ID)
		nameMatch, _ := doublestar.Match(pattern, s.CrashName)

		if idMatch || nameMatch {
			out = append(out, s)
		}
	}

	return out
}

func printSummaries(a *app, summaries []report.Summary, now time.Time) error {
	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "ID\tNAME\tREASON\tAGE\tSIZE")

	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			s.ID,
			orDash(s.CrashName),
			orDash(truncate(s.CrashReason, 48)),
			age(s.CrashTime, now),
			humanize.Bytes(uint64(max(s.Size, 0))),
		)
	}

	return tw.Flush()
}

func age(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}

	d := now.Sub(t)
	if d < time.Minute {
		return humanize.Time(t)
	}

	return durafmt.Parse(d.Truncate(time.Minute)).LimitFirstN(1).String() + " ago"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return string(r[:n-1]) + "…"
}
