package main

import (
	"os"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/smykla-labs/crashtrace/pkg/eventlog"
	"github.com/smykla-labs/crashtrace/pkg/tracer"
)

const signalWait = 5 * time.Second

func newDemoCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:       "demo panic|signal",
		Short:     "Start a tracer, record events and crash",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"panic", "signal"},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(cmd)
			if err != nil {
				return err
			}

			tr, err := tracer.New(a.cfg, tracer.WithLogger(a.log))
			if err != nil {
				return err
			}

			if err := tr.Start(""); err != nil {
				return err
			}

			tr.Record(eventlog.SessionApp, "demo started", args[0])
			tr.CustomRecord("demo", "newDemoCmd", "about to crash")

			switch args[0] {
			case "panic":
				defer tr.Recover()

				panic("demo panic")
			case "signal":
				proc, err := os.FindProcess(os.Getpid())
				if err != nil {
					return err
				}

				if err := proc.Signal(syscall.SIGABRT); err != nil {
					return errors.Wrap(err, "failed to raise SIGABRT")
				}

				time.Sleep(signalWait)

				return errors.New("process survived SIGABRT")
			default:
				return errors.Newf("unknown demo %q", args[0])
			}
		},
	}
}
