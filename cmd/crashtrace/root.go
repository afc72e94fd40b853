package main

import (
	"io"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/smykla-labs/crashtrace/internal/config/provider"
	pkgconfig "github.com/smykla-labs/crashtrace/pkg/config"
	"github.com/smykla-labs/crashtrace/pkg/logger"
	"github.com/smykla-labs/crashtrace/pkg/report"
)

type globalFlags struct {
	folder    string
	cacheRoot string
	debug     bool
}

// app carries what every command needs once flags are parsed.
type app struct {
	cfg    *pkgconfig.Config
	log    logger.Logger
	writer *report.Writer
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "crashtrace",
		Short:         "Inspect and manage crash reports",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.folder, "folder", "", "workspace folder (relative to the cache root)")
	pf.StringVar(&flags.cacheRoot, "cache-root", "", "directory holding the workspace folder")
	pf.BoolVar(&flags.debug, "debug", false, "enable debug logging")

	load := func(cmd *cobra.Command) (*app, error) {
		return newApp(cmd, flags)
	}

	cmd.AddCommand(
		newListCmd(load),
		newShowCmd(load),
		newExportCmd(load),
		newRmCmd(load),
		newPruneCmd(load),
		newConfigCmd(load),
		newDemoCmd(load),
	)

	return cmd
}

// flagValues maps changed flags to configuration keys.
func (f *globalFlags) flagValues(cmd *cobra.Command) map[string]any {
	values := map[string]any{}

	if cmd.Flags().Changed("folder") {
		values["workspace.folder"] = f.folder
	}

	if cmd.Flags().Changed("cache-root") {
		values["workspace.cache_root"] = f.cacheRoot
	}

	return values
}

func newApp(cmd *cobra.Command, flags *globalFlags) (*app, error) {
	level := slog.LevelWarn
	if flags.debug {
		level = slog.LevelDebug
	}

	log := logger.NewSlogLogger(cmd.ErrOrStderr(), level)

	cfg, err := provider.NewDefaultProvider(flags.flagValues(cmd), "").Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}

	writer, err := report.NewWriter(report.NewOSStorage(), report.WithLogger(log))
	if err != nil {
		return nil, err
	}

	workspace := cfg.GetWorkspace().Path("")
	writer.Configure(workspace, report.Headers{})

	log.Debug("configuration loaded", "workspace", workspace)

	return &app{
		cfg:    cfg,
		log:    log,
		writer: writer,
		stdout: cmd.OutOrStdout(),
		stderr: cmd.ErrOrStderr(),
	}, nil
}

type loader func(cmd *cobra.Command) (*app, error)
