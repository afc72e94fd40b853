package main

import (
	"fmt"

	"github.com/spf13/cobra"

	internalconfig "github.com/smykla-labs/crashtrace/internal/config"
)

func newConfigCmd(load loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
	}

	cmd.AddCommand(newConfigInitCmd(), newConfigShowCmd(load))

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		global bool
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			writer := internalconfig.NewWriter()
			cfg := internalconfig.DefaultConfig()

			write := writer.WriteProject
			if global {
				write = writer.WriteGlobal
			}

			path, err := write(cfg, force)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)

			return nil
		},
	}

	cmd.Flags().BoolVar(&global, "global", false, "write the user-level file instead of the project file")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	return cmd
}

func newConfigShowCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load(cmd)
			if err != nil {
				return err
			}

			fmt.Fprintf(a.stdout, "workspace: %s\n", a.writer.Workspace())
			fmt.Fprintf(a.stdout, "max_record_count: %d\n", a.cfg.Events.GetMaxRecordCount())
			fmt.Fprintf(a.stdout, "signals: %t\n", a.cfg.Signals.IsEnabled())
			fmt.Fprintf(a.stdout, "guard_limit: %d\n", a.cfg.Signals.GetGuardLimit())
			fmt.Fprintf(a.stdout, "record_crash_detail: %t\n", a.cfg.Report.IsRecordCrashDetailEnabled())
			fmt.Fprintf(a.stdout, "max_reports: %d\n", a.cfg.Report.GetMaxReports())

			return nil
		},
	}
}
