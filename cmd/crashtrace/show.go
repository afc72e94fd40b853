package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newShowCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print the text document of a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(cmd)
			if err != nil {
				return err
			}

			data, err := a.writer.ReadLog(args[0])
			if err != nil {
				return err
			}

			_, err = a.stdout.Write(data)

			return err
		},
	}
}

func newExportCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print every structured report as a JSON array",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load(cmd)
			if err != nil {
				return err
			}

			objects, err := a.writer.ExportLogObjects()
			if err != nil {
				return err
			}

			enc := json.NewEncoder(a.stdout)
			enc.SetIndent("", "  ")

			return enc.Encode(objects)
		},
	}
}
