package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/smykla-labs/crashtrace/internal/prompt"
)

var errNothingToRemove = errors.New("specify report ids or --all")

func newRmCmd(load loader) *cobra.Command {
	var (
		all bool
		yes bool
	)

	cmd := &cobra.Command{
		Use:   "rm <id>... | --all",
		Short: "Remove crash reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return errNothingToRemove
			}

			a, err := load(cmd)
			if err != nil {
				return err
			}

			ids := args

			if all {
				summaries, err := a.writer.List()
				if err != nil {
					return err
				}

				ids = ids[:0:0]
				for _, s := range summaries {
					ids = append(ids, s.ID)
				}
			}

			if len(ids) == 0 {
				fmt.Fprintln(a.stdout, "nothing to remove")

				return nil
			}

			var p prompt.Prompter = prompt.Static{Answer: true}
			if !yes {
				p = prompt.New(os.Stdin)
			}

			ok, err := p.Confirm(fmt.Sprintf("Remove %d report(s)?", len(ids)), false)
			if err != nil {
				if errors.Is(err, prompt.ErrNotInteractive) {
					return errors.WithHint(err, "pass --yes to remove without confirmation")
				}

				return err
			}

			if !ok {
				fmt.Fprintln(a.stdout, "aborted")

				return nil
			}

			var errs error

			for _, id := range ids {
				if err := a.writer.Remove(id); err != nil {
					errs = errors.CombineErrors(errs, err)

					continue
				}

				fmt.Fprintf(a.stdout, "removed %s\n", id)
			}

			return errs
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "remove every report")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	return cmd
}

func newPruneCmd(load loader) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Keep the newest reports and remove the rest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if keep < 1 {
				return errors.Newf("--keep must be at least 1, got %d", keep)
			}

			a, err := load(cmd)
			if err != nil {
				return err
			}

			removed, err := a.writer.Prune(keep)
			for _, id := range removed {
				fmt.Fprintf(a.stdout, "removed %s\n", id)
			}

			if err == nil && len(removed) == 0 {
				fmt.Fprintln(a.stdout, "nothing to prune")
			}

			return err
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 10, "number of reports to keep")

	return cmd
}
