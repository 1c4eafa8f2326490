package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/graphorm/internal/orm/crud"
)

func newCountCommand(opts *options) *cobra.Command {
	var fetch fetchFlags

	cmd := &cobra.Command{
		Use:   "count <Entity>",
		Short: "Count the distinct records of an entity matching the filters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.load()
			if err != nil {
				return err
			}
			entity, err := e.entity(cmd.ErrOrStderr(), args[0])
			if err != nil {
				return err
			}
			cfg, err := fetch.config()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			runner, release, err := e.runner(ctx, fetch.dryRun)
			if err != nil {
				return err
			}
			defer release()

			counted := crud.NewOperations(entity, runner, crud.WithLogger(e.log)).Count(ctx, cfg)
			n, err := counted.Await(ctx)
			if err != nil {
				return err
			}

			if fetch.dryRun {
				return printStatement(cmd.OutOrStdout(), counted.Statement())
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}

	fetch.register(cmd, false)
	return cmd
}
