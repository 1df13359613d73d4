package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPlanCmd(opts *options) *cobra.Command {
	var flags requestFlags

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the grouping SQL without running it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := flags.request()
			if err != nil {
				return err
			}

			svc, closeFn, err := opts.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := svc.Plan(cmd.Context(), req)
			if err != nil {
				return err
			}

			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), res)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), res.SQL)
			return err
		},
	}

	flags.register(cmd.Flags())
	return cmd
}
