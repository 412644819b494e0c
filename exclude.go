package main

import (
	"github.com/spf13/cobra"
)

func newExcludeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exclude",
		Short: "Manage the exclusion list",
		Long: `The exclusion list names accounts bulk unfollows must never touch. It
is consulted before anything else, so an excluded account is safe even
from a real sweep. Follows are not affected; excluded accounts can
still be re-followed.`,
	}

	cmd.AddCommand(newExcludeAddCmd())
	cmd.AddCommand(newExcludeShowCmd())

	return cmd
}

func newExcludeAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add USERNAME...",
		Short: "Add accounts to the exclusion list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			return withApp(cmd.Context(), cc, func(a *app) error {
				added, err := a.exclusions.Add(cmd.Context(), args)
				if err != nil {
					return err
				}

				cc.Statusf("added %d of %d to %s\n", added, len(args), a.exclusions.Name())

				return nil
			})
		},
	}
}

func newExcludeShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the exclusion list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			return withApp(cmd.Context(), cc, func(a *app) error {
				list, err := a.exclusions.Members(cmd.Context())
				if err != nil {
					return err
				}

				if cc.Flags.JSON {
					return printJSON(list)
				}

				cc.Statusf("%s, %d members\n", list.Name, len(list.Items))

				for _, username := range list.Items {
					cmd.Println(username)
				}

				return nil
			})
		},
	}
}
