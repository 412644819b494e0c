package main

import (
	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Unfollow everyone who does not follow back",
		Long: `Take a fresh snapshot, then bulk-unfollow every account that does not
follow you back. Honors the dry-run gate, the exclusion list, and
skips accounts already unfollowed before.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			return withApp(cmd.Context(), cc, func(a *app) error {
				if err := a.requireRemote(); err != nil {
					return err
				}

				if a.dryRun.Enabled() {
					cc.Statusf("dry-run is on: actions will be rehearsed, not applied\n")
				}

				result, err := a.sweeper.Run(cmd.Context())
				if err != nil {
					return err
				}

				if cc.Flags.JSON {
					return printJSON(result)
				}

				printReport(cc, result.Report)

				return nil
			})
		},
	}
}
