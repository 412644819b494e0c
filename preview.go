package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newPreviewCmd() *cobra.Command {
	var page, size int

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show who you follow that does not follow back",
		Long: `Fetch followers and following, diff them, and print one page of the
accounts that do not follow you back. Read-only; nothing is changed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			return withApp(cmd.Context(), cc, func(a *app) error {
				if err := a.requireRemote(); err != nil {
					return err
				}

				if size < 1 {
					size = a.cfg.Engine.PageSize
				}

				preview, err := a.reconciler.Preview(cmd.Context(), page, size)
				if err != nil {
					return err
				}

				if cc.Flags.JSON {
					return printJSON(preview)
				}

				cc.Statusf("following %d, followers %d, not following back %d (page %d)\n",
					preview.TotalFollowing, preview.TotalFollowers, preview.TotalNonFollowers, preview.Page)

				if preview.Truncated {
					cc.Statusf("warning: page ceiling reached, the view is incomplete\n")
				}

				rows := make([][]string, len(preview.Items))
				for i, u := range preview.Items {
					rows[i] = []string{u.Login, u.ProfileURL}
				}

				printTable(os.Stdout, []string{"LOGIN", "PROFILE"}, rows)

				return nil
			})
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&size, "size", 0, "page size (default: engine page_size)")

	return cmd
}
