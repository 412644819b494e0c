package main

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/followgc/followgc/internal/engine"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Manage named username lists",
		Long: `Named lists hold usernames for batch operations. A list can be applied
as a bulk follow or unfollow; the resulting history events remember
which list they came from.`,
	}

	cmd.AddCommand(newListLsCmd())
	cmd.AddCommand(newListCreateCmd())
	cmd.AddCommand(newListShowCmd())
	cmd.AddCommand(newListUpdateCmd())
	cmd.AddCommand(newListDeleteCmd())
	cmd.AddCommand(newListApplyCmd())

	return cmd
}

func newListLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "Show all lists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			return withApp(cmd.Context(), cc, func(a *app) error {
				summaries, err := a.store.ListLists(cmd.Context())
				if err != nil {
					return err
				}

				if cc.Flags.JSON {
					return printJSON(summaries)
				}

				rows := make([][]string, len(summaries))
				for i, sum := range summaries {
					rows[i] = []string{sum.ID, sum.Name, strconv.Itoa(sum.Count), formatTime(sum.UpdatedAt)}
				}

				printTable(os.Stdout, []string{"ID", "NAME", "ITEMS", "UPDATED"}, rows)

				return nil
			})
		},
	}
}

func newListCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME [USERNAME...]",
		Short: "Create a list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			return withApp(cmd.Context(), cc, func(a *app) error {
				list, err := a.store.CreateList(cmd.Context(), args[0], args[1:])
				if err != nil {
					return err
				}

				if cc.Flags.JSON {
					return printJSON(list)
				}

				cc.Statusf("created list %s (%s) with %d items\n", list.Name, list.ID, len(list.Items))

				return nil
			})
		},
	}
}

func newListShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a list and its members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			return withApp(cmd.Context(), cc, func(a *app) error {
				list, err := a.store.GetList(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				if cc.Flags.JSON {
					return printJSON(list)
				}

				cc.Statusf("%s (%s), %d items\n", list.Name, list.ID, len(list.Items))

				for _, username := range list.Items {
					cmd.Println(username)
				}

				return nil
			})
		},
	}
}

func newListUpdateCmd() *cobra.Command {
	var (
		name  string
		items []string
	)

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Rename a list or replace its members",
		Long: `Rename a list with --name, or replace its membership wholesale with
--items. Omitting a flag leaves that part untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			return withApp(cmd.Context(), cc, func(a *app) error {
				var newItems []string
				if cmd.Flags().Changed("items") {
					newItems = items
					if newItems == nil {
						newItems = []string{}
					}
				}

				list, err := a.store.UpdateList(cmd.Context(), args[0], name, newItems)
				if err != nil {
					return err
				}

				if cc.Flags.JSON {
					return printJSON(list)
				}

				cc.Statusf("updated list %s (%s), %d items\n", list.Name, list.ID, len(list.Items))

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new list name")
	cmd.Flags().StringSliceVar(&items, "items", nil, "replacement members (comma separated)")

	return cmd
}

func newListDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			return withApp(cmd.Context(), cc, func(a *app) error {
				if err := a.store.DeleteList(cmd.Context(), args[0]); err != nil {
					return err
				}

				cc.Statusf("deleted list %s\n", args[0])

				return nil
			})
		},
	}
}

func newListApplyCmd() *cobra.Command {
	var skipProcessed bool

	cmd := &cobra.Command{
		Use:   "apply ID ACTION",
		Short: "Bulk follow or unfollow a list's members",
		Long: `Apply follow or unfollow to every member of the list, behind the
dry-run gate and the already-processed skip. Unfollow batches also
honor the exclusion list.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			action, err := engine.ParseAction(args[1])
			if err != nil {
				return err
			}

			return withApp(cmd.Context(), cc, func(a *app) error {
				if err := a.requireRemote(); err != nil {
					return err
				}

				list, err := a.store.GetList(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				report, err := a.executor.Execute(cmd.Context(), action, list.Items, list.ID, skipProcessed)
				if err != nil {
					return err
				}

				if cc.Flags.JSON {
					return printJSON(report)
				}

				printReport(cc, report)

				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&skipProcessed, "skip-processed", true, "skip targets the history already shows this action for")

	return cmd
}
