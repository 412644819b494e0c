package main

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/followgc/followgc/internal/insights"
)

func newFilterCmd() *cobra.Command {
	var page, size int

	cmd := &cobra.Command{
		Use:   "filter EXPRESSION",
		Short: "Evaluate a filter expression over who you follow",
		Long: `Evaluate a boolean expression against every account you follow and
print the matches. Available fields: login, profile_url, followers,
public_repos, last_activity, inactive_days, follows_you.

Example:
  followgc filter 'inactive_days > 90 && !follows_you'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFilter(cmd, args[0], page, size)
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&size, "size", 0, "page size (default: engine page_size)")

	return cmd
}

func newSuggestCmd() *cobra.Command {
	var page, size int

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest unfollow candidates",
		Long: `Run the built-in heuristic (` + insights.SuggestExpression + `)
over who you follow and print likely unfollow candidates.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFilter(cmd, insights.SuggestExpression, page, size)
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&size, "size", 0, "page size (default: engine page_size)")

	return cmd
}

func runFilter(cmd *cobra.Command, src string, page, size int) error {
	cc := mustCLIContext(cmd.Context())

	filter, err := insights.CompileFilter(src)
	if err != nil {
		return err
	}

	return withApp(cmd.Context(), cc, func(a *app) error {
		if err := a.requireRemote(); err != nil {
			return err
		}

		if size < 1 {
			size = a.cfg.Engine.PageSize
		}

		snap, err := a.reconciler.Snapshot(cmd.Context())
		if err != nil {
			return err
		}

		followerLogins := make(map[string]struct{}, len(snap.Followers))
		for _, u := range snap.Followers {
			followerLogins[u.Login] = struct{}{}
		}

		result, err := a.evaluator.Evaluate(cmd.Context(), filter, snap.Following, followerLogins)
		if err != nil {
			return err
		}

		matched := insights.PageMetrics(result.Matched, page, size)

		if cc.Flags.JSON {
			return printJSON(matched)
		}

		cc.Statusf("%d of %d matched %q", len(result.Matched), len(snap.Following), src)

		if result.Errors > 0 {
			cc.Statusf(" (%d could not be checked)", result.Errors)
		}

		cc.Statusf("\n")

		rows := make([][]string, len(matched))
		for i, m := range matched {
			inactive := strconv.Itoa(m.InactiveDays)
			if m.LastActivity.IsZero() {
				inactive = "never active"
			}

			rows[i] = []string{
				m.Login,
				strconv.Itoa(m.Followers),
				strconv.Itoa(m.PublicRepos),
				inactive,
				strconv.FormatBool(m.FollowsYou),
			}
		}

		printTable(os.Stdout, []string{"LOGIN", "FOLLOWERS", "REPOS", "INACTIVE DAYS", "FOLLOWS YOU"}, rows)

		return nil
	})
}
