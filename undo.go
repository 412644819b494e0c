package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/followgc/followgc/internal/engine"
)

func newUndoCmd() *cobra.Command {
	var (
		usernames     []string
		windowMinutes int
		untilFlag     string
	)

	cmd := &cobra.Command{
		Use:   "undo",
		Short: "Re-follow accounts unfollowed recently",
		Long: `Re-follow every account that was unfollowed for real inside the undo
window (config undo_window_minutes, default 60). Simulated unfollows
have nothing to undo and are ignored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			var until time.Time

			if untilFlag != "" {
				parsed, err := time.Parse(time.RFC3339, untilFlag)
				if err != nil {
					return fmt.Errorf("parsing --until: %w", err)
				}

				until = parsed
			}

			return withApp(cmd.Context(), cc, func(a *app) error {
				if err := a.requireRemote(); err != nil {
					return err
				}

				report, err := a.undoer.Undo(cmd.Context(), engine.UndoRequest{
					Usernames: usernames,
					Window:    time.Duration(windowMinutes) * time.Minute,
					Until:     until,
				})
				if err != nil {
					return err
				}

				if cc.Flags.JSON {
					return printJSON(report)
				}

				cc.Statusf("%d candidates since %s: %d re-followed, %d simulated, %d errors\n",
					report.Candidates, report.Since.Format(time.RFC3339),
					report.Applied, report.Simulated, report.Errors)

				for _, r := range report.Details {
					if r.Outcome == engine.OutcomeError {
						cc.Statusf("  %s: %s\n", r.Username, r.Message)
					}
				}

				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&usernames, "username", nil, "only undo the unfollows of these users (repeatable)")
	cmd.Flags().IntVar(&windowMinutes, "window", 0, "override the undo window in minutes")
	cmd.Flags().StringVar(&untilFlag, "until", "", "undo unfollows back to this RFC3339 instant (overrides --window)")

	return cmd
}
