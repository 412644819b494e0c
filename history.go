package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/followgc/followgc/internal/engine"
	"github.com/followgc/followgc/internal/export"
	"github.com/followgc/followgc/internal/store"
)

func newHistoryCmd() *cobra.Command {
	var (
		username   string
		action     string
		since      string
		exportFlag string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the action history",
		Long: `Show real (non-simulated) follow/unfollow events from the append-only
history, oldest first. With --export, write CSV or JSON instead of a
table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			q := store.EventQuery{Username: username, Action: action}

			if action != "" {
				if _, err := engine.ParseAction(action); err != nil {
					return err
				}
			}

			if since != "" {
				t, err := time.Parse(time.RFC3339, since)
				if err != nil {
					return fmt.Errorf("--since must be RFC 3339 (e.g. 2026-01-02T15:04:05Z): %w", err)
				}

				q.Since = t
			}

			return withApp(cmd.Context(), cc, func(a *app) error {
				events, err := a.store.SearchEvents(cmd.Context(), q)
				if err != nil {
					return err
				}

				if exportFlag != "" {
					format, err := export.ParseFormat(exportFlag)
					if err != nil {
						return err
					}

					w, closeFn, err := openOutput(output)
					if err != nil {
						return err
					}
					defer closeFn()

					return export.WriteEvents(w, format, events)
				}

				if cc.Flags.JSON {
					return printJSON(events)
				}

				rows := make([][]string, len(events))
				for i, ev := range events {
					rows[i] = []string{formatTime(ev.Timestamp), ev.Action, ev.Username}
				}

				printTable(os.Stdout, []string{"WHEN", "ACTION", "LOGIN"}, rows)
				cc.Statusf("%d events\n", len(events))

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "filter by username")
	cmd.Flags().StringVar(&action, "action", "", "filter by action (follow or unfollow)")
	cmd.Flags().StringVar(&since, "since", "", "only events at or after this RFC 3339 time")
	cmd.Flags().StringVar(&exportFlag, "export", "", "write csv or json instead of a table")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file for --export (default stdout)")

	return cmd
}
