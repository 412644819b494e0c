package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDryrunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dryrun",
		Short: "Show or change dry-run mode",
		Long: `Dry-run mode rehearses bulk actions: decisions are recorded to history
as simulated, and nothing is changed on GitHub. Changes made here are
persisted and apply to future invocations until switched again.`,
	}

	cmd.AddCommand(newDryrunStatusCmd())
	cmd.AddCommand(newDryrunSetCmd("on", true))
	cmd.AddCommand(newDryrunSetCmd("off", false))
	cmd.AddCommand(newDryrunToggleCmd())

	return cmd
}

type dryrunOutput struct {
	Enabled bool `json:"enabled"`
}

func reportDryrun(cc *CLIContext, enabled bool) error {
	if cc.Flags.JSON {
		return printJSON(dryrunOutput{Enabled: enabled})
	}

	state := "off"
	if enabled {
		state = "on"
	}

	fmt.Printf("dry-run is %s\n", state)

	return nil
}

func newDryrunStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current dry-run state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			return withApp(cmd.Context(), cc, func(a *app) error {
				return reportDryrun(cc, a.dryRun.Enabled())
			})
		},
	}
}

func newDryrunSetCmd(name string, enabled bool) *cobra.Command {
	short := "Disable dry-run mode (bulk actions become real)"
	if enabled {
		short = "Enable dry-run mode"
	}

	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			return withApp(cmd.Context(), cc, func(a *app) error {
				a.dryRun.Set(enabled)

				if err := a.dryRun.Persist(cmd.Context(), a.store); err != nil {
					return err
				}

				return reportDryrun(cc, enabled)
			})
		},
	}
}

func newDryrunToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle",
		Short: "Flip the dry-run state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			return withApp(cmd.Context(), cc, func(a *app) error {
				enabled := a.dryRun.Toggle()

				if err := a.dryRun.Persist(cmd.Context(), a.store); err != nil {
					return err
				}

				return reportDryrun(cc, enabled)
			})
		},
	}
}
