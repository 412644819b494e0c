package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/followgc/followgc/internal/export"
	"github.com/followgc/followgc/internal/github"
)

func newExportCmd() *cobra.Command {
	var (
		relation string
		format   string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a relation as CSV or JSON",
		Long: `Export followers, following, or the accounts not following back.
Writes to stdout unless --output names a file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			outFormat, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			return withApp(cmd.Context(), cc, func(a *app) error {
				if err := a.requireRemote(); err != nil {
					return err
				}

				var selected []github.User

				switch relation {
				case "non-followers":
					snap, err := a.reconciler.Snapshot(cmd.Context())
					if err != nil {
						return err
					}

					selected = snap.NonFollowers
				case "followers", "following":
					set, err := a.collector.FetchAll(cmd.Context(), github.Relation(relation))
					if err != nil {
						return err
					}

					selected = set.Users
				default:
					return fmt.Errorf("unknown relation %q (want followers, following, or non-followers)", relation)
				}

				w, closeFn, err := openOutput(output)
				if err != nil {
					return err
				}
				defer closeFn()

				return export.WriteUsers(w, outFormat, selected)
			})
		},
	}

	cmd.Flags().StringVar(&relation, "relation", "non-followers", "followers, following, or non-followers")
	cmd.Flags().StringVar(&format, "format", "csv", "csv or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	return cmd
}

// openOutput returns stdout or the named file plus a cleanup func.
func openOutput(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}

	return f, func() { f.Close() }, nil
}
