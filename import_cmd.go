package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/followgc/followgc/internal/engine"
)

func newImportCmd() *cobra.Command {
	var (
		action        string
		skipProcessed bool
	)

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import usernames and re-follow or exclude them",
		Long: `Read usernames from a CSV or JSON file (or stdin with "-") and either
bulk re-follow them or add them to the exclusion list. CSV uses the
first column; a leading "login" header row is skipped. JSON is a plain
string array.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			usernames, err := readImportFile(args[0])
			if err != nil {
				return err
			}

			if len(usernames) == 0 {
				return errors.New("no usernames found in input")
			}

			return withApp(cmd.Context(), cc, func(a *app) error {
				switch action {
				case "refollow":
					if err := a.requireRemote(); err != nil {
						return err
					}

					report, err := a.executor.Execute(cmd.Context(), engine.ActionFollow, usernames, "", skipProcessed)
					if err != nil {
						return err
					}

					if cc.Flags.JSON {
						return printJSON(report)
					}

					printReport(cc, report)

					return nil
				case "exclude":
					added, err := a.exclusions.Add(cmd.Context(), usernames)
					if err != nil {
						return err
					}

					cc.Statusf("added %d of %d to %s\n", added, len(usernames), a.exclusions.Name())

					return nil
				default:
					return fmt.Errorf("--action must be refollow or exclude, got %q", action)
				}
			})
		},
	}

	cmd.Flags().StringVar(&action, "action", "refollow", "refollow or exclude")
	cmd.Flags().BoolVar(&skipProcessed, "skip-processed", true, "skip targets the history already shows this action for")

	return cmd
}

// readImportFile loads usernames from a file or stdin. JSON input is
// detected by a leading '['; everything else is treated as CSV.
func readImportFile(path string) ([]string, error) {
	var (
		data []byte
		err  error
	)

	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}

	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var usernames []string
		if err := json.Unmarshal([]byte(trimmed), &usernames); err != nil {
			return nil, fmt.Errorf("parsing json input: %w", err)
		}

		return usernames, nil
	}

	return parseUsernamesCSV(strings.NewReader(trimmed))
}

func parseUsernamesCSV(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var usernames []string

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("parsing csv input: %w", err)
		}

		if len(record) == 0 {
			continue
		}

		login := strings.TrimSpace(record[0])
		if login == "" || login == "login" {
			continue
		}

		usernames = append(usernames, login)
	}

	return usernames, nil
}
