// Package export renders relation members and history events as CSV or
// JSON for downstream tooling.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/followgc/followgc/internal/github"
	"github.com/followgc/followgc/internal/store"
)

// Format selects the output encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name from the CLI or API.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("export: unknown format %q (want csv or json)", s)
	}
}

// WriteUsers writes relation members in the given format.
func WriteUsers(w io.Writer, format Format, users []github.User) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, users)
	case FormatCSV:
		return writeUsersCSV(w, users)
	default:
		return fmt.Errorf("export: unknown format %q", format)
	}
}

// WriteEvents writes history events in the given format. Timestamps are
// RFC 3339 with nanoseconds so re-imports do not lose ordering.
func WriteEvents(w io.Writer, format Format, events []store.Event) error {
	switch format {
	case FormatJSON:
		return writeEventsJSON(w, events)
	case FormatCSV:
		return writeEventsCSV(w, events)
	default:
		return fmt.Errorf("export: unknown format %q", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("export: encoding json: %w", err)
	}

	return nil
}

func writeUsersCSV(w io.Writer, users []github.User) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"login", "profile_url"}); err != nil {
		return fmt.Errorf("export: writing csv header: %w", err)
	}

	for _, u := range users {
		if err := cw.Write([]string{u.Login, u.ProfileURL}); err != nil {
			return fmt.Errorf("export: writing csv row: %w", err)
		}
	}

	cw.Flush()

	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: flushing csv: %w", err)
	}

	return nil
}

// eventRecord is the JSON shape of one history event.
type eventRecord struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Action       string    `json:"action"`
	Timestamp    time.Time `json:"timestamp"`
	SourceListID string    `json:"sourceListId,omitempty"`
	Simulated    bool      `json:"simulated"`
}

func writeEventsJSON(w io.Writer, events []store.Event) error {
	records := make([]eventRecord, len(events))
	for i, ev := range events {
		records[i] = eventRecord{
			ID:           ev.ID,
			Username:     ev.Username,
			Action:       ev.Action,
			Timestamp:    ev.Timestamp,
			SourceListID: ev.SourceListID,
			Simulated:    ev.Simulated,
		}
	}

	return writeJSON(w, records)
}

func writeEventsCSV(w io.Writer, events []store.Event) error {
	cw := csv.NewWriter(w)

	header := []string{"id", "username", "action", "timestamp", "source_list_id", "simulated"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("export: writing csv header: %w", err)
	}

	for _, ev := range events {
		row := []string{
			ev.ID,
			ev.Username,
			ev.Action,
			ev.Timestamp.Format(time.RFC3339Nano),
			ev.SourceListID,
			strconv.FormatBool(ev.Simulated),
		}

		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export: writing csv row: %w", err)
		}
	}

	cw.Flush()

	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: flushing csv: %w", err)
	}

	return nil
}
