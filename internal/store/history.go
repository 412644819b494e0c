package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event is one append-only history row. Simulated events are dry-run
// rehearsals; they never count toward idempotency or undo.
type Event struct {
	ID           string
	Username     string
	Action       string
	Timestamp    time.Time
	SourceListID string
	Simulated    bool
}

// EventQuery narrows a history search. Zero-value fields are ignored.
// Searches only ever see real (non-simulated) events.
type EventQuery struct {
	Username string
	Action   string
	Since    time.Time
}

// prepareHistoryStmts creates the prepared statements for history rows.
func (s *Store) prepareHistoryStmts(ctx context.Context) error {
	return prepareAll(ctx, s.db, []stmtDef{
		{&s.historyStmts.insert, `
			INSERT INTO history (id, username, action, ts, source_list_id, simulated)
			VALUES (?, ?, ?, ?, ?, ?)`, "history insert"},
		{&s.historyStmts.exists, `
			SELECT EXISTS(
				SELECT 1 FROM history
				WHERE username = ? AND action = ? AND simulated = 0)`, "history exists"},
	})
}

// RecordEvent appends one action to the history ledger and returns the
// stored row. The ID and timestamp are assigned here.
func (s *Store) RecordEvent(ctx context.Context, username, action string, simulated bool, sourceListID string) (*Event, error) {
	ev := &Event{
		ID:           uuid.NewString(),
		Username:     username,
		Action:       action,
		Timestamp:    time.Now(),
		SourceListID: sourceListID,
		Simulated:    simulated,
	}

	var listID sql.NullString
	if sourceListID != "" {
		listID = sql.NullString{String: sourceListID, Valid: true}
	}

	_, err := s.historyStmts.insert.ExecContext(ctx,
		ev.ID, ev.Username, ev.Action, ev.Timestamp.UnixNano(), listID, boolToInt(ev.Simulated))
	if err != nil {
		return nil, fmt.Errorf("record event: %w", err)
	}

	return ev, nil
}

// AlreadyProcessed reports whether a real (non-simulated) event with the
// same username and action has ever been recorded.
func (s *Store) AlreadyProcessed(ctx context.Context, username, action string) (bool, error) {
	var exists int

	err := s.historyStmts.exists.QueryRowContext(ctx, username, action).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check processed: %w", err)
	}

	return exists == 1, nil
}

// SearchEvents returns real events matching the query, oldest first,
// timestamp ties broken by insertion order.
func (s *Store) SearchEvents(ctx context.Context, q EventQuery) ([]Event, error) {
	var (
		conds = []string{"simulated = 0"}
		args  []any
	)

	if q.Username != "" {
		conds = append(conds, "username = ?")
		args = append(args, q.Username)
	}

	if q.Action != "" {
		conds = append(conds, "action = ?")
		args = append(args, q.Action)
	}

	if !q.Since.IsZero() {
		conds = append(conds, "ts >= ?")
		args = append(args, q.Since.UnixNano())
	}

	query := `
		SELECT id, username, action, ts, source_list_id, simulated
		FROM history
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY ts ASC, rowid ASC`

	return s.queryEvents(ctx, query, args...)
}

// RealEventsSince returns real events with the given action recorded at
// or after since, oldest first. It is the undo window scan.
func (s *Store) RealEventsSince(ctx context.Context, action string, since time.Time) ([]Event, error) {
	return s.SearchEvents(ctx, EventQuery{Action: action, Since: since})
}

// queryEvents runs a history SELECT and scans all rows.
func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event

	for rows.Next() {
		var (
			ev        Event
			ts        int64
			listID    sql.NullString
			simulated int
		)

		if err := rows.Scan(&ev.ID, &ev.Username, &ev.Action, &ts, &listID, &simulated); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}

		ev.Timestamp = time.Unix(0, ts)
		ev.SourceListID = listID.String
		ev.Simulated = simulated == 1

		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}
