package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// UndoRequest narrows an undo run. Action defaults to unfollow and is
// the only action undo supports; Usernames limits the run to those
// users; Until is the absolute start of the search window, with the
// configured default window (or a positive Window override) applying
// when it is zero.
type UndoRequest struct {
	Action    string
	Usernames []string
	Window    time.Duration
	Until     time.Time
}

// UndoReport describes one undo run: which recent real unfollows were
// found and what re-following them produced.
type UndoReport struct {
	Window     time.Duration  `json:"-"`
	Since      time.Time      `json:"since"`
	Candidates int            `json:"candidates"`
	Applied    int            `json:"applied"`
	Simulated  int            `json:"simulated"`
	Errors     int            `json:"errors"`
	Details    []TargetResult `json:"details"`
}

// Undoer re-follows users unfollowed for real within a trailing time
// window. Simulated unfollows are invisible here; there is nothing to
// undo.
type Undoer struct {
	exec   *Executor
	ledger Ledger
	window time.Duration
	logger *slog.Logger
}

// NewUndoer creates an Undoer with the given default window.
func NewUndoer(exec *Executor, ledger Ledger, window time.Duration, logger *slog.Logger) *Undoer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Undoer{exec: exec, ledger: ledger, window: window, logger: logger}
}

// Undo finds real unfollow events inside the window and re-follows each
// distinct username once, oldest first. The single-target path is used
// so prior follow history never suppresses the re-follow; the dry-run
// gate still applies. Per-target failures are counted, not fatal.
func (u *Undoer) Undo(ctx context.Context, req UndoRequest) (*UndoReport, error) {
	if req.Action != "" && req.Action != ActionUnfollow.String() {
		return nil, fmt.Errorf("%w: only unfollow can be undone, got %q", ErrInvalidAction, req.Action)
	}

	window := u.window
	if req.Window > 0 {
		window = req.Window
	}

	since := req.Until
	if since.IsZero() {
		since = time.Now().Add(-window)
	}

	events, err := u.ledger.RealEventsSince(ctx, ActionUnfollow.String(), since)
	if err != nil {
		return nil, fmt.Errorf("engine: scanning undo window: %w", err)
	}

	wanted := make(map[string]struct{}, len(req.Usernames))
	for _, name := range req.Usernames {
		wanted[name] = struct{}{}
	}

	seen := make(map[string]struct{}, len(events))
	report := &UndoReport{Window: window, Since: since}

	for _, ev := range events {
		if len(wanted) > 0 {
			if _, ok := wanted[ev.Username]; !ok {
				continue
			}
		}

		if _, ok := seen[ev.Username]; ok {
			continue
		}

		seen[ev.Username] = struct{}{}
		report.Candidates++

		result := u.exec.ApplyOne(ctx, ActionFollow, ev.Username, ev.SourceListID)
		report.Details = append(report.Details, result)

		switch result.Outcome {
		case OutcomeApplied:
			report.Applied++
		case OutcomeSimulated:
			report.Simulated++
		case OutcomeError:
			report.Errors++
		}
	}

	u.logger.Info("undo finished",
		"window", window.String(),
		"candidates", report.Candidates,
		"applied", report.Applied,
		"simulated", report.Simulated,
		"errors", report.Errors)

	return report, nil
}
