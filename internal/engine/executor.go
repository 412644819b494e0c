package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/followgc/followgc/internal/store"
)

// SkipExcluded is the skip reason for targets on the exclusion list.
const SkipExcluded = "excluded"

// SkipAlreadyProcessed is the skip reason for targets the ledger has
// already seen for this action, e.g. "already-unfollow".
func SkipAlreadyProcessed(action Action) string {
	return "already-" + action.String()
}

// RelationMutator applies a single relationship change remotely.
type RelationMutator interface {
	Follow(ctx context.Context, login string) error
	Unfollow(ctx context.Context, login string) error
}

// Ledger is the append-only history the executor records into and
// consults for idempotency.
type Ledger interface {
	RecordEvent(ctx context.Context, username, action string, simulated bool, sourceListID string) (*store.Event, error)
	AlreadyProcessed(ctx context.Context, username, action string) (bool, error)
	RealEventsSince(ctx context.Context, action string, since time.Time) ([]store.Event, error)
}

// Outcome classifies what happened to one target.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeSimulated Outcome = "simulated"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeError     Outcome = "error"
)

// TargetResult is the per-target record of a batch run.
type TargetResult struct {
	Username string  `json:"username"`
	Outcome  Outcome `json:"outcome"`
	Reason   string  `json:"reason,omitempty"`
	Message  string  `json:"message,omitempty"`
	EventID  string  `json:"eventId,omitempty"`
}

// Report summarizes a batch. Counts are derived from Details; Mixed is
// set when a mid-batch dry-run toggle produced both applied and
// simulated targets.
type Report struct {
	Action    string         `json:"action"`
	DryRun    bool           `json:"dryRun"`
	Total     int            `json:"total"`
	Applied   int            `json:"applied"`
	Simulated int            `json:"simulated"`
	Skipped   int            `json:"skipped"`
	Errors    int            `json:"errors"`
	Mixed     bool           `json:"mixed,omitempty"`
	Details   []TargetResult `json:"details"`
}

// Executor runs bulk follow/unfollow batches through the dry-run gate,
// the exclusion list (unfollows only), and the idempotency check,
// recording every decision to the ledger.
type Executor struct {
	mutator    RelationMutator
	ledger     Ledger
	exclusions *Exclusions
	dryRun     *DryRun
	workers    int
	logger     *slog.Logger
}

// NewExecutor creates an Executor with a bounded worker pool of the
// given size (minimum one).
func NewExecutor(mutator RelationMutator, ledger Ledger, exclusions *Exclusions, dryRun *DryRun, workers int, logger *slog.Logger) *Executor {
	if workers < 1 {
		workers = 1
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{
		mutator:    mutator,
		ledger:     ledger,
		exclusions: exclusions,
		dryRun:     dryRun,
		workers:    workers,
		logger:     logger,
	}
}

// Execute runs one bulk batch. The exclusion list guards unfollow
// batches only and is snapshotted once up front; follow batches may
// target excluded users. skipProcessed controls the idempotency check:
// when true, targets the ledger has already seen for this action are
// skipped. The dry-run gate is read per target so a toggle mid-batch
// takes effect for targets not yet processed. Cancellation stops new
// targets; already-finished targets stay in the report. The returned
// error covers batch-level failures only (per-target failures land in
// Details).
func (e *Executor) Execute(ctx context.Context, action Action, targets []string, sourceListID string, skipProcessed bool) (*Report, error) {
	var excluded map[string]struct{}

	if action == ActionUnfollow {
		var err error

		excluded, err = e.exclusions.SnapshotSet(ctx)
		if err != nil {
			return nil, err
		}
	}

	targets = normalizeTargets(targets)

	e.logger.Info("starting batch",
		"action", action.String(),
		"targets", len(targets),
		"dry_run", e.dryRun.Enabled(),
		"skip_processed", skipProcessed,
		"workers", e.workers)

	results := make([]TargetResult, len(targets))

	g := new(errgroup.Group)
	g.SetLimit(e.workers)

	for i, username := range targets {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			results[i] = e.applyTarget(ctx, action, username, sourceListID, excluded, skipProcessed)

			return nil
		})
	}

	// Workers never return errors; per-target failures are outcomes.
	_ = g.Wait()

	report := buildReport(action, e.dryRun.Enabled(), compact(results))

	e.logger.Info("batch finished",
		"action", report.Action,
		"applied", report.Applied,
		"simulated", report.Simulated,
		"skipped", report.Skipped,
		"errors", report.Errors)

	return report, nil
}

// ApplyOne runs the single-target path used by undo: no exclusion
// check and no idempotency skip, but still gated by dry-run and
// recorded to the ledger.
func (e *Executor) ApplyOne(ctx context.Context, action Action, username, sourceListID string) TargetResult {
	return e.applyTarget(ctx, action, username, sourceListID, nil, false)
}

// applyTarget is the per-target state machine: exclusion, idempotency,
// dry-run gate, remote mutation, ledger append. A ledger failure after a
// real mutation is reported as a target error so the operator knows the
// history is incomplete.
func (e *Executor) applyTarget(ctx context.Context, action Action, username, sourceListID string, excluded map[string]struct{}, skipProcessed bool) TargetResult {
	if _, ok := excluded[username]; ok {
		e.logger.Debug("target excluded", "username", username)

		return TargetResult{Username: username, Outcome: OutcomeSkipped, Reason: SkipExcluded}
	}

	if skipProcessed {
		done, err := e.ledger.AlreadyProcessed(ctx, username, action.String())
		if err != nil {
			return TargetResult{Username: username, Outcome: OutcomeError, Message: err.Error()}
		}

		if done {
			e.logger.Debug("target already processed", "username", username, "action", action.String())

			return TargetResult{Username: username, Outcome: OutcomeSkipped, Reason: SkipAlreadyProcessed(action)}
		}
	}

	simulated := e.dryRun.Enabled()

	if !simulated {
		if err := e.mutate(ctx, action, username); err != nil {
			e.logger.Warn("mutation failed", "username", username, "action", action.String(), "error", err)

			return TargetResult{Username: username, Outcome: OutcomeError, Message: err.Error()}
		}
	}

	event, err := e.ledger.RecordEvent(ctx, username, action.String(), simulated, sourceListID)
	if err != nil {
		return TargetResult{Username: username, Outcome: OutcomeError, Message: fmt.Sprintf("recording event: %v", err)}
	}

	outcome := OutcomeApplied
	if simulated {
		outcome = OutcomeSimulated
	}

	return TargetResult{Username: username, Outcome: outcome, EventID: event.ID}
}

func (e *Executor) mutate(ctx context.Context, action Action, username string) error {
	switch action {
	case ActionFollow:
		return e.mutator.Follow(ctx, username)
	case ActionUnfollow:
		return e.mutator.Unfollow(ctx, username)
	default:
		return fmt.Errorf("%w: %d", ErrInvalidAction, int(action))
	}
}

// normalizeTargets removes empty target names (so the blank sentinel
// used by compact stays unambiguous) and duplicates, keeping the first
// occurrence. Duplicates in one batch would otherwise race each other
// past the idempotency check.
func normalizeTargets(targets []string) []string {
	out := make([]string, 0, len(targets))
	seen := make(map[string]struct{}, len(targets))

	for _, t := range targets {
		if t == "" {
			continue
		}

		if _, ok := seen[t]; ok {
			continue
		}

		seen[t] = struct{}{}
		out = append(out, t)
	}

	return out
}

// compact drops zero-value slots left by targets never started before
// cancellation.
func compact(results []TargetResult) []TargetResult {
	out := results[:0]

	for _, r := range results {
		if r.Username != "" {
			out = append(out, r)
		}
	}

	return out
}

// buildReport derives the summary counts from per-target results.
func buildReport(action Action, dryRun bool, details []TargetResult) *Report {
	report := &Report{
		Action:  action.String(),
		DryRun:  dryRun,
		Total:   len(details),
		Details: details,
	}

	for _, r := range details {
		switch r.Outcome {
		case OutcomeApplied:
			report.Applied++
		case OutcomeSimulated:
			report.Simulated++
		case OutcomeSkipped:
			report.Skipped++
		case OutcomeError:
			report.Errors++
		}
	}

	report.Mixed = report.Applied > 0 && report.Simulated > 0

	return report
}
