package engine

import (
	"context"
	"log/slog"
	"time"
)

// Notifier delivers a sweep summary out of band. Delivery failures are
// logged, never fatal.
type Notifier interface {
	SendSweepSummary(ctx context.Context, result *SweepResult) error
}

// SweepResult bundles the snapshot a sweep acted on with the batch
// report it produced.
type SweepResult struct {
	Snapshot   *Snapshot `json:"-"`
	Report     *Report   `json:"report"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Sweeper chains a reconciliation snapshot into a bulk unfollow of
// everyone who does not follow back, then notifies.
type Sweeper struct {
	reconciler *Reconciler
	exec       *Executor
	notifier   Notifier
	logger     *slog.Logger
}

// NewSweeper creates a Sweeper. The notifier may be nil when mail is
// not configured.
func NewSweeper(reconciler *Reconciler, exec *Executor, notifier Notifier, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}

	return &Sweeper{reconciler: reconciler, exec: exec, notifier: notifier, logger: logger}
}

// Run takes a fresh snapshot and bulk-unfollows every non-follower in
// it. Whether that is real or rehearsed is up to the dry-run gate.
func (s *Sweeper) Run(ctx context.Context) (*SweepResult, error) {
	started := time.Now()

	snap, err := s.reconciler.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	targets := make([]string, len(snap.NonFollowers))
	for i, u := range snap.NonFollowers {
		targets[i] = u.Login
	}

	report, err := s.exec.Execute(ctx, ActionUnfollow, targets, "", true)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{
		Snapshot:   snap,
		Report:     report,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}

	if s.notifier != nil {
		if err := s.notifier.SendSweepSummary(ctx, result); err != nil {
			s.logger.Warn("sweep summary notification failed", "error", err)
		}
	}

	return result, nil
}
