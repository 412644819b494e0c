package engine

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// dryRunSettingKey is where the persisted dry-run flag lives in the
// settings table.
const dryRunSettingKey = "dry_run"

// SettingStore persists small key/value process settings.
type SettingStore interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SaveSetting(ctx context.Context, key, value string) error
}

// DryRun is the process-wide dry-run gate. Enabled means bulk actions
// are rehearsed (recorded as simulated) instead of hitting the API.
// Safe for concurrent use; the executor reads it per target so a toggle
// mid-batch takes effect immediately.
type DryRun struct {
	enabled atomic.Bool

	mu          sync.Mutex
	lastChanged time.Time
}

// NewDryRun returns a gate with the given initial state.
func NewDryRun(enabled bool) *DryRun {
	d := &DryRun{}
	d.enabled.Store(enabled)

	return d
}

// Enabled reports whether dry-run mode is on.
func (d *DryRun) Enabled() bool {
	return d.enabled.Load()
}

// Set switches the gate and records when it changed.
func (d *DryRun) Set(enabled bool) {
	d.enabled.Store(enabled)

	d.mu.Lock()
	d.lastChanged = time.Now()
	d.mu.Unlock()
}

// Toggle flips the gate and returns the new state.
func (d *DryRun) Toggle() bool {
	for {
		old := d.enabled.Load()
		if d.enabled.CompareAndSwap(old, !old) {
			d.mu.Lock()
			d.lastChanged = time.Now()
			d.mu.Unlock()

			return !old
		}
	}
}

// Status returns the current state and when it last changed. The zero
// time means the gate has not been switched since construction.
func (d *DryRun) Status() (bool, time.Time) {
	d.mu.Lock()
	changed := d.lastChanged
	d.mu.Unlock()

	return d.enabled.Load(), changed
}

// LoadDryRun builds a gate from the persisted setting, falling back to
// the configured default when nothing has been saved yet.
func LoadDryRun(ctx context.Context, settings SettingStore, fallback bool) (*DryRun, error) {
	value, ok, err := settings.GetSetting(ctx, dryRunSettingKey)
	if err != nil {
		return nil, fmt.Errorf("engine: loading dry-run setting: %w", err)
	}

	if !ok {
		return NewDryRun(fallback), nil
	}

	enabled, err := strconv.ParseBool(value)
	if err != nil {
		return nil, fmt.Errorf("engine: corrupt dry-run setting %q: %w", value, err)
	}

	return NewDryRun(enabled), nil
}

// Persist saves the current state so it survives restarts.
func (d *DryRun) Persist(ctx context.Context, settings SettingStore) error {
	if err := settings.SaveSetting(ctx, dryRunSettingKey, strconv.FormatBool(d.Enabled())); err != nil {
		return fmt.Errorf("engine: saving dry-run setting: %w", err)
	}

	return nil
}
