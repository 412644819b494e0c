package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// prepareSettingStmts creates the prepared statements for settings rows.
func (s *Store) prepareSettingStmts(ctx context.Context) error {
	return prepareAll(ctx, s.db, []stmtDef{
		{&s.settingStmts.get, `
			SELECT value FROM settings WHERE key = ?`, "setting get"},
		{&s.settingStmts.save, `
			INSERT INTO settings (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`, "setting save"},
	})
}

// GetSetting returns the stored value for key. The second return is
// false when the key has never been set.
func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string

	err := s.settingStmts.get.QueryRowContext(ctx, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("get setting %q: %w", key, err)
	}

	return value, true, nil
}

// SaveSetting stores or replaces the value for key.
func (s *Store) SaveSetting(ctx context.Context, key, value string) error {
	if _, err := s.settingStmts.save.ExecContext(ctx, key, value); err != nil {
		return fmt.Errorf("save setting %q: %w", key, err)
	}

	return nil
}
