package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SettingsRepository implements domain.SettingsRepository using SQLite
type SettingsRepository struct {
	db *Database
}

// NewSettingsRepository creates a new SettingsRepository
func NewSettingsRepository(db *Database) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GroupLimit returns the stored default daily limit of a group
func (r *SettingsRepository) GroupLimit(ctx context.Context, groupID int64) (int, bool, error) {
	query := `SELECT daily_message_limit FROM group_settings WHERE group_id = ?`

	var limit int
	err := r.db.GetDB().QueryRowContext(ctx, query, groupID).Scan(&limit)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get group limit: %w", err)
	}

	return limit, true, nil
}

// SetGroupLimit stores the default daily limit of a group
func (r *SettingsRepository) SetGroupLimit(ctx context.Context, groupID int64, limit int) error {
	query := `
		INSERT INTO group_settings (group_id, daily_message_limit, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(group_id) DO UPDATE SET
			daily_message_limit = excluded.daily_message_limit,
			updated_at = excluded.updated_at
	`

	if _, err := r.db.GetDB().ExecContext(ctx, query, groupID, limit, time.Now()); err != nil {
		return fmt.Errorf("failed to set group limit: %w", err)
	}

	return nil
}
