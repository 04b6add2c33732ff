package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/glebk/study-bot/internal/domain"
)

// ExportRepository implements domain.ExportRepository using SQLite
type ExportRepository struct {
	db *Database
}

// NewExportRepository creates a new ExportRepository
func NewExportRepository(db *Database) *ExportRepository {
	return &ExportRepository{db: db}
}

// Dump reads the group's users with all their targets and day-offs inside
// a single read transaction.
func (r *ExportRepository) Dump(ctx context.Context, groupID int64) (*domain.Export, error) {
	tx, err := r.db.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin export: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	export := &domain.Export{GroupID: groupID, ExportedAt: time.Now()}

	rows, err := tx.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE group_id = ? ORDER BY id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to export users: %w", err)
	}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		export.Users = append(export.Users, user)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to export users: %w", err)
	}

	rows, err = tx.QueryContext(ctx, `
		SELECT `+targetColumns+` FROM targets
		WHERE user_id IN (SELECT id FROM users WHERE group_id = ?)
		ORDER BY user_id, day
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to export targets: %w", err)
	}
	for rows.Next() {
		target, err := scanTarget(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		export.Targets = append(export.Targets, target)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to export targets: %w", err)
	}

	rows, err = tx.QueryContext(ctx, `
		SELECT user_id, day, reason, created_at FROM dayoffs
		WHERE user_id IN (SELECT id FROM users WHERE group_id = ?)
		ORDER BY user_id, day
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to export day offs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		dayOff := &domain.DayOff{}
		if err := rows.Scan(&dayOff.UserID, &dayOff.Day, &dayOff.Reason, &dayOff.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan day off: %w", err)
		}
		export.DayOffs = append(export.DayOffs, dayOff)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to export day offs: %w", err)
	}

	return export, nil
}
