package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebk/study-bot/internal/domain"
)

// TargetRepository implements domain.TargetRepository using SQLite
type TargetRepository struct {
	db *Database
}

// NewTargetRepository creates a new TargetRepository
func NewTargetRepository(db *Database) *TargetRepository {
	return &TargetRepository{db: db}
}

// Upsert creates the day's target or updates its text and attachment
func (r *TargetRepository) Upsert(ctx context.Context, target *domain.Target) (bool, error) {
	existing, err := r.Get(ctx, target.UserID, target.Day)
	if err != nil {
		return false, err
	}

	now := time.Now()

	if existing != nil {
		query := `
			UPDATE targets SET text = ?, attachment = ?, updated_at = ?
			WHERE user_id = ? AND day = ?
		`
		if _, err := r.db.GetDB().ExecContext(ctx, query,
			target.Text, target.Attachment, now, target.UserID, target.Day,
		); err != nil {
			return false, fmt.Errorf("failed to update target: %w", err)
		}

		target.Status = existing.Status
		target.CreatedAt = existing.CreatedAt
		target.CompletedAt = existing.CompletedAt
		target.UpdatedAt = now
		return false, nil
	}

	query := `
		INSERT INTO targets (user_id, day, text, attachment, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := r.db.GetDB().ExecContext(ctx, query,
		target.UserID, target.Day, target.Text, target.Attachment, domain.TargetStatusPending, now, now,
	); err != nil {
		return false, fmt.Errorf("failed to create target: %w", err)
	}

	target.Status = domain.TargetStatusPending
	target.CreatedAt = now
	target.UpdatedAt = now

	return true, nil
}

const targetColumns = `user_id, day, text, attachment, status, progress, created_at, updated_at, completed_at`

func scanTarget(row rowScanner) (*domain.Target, error) {
	target := &domain.Target{}
	var completedAt sql.NullTime

	err := row.Scan(
		&target.UserID,
		&target.Day,
		&target.Text,
		&target.Attachment,
		&target.Status,
		&target.Progress,
		&target.CreatedAt,
		&target.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		target.CompletedAt = &completedAt.Time
	}

	return target, nil
}

// Get retrieves a user's target for a day, nil when absent
func (r *TargetRepository) Get(ctx context.Context, userID int64, day domain.Day) (*domain.Target, error) {
	query := `SELECT ` + targetColumns + ` FROM targets WHERE user_id = ? AND day = ?`

	target, err := scanTarget(r.db.GetDB().QueryRowContext(ctx, query, userID, day))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get target: %w", err)
	}

	return target, nil
}

// Recent lists the user's latest targets, newest first
func (r *TargetRepository) Recent(ctx context.Context, userID int64, limit int) ([]*domain.Target, error) {
	query := `SELECT ` + targetColumns + ` FROM targets WHERE user_id = ? ORDER BY day DESC LIMIT ?`
	return r.list(ctx, query, userID, limit)
}

func (r *TargetRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Target, error) {
	rows, err := r.db.GetDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	defer rows.Close()

	var targets []*domain.Target
	for rows.Next() {
		target, err := scanTarget(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		targets = append(targets, target)
	}

	return targets, rows.Err()
}

// Complete marks the day's target as completed. It returns false when there
// is no pending target for that day.
func (r *TargetRepository) Complete(ctx context.Context, userID int64, day domain.Day, at time.Time) (bool, error) {
	query := `
		UPDATE targets SET status = ?, progress = 100, completed_at = ?, updated_at = ?
		WHERE user_id = ? AND day = ? AND status = ?
	`

	result, err := r.db.GetDB().ExecContext(ctx, query,
		domain.TargetStatusCompleted, at, at, userID, day, domain.TargetStatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("failed to complete target: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to complete target: %w", err)
	}

	return affected > 0, nil
}

// SetProgress updates the progress of the day's pending target
func (r *TargetRepository) SetProgress(ctx context.Context, userID int64, day domain.Day, progress int, at time.Time) (bool, error) {
	query := `
		UPDATE targets SET progress = ?, updated_at = ?
		WHERE user_id = ? AND day = ? AND status = ?
	`

	result, err := r.db.GetDB().ExecContext(ctx, query,
		progress, at, userID, day, domain.TargetStatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update progress: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update progress: %w", err)
	}

	return affected > 0, nil
}

// Days lists the days in [from, to] with a target, optionally filtered by status
func (r *TargetRepository) Days(ctx context.Context, userID int64, from, to domain.Day, status ...domain.TargetStatus) ([]domain.Day, error) {
	query := `SELECT day FROM targets WHERE user_id = ? AND day >= ? AND day <= ?`
	args := []any{userID, from, to}

	if len(status) > 0 {
		query += ` AND status IN (?` + strings.Repeat(", ?", len(status)-1) + `)`
		for _, s := range status {
			args = append(args, s)
		}
	}
	query += ` ORDER BY day`

	return queryDays(ctx, r.db, query, args...)
}

// CountByStatus counts the user's targets in [from, to] per status
func (r *TargetRepository) CountByStatus(ctx context.Context, userID int64, from, to domain.Day) (map[domain.TargetStatus]int, error) {
	query := `
		SELECT status, COUNT(*) FROM targets
		WHERE user_id = ? AND day >= ? AND day <= ?
		GROUP BY status
	`

	rows, err := r.db.GetDB().QueryContext(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to count targets: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.TargetStatus]int)
	for rows.Next() {
		var status domain.TargetStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan target count: %w", err)
		}
		counts[status] = n
	}

	return counts, rows.Err()
}

// Leaderboard ranks the registered members of a group by completed targets
// in [from, to]. Ties are broken by user id.
func (r *TargetRepository) Leaderboard(ctx context.Context, groupID int64, from, to domain.Day, limit int) ([]domain.LeaderboardEntry, error) {
	query := `
		SELECT u.id, u.username, u.first_name, COUNT(*) AS completed
		FROM targets t
		JOIN users u ON u.id = t.user_id
		WHERE u.group_id = ? AND u.registered = 1
			AND t.status = ? AND t.day >= ? AND t.day <= ?
		GROUP BY u.id, u.username, u.first_name
		ORDER BY completed DESC, u.id ASC
		LIMIT ?
	`

	rows, err := r.db.GetDB().QueryContext(ctx, query, groupID, domain.TargetStatusCompleted, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.FirstName, &e.Completed); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func queryDays(ctx context.Context, db *Database, query string, args ...any) ([]domain.Day, error) {
	rows, err := db.GetDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list days: %w", err)
	}
	defer rows.Close()

	var days []domain.Day
	for rows.Next() {
		var d domain.Day
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan day: %w", err)
		}
		days = append(days, d)
	}

	return days, rows.Err()
}
