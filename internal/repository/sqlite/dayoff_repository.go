package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/glebk/study-bot/internal/domain"
)

// DayOffRepository implements domain.DayOffRepository using SQLite
type DayOffRepository struct {
	db *Database
}

// NewDayOffRepository creates a new DayOffRepository
func NewDayOffRepository(db *Database) *DayOffRepository {
	return &DayOffRepository{db: db}
}

// Create records a day-off unless one already exists for that day
func (r *DayOffRepository) Create(ctx context.Context, dayOff *domain.DayOff) (bool, error) {
	query := `
		INSERT INTO dayoffs (user_id, day, reason, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, day) DO NOTHING
	`

	now := time.Now()
	result, err := r.db.GetDB().ExecContext(ctx, query, dayOff.UserID, dayOff.Day, dayOff.Reason, now)
	if err != nil {
		return false, fmt.Errorf("failed to create day off: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to create day off: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	dayOff.CreatedAt = now

	return true, nil
}

// Get retrieves a user's day-off for a day, nil when absent
func (r *DayOffRepository) Get(ctx context.Context, userID int64, day domain.Day) (*domain.DayOff, error) {
	query := `SELECT user_id, day, reason, created_at FROM dayoffs WHERE user_id = ? AND day = ?`

	dayOff := &domain.DayOff{}
	err := r.db.GetDB().QueryRowContext(ctx, query, userID, day).Scan(
		&dayOff.UserID,
		&dayOff.Day,
		&dayOff.Reason,
		&dayOff.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get day off: %w", err)
	}

	return dayOff, nil
}

// Days lists the user's day-offs in [from, to], ascending
func (r *DayOffRepository) Days(ctx context.Context, userID int64, from, to domain.Day) ([]domain.Day, error) {
	query := `SELECT day FROM dayoffs WHERE user_id = ? AND day >= ? AND day <= ? ORDER BY day`
	return queryDays(ctx, r.db, query, userID, from, to)
}
