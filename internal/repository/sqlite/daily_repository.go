package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/glebk/study-bot/internal/domain"
)

// DailyRecordRepository implements domain.DailyRecordRepository using SQLite
type DailyRecordRepository struct {
	db *Database
}

// NewDailyRecordRepository creates a new DailyRecordRepository
func NewDailyRecordRepository(db *Database) *DailyRecordRepository {
	return &DailyRecordRepository{db: db}
}

// Get retrieves the record of a user for a day with its reminders, nil when absent
func (r *DailyRecordRepository) Get(ctx context.Context, userID int64, day domain.Day) (*domain.DailyRecord, error) {
	query := `
		SELECT user_id, day, has_target, is_day_off, marked_absent, absent_reason, message_count, message_limit
		FROM daily_records
		WHERE user_id = ? AND day = ?
	`

	record := &domain.DailyRecord{}
	var hasTarget, isDayOff, absent int
	var limit sql.NullInt64

	err := r.db.GetDB().QueryRowContext(ctx, query, userID, day).Scan(
		&record.UserID,
		&record.Day,
		&hasTarget,
		&isDayOff,
		&absent,
		&record.AbsentReason,
		&record.MessageCount,
		&limit,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily record: %w", err)
	}

	record.HasTarget = intToBool(hasTarget)
	record.IsDayOff = intToBool(isDayOff)
	record.MarkedAbsent = intToBool(absent)
	if limit.Valid {
		record.MessageLimit = int(limit.Int64)
	}

	reminders, err := r.reminders(ctx, userID, day)
	if err != nil {
		return nil, err
	}
	record.RemindersSent = reminders

	return record, nil
}

func (r *DailyRecordRepository) reminders(ctx context.Context, userID int64, day domain.Day) ([]domain.Reminder, error) {
	query := `
		SELECT kind, sent_at FROM reminders
		WHERE user_id = ? AND day = ?
		ORDER BY kind
	`

	rows, err := r.db.GetDB().QueryContext(ctx, query, userID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to get reminders: %w", err)
	}
	defer rows.Close()

	var reminders []domain.Reminder
	for rows.Next() {
		var rem domain.Reminder
		if err := rows.Scan(&rem.Kind, &rem.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, rem)
	}

	return reminders, rows.Err()
}

// MarkTarget flags the day as having a target
func (r *DailyRecordRepository) MarkTarget(ctx context.Context, userID int64, day domain.Day) error {
	query := `
		INSERT INTO daily_records (user_id, day, has_target) VALUES (?, ?, 1)
		ON CONFLICT(user_id, day) DO UPDATE SET has_target = 1
	`

	if _, err := r.db.GetDB().ExecContext(ctx, query, userID, day); err != nil {
		return fmt.Errorf("failed to mark target: %w", err)
	}

	return nil
}

// MarkDayOff flags the day as a day-off
func (r *DailyRecordRepository) MarkDayOff(ctx context.Context, userID int64, day domain.Day) error {
	query := `
		INSERT INTO daily_records (user_id, day, is_day_off) VALUES (?, ?, 1)
		ON CONFLICT(user_id, day) DO UPDATE SET is_day_off = 1
	`

	if _, err := r.db.GetDB().ExecContext(ctx, query, userID, day); err != nil {
		return fmt.Errorf("failed to mark day off: %w", err)
	}

	return nil
}

// MarkAbsent flags the day as absent. It returns false if it already was.
func (r *DailyRecordRepository) MarkAbsent(ctx context.Context, userID int64, day domain.Day, reason string) (bool, error) {
	query := `
		INSERT INTO daily_records (user_id, day, marked_absent, absent_reason) VALUES (?, ?, 1, ?)
		ON CONFLICT(user_id, day) DO UPDATE SET marked_absent = 1, absent_reason = excluded.absent_reason
		WHERE daily_records.marked_absent = 0
	`

	result, err := r.db.GetDB().ExecContext(ctx, query, userID, day, reason)
	if err != nil {
		return false, fmt.Errorf("failed to mark absent: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to mark absent: %w", err)
	}

	return affected > 0, nil
}

// IncrementMessages counts one message. The limit is seeded only when the
// day's counter is first used.
func (r *DailyRecordRepository) IncrementMessages(ctx context.Context, userID int64, day domain.Day, seedLimit int) (int, int, error) {
	query := `
		INSERT INTO daily_records (user_id, day, message_count, message_limit) VALUES (?, ?, 1, ?)
		ON CONFLICT(user_id, day) DO UPDATE SET
			message_count = daily_records.message_count + 1,
			message_limit = COALESCE(daily_records.message_limit, excluded.message_limit)
		RETURNING message_count, message_limit
	`

	var count, limit int
	if err := r.db.GetDB().QueryRowContext(ctx, query, userID, day, seedLimit).Scan(&count, &limit); err != nil {
		return 0, 0, fmt.Errorf("failed to increment messages: %w", err)
	}

	return count, limit, nil
}

// AddMessageLimit raises the limit of an already seeded counter. Returns 0
// when the day has no counter yet.
func (r *DailyRecordRepository) AddMessageLimit(ctx context.Context, userID int64, day domain.Day, n int) (int, error) {
	query := `
		UPDATE daily_records SET message_limit = message_limit + ?
		WHERE user_id = ? AND day = ? AND message_limit IS NOT NULL
		RETURNING message_limit
	`

	var limit int
	err := r.db.GetDB().QueryRowContext(ctx, query, n, userID, day).Scan(&limit)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to add message limit: %w", err)
	}

	return limit, nil
}

// ResetMessageCounts zeroes every counter of the day
func (r *DailyRecordRepository) ResetMessageCounts(ctx context.Context, day domain.Day) (int64, error) {
	query := `UPDATE daily_records SET message_count = 0 WHERE day = ? AND message_count <> 0`

	result, err := r.db.GetDB().ExecContext(ctx, query, day)
	if err != nil {
		return 0, fmt.Errorf("failed to reset message counts: %w", err)
	}

	return result.RowsAffected()
}

// AddReminder appends a reminder. It returns false if kind was already sent that day.
func (r *DailyRecordRepository) AddReminder(ctx context.Context, userID int64, day domain.Day, kind domain.ReminderKind, at time.Time) (bool, error) {
	ensure := `INSERT INTO daily_records (user_id, day) VALUES (?, ?) ON CONFLICT(user_id, day) DO NOTHING`
	if _, err := r.db.GetDB().ExecContext(ctx, ensure, userID, day); err != nil {
		return false, fmt.Errorf("failed to add reminder: %w", err)
	}

	query := `
		INSERT INTO reminders (user_id, day, kind, sent_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, day, kind) DO NOTHING
	`

	result, err := r.db.GetDB().ExecContext(ctx, query, userID, day, int(kind), at)
	if err != nil {
		return false, fmt.Errorf("failed to add reminder: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to add reminder: %w", err)
	}

	return affected > 0, nil
}
