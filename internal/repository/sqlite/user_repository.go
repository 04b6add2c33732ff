package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/glebk/study-bot/internal/domain"
)

const userColumns = `id, username, first_name, group_id, registered, restricted,
	consecutive_absence, warnings, limit_extension, joined_at, declaration_accepted_at, updated_at`

// UserRepository implements domain.UserRepository using SQLite
type UserRepository struct {
	db *Database
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *Database) *UserRepository {
	return &UserRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{}
	var registered, restricted int
	var acceptedAt sql.NullTime

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.FirstName,
		&user.GroupID,
		&registered,
		&restricted,
		&user.ConsecutiveAbsence,
		&user.Warnings,
		&user.LimitExtension,
		&user.JoinedAt,
		&acceptedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.Registered = intToBool(registered)
	user.Restricted = intToBool(restricted)
	if acceptedAt.Valid {
		user.DeclarationAcceptedAt = &acceptedAt.Time
	}

	return user, nil
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, username, first_name, group_id, registered, restricted,
			consecutive_absence, warnings, limit_extension, joined_at, declaration_accepted_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	if user.JoinedAt.IsZero() {
		user.JoinedAt = now
	}

	var acceptedAt any
	if user.DeclarationAcceptedAt != nil {
		acceptedAt = *user.DeclarationAcceptedAt
	}

	_, err := r.db.GetDB().ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.FirstName,
		user.GroupID,
		boolToInt(user.Registered),
		boolToInt(user.Restricted),
		user.ConsecutiveAbsence,
		user.Warnings,
		user.LimitExtension,
		user.JoinedAt,
		acceptedAt,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	user.UpdatedAt = now

	return nil
}

// GetByID retrieves a user by ID, nil when absent
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	user, err := scanUser(r.db.GetDB().QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// UpdateInfo refreshes the Telegram profile fields
func (r *UserRepository) UpdateInfo(ctx context.Context, id int64, username, firstName string) error {
	query := `UPDATE users SET username = ?, first_name = ?, updated_at = ? WHERE id = ?`

	if _, err := r.db.GetDB().ExecContext(ctx, query, username, firstName, time.Now(), id); err != nil {
		return fmt.Errorf("failed to update user info: %w", err)
	}

	return nil
}

// ListByGroup retrieves every user of a group, newest first
func (r *UserRepository) ListByGroup(ctx context.Context, groupID int64) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE group_id = ? ORDER BY joined_at DESC, id`
	return r.list(ctx, query, groupID)
}

// ListRegistered retrieves the registered users of a group
func (r *UserRepository) ListRegistered(ctx context.Context, groupID int64) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE group_id = ? AND registered = 1 ORDER BY id`
	return r.list(ctx, query, groupID)
}

func (r *UserRepository) list(ctx context.Context, query string, args ...any) ([]*domain.User, error) {
	rows, err := r.db.GetDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return users, nil
}

// SetRegistered flips the registration flag. Registering stamps the
// declaration acceptance time.
func (r *UserRepository) SetRegistered(ctx context.Context, id int64, registered bool) error {
	query := `
		UPDATE users
		SET registered = ?,
			declaration_accepted_at = CASE WHEN ? = 1 THEN ? ELSE declaration_accepted_at END,
			updated_at = ?
		WHERE id = ?
	`

	now := time.Now()
	flag := boolToInt(registered)
	if _, err := r.db.GetDB().ExecContext(ctx, query, flag, flag, now, now, id); err != nil {
		return fmt.Errorf("failed to set registration: %w", err)
	}

	return nil
}

// SetRestricted records whether the user is muted in the group
func (r *UserRepository) SetRestricted(ctx context.Context, id int64, restricted bool) error {
	query := `UPDATE users SET restricted = ?, updated_at = ? WHERE id = ?`

	if _, err := r.db.GetDB().ExecContext(ctx, query, boolToInt(restricted), time.Now(), id); err != nil {
		return fmt.Errorf("failed to set restriction: %w", err)
	}

	return nil
}

// ResetAbsence zeroes the consecutive absence counter
func (r *UserRepository) ResetAbsence(ctx context.Context, id int64) error {
	query := `UPDATE users SET consecutive_absence = 0, updated_at = ? WHERE id = ?`

	if _, err := r.db.GetDB().ExecContext(ctx, query, time.Now(), id); err != nil {
		return fmt.Errorf("failed to reset absence: %w", err)
	}

	return nil
}

// IncrementAbsence bumps the consecutive absence counter and returns it
func (r *UserRepository) IncrementAbsence(ctx context.Context, id int64) (int, error) {
	query := `
		UPDATE users SET consecutive_absence = consecutive_absence + 1, updated_at = ?
		WHERE id = ?
		RETURNING consecutive_absence
	`

	var count int
	if err := r.db.GetDB().QueryRowContext(ctx, query, time.Now(), id).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to increment absence: %w", err)
	}

	return count, nil
}

// IncrementWarnings bumps the warning counter and returns it
func (r *UserRepository) IncrementWarnings(ctx context.Context, id int64) (int, error) {
	query := `
		UPDATE users SET warnings = warnings + 1, updated_at = ?
		WHERE id = ?
		RETURNING warnings
	`

	var count int
	if err := r.db.GetDB().QueryRowContext(ctx, query, time.Now(), id).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to increment warnings: %w", err)
	}

	return count, nil
}

// Revoke drops registration after a forced removal
func (r *UserRepository) Revoke(ctx context.Context, id int64) error {
	query := `
		UPDATE users
		SET registered = 0, restricted = 1, consecutive_absence = 0, warnings = 0, updated_at = ?
		WHERE id = ?
	`

	if _, err := r.db.GetDB().ExecContext(ctx, query, time.Now(), id); err != nil {
		return fmt.Errorf("failed to revoke user: %w", err)
	}

	return nil
}

// AddLimitExtension grows the per-user quota extension and returns the new value
func (r *UserRepository) AddLimitExtension(ctx context.Context, id int64, n int) (int, error) {
	query := `
		UPDATE users SET limit_extension = limit_extension + ?, updated_at = ?
		WHERE id = ?
		RETURNING limit_extension
	`

	var ext int
	err := r.db.GetDB().QueryRowContext(ctx, query, n, time.Now(), id).Scan(&ext)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to extend limit: user %d does not exist", id)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to extend limit: %w", err)
	}

	return ext, nil
}
