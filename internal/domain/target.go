package domain

import (
	"context"
	"strings"
	"time"
)

// TargetStatus represents the state of a daily study target
type TargetStatus string

const (
	TargetStatusPending   TargetStatus = "pending"
	TargetStatusCompleted TargetStatus = "completed"
)

// Target is a user's study target for a day
type Target struct {
	UserID      int64        `json:"user_id"`
	Day         Day          `json:"day"`
	Text        string       `json:"text"`
	Attachment  string       `json:"attachment,omitempty"` // Telegram file id, optional
	Status      TargetStatus `json:"status"`
	Progress    int          `json:"progress"` // percent, 0..100
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// ProgressBar renders progress as five blocks, one per 20%.
func (t *Target) ProgressBar() string {
	filled := t.Progress / 20
	return strings.Repeat("█", filled) + strings.Repeat("░", 5-filled)
}

// LeaderboardEntry is one ranked row of the leaderboard
type LeaderboardEntry struct {
	UserID    int64
	Username  string
	FirstName string
	Completed int
}

// DisplayName mirrors User.DisplayName for leaderboard rows.
func (e LeaderboardEntry) DisplayName() string {
	u := User{Username: e.Username, FirstName: e.FirstName}
	return u.DisplayName()
}

// TargetRepository defines the interface for target storage
type TargetRepository interface {
	// Upsert inserts the day's target or updates its text and attachment in
	// place. It reports whether a new row was created.
	Upsert(ctx context.Context, target *Target) (bool, error)
	Get(ctx context.Context, userID int64, day Day) (*Target, error)
	Complete(ctx context.Context, userID int64, day Day, at time.Time) (bool, error)
	// SetProgress updates the progress of a pending target. It returns false
	// when the day has no pending target.
	SetProgress(ctx context.Context, userID int64, day Day, progress int, at time.Time) (bool, error)
	// Recent lists the user's latest targets, newest first.
	Recent(ctx context.Context, userID int64, limit int) ([]*Target, error)

	// Days lists the days in [from, to] with a target, ascending.
	Days(ctx context.Context, userID int64, from, to Day, status ...TargetStatus) ([]Day, error)
	CountByStatus(ctx context.Context, userID int64, from, to Day) (map[TargetStatus]int, error)
	Leaderboard(ctx context.Context, groupID int64, from, to Day, limit int) ([]LeaderboardEntry, error)
}
