package domain

import (
	"context"
	"time"
)

// DayOff is a user's declaration that a day is exempt from attendance
type DayOff struct {
	UserID    int64     `json:"user_id"`
	Day       Day       `json:"day"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// DayOffRepository defines the interface for day-off storage
type DayOffRepository interface {
	// Create returns false when a day-off already exists for that day.
	Create(ctx context.Context, dayOff *DayOff) (bool, error)
	Get(ctx context.Context, userID int64, day Day) (*DayOff, error)
	Days(ctx context.Context, userID int64, from, to Day) ([]Day, error)
}

// SettingsRepository stores per-group settings
type SettingsRepository interface {
	// GroupLimit returns the stored default limit, ok=false when none is set.
	GroupLimit(ctx context.Context, groupID int64) (limit int, ok bool, err error)
	SetGroupLimit(ctx context.Context, groupID int64, limit int) error
}
