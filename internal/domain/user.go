package domain

import (
	"context"
	"time"
)

// User is a group member's long-lived profile
type User struct {
	ID                    int64      `json:"id"`
	Username              string     `json:"username"`
	FirstName             string     `json:"first_name"`
	GroupID               int64      `json:"group_id"`
	Registered            bool       `json:"registered"`
	Restricted            bool       `json:"restricted"`
	ConsecutiveAbsence    int        `json:"consecutive_absence"`
	Warnings              int        `json:"warnings"`
	LimitExtension        int        `json:"limit_extension"`
	JoinedAt              time.Time  `json:"joined_at"`
	DeclarationAcceptedAt *time.Time `json:"declaration_accepted_at,omitempty"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// DisplayName returns @username when available, the first name otherwise
func (u *User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return "Unknown"
}

// UserRepository defines the interface for user storage
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	UpdateInfo(ctx context.Context, id int64, username, firstName string) error
	ListByGroup(ctx context.Context, groupID int64) ([]*User, error)
	ListRegistered(ctx context.Context, groupID int64) ([]*User, error)

	SetRegistered(ctx context.Context, id int64, registered bool) error
	SetRestricted(ctx context.Context, id int64, restricted bool) error

	ResetAbsence(ctx context.Context, id int64) error
	IncrementAbsence(ctx context.Context, id int64) (int, error)
	IncrementWarnings(ctx context.Context, id int64) (int, error)
	// Revoke drops registration and zeroes absence and warning counters.
	Revoke(ctx context.Context, id int64) error

	AddLimitExtension(ctx context.Context, id int64, n int) (int, error)
}
