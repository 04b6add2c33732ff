package domain

import (
	"context"
	"fmt"
	"time"
)

// ReminderKind numbers the reminder sweeps of a day, starting at 1.
type ReminderKind int

func (k ReminderKind) String() string {
	return fmt.Sprintf("reminder-%d", int(k))
}

// Reminder is one reminder delivered to a user on a given day
type Reminder struct {
	Kind   ReminderKind
	SentAt time.Time
}

// DailyRecord is the per (user, day) attendance and quota record
type DailyRecord struct {
	UserID        int64
	Day           Day
	HasTarget     bool
	IsDayOff      bool
	MarkedAbsent  bool
	AbsentReason  string
	MessageCount  int
	MessageLimit  int // 0 until the first counted message of the day
	RemindersSent []Reminder
}

// Present reports whether the day counts as attended.
func (r *DailyRecord) Present() bool {
	return r != nil && (r.HasTarget || r.IsDayOff)
}

// Reminded reports whether kind, or a later kind, was already sent.
func (r *DailyRecord) Reminded(kind ReminderKind) bool {
	if r == nil {
		return false
	}
	for _, rem := range r.RemindersSent {
		if rem.Kind >= kind {
			return true
		}
	}
	return false
}

// DailyRecordRepository defines the interface for daily record storage.
// Every mutating method creates the record when it does not exist yet.
type DailyRecordRepository interface {
	Get(ctx context.Context, userID int64, day Day) (*DailyRecord, error)

	MarkTarget(ctx context.Context, userID int64, day Day) error
	MarkDayOff(ctx context.Context, userID int64, day Day) error
	// MarkAbsent returns false when the record was already marked absent.
	MarkAbsent(ctx context.Context, userID int64, day Day, reason string) (bool, error)

	// IncrementMessages bumps the day's counter, seeding the limit on first use,
	// and returns the post-increment count and the limit in effect.
	IncrementMessages(ctx context.Context, userID int64, day Day, seedLimit int) (count int, limit int, err error)
	AddMessageLimit(ctx context.Context, userID int64, day Day, n int) (int, error)
	ResetMessageCounts(ctx context.Context, day Day) (int64, error)

	// AddReminder returns false when kind was already recorded for the day.
	AddReminder(ctx context.Context, userID int64, day Day, kind ReminderKind, at time.Time) (bool, error)
}
