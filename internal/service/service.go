package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/glebk/study-bot/internal/domain"
	"github.com/glebk/study-bot/internal/metrics"
)

// Notifier delivers a plain text message to a chat
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string) error
}

// Moderator applies group moderation actions
type Moderator interface {
	// Restrict mutes (restricted=true) or unmutes a member of the group.
	Restrict(ctx context.Context, groupID, userID int64, restricted bool) error
	// Remove takes a member out of the group without a permanent ban.
	Remove(ctx context.Context, groupID, userID int64) error
}

// Policy holds the tunables shared by the services
type Policy struct {
	GroupID          int64
	AdminID          int64
	DefaultLimit     int
	WarningThreshold float64
	AbsenceThreshold int
	EscalationTiers  int
	LeaderboardSize  int
}

// DefaultPolicy returns the stock settings for a group
func DefaultPolicy(groupID int64) Policy {
	return Policy{
		GroupID:          groupID,
		DefaultLimit:     20,
		WarningThreshold: 0.9,
		AbsenceThreshold: 3,
		EscalationTiers:  2,
		LeaderboardSize:  20,
	}
}

// notification kinds, used as metric labels
const (
	kindReminder   = "reminder"
	kindWarning    = "absence_warning"
	kindRemoval    = "removal"
	kindAdminAlert = "admin_alert"
)

// Member is the Telegram identity of a group member
type Member struct {
	ID        int64
	Username  string
	FirstName string
	GroupID   int64
}

// SweepReport summarizes one scheduled sweep
type SweepReport struct {
	RunID    string
	Day      domain.Day
	Checked  int
	Notified int
	Marked   int
	Warned   int
	Removed  int
	Failed   int
}

func (r SweepReport) log(e *zerolog.Event) *zerolog.Event {
	return e.Str("run_id", r.RunID).
		Stringer("day", r.Day).
		Int("checked", r.Checked).
		Int("notified", r.Notified).
		Int("marked", r.Marked).
		Int("warned", r.Warned).
		Int("removed", r.Removed).
		Int("failed", r.Failed)
}

// notify sends text and records the outcome. Failures are logged, never fatal.
func notify(ctx context.Context, n Notifier, log zerolog.Logger, kind string, chatID int64, text string) error {
	err := n.Notify(ctx, chatID, text)
	metrics.Notification(kind, err)
	if err != nil {
		log.Warn().Err(err).Str("kind", kind).Int64("chat_id", chatID).Msg("notification failed")
	}
	return err
}

type clock func() time.Time
