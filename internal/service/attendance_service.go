package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/glebk/study-bot/internal/apperror"
	"github.com/glebk/study-bot/internal/domain"
	"github.com/glebk/study-bot/internal/metrics"
)

// TargetOutcome tells whether RecordTarget created or replaced the day's target
type TargetOutcome int

const (
	TargetCreated TargetOutcome = iota + 1
	TargetUpdated
)

const absentReason = "no target posted"

// AttendanceService drives the per-day attendance state of group members
type AttendanceService struct {
	users     domain.UserRepository
	daily     domain.DailyRecordRepository
	targets   domain.TargetRepository
	dayOffs   domain.DayOffRepository
	notifier  Notifier
	moderator Moderator
	policy    Policy
	log       zerolog.Logger
	now       clock
}

// NewAttendanceService creates a new AttendanceService
func NewAttendanceService(
	users domain.UserRepository,
	daily domain.DailyRecordRepository,
	targets domain.TargetRepository,
	dayOffs domain.DayOffRepository,
	notifier Notifier,
	moderator Moderator,
	policy Policy,
	log zerolog.Logger,
) *AttendanceService {
	return &AttendanceService{
		users:     users,
		daily:     daily,
		targets:   targets,
		dayOffs:   dayOffs,
		notifier:  notifier,
		moderator: moderator,
		policy:    policy,
		log:       log.With().Str("component", "attendance").Logger(),
		now:       time.Now,
	}
}

func (s *AttendanceService) registeredUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, apperror.NotFound("user", userID)
	}
	if !user.Registered {
		return nil, apperror.Policy("Please accept the group declaration first.")
	}
	return user, nil
}

// RecordTarget stores the day's study target. A second post on the same day
// replaces the text in place and keeps the completion status.
func (s *AttendanceService) RecordTarget(ctx context.Context, userID int64, day domain.Day, text, attachment string) (TargetOutcome, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, apperror.ValidationFailed("text", "Please provide your target: /mytarget <what you will study today>")
	}

	if _, err := s.registeredUser(ctx, userID); err != nil {
		return 0, err
	}

	dayOff, err := s.dayOffs.Get(ctx, userID, day)
	if err != nil {
		return 0, fmt.Errorf("failed to check day off: %w", err)
	}
	if dayOff != nil {
		return 0, apperror.Policy("You already took a day off today.")
	}

	created, err := s.targets.Upsert(ctx, &domain.Target{
		UserID:     userID,
		Day:        day,
		Text:       text,
		Attachment: attachment,
	})
	if err != nil {
		return 0, err
	}

	if err := s.daily.MarkTarget(ctx, userID, day); err != nil {
		return 0, err
	}
	if err := s.users.ResetAbsence(ctx, userID); err != nil {
		return 0, err
	}

	if created {
		return TargetCreated, nil
	}
	return TargetUpdated, nil
}

// CompleteTarget marks the day's target as done. Completing twice is a no-op.
func (s *AttendanceService) CompleteTarget(ctx context.Context, userID int64, day domain.Day) (*domain.Target, error) {
	target, err := s.targets.Get(ctx, userID, day)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, apperror.NotFound("target", day)
	}
	if target.Status == domain.TargetStatusCompleted {
		return target, nil
	}

	if _, err := s.targets.Complete(ctx, userID, day, s.now()); err != nil {
		return nil, err
	}

	return s.targets.Get(ctx, userID, day)
}

// UpdateProgress sets the completion percentage of the day's target.
// Reaching 100 completes the target; a completed target is returned as is.
func (s *AttendanceService) UpdateProgress(ctx context.Context, userID int64, day domain.Day, progress int) (*domain.Target, error) {
	if progress < 0 || progress > 100 {
		return nil, apperror.ValidationFailed("progress", "Please enter a valid percentage (0-100).")
	}

	if _, err := s.registeredUser(ctx, userID); err != nil {
		return nil, err
	}

	target, err := s.targets.Get(ctx, userID, day)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, apperror.NotFound("target", day)
	}
	if target.Status == domain.TargetStatusCompleted {
		return target, nil
	}

	if progress == 100 {
		return s.CompleteTarget(ctx, userID, day)
	}

	if _, err := s.targets.SetProgress(ctx, userID, day, progress, s.now()); err != nil {
		return nil, err
	}

	return s.targets.Get(ctx, userID, day)
}

// RecordDayOff registers a day-off. It returns false without changing
// anything when the day already has a target or a day-off.
func (s *AttendanceService) RecordDayOff(ctx context.Context, userID int64, day domain.Day, reason string) (bool, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return false, apperror.ValidationFailed("reason", "Please provide a reason: /addoff <reason>")
	}

	if _, err := s.registeredUser(ctx, userID); err != nil {
		return false, err
	}

	target, err := s.targets.Get(ctx, userID, day)
	if err != nil {
		return false, fmt.Errorf("failed to check target: %w", err)
	}
	if target != nil {
		return false, nil
	}

	created, err := s.dayOffs.Create(ctx, &domain.DayOff{UserID: userID, Day: day, Reason: reason})
	if err != nil || !created {
		return false, err
	}

	if err := s.daily.MarkDayOff(ctx, userID, day); err != nil {
		return false, err
	}
	if err := s.users.ResetAbsence(ctx, userID); err != nil {
		return false, err
	}

	return true, nil
}

// RunReminderSweep reminds every registered member who is not present yet.
// Members already reminded with kind or a later kind are skipped, so the
// sweep can be re-run safely.
func (s *AttendanceService) RunReminderSweep(ctx context.Context, day domain.Day, kind domain.ReminderKind) (SweepReport, error) {
	start := s.now()
	report := SweepReport{RunID: uuid.NewString(), Day: day}
	log := s.log.With().Str("run_id", report.RunID).Stringer("kind", kind).Logger()

	users, err := s.users.ListRegistered(ctx, s.policy.GroupID)
	if err != nil {
		return report, fmt.Errorf("failed to list members: %w", err)
	}

	for _, user := range users {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Checked++

		record, err := s.daily.Get(ctx, user.ID, day)
		if err != nil {
			report.Failed++
			log.Error().Err(err).Int64("user_id", user.ID).Msg("failed to load daily record")
			continue
		}
		if record.Present() || record.Reminded(kind) {
			continue
		}

		if err := notify(ctx, s.notifier, log, kindReminder, user.ID, reminderText(kind)); err == nil {
			report.Notified++
		} else {
			report.Failed++
		}

		// recorded even when delivery failed so the member is not spammed on retries
		if _, err := s.daily.AddReminder(ctx, user.ID, day, kind, s.now()); err != nil {
			log.Error().Err(err).Int64("user_id", user.ID).Msg("failed to record reminder")
		}
	}

	metrics.Sweep("reminder", start)
	report.log(log.Info()).Msg("reminder sweep finished")

	return report, nil
}

// RunEndOfDaySweep marks every registered member without a target or
// day-off as absent and escalates repeated absences. Each member is
// processed at most once per day.
func (s *AttendanceService) RunEndOfDaySweep(ctx context.Context, day domain.Day) (SweepReport, error) {
	start := s.now()
	report := SweepReport{RunID: uuid.NewString(), Day: day}
	log := s.log.With().Str("run_id", report.RunID).Logger()

	users, err := s.users.ListRegistered(ctx, s.policy.GroupID)
	if err != nil {
		return report, fmt.Errorf("failed to list members: %w", err)
	}

	for _, user := range users {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Checked++

		if err := s.closeDay(ctx, log, user, day, &report); err != nil {
			report.Failed++
			log.Error().Err(err).Int64("user_id", user.ID).Msg("failed to close day")
		}
	}

	metrics.Sweep("end_of_day", start)
	report.log(log.Info()).Msg("end of day sweep finished")

	return report, nil
}

func (s *AttendanceService) closeDay(ctx context.Context, log zerolog.Logger, user *domain.User, day domain.Day, report *SweepReport) error {
	record, err := s.daily.Get(ctx, user.ID, day)
	if err != nil {
		return err
	}
	if record.Present() || (record != nil && record.MarkedAbsent) {
		return nil
	}

	marked, err := s.daily.MarkAbsent(ctx, user.ID, day, absentReason)
	if err != nil || !marked {
		return err
	}
	report.Marked++

	absences, err := s.users.IncrementAbsence(ctx, user.ID)
	if err != nil {
		return err
	}
	if absences < s.policy.AbsenceThreshold {
		return nil
	}

	return s.escalate(ctx, log, user, absences, report)
}

// escalate warns the member while warning tiers remain, then removes them
func (s *AttendanceService) escalate(ctx context.Context, log zerolog.Logger, user *domain.User, absences int, report *SweepReport) error {
	if user.Warnings < s.policy.EscalationTiers-1 {
		if _, err := s.users.IncrementWarnings(ctx, user.ID); err != nil {
			return err
		}
		report.Warned++
		metrics.Escalation("warning")

		_ = notify(ctx, s.notifier, log, kindWarning, user.ID, absenceWarningText(absences, s.policy.AbsenceThreshold))
		s.alertAdmin(ctx, log, adminWarningText(user, absences))
		return nil
	}

	removeErr := s.moderator.Remove(ctx, s.policy.GroupID, user.ID)
	if removeErr != nil {
		log.Error().Err(removeErr).Int64("user_id", user.ID).Msg("failed to remove member")
	}

	if err := s.users.Revoke(ctx, user.ID); err != nil {
		return err
	}
	report.Removed++
	metrics.Escalation("removal")

	_ = notify(ctx, s.notifier, log, kindRemoval, user.ID, removalText(absences))
	s.alertAdmin(ctx, log, adminRemovalText(user, absences, removeErr))
	return nil
}

func (s *AttendanceService) alertAdmin(ctx context.Context, log zerolog.Logger, text string) {
	if s.policy.AdminID == 0 {
		return
	}
	_ = notify(ctx, s.notifier, log, kindAdminAlert, s.policy.AdminID, text)
}
