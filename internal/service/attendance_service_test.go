package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glebk/study-bot/internal/apperror"
	"github.com/glebk/study-bot/internal/domain"
)

func TestRecordTarget_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.member(t, 1, true)
	f.member(t, 2, false)

	_, err := f.attendance.RecordTarget(ctx, 1, day1, "   ", "")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.attendance.RecordTarget(ctx, 42, day1, "algebra", "")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.attendance.RecordTarget(ctx, 2, day1, "algebra", "")
	assert.ErrorIs(t, err, apperror.ErrPolicy)
}

func TestRecordTarget_CreateThenUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.member(t, 1, true)

	outcome, err := f.attendance.RecordTarget(ctx, 1, day1, "read chapter 3", "")
	require.NoError(t, err)
	assert.Equal(t, TargetCreated, outcome)

	_, err = f.attendance.CompleteTarget(ctx, 1, day1)
	require.NoError(t, err)

	outcome, err = f.attendance.RecordTarget(ctx, 1, day1, "read chapters 3 and 4", "photo-id")
	require.NoError(t, err)
	assert.Equal(t, TargetUpdated, outcome)

	target, err := f.targets.Get(ctx, 1, day1)
	require.NoError(t, err)
	assert.Equal(t, "read chapters 3 and 4", target.Text)
	assert.Equal(t, domain.TargetStatusCompleted, target.Status)

	record, err := f.daily.Get(ctx, 1, day1)
	require.NoError(t, err)
	assert.True(t, record.Present())
}

func TestRecordTarget_ResetsAbsence(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.member(t, 1, true)

	_, err := f.attendance.RunEndOfDaySweep(ctx, day1)
	require.NoError(t, err)
	require.Equal(t, 1, f.user(t, 1).ConsecutiveAbsence)

	_, err = f.attendance.RecordTarget(ctx, 1, day1.AddDays(1), "geometry", "")
	require.NoError(t, err)
	assert.Equal(t, 0, f.user(t, 1).ConsecutiveAbsence)
}

func TestRecordDayOff(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.member(t, 1, true)

	_, err := f.attendance.RecordDayOff(ctx, 1, day1, " ")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.attendance.RunEndOfDaySweep(ctx, day1.AddDays(-1))
	require.NoError(t, err)
	require.Equal(t, 1, f.user(t, 1).ConsecutiveAbsence)

	ok, err := f.attendance.RecordDayOff(ctx, 1, day1, "sick")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, f.user(t, 1).ConsecutiveAbsence)

	ok, err = f.attendance.RecordDayOff(ctx, 1, day1, "still sick")
	require.NoError(t, err)
	assert.False(t, ok)

	dayOff, err := f.dayOffs.Get(ctx, 1, day1)
	require.NoError(t, err)
	assert.Equal(t, "sick", dayOff.Reason)
}

func TestTargetAndDayOffAreExclusive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.member(t, 1, true)
	f.member(t, 2, true)

	// target first: the day-off is rejected without changes
	_, err := f.attendance.RecordTarget(ctx, 1, day1, "physics", "")
	require.NoError(t, err)
	ok, err := f.attendance.RecordDayOff(ctx, 1, day1, "tired")
	require.NoError(t, err)
	assert.False(t, ok)

	// day-off first: the target is rejected
	ok, err = f.attendance.RecordDayOff(ctx, 2, day1, "travel")
	require.NoError(t, err)
	require.True(t, ok)
	_, err = f.attendance.RecordTarget(ctx, 2, day1, "physics", "")
	assert.ErrorIs(t, err, apperror.ErrPolicy)
}

func TestCompleteTarget(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.member(t, 1, true)

	_, err := f.attendance.CompleteTarget(ctx, 1, day1)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.attendance.RecordTarget(ctx, 1, day1, "biology", "")
	require.NoError(t, err)

	target, err := f.attendance.CompleteTarget(ctx, 1, day1)
	require.NoError(t, err)
	assert.Equal(t, domain.TargetStatusCompleted, target.Status)
	require.NotNil(t, target.CompletedAt)

	again, err := f.attendance.CompleteTarget(ctx, 1, day1)
	require.NoError(t, err)
	assert.Equal(t, target.CompletedAt.Unix(), again.CompletedAt.Unix())
}

func TestReminderSweep_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.member(t, 1, true)
	f.member(t, 2, true)
	f.member(t, 3, false)

	_, err := f.attendance.RecordTarget(ctx, 2, day1, "history", "")
	require.NoError(t, err)

	report, err := f.attendance.RunReminderSweep(ctx, day1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Checked)
	assert.Equal(t, 1, report.Notified)
	assert.NotEmpty(t, report.RunID)

	report, err = f.attendance.RunReminderSweep(ctx, day1, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Notified)

	assert.Len(t, f.notifier.to(1), 1)
	assert.Empty(t, f.notifier.to(2))
	assert.Empty(t, f.notifier.to(3))

	record, err := f.daily.Get(ctx, 1, day1)
	require.NoError(t, err)
	require.Len(t, record.RemindersSent, 1)
	assert.Equal(t, domain.ReminderKind(1), record.RemindersSent[0].Kind)
}

func TestReminderSweep_KindsIncrease(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.member(t, 1, true)

	_, err := f.attendance.RunReminderSweep(ctx, day1, 2)
	require.NoError(t, err)

	// an earlier kind is never sent after a later one
	report, err := f.attendance.RunReminderSweep(ctx, day1, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Notified)

	report, err = f.attendance.RunReminderSweep(ctx, day1, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Notified)
	assert.Len(t, f.notifier.to(1), 2)
}

func TestReminderSweep_FailedDeliveryIsRecorded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.member(t, 1, true)
	f.member(t, 2, true)
	f.notifier.failFor[1] = true

	report, err := f.attendance.RunReminderSweep(ctx, day1, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Notified)

	record, err := f.daily.Get(ctx, 1, day1)
	require.NoError(t, err)
	assert.True(t, record.Reminded(1))
}

func TestEndOfDaySweep_SkipsPresentMembers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.member(t, 1, true)
	f.member(t, 2, true)
	f.member(t, 3, true)

	_, err := f.attendance.RecordTarget(ctx, 1, day1, "chemistry", "")
	require.NoError(t, err)
	_, err = f.attendance.RecordDayOff(ctx, 2, day1, "wedding")
	require.NoError(t, err)

	report, err := f.attendance.RunEndOfDaySweep(ctx, day1)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Marked)

	assert.Equal(t, 0, f.user(t, 1).ConsecutiveAbsence)
	assert.Equal(t, 0, f.user(t, 2).ConsecutiveAbsence)
	assert.Equal(t, 1, f.user(t, 3).ConsecutiveAbsence)

	record, err := f.daily.Get(ctx, 3, day1)
	require.NoError(t, err)
	assert.True(t, record.MarkedAbsent)
	assert.Equal(t, absentReason, record.AbsentReason)
}

func TestEndOfDaySweep_RerunDoesNotDoubleCount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.member(t, 1, true)

	for i := 0; i < 3; i++ {
		_, err := f.attendance.RunEndOfDaySweep(ctx, day1)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, f.user(t, 1).ConsecutiveAbsence)
}

func TestEndOfDaySweep_Escalation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.member(t, 1, true)

	for d := 0; d < 2; d++ {
		report, err := f.attendance.RunEndOfDaySweep(ctx, day1.AddDays(d))
		require.NoError(t, err)
		assert.Zero(t, report.Warned)
		assert.Zero(t, report.Removed)
	}
	assert.Empty(t, f.notifier.to(1))

	// third absence: warning to the member and the admin
	report, err := f.attendance.RunEndOfDaySweep(ctx, day1.AddDays(2))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Warned)
	assert.Len(t, f.notifier.to(1), 1)
	assert.Len(t, f.notifier.to(testAdmin), 1)

	user := f.user(t, 1)
	assert.Equal(t, 3, user.ConsecutiveAbsence)
	assert.Equal(t, 1, user.Warnings)
	assert.True(t, user.Registered)

	// fourth absence: removal
	report, err = f.attendance.RunEndOfDaySweep(ctx, day1.AddDays(3))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Removed)
	assert.Contains(t, f.moderator.actions, moderation{UserID: 1, Removed: true})
	assert.Len(t, f.notifier.to(testAdmin), 2)

	user = f.user(t, 1)
	assert.False(t, user.Registered)
	assert.Equal(t, 0, user.ConsecutiveAbsence)
	assert.Equal(t, 0, user.Warnings)

	// revoked members are no longer swept
	report, err = f.attendance.RunEndOfDaySweep(ctx, day1.AddDays(4))
	require.NoError(t, err)
	assert.Zero(t, report.Checked)
}

func TestEndOfDaySweep_RemovalFailureStillRevokes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.member(t, 1, true)
	f.moderator.err = assert.AnError
	f.notifier.failFor[1] = true

	for d := 0; d < 4; d++ {
		_, err := f.attendance.RunEndOfDaySweep(ctx, day1.AddDays(d))
		require.NoError(t, err)
	}

	assert.False(t, f.user(t, 1).Registered)
	alerts := f.notifier.to(testAdmin)
	require.Len(t, alerts, 2)
	assert.Contains(t, alerts[1], "Failed to remove")
}

func TestEndOfDaySweep_SingleTierRemovesImmediately(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.member(t, 1, true)

	policy := f.policy
	policy.AbsenceThreshold = 1
	policy.EscalationTiers = 1
	svc := NewAttendanceService(f.users, f.daily, f.targets, f.dayOffs, f.notifier, f.moderator, policy, zeroLog())

	report, err := svc.RunEndOfDaySweep(ctx, day1)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Removed)
	assert.Zero(t, report.Warned)
}

func TestUpdateProgress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.member(t, 1, true)

	for _, pct := range []int{-1, 101} {
		_, err := f.attendance.UpdateProgress(ctx, 1, day1, pct)
		assert.ErrorIs(t, err, apperror.ErrValidation, pct)
	}

	_, err := f.attendance.UpdateProgress(ctx, 1, day1, 50)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.attendance.RecordTarget(ctx, 1, day1, "geometry", "")
	require.NoError(t, err)

	target, err := f.attendance.UpdateProgress(ctx, 1, day1, 60)
	require.NoError(t, err)
	assert.Equal(t, 60, target.Progress)
	assert.Equal(t, domain.TargetStatusPending, target.Status)
	assert.Equal(t, "███░░", target.ProgressBar())

	target, err = f.attendance.UpdateProgress(ctx, 1, day1, 100)
	require.NoError(t, err)
	assert.Equal(t, domain.TargetStatusCompleted, target.Status)
	assert.Equal(t, 100, target.Progress)

	target, err = f.attendance.UpdateProgress(ctx, 1, day1, 20)
	require.NoError(t, err)
	assert.Equal(t, 100, target.Progress, "completed targets are not rolled back")
}

func TestUpdateProgress_RequiresRegistration(t *testing.T) {
	f := newFixture(t)
	f.member(t, 2, false)

	_, err := f.attendance.UpdateProgress(context.Background(), 2, day1, 50)
	assert.ErrorIs(t, err, apperror.ErrPolicy)
}
