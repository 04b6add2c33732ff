package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/glebk/study-bot/internal/apperror"
	"github.com/glebk/study-bot/internal/domain"
	"github.com/glebk/study-bot/internal/metrics"
)

const maxLimitChange = 1000

// QuotaService counts member messages against their daily allowance
type QuotaService struct {
	users    domain.UserRepository
	daily    domain.DailyRecordRepository
	settings domain.SettingsRepository
	policy   Policy
	log      zerolog.Logger
}

// NewQuotaService creates a new QuotaService
func NewQuotaService(
	users domain.UserRepository,
	daily domain.DailyRecordRepository,
	settings domain.SettingsRepository,
	policy Policy,
	log zerolog.Logger,
) *QuotaService {
	return &QuotaService{
		users:    users,
		daily:    daily,
		settings: settings,
		policy:   policy,
		log:      log.With().Str("component", "quota").Logger(),
	}
}

// GroupLimit returns the group's default daily limit, falling back to the policy default
func (s *QuotaService) GroupLimit(ctx context.Context, groupID int64) (int, error) {
	limit, ok, err := s.settings.GroupLimit(ctx, groupID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return s.policy.DefaultLimit, nil
	}
	return limit, nil
}

// RecordMessage counts one message and returns the new count with the
// limit in effect for the day.
func (s *QuotaService) RecordMessage(ctx context.Context, userID int64, day domain.Day) (int, int, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return 0, 0, apperror.NotFound("user", userID)
	}

	groupLimit, err := s.GroupLimit(ctx, user.GroupID)
	if err != nil {
		return 0, 0, err
	}

	return s.daily.IncrementMessages(ctx, userID, day, domain.EffectiveLimit(groupLimit, user.LimitExtension))
}

// Evaluate maps a post-increment count to a verdict
func (s *QuotaService) Evaluate(count, limit int) domain.QuotaVerdict {
	verdict := domain.EvaluateQuota(count, limit, s.policy.WarningThreshold)
	metrics.QuotaVerdict(string(verdict))
	return verdict
}

// ExtendUserLimit grants n extra messages per day to a member, effective
// today and on future days. It returns today's new limit.
func (s *QuotaService) ExtendUserLimit(ctx context.Context, userID int64, day domain.Day, n int) (int, error) {
	if n < 1 || n > maxLimitChange {
		return 0, apperror.ValidationFailed("n", fmt.Sprintf("Extension must be between 1 and %d.", maxLimitChange))
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return 0, apperror.NotFound("user", userID)
	}

	ext, err := s.users.AddLimitExtension(ctx, userID, n)
	if err != nil {
		return 0, err
	}

	limit, err := s.daily.AddMessageLimit(ctx, userID, day, n)
	if err != nil {
		return 0, err
	}
	if limit == 0 {
		// no counter yet today, the next message seeds it with the new extension
		groupLimit, err := s.GroupLimit(ctx, user.GroupID)
		if err != nil {
			return 0, err
		}
		limit = domain.EffectiveLimit(groupLimit, ext)
	}

	s.log.Info().Int64("user_id", userID).Int("extension", ext).Int("limit", limit).Msg("limit extended")

	return limit, nil
}

// SetGroupLimit changes the group default. Counters already seeded today keep their limit.
func (s *QuotaService) SetGroupLimit(ctx context.Context, groupID int64, limit int) error {
	if limit < 1 || limit > maxLimitChange {
		return apperror.ValidationFailed("limit", fmt.Sprintf("Limit must be between 1 and %d.", maxLimitChange))
	}

	if err := s.settings.SetGroupLimit(ctx, groupID, limit); err != nil {
		return err
	}

	s.log.Info().Int64("group_id", groupID).Int("limit", limit).Msg("group limit changed")

	return nil
}

// ResetAllDailyCounts zeroes the message counters of day
func (s *QuotaService) ResetAllDailyCounts(ctx context.Context, day domain.Day) (int64, error) {
	n, err := s.daily.ResetMessageCounts(ctx, day)
	if err != nil {
		return 0, err
	}

	s.log.Info().Stringer("day", day).Int64("records", n).Msg("daily counters reset")

	return n, nil
}
