package service

import (
	"context"
	"fmt"
	"math"

	"github.com/glebk/study-bot/internal/apperror"
	"github.com/glebk/study-bot/internal/domain"
)

// Stats summarizes a member's activity over a trailing window
type Stats struct {
	WindowDays     int
	Completed      int
	Pending        int
	DayOffs        int
	CompletionRate float64 // percent, one decimal
	CurrentStreak  int
	BestStreak     int
	ActiveDays     int // window minus day-offs, the completion rate denominator
	AttendedDays   int // days with a target or a day-off
}

// DayStatus is a member's view of a single day
type DayStatus struct {
	Day    domain.Day
	Target *domain.Target
	DayOff *domain.DayOff
	Record *domain.DailyRecord
}

// ReportService computes streaks, statistics and the leaderboard
type ReportService struct {
	daily   domain.DailyRecordRepository
	targets domain.TargetRepository
	dayOffs domain.DayOffRepository
	policy  Policy
}

// NewReportService creates a new ReportService
func NewReportService(daily domain.DailyRecordRepository, targets domain.TargetRepository, dayOffs domain.DayOffRepository, policy Policy) *ReportService {
	if policy.LeaderboardSize <= 0 {
		policy.LeaderboardSize = 20
	}
	return &ReportService{
		daily:   daily,
		targets: targets,
		dayOffs: dayOffs,
		policy:  policy,
	}
}

// attendedDays returns every day up to asOf with a target (any status) or a day-off
func (s *ReportService) attendedDays(ctx context.Context, userID int64, from, asOf domain.Day) (map[domain.Day]bool, error) {
	targetDays, err := s.targets.Days(ctx, userID, from, asOf)
	if err != nil {
		return nil, err
	}
	offDays, err := s.dayOffs.Days(ctx, userID, from, asOf)
	if err != nil {
		return nil, err
	}

	attended := make(map[domain.Day]bool, len(targetDays)+len(offDays))
	for _, d := range targetDays {
		attended[d] = true
	}
	for _, d := range offDays {
		attended[d] = true
	}
	return attended, nil
}

// CurrentStreak counts consecutive attended days ending at asOf
func (s *ReportService) CurrentStreak(ctx context.Context, userID int64, asOf domain.Day) (int, error) {
	attended, err := s.attendedDays(ctx, userID, domain.Day{}, asOf)
	if err != nil {
		return 0, err
	}
	return domain.CurrentStreak(asOf, func(d domain.Day) bool { return attended[d] }), nil
}

// BestStreak is the longest run of days with a completed target
func (s *ReportService) BestStreak(ctx context.Context, userID int64, asOf domain.Day) (int, error) {
	days, err := s.targets.Days(ctx, userID, domain.Day{}, asOf, domain.TargetStatusCompleted)
	if err != nil {
		return 0, err
	}
	return domain.BestStreak(days), nil
}

// Leaderboard ranks registered members of the group by completed targets
// in the windowDays ending at asOf, inclusive.
func (s *ReportService) Leaderboard(ctx context.Context, groupID int64, windowDays int, asOf domain.Day) ([]domain.LeaderboardEntry, error) {
	if windowDays < 1 {
		return nil, apperror.ValidationFailed("window", "Window must be at least one day.")
	}
	return s.targets.Leaderboard(ctx, groupID, asOf.AddDays(-(windowDays - 1)), asOf, s.policy.LeaderboardSize)
}

// UserStats aggregates the member's activity over the windowDays ending at asOf
func (s *ReportService) UserStats(ctx context.Context, userID int64, windowDays int, asOf domain.Day) (Stats, error) {
	if windowDays < 1 {
		return Stats{}, apperror.ValidationFailed("window", "Window must be at least one day.")
	}
	from := asOf.AddDays(-(windowDays - 1))

	counts, err := s.targets.CountByStatus(ctx, userID, from, asOf)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count targets: %w", err)
	}
	attended, err := s.attendedDays(ctx, userID, from, asOf)
	if err != nil {
		return Stats{}, err
	}
	offDays, err := s.dayOffs.Days(ctx, userID, from, asOf)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		WindowDays:   windowDays,
		Completed:    counts[domain.TargetStatusCompleted],
		Pending:      counts[domain.TargetStatusPending],
		DayOffs:      len(offDays),
		ActiveDays:   windowDays - len(offDays),
		AttendedDays: len(attended),
	}
	stats.CompletionRate = completionRate(stats.Completed, stats.ActiveDays)

	if stats.CurrentStreak, err = s.CurrentStreak(ctx, userID, asOf); err != nil {
		return Stats{}, err
	}
	if stats.BestStreak, err = s.BestStreak(ctx, userID, asOf); err != nil {
		return Stats{}, err
	}

	return stats, nil
}

func completionRate(completed, workingDays int) float64 {
	if workingDays <= 0 {
		return 0
	}
	return math.Round(float64(completed)/float64(workingDays)*1000) / 10
}

// Today returns everything recorded for the member on day
func (s *ReportService) Today(ctx context.Context, userID int64, day domain.Day) (DayStatus, error) {
	status := DayStatus{Day: day}

	var err error
	if status.Target, err = s.targets.Get(ctx, userID, day); err != nil {
		return status, err
	}
	if status.DayOff, err = s.dayOffs.Get(ctx, userID, day); err != nil {
		return status, err
	}
	if status.Record, err = s.daily.Get(ctx, userID, day); err != nil {
		return status, err
	}

	return status, nil
}

// History returns the member's latest targets, newest first
func (s *ReportService) History(ctx context.Context, userID int64, limit int) ([]*domain.Target, error) {
	if limit < 1 {
		return nil, apperror.ValidationFailed("limit", "Limit must be positive.")
	}
	return s.targets.Recent(ctx, userID, limit)
}
