package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/glebk/study-bot/internal/config"
	"github.com/glebk/study-bot/internal/domain"
)

// DailyFunc runs once per calendar day; day is the date of the scheduled run.
type DailyFunc func(ctx context.Context, day domain.Day) error

type job struct {
	name string
	next func(now time.Time) time.Time
	run  func(ctx context.Context, at time.Time) error
}

// Scheduler runs named jobs at wall-clock times or fixed intervals until
// its context is canceled.
type Scheduler struct {
	jobs []job
	log  zerolog.Logger
	now  func() time.Time
}

// New creates an empty Scheduler
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		log: log.With().Str("component", "scheduler").Logger(),
		now: time.Now,
	}
}

// Daily registers fn to run every day at the local time at
func (s *Scheduler) Daily(name string, at config.Clock, fn DailyFunc) {
	s.jobs = append(s.jobs, job{
		name: name,
		next: func(now time.Time) time.Time { return NextDaily(now, at) },
		run: func(ctx context.Context, firedAt time.Time) error {
			return fn(ctx, domain.DayOf(firedAt))
		},
	})
}

// Every registers fn to run every interval
func (s *Scheduler) Every(name string, interval time.Duration, fn func(ctx context.Context) error) {
	s.jobs = append(s.jobs, job{
		name: name,
		next: func(now time.Time) time.Time { return now.Add(interval) },
		run:  func(ctx context.Context, _ time.Time) error { return fn(ctx) },
	})
}

// Run starts every job and blocks until ctx is canceled and all running jobs returned.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, j := range s.jobs {
		wg.Add(1)
		go func(j job) {
			defer wg.Done()
			s.loop(ctx, j)
		}(j)
	}

	s.log.Info().Int("jobs", len(s.jobs)).Msg("scheduler started")
	wg.Wait()
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, j job) {
	for {
		next := j.next(s.now())
		s.log.Debug().Str("job", j.name).Time("next", next).Msg("job scheduled")

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.runJob(ctx, j, next)
		}
	}
}

func (s *Scheduler) runJob(ctx context.Context, j job, at time.Time) {
	start := s.now()
	log := s.log.With().Str("job", j.name).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("job panicked")
		}
	}()

	if err := j.run(ctx, at); err != nil {
		log.Error().Err(err).Dur("took", time.Since(start)).Msg("job failed")
		return
	}
	log.Debug().Dur("took", time.Since(start)).Msg("job finished")
}

// NextDaily returns the first occurrence of at strictly after now, in now's location.
func NextDaily(now time.Time, at config.Clock) time.Time {
	next := at.On(now)
	if !next.After(now) {
		y, m, d := now.Date()
		next = time.Date(y, m, d+1, at.Hour, at.Minute, 0, 0, now.Location())
	}
	return next
}

// ReminderJobName names the n-th reminder sweep of the day
func ReminderJobName(n int) string {
	return fmt.Sprintf("reminder-%d", n)
}
