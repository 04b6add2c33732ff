package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/glebk/study-bot/internal/bot"
	"github.com/glebk/study-bot/internal/config"
	"github.com/glebk/study-bot/internal/domain"
	"github.com/glebk/study-bot/internal/health"
	"github.com/glebk/study-bot/internal/logger"
	"github.com/glebk/study-bot/internal/repository/sqlite"
	"github.com/glebk/study-bot/internal/scheduler"
	"github.com/glebk/study-bot/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(2)
	}

	log := logger.New(cfg.LogLevel, cfg.LogPretty)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("bot stopped with error")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	log.Info().Str("path", cfg.DatabasePath).Msg("database initialized")

	// Initialize repositories
	userRepo := sqlite.NewUserRepository(db)
	dailyRepo := sqlite.NewDailyRecordRepository(db)
	targetRepo := sqlite.NewTargetRepository(db)
	dayOffRepo := sqlite.NewDayOffRepository(db)
	settingsRepo := sqlite.NewSettingsRepository(db)
	exportRepo := sqlite.NewExportRepository(db)

	// Telegram clients: unbounded for long polling, short timeout for sends
	pollAPI, err := bot.NewAPI(cfg.TelegramToken, 0)
	if err != nil {
		return err
	}
	sendAPI, err := bot.NewAPI(cfg.TelegramToken, cfg.SendTimeout)
	if err != nil {
		return err
	}
	transport := bot.NewTransport(sendAPI, cfg.SendRate, log)

	// Initialize services
	policy := service.DefaultPolicy(cfg.GroupID)
	policy.AdminID = cfg.AdminID
	policy.DefaultLimit = cfg.Quota.DefaultLimit
	policy.WarningThreshold = cfg.Quota.WarningThreshold
	policy.AbsenceThreshold = cfg.Absence.Threshold
	policy.EscalationTiers = cfg.Absence.Tiers

	services := bot.Services{
		Membership: service.NewMembershipService(userRepo, transport, log),
		Attendance: service.NewAttendanceService(userRepo, dailyRepo, targetRepo, dayOffRepo, transport, transport, policy, log),
		Quota:      service.NewQuotaService(userRepo, dailyRepo, settingsRepo, policy, log),
		Report:     service.NewReportService(dailyRepo, targetRepo, dayOffRepo, policy),
		Export:     service.NewExportService(exportRepo, log),
	}

	telegramBot := bot.New(pollAPI, transport, services, cfg, log)

	// Scheduled sweeps
	sched := scheduler.New(log)
	for i, at := range cfg.Schedule.Reminders {
		kind := domain.ReminderKind(i + 1)
		sched.Daily(scheduler.ReminderJobName(i+1), at, func(ctx context.Context, day domain.Day) error {
			_, err := services.Attendance.RunReminderSweep(ctx, day, kind)
			return err
		})
	}
	sched.Daily("end-of-day", cfg.Schedule.EndOfDay, func(ctx context.Context, day domain.Day) error {
		_, err := services.Attendance.RunEndOfDaySweep(ctx, day)
		return err
	})
	sched.Daily("reset", cfg.Schedule.Reset, func(ctx context.Context, day domain.Day) error {
		_, err := services.Quota.ResetAllDailyCounts(ctx, day)
		return err
	})
	sched.Every("db-check", 5*time.Minute, db.Ping)

	// Health and metrics endpoint
	httpSrv := health.NewServer(cfg.HTTPAddr, db, log)
	go func() {
		if err := httpSrv.Start(); err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}()

	schedDone := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(schedDone)
	}()

	log.Info().Msg("bot started, press Ctrl+C to stop")
	botErr := telegramBot.Start(ctx)

	// Handle graceful shutdown
	log.Info().Msg("shutting down gracefully")
	stop()

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shCtx); err != nil {
		log.Warn().Err(err).Msg("http server shutdown error")
	}

	select {
	case <-schedDone:
	case <-shCtx.Done():
		log.Warn().Msg("scheduler did not stop in time")
	}

	return botErr
}
