package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration
type Config struct {
	TelegramToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	DatabasePath  string `envconfig:"DATABASE_PATH" default:"./study_bot.db"`
	GroupID       int64  `envconfig:"ALLOWED_GROUP_ID" required:"true"`
	AdminID       int64  `envconfig:"ADMIN_USER_ID" default:"0"`
	GroupLink     string `envconfig:"GROUP_LINK" default:"https://t.me/your_group_link"`

	// embedded so envconfig keeps their keys unprefixed
	Quota
	Absence
	Schedule

	LeaderboardDays int      `envconfig:"LEADERBOARD_DAYS" default:"30"`
	ExemptCommands  []string `envconfig:"EXEMPT_COMMANDS" default:"/mytarget,/mytargets,/complete,/addoff,/leaderboard,/progress,/stats,/myday,/extend,/setlimit,/export,/help,/start"`

	SendTimeout time.Duration `envconfig:"SEND_TIMEOUT" default:"5s"`
	SendRate    float64       `envconfig:"SEND_RATE" default:"25"`

	HTTPAddr  string `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// Quota defines the daily message allowance
type Quota struct {
	DefaultLimit     int     `envconfig:"DEFAULT_DAILY_LIMIT" default:"20"`
	WarningThreshold float64 `envconfig:"WARNING_THRESHOLD" default:"0.9"`
}

// Absence defines when missed days escalate
type Absence struct {
	Threshold int `envconfig:"ABSENCE_THRESHOLD" default:"3"`
	Tiers     int `envconfig:"ESCALATION_TIERS" default:"2"`
}

// Schedule defines when the daily jobs run, in local time
type Schedule struct {
	Reminders []Clock `envconfig:"REMINDER_TIMES" default:"10:00,16:00,21:00"`
	EndOfDay  Clock   `envconfig:"END_OF_DAY_TIME" default:"23:55"`
	Reset     Clock   `envconfig:"RESET_TIME" default:"00:00"`
}

// Clock is a wall-clock time of day
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses HH:MM
func ParseClock(s string) (Clock, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Clock{}, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return Clock{}, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return Clock{}, fmt.Errorf("invalid minute in %q", s)
	}
	return Clock{Hour: h, Minute: m}, nil
}

// Decode implements envconfig.Decoder
func (c *Clock) Decode(value string) error {
	parsed, err := ParseClock(value)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On returns the clock time on the calendar date of t, in t's location
func (c Clock) On(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, t.Location())
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks value ranges that envconfig cannot express
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.TelegramToken) == "" {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN is required"))
	}
	if c.GroupID == 0 {
		errs = append(errs, errors.New("ALLOWED_GROUP_ID is required"))
	}
	if c.Quota.DefaultLimit < 1 {
		errs = append(errs, errors.New("DEFAULT_DAILY_LIMIT must be positive"))
	}
	if c.Quota.WarningThreshold <= 0 || c.Quota.WarningThreshold > 1 {
		errs = append(errs, errors.New("WARNING_THRESHOLD must be in (0, 1]"))
	}
	if c.Absence.Threshold < 1 {
		errs = append(errs, errors.New("ABSENCE_THRESHOLD must be positive"))
	}
	if c.Absence.Tiers < 1 {
		errs = append(errs, errors.New("ESCALATION_TIERS must be positive"))
	}
	if c.LeaderboardDays < 1 {
		errs = append(errs, errors.New("LEADERBOARD_DAYS must be positive"))
	}
	if c.SendRate <= 0 {
		errs = append(errs, errors.New("SEND_RATE must be positive"))
	}

	return errors.Join(errs...)
}

// IsExempt reports whether a command bypasses the message quota.
// Bot mentions ("/help@study_bot") are ignored.
func (c *Config) IsExempt(command string) bool {
	command, _, _ = strings.Cut(strings.ToLower(command), "@")
	if !strings.HasPrefix(command, "/") {
		command = "/" + command
	}
	for _, exempt := range c.ExemptCommands {
		if strings.ToLower(strings.TrimSpace(exempt)) == command {
			return true
		}
	}
	return false
}

// IsAdmin reports whether userID is the configured admin
func (c *Config) IsAdmin(userID int64) bool {
	return c.AdminID != 0 && c.AdminID == userID
}
