package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/glebk/study-bot/internal/domain"
	"github.com/glebk/study-bot/internal/repository/sqlite"
)

const (
	testGroup = int64(-1001)
	testAdmin = int64(999)
)

var day1 = domain.NewDay(2025, time.May, 1)

type sentMessage struct {
	ChatID int64
	Text   string
}

type fakeNotifier struct {
	mu      sync.Mutex
	sent    []sentMessage
	failFor map[int64]bool
}

func (n *fakeNotifier) Notify(_ context.Context, chatID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failFor[chatID] {
		return errors.New("chat not found")
	}
	n.sent = append(n.sent, sentMessage{ChatID: chatID, Text: text})
	return nil
}

func (n *fakeNotifier) to(chatID int64) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var texts []string
	for _, m := range n.sent {
		if m.ChatID == chatID {
			texts = append(texts, m.Text)
		}
	}
	return texts
}

type moderation struct {
	UserID     int64
	Restricted bool
	Removed    bool
}

type fakeModerator struct {
	mu      sync.Mutex
	actions []moderation
	err     error
}

func (m *fakeModerator) Restrict(_ context.Context, _, userID int64, restricted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = append(m.actions, moderation{UserID: userID, Restricted: restricted})
	return m.err
}

func (m *fakeModerator) Remove(_ context.Context, _, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = append(m.actions, moderation{UserID: userID, Removed: true})
	return m.err
}

type fixture struct {
	users    *sqlite.UserRepository
	daily    *sqlite.DailyRecordRepository
	targets  *sqlite.TargetRepository
	dayOffs  *sqlite.DayOffRepository
	settings *sqlite.SettingsRepository

	notifier  *fakeNotifier
	moderator *fakeModerator
	policy    Policy

	attendance *AttendanceService
	quota      *QuotaService
	report     *ReportService
	membership *MembershipService
	export     *ExportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := sqlite.New(filepath.Join(t.TempDir(), "study.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		users:     sqlite.NewUserRepository(db),
		daily:     sqlite.NewDailyRecordRepository(db),
		targets:   sqlite.NewTargetRepository(db),
		dayOffs:   sqlite.NewDayOffRepository(db),
		settings:  sqlite.NewSettingsRepository(db),
		notifier:  &fakeNotifier{failFor: map[int64]bool{}},
		moderator: &fakeModerator{},
	}
	f.policy = DefaultPolicy(testGroup)
	f.policy.AdminID = testAdmin

	log := zerolog.Nop()
	f.attendance = NewAttendanceService(f.users, f.daily, f.targets, f.dayOffs, f.notifier, f.moderator, f.policy, log)
	f.quota = NewQuotaService(f.users, f.daily, f.settings, f.policy, log)
	f.report = NewReportService(f.daily, f.targets, f.dayOffs, f.policy)
	f.membership = NewMembershipService(f.users, f.moderator, log)
	f.export = NewExportService(sqlite.NewExportRepository(db), log)

	return f
}

// member creates a group member, registered or not
func (f *fixture) member(t *testing.T, id int64, registered bool) *domain.User {
	t.Helper()

	user := &domain.User{
		ID:         id,
		Username:   "",
		FirstName:  "Student",
		GroupID:    testGroup,
		Registered: registered,
		Restricted: !registered,
	}
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

func (f *fixture) user(t *testing.T, id int64) *domain.User {
	t.Helper()

	user, err := f.users.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, user)
	return user
}

func zeroLog() zerolog.Logger {
	return zerolog.Nop()
}
