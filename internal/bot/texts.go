package bot

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/glebk/study-bot/internal/domain"
	"github.com/glebk/study-bot/internal/service"
)

const (
	callbackAccept  = "accept_declaration"
	callbackDecline = "decline_declaration"
)

const declarationText = `📜 *Study Group Declaration*

*By accepting this declaration, you agree to:*

1. *Daily Participation*: set a study target every day with /mytarget
2. *Honesty*: only mark targets as completed when they are actually done
3. *Respect*: keep the learning environment positive for everyone
4. *Communication*: use /addoff with a reason when taking a break
5. *No Spam*: stay within the daily message limit

*Consequences of Non-Compliance:*
- %d consecutive days without a target = warning
- Repeated absence after a warning = temporary removal

*Do you accept these terms?*`

const helpText = `📚 *Study Group Bot*

*Daily routine:*
/mytarget <text> - set today's study target (a photo with this caption works too)
/complete - mark today's target as completed
/addoff <reason> - take a day off
/myday - what you recorded today

*Progress:*
/progress <percent> - update today's target progress (100 completes it)
/mytargets - your recent targets
/stats - your statistics and streaks
/leaderboard - top members by completed targets

*Admins:*
/extend <n> - reply to a member's message to grant n extra messages per day
/extend <id> <n> - same, by user id
/setlimit <n> - change the group's daily message limit
/users - list members
/export - receive all group data as a JSON file`

const genericErrorText = "❌ Something went wrong. Please try again later."

const joinGroupText = "👋 This bot serves a study group. Join the group first: %s"

func declarationKeyboard(groupLink string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Accept Declaration", callbackAccept),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("📖 Read Rules First", groupLink),
			tgbotapi.NewInlineKeyboardButtonData("❌ Decline", callbackDecline),
		),
	)
}

func welcomeText(name string, absenceThreshold int) string {
	name = tgbotapi.EscapeText(tgbotapi.ModeMarkdown, name)
	return fmt.Sprintf("👋 Welcome, %s!\n\n", name) + fmt.Sprintf(declarationText, absenceThreshold)
}

func targetSavedText(outcome service.TargetOutcome, streak int) string {
	var b strings.Builder
	if outcome == service.TargetUpdated {
		b.WriteString("✏️ Today's target updated.")
	} else {
		b.WriteString("🎯 Target set for today. Good luck!")
	}
	if streak > 1 {
		fmt.Fprintf(&b, "\n🔥 Streak: %d days", streak)
	}
	return b.String()
}

func formatTarget(t *domain.Target) string {
	var b strings.Builder

	emoji := "📝"
	if t.Status == domain.TargetStatusCompleted {
		emoji = "✅"
	}
	fmt.Fprintf(&b, "%s Target for %s\n\n📌 %s\n", emoji, t.Day, t.Text)

	if t.Status == domain.TargetStatusCompleted && t.CompletedAt != nil {
		fmt.Fprintf(&b, "✅ Completed at %s", t.CompletedAt.Format("15:04"))
	} else {
		fmt.Fprintf(&b, "⏳ Status: pending\n📊 Progress: %s %d%%", t.ProgressBar(), t.Progress)
	}

	return b.String()
}

func formatTargets(targets []*domain.Target) string {
	if len(targets) == 0 {
		return "You don't have any targets yet. Set one with /mytarget <text>."
	}

	var b strings.Builder
	b.WriteString("📚 Your recent targets:\n\n")
	for i, t := range targets {
		icon := "⏳"
		if t.Status == domain.TargetStatusCompleted {
			icon = "✅"
		}
		fmt.Fprintf(&b, "%d. %s %s %s\n   📊 %s %d%%\n", i+1, icon, t.Day, t.Text, t.ProgressBar(), t.Progress)
	}
	return b.String()
}

func formatLeaderboard(entries []domain.LeaderboardEntry, windowDays int, now time.Time) string {
	if len(entries) == 0 {
		return "📊 No data for the leaderboard yet.\nBe the first to complete a target!"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏆 Study Leaderboard (last %d days)\n\n", windowDays)

	medals := []string{"🥇 ", "🥈 ", "🥉 "}
	for i, e := range entries {
		medal := ""
		if i < len(medals) {
			medal = medals[i]
		}
		fmt.Fprintf(&b, "%s%d. %s - %d %s\n", medal, i+1, e.DisplayName(), e.Completed, plural(e.Completed, "target", "targets"))
	}

	fmt.Fprintf(&b, "\n📅 Updated: %s", now.Format("2006-01-02 15:04"))
	return b.String()
}

func formatStats(user *domain.User, s service.Stats) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 Study Statistics for %s\n\n", user.DisplayName())
	fmt.Fprintf(&b, "📈 Last %d days:\n", s.WindowDays)
	fmt.Fprintf(&b, "✅ Completed targets: %d\n", s.Completed)
	fmt.Fprintf(&b, "📝 Pending targets: %d\n", s.Pending)
	fmt.Fprintf(&b, "🌴 Days off: %d\n", s.DayOffs)
	fmt.Fprintf(&b, "🎯 Completion rate: %.1f%%\n", s.CompletionRate)
	fmt.Fprintf(&b, "🔥 Current streak: %d %s\n", s.CurrentStreak, plural(s.CurrentStreak, "day", "days"))
	fmt.Fprintf(&b, "🏅 Best streak: %d %s\n", s.BestStreak, plural(s.BestStreak, "day", "days"))
	fmt.Fprintf(&b, "📅 Active days: %d/%d\n", s.ActiveDays, s.WindowDays)
	fmt.Fprintf(&b, "✍️ Days checked in: %d\n", s.AttendedDays)

	switch {
	case s.CompletionRate >= 80:
		b.WriteString("\n🌟 Excellent! Keep up the great work!")
	case s.CompletionRate >= 50:
		b.WriteString("\n💪 Good progress! You're doing well!")
	default:
		b.WriteString("\n📚 Keep going! Consistency is key.")
	}

	return b.String()
}

func formatDay(s service.DayStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 %s\n\n", s.Day)

	switch {
	case s.Target != nil:
		b.WriteString(formatTarget(s.Target))
	case s.DayOff != nil:
		fmt.Fprintf(&b, "🌴 Day off: %s", s.DayOff.Reason)
	default:
		b.WriteString("❗ No target yet. Use /mytarget <text>.")
	}

	if s.Record != nil {
		if s.Record.MessageLimit > 0 {
			fmt.Fprintf(&b, "\n\n💬 Messages: %d/%d", s.Record.MessageCount, s.Record.MessageLimit)
		}
		if n := len(s.Record.RemindersSent); n > 0 {
			fmt.Fprintf(&b, "\n🔔 Reminders received: %d", n)
		}
	}

	return b.String()
}

func formatMembers(users []*domain.User) string {
	if len(users) == 0 {
		return "No members yet."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👥 Members (%d)\n\n", len(users))
	for _, u := range users {
		status := "✅"
		if !u.Registered {
			status = "⏳"
		}
		fmt.Fprintf(&b, "%s %s (id %d)", status, u.DisplayName(), u.ID)
		if u.ConsecutiveAbsence > 0 || u.Warnings > 0 {
			fmt.Fprintf(&b, " absences: %d, warnings: %d", u.ConsecutiveAbsence, u.Warnings)
		}
		if u.LimitExtension > 0 {
			fmt.Fprintf(&b, " +%d msgs", u.LimitExtension)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func quotaWarningText(name string, count, limit int) string {
	return fmt.Sprintf("⚠️ %s, you have sent %d of %d messages allowed today.", name, count, limit)
}

func quotaExceededText(name string, limit int) string {
	return fmt.Sprintf("🚫 %s, you reached today's limit of %d messages. Further messages will be removed until tomorrow.", name, limit)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
