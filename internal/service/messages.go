package service

import (
	"fmt"

	"github.com/glebk/study-bot/internal/domain"
)

func reminderText(kind domain.ReminderKind) string {
	switch kind {
	case 1:
		return "📚 Good morning! You haven't set today's study target yet.\nPost it with /mytarget <your target> or take a break with /addoff <reason>."
	case 2:
		return "⏰ Reminder: today's study target is still missing.\nUse /mytarget <your target> to keep your streak alive."
	default:
		return "🚨 Last call! Post today's target with /mytarget before the day ends, or the day will count as absent."
	}
}

func absenceWarningText(absences, threshold int) string {
	return fmt.Sprintf(
		"⚠️ Warning\n\nYou have gone %d days in a row without a study target (limit: %d).\n"+
			"Post a target with /mytarget today. Further absences lead to removal from the group.",
		absences, threshold,
	)
}

func removalText(absences int) string {
	return fmt.Sprintf(
		"❌ You were removed from the study group after %d consecutive days without a target.\n"+
			"You are welcome to rejoin and accept the declaration again.",
		absences,
	)
}

func adminWarningText(user *domain.User, absences int) string {
	return fmt.Sprintf("⚠️ %s (id %d) warned: %d consecutive absences.", user.DisplayName(), user.ID, absences)
}

func adminRemovalText(user *domain.User, absences int, err error) string {
	if err != nil {
		return fmt.Sprintf("❗ Failed to remove %s (id %d) after %d absences: %v. Registration was revoked.",
			user.DisplayName(), user.ID, absences, err)
	}
	return fmt.Sprintf("🚫 %s (id %d) removed after %d consecutive absences.", user.DisplayName(), user.ID, absences)
}
