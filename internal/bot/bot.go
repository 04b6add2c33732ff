package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/glebk/study-bot/internal/apperror"
	"github.com/glebk/study-bot/internal/config"
	"github.com/glebk/study-bot/internal/domain"
	"github.com/glebk/study-bot/internal/metrics"
	"github.com/glebk/study-bot/internal/service"
)

// historySize is how many targets /mytargets shows
const historySize = 7

// Services groups the use cases the bot dispatches to
type Services struct {
	Membership *service.MembershipService
	Attendance *service.AttendanceService
	Quota      *service.QuotaService
	Report     *service.ReportService
	Export     *service.ExportService
}

// Messenger performs the outbound Bot API calls of the bot. Transport
// implements it.
type Messenger interface {
	Send(ctx context.Context, c tgbotapi.Chattable) (tgbotapi.Message, error)
	Notify(ctx context.Context, chatID int64, text string) error
	Delete(ctx context.Context, chatID int64, messageID int) error
	Answer(ctx context.Context, callbackID, text string) error
}

// Bot represents the Telegram bot
type Bot struct {
	api       *tgbotapi.BotAPI
	botName   string
	messenger Messenger
	services  Services
	config    *config.Config
	log       zerolog.Logger
	today     func() domain.Day
}

// New creates a new Bot instance. api is used for long polling only;
// every outbound call goes through messenger.
func New(api *tgbotapi.BotAPI, messenger Messenger, services Services, cfg *config.Config, log zerolog.Logger) *Bot {
	log = log.With().Str("component", "bot").Logger()
	log.Info().Str("account", api.Self.UserName).Msg("authorized")

	return &Bot{
		api:       api,
		botName:   api.Self.UserName,
		messenger: messenger,
		services:  services,
		config:    cfg,
		log:       log,
		today:     domain.Today,
	}
}

// Start polls updates until ctx is canceled
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message", "callback_query"}

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			b.log.Info().Msg("stopping update loop")
			return nil
		case update, ok := <-updates:
			if !ok {
				return errors.New("updates channel closed")
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Int("update_id", update.UpdateID).Msg("update handler panicked")
		}
	}()

	switch {
	case update.Message != nil:
		metrics.Update("message")
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		metrics.Update("callback")
		b.handleCallbackQuery(ctx, update.CallbackQuery)
	default:
		metrics.Update("other")
	}
}

// isGroup reports whether the chat is the managed group
func (b *Bot) isGroup(chat *tgbotapi.Chat) bool {
	return chat != nil && chat.ID == b.config.GroupID
}

// handleMessage handles incoming messages
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.From == nil || message.From.IsBot || message.Chat == nil {
		return
	}
	if !b.isGroup(message.Chat) && !message.Chat.IsPrivate() {
		return
	}

	if len(message.NewChatMembers) > 0 {
		if b.isGroup(message.Chat) {
			b.handleNewMembers(ctx, message)
		}
		return
	}

	user, err := b.resolveUser(ctx, message.From, b.isGroup(message.Chat))
	if err != nil {
		b.log.Error().Err(err).Int64("user_id", message.From.ID).Msg("failed to register user")
		return
	}
	if user == nil {
		b.reply(ctx, message, fmt.Sprintf(joinGroupText, b.config.GroupLink))
		return
	}

	command, args, isCommand := parseCommand(messageText(message), b.botName)

	if b.isGroup(message.Chat) {
		if !user.Registered && !b.config.IsAdmin(user.ID) {
			b.handleUnregistered(ctx, message, user, command)
			return
		}
		if !isCommand || !b.config.IsExempt(command) {
			if !b.checkQuota(ctx, message, user) {
				return
			}
		}
	}

	if isCommand {
		b.handleCommand(ctx, message, user, command, args)
		return
	}

	if message.Chat.IsPrivate() {
		b.reply(ctx, message, "Use /help to see what I can do.")
	}
}

// handleUnregistered removes messages of members who have not accepted the declaration
func (b *Bot) handleUnregistered(ctx context.Context, message *tgbotapi.Message, user *domain.User, command string) {
	if command == "start" || command == "help" {
		b.sendDeclaration(ctx, message.Chat.ID, user)
		return
	}

	if err := b.messenger.Delete(ctx, message.Chat.ID, message.MessageID); err != nil {
		b.log.Warn().Err(err).Int64("user_id", user.ID).Msg("failed to delete message of unregistered member")
	}
	b.notify(ctx, user.ID, "Please accept the study group declaration before posting. Send /start to see it.")
}

// checkQuota counts the message and enforces the daily limit. It returns
// false when the message was rejected.
func (b *Bot) checkQuota(ctx context.Context, message *tgbotapi.Message, user *domain.User) bool {
	count, limit, err := b.services.Quota.RecordMessage(ctx, user.ID, b.today())
	if err != nil {
		b.log.Error().Err(err).Int64("user_id", user.ID).Msg("failed to count message")
		return true
	}

	switch b.services.Quota.Evaluate(count, limit) {
	case domain.QuotaWarn:
		b.notify(ctx, message.Chat.ID, quotaWarningText(user.DisplayName(), count, limit))
	case domain.QuotaExceeded:
		if err := b.messenger.Delete(ctx, message.Chat.ID, message.MessageID); err != nil {
			b.log.Warn().Err(err).Int64("user_id", user.ID).Msg("failed to delete message over limit")
		}
		if count == limit+1 {
			b.notify(ctx, message.Chat.ID, quotaExceededText(user.DisplayName(), limit))
		}
		return false
	}

	return true
}

// handleCommand handles bot commands
func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message, user *domain.User, command, args string) {
	switch command {
	case "start":
		b.handleStart(ctx, message, user)
	case "help":
		b.replyMarkdown(ctx, message, helpText)
	case "mytarget":
		b.handleMyTarget(ctx, message, user, args)
	case "complete":
		b.handleComplete(ctx, message, user)
	case "addoff":
		b.handleAddOff(ctx, message, user, args)
	case "myday":
		b.handleMyDay(ctx, message, user)
	case "progress":
		b.handleProgress(ctx, message, user, args)
	case "mytargets":
		b.handleMyTargets(ctx, message, user)
	case "stats":
		b.handleStats(ctx, message, user)
	case "leaderboard":
		b.handleLeaderboard(ctx, message)
	case "extend":
		b.handleExtend(ctx, message, user, args)
	case "setlimit":
		b.handleSetLimit(ctx, message, user, args)
	case "users":
		b.handleUsers(ctx, message, user)
	case "export":
		b.handleExport(ctx, message, user)
	default:
		b.reply(ctx, message, "Unknown command. Use /help to see the available commands.")
	}
}

// handleStart shows the declaration to newcomers and a greeting to members
func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message, user *domain.User) {
	if !user.Registered {
		b.sendDeclaration(ctx, message.Chat.ID, user)
		return
	}
	b.reply(ctx, message, fmt.Sprintf("👋 Hi %s! Set today's target with /mytarget or see /help.", user.DisplayName()))
}

func (b *Bot) handleMyTarget(ctx context.Context, message *tgbotapi.Message, user *domain.User, args string) {
	day := b.today()

	outcome, err := b.services.Attendance.RecordTarget(ctx, user.ID, day, args, photoID(message))
	if err != nil {
		b.replyError(ctx, message, err)
		return
	}

	streak, err := b.services.Report.CurrentStreak(ctx, user.ID, day)
	if err != nil {
		b.log.Warn().Err(err).Int64("user_id", user.ID).Msg("failed to compute streak")
	}

	b.reply(ctx, message, targetSavedText(outcome, streak))
}

func (b *Bot) handleComplete(ctx context.Context, message *tgbotapi.Message, user *domain.User) {
	target, err := b.services.Attendance.CompleteTarget(ctx, user.ID, b.today())
	if errors.Is(err, apperror.ErrNotFound) {
		b.reply(ctx, message, "You have no target for today. Set one with /mytarget <text>.")
		return
	}
	if err != nil {
		b.replyError(ctx, message, err)
		return
	}

	b.reply(ctx, message, "🎉 Well done!\n\n"+formatTarget(target))
}

func (b *Bot) handleAddOff(ctx context.Context, message *tgbotapi.Message, user *domain.User, args string) {
	ok, err := b.services.Attendance.RecordDayOff(ctx, user.ID, b.today(), args)
	if err != nil {
		b.replyError(ctx, message, err)
		return
	}
	if !ok {
		b.reply(ctx, message, "Today already has a target or a day-off.")
		return
	}

	b.reply(ctx, message, "🌴 Day off recorded. Rest well and come back tomorrow!")
}

func (b *Bot) handleMyDay(ctx context.Context, message *tgbotapi.Message, user *domain.User) {
	status, err := b.services.Report.Today(ctx, user.ID, b.today())
	if err != nil {
		b.replyError(ctx, message, err)
		return
	}
	b.reply(ctx, message, formatDay(status))
}

func (b *Bot) handleProgress(ctx context.Context, message *tgbotapi.Message, user *domain.User, args string) {
	args = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(args), "%"))
	if args == "" {
		b.replyError(ctx, message, apperror.ValidationFailed("progress", "Usage: /progress <percentage>, e.g. /progress 50"))
		return
	}

	progress, err := strconv.Atoi(args)
	if err != nil {
		b.replyError(ctx, message, apperror.ValidationFailed("progress", "Please enter a valid percentage (0-100)."))
		return
	}

	target, err := b.services.Attendance.UpdateProgress(ctx, user.ID, b.today(), progress)
	if errors.Is(err, apperror.ErrNotFound) {
		b.reply(ctx, message, "You have no target for today. Set one with /mytarget <text>.")
		return
	}
	if err != nil {
		b.replyError(ctx, message, err)
		return
	}

	if target.Status == domain.TargetStatusCompleted {
		b.reply(ctx, message, "🎉 Target completed!\n\n"+formatTarget(target))
		return
	}
	b.reply(ctx, message, fmt.Sprintf("📊 Progress updated to %d%%!\n\n", target.Progress)+formatTarget(target))
}

func (b *Bot) handleMyTargets(ctx context.Context, message *tgbotapi.Message, user *domain.User) {
	targets, err := b.services.Report.History(ctx, user.ID, historySize)
	if err != nil {
		b.replyError(ctx, message, err)
		return
	}
	b.reply(ctx, message, formatTargets(targets))
}

func (b *Bot) handleStats(ctx context.Context, message *tgbotapi.Message, user *domain.User) {
	stats, err := b.services.Report.UserStats(ctx, user.ID, b.config.LeaderboardDays, b.today())
	if err != nil {
		b.replyError(ctx, message, err)
		return
	}
	b.reply(ctx, message, formatStats(user, stats))
}

func (b *Bot) handleLeaderboard(ctx context.Context, message *tgbotapi.Message) {
	entries, err := b.services.Report.Leaderboard(ctx, b.config.GroupID, b.config.LeaderboardDays, b.today())
	if err != nil {
		b.replyError(ctx, message, err)
		return
	}
	b.reply(ctx, message, formatLeaderboard(entries, b.config.LeaderboardDays, time.Now()))
}

func (b *Bot) handleExtend(ctx context.Context, message *tgbotapi.Message, user *domain.User, args string) {
	if !b.requireAdmin(ctx, message, user) {
		return
	}

	var replyTo int64
	if message.ReplyToMessage != nil && message.ReplyToMessage.From != nil {
		replyTo = message.ReplyToMessage.From.ID
	}

	userID, n, err := parseExtendArgs(args, replyTo)
	if err != nil {
		b.replyError(ctx, message, err)
		return
	}

	limit, err := b.services.Quota.ExtendUserLimit(ctx, userID, b.today(), n)
	if err != nil {
		b.replyError(ctx, message, err)
		return
	}

	b.reply(ctx, message, fmt.Sprintf("✅ User %d gets %d extra messages per day. Today's limit: %d.", userID, n, limit))
}

func (b *Bot) handleSetLimit(ctx context.Context, message *tgbotapi.Message, user *domain.User, args string) {
	if !b.requireAdmin(ctx, message, user) {
		return
	}

	limit, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil {
		b.replyError(ctx, message, apperror.ValidationFailed("limit", "Usage: /setlimit <n>"))
		return
	}

	if err := b.services.Quota.SetGroupLimit(ctx, b.config.GroupID, limit); err != nil {
		b.replyError(ctx, message, err)
		return
	}

	b.reply(ctx, message, fmt.Sprintf("✅ Daily message limit set to %d. It applies from each member's next new day.", limit))
}

func (b *Bot) handleUsers(ctx context.Context, message *tgbotapi.Message, user *domain.User) {
	if !b.requireAdmin(ctx, message, user) {
		return
	}

	users, err := b.services.Membership.ListMembers(ctx, b.config.GroupID)
	if err != nil {
		b.replyError(ctx, message, err)
		return
	}
	b.reply(ctx, message, formatMembers(users))
}

func (b *Bot) requireAdmin(ctx context.Context, message *tgbotapi.Message, user *domain.User) bool {
	if b.config.IsAdmin(user.ID) {
		return true
	}
	b.replyError(ctx, message, apperror.Forbidden("This command is for admins only."))
	return false
}

// handleExport sends the group's data as a JSON document to the admin's
// private chat, never to the group.
func (b *Bot) handleExport(ctx context.Context, message *tgbotapi.Message, user *domain.User) {
	if !b.requireAdmin(ctx, message, user) {
		return
	}

	data, records, err := b.services.Export.ExportJSON(ctx, b.config.GroupID)
	if err != nil {
		b.replyError(ctx, message, err)
		return
	}

	doc := tgbotapi.NewDocument(user.ID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("study-export-%s.json", b.today()),
		Bytes: data,
	})
	doc.Caption = fmt.Sprintf("📊 Data export: %d records", records)

	if _, err := b.messenger.Send(ctx, doc); err != nil {
		b.log.Error().Err(err).Int64("user_id", user.ID).Msg("failed to send export")
		b.reply(ctx, message, "❌ Could not deliver the export. Start a private chat with the bot first.")
		return
	}

	if !message.Chat.IsPrivate() {
		b.reply(ctx, message, "📊 Export sent to your private chat.")
	}
}

// handleNewMembers onboards users added to the group
func (b *Bot) handleNewMembers(ctx context.Context, message *tgbotapi.Message) {
	for i := range message.NewChatMembers {
		member := &message.NewChatMembers[i]
		if member.IsBot {
			continue
		}

		user, err := b.services.Membership.OnJoin(ctx, toMember(member, b.config.GroupID))
		if err != nil {
			b.log.Error().Err(err).Int64("user_id", member.ID).Msg("failed to onboard member")
			continue
		}
		if !user.Registered {
			b.sendDeclaration(ctx, message.Chat.ID, user)
		}
	}
}

func (b *Bot) sendDeclaration(ctx context.Context, chatID int64, user *domain.User) {
	msg := tgbotapi.NewMessage(chatID, welcomeText(user.DisplayName(), b.config.Absence.Threshold))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = declarationKeyboard(b.config.GroupLink)

	if _, err := b.messenger.Send(ctx, msg); err != nil {
		b.log.Error().Err(err).Int64("user_id", user.ID).Msg("failed to send declaration")
	}
}

// handleCallbackQuery handles button callbacks
func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if query.From == nil {
		return
	}

	user, err := b.resolveUser(ctx, query.From, false)
	if err != nil {
		b.log.Error().Err(err).Int64("user_id", query.From.ID).Msg("failed to register user")
		b.answerCallback(ctx, query.ID, genericErrorText)
		return
	}
	if user == nil {
		b.answerCallback(ctx, query.ID, "Please join the study group first.")
		return
	}

	switch query.Data {
	case callbackAccept:
		already, err := b.services.Membership.AcceptDeclaration(ctx, user.ID)
		if err != nil {
			b.log.Error().Err(err).Int64("user_id", user.ID).Msg("failed to accept declaration")
			b.answerCallback(ctx, query.ID, genericErrorText)
			return
		}
		if already {
			b.answerCallback(ctx, query.ID, "You are already a member.")
			return
		}
		b.answerCallback(ctx, query.ID, "✅ Welcome to the study group!")
		b.notify(ctx, b.config.GroupID,
			fmt.Sprintf("🎉 %s accepted the declaration. Set your first target with /mytarget <text>.", user.DisplayName()))

	case callbackDecline:
		if err := b.services.Membership.DeclineDeclaration(ctx, user.ID); err != nil {
			if msg, ok := apperror.UserMessage(err); ok {
				b.answerCallback(ctx, query.ID, msg)
				return
			}
			b.log.Error().Err(err).Int64("user_id", user.ID).Msg("failed to decline declaration")
			b.answerCallback(ctx, query.ID, genericErrorText)
			return
		}
		b.answerCallback(ctx, query.ID, "You need to accept the declaration to take part in the group.")

	default:
		b.answerCallback(ctx, query.ID, "Unknown action")
	}
}

// registerUser registers or updates a user
func (b *Bot) registerUser(ctx context.Context, from *tgbotapi.User) (*domain.User, error) {
	user, _, err := b.services.Membership.EnsureMember(ctx, toMember(from, b.config.GroupID))
	return user, err
}

// resolveUser returns the sender's profile. Profiles are only created from
// group activity: outside the group an unknown sender yields nil, except
// for the admin.
func (b *Bot) resolveUser(ctx context.Context, from *tgbotapi.User, inGroup bool) (*domain.User, error) {
	if inGroup || b.config.IsAdmin(from.ID) {
		return b.registerUser(ctx, from)
	}

	known, err := b.services.Membership.GetUser(ctx, from.ID)
	if err != nil || known == nil {
		return nil, err
	}
	return b.registerUser(ctx, from)
}

// reply sends a plain text answer to the chat of message
func (b *Bot) reply(ctx context.Context, message *tgbotapi.Message, text string) {
	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ReplyToMessageID = message.MessageID
	msg.AllowSendingWithoutReply = true

	if _, err := b.messenger.Send(ctx, msg); err != nil {
		b.log.Error().Err(err).Int64("chat_id", message.Chat.ID).Msg("failed to send reply")
	}
}

func (b *Bot) replyMarkdown(ctx context.Context, message *tgbotapi.Message, text string) {
	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := b.messenger.Send(ctx, msg); err != nil {
		b.log.Error().Err(err).Int64("chat_id", message.Chat.ID).Msg("failed to send reply")
	}
}

// replyError reports user-facing errors as is and hides everything else
func (b *Bot) replyError(ctx context.Context, message *tgbotapi.Message, err error) {
	if text, ok := apperror.UserMessage(err); ok {
		b.reply(ctx, message, text)
		return
	}

	b.log.Error().Err(err).Int64("chat_id", message.Chat.ID).Msg("command failed")
	b.reply(ctx, message, genericErrorText)
}

func (b *Bot) notify(ctx context.Context, chatID int64, text string) {
	err := b.messenger.Notify(ctx, chatID, text)
	metrics.Notification("bot", err)
	if err != nil {
		b.log.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to notify")
	}
}

// answerCallback answers a callback query
func (b *Bot) answerCallback(ctx context.Context, callbackID string, text string) {
	if err := b.messenger.Answer(ctx, callbackID, text); err != nil {
		b.log.Warn().Err(err).Msg("failed to answer callback")
	}
}

func toMember(u *tgbotapi.User, groupID int64) service.Member {
	return service.Member{
		ID:        u.ID,
		Username:  u.UserName,
		FirstName: u.FirstName,
		GroupID:   groupID,
	}
}

// messageText returns the text of a message, or the caption of a media message
func messageText(message *tgbotapi.Message) string {
	if message.Text != "" {
		return message.Text
	}
	return message.Caption
}

// photoID returns the file id of the largest photo size, if any
func photoID(message *tgbotapi.Message) string {
	if len(message.Photo) == 0 {
		return ""
	}
	return message.Photo[len(message.Photo)-1].FileID
}

// parseCommand splits "/cmd@bot args" into its lower-cased name and
// arguments. Commands addressed to another bot are not ours.
func parseCommand(text, botName string) (command, args string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}

	head, rest := text, ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		head, rest = text[:i], text[i:]
	}

	name, mention, _ := strings.Cut(head[1:], "@")
	if mention != "" && !strings.EqualFold(mention, botName) {
		return "", "", false
	}
	if name == "" {
		return "", "", false
	}

	return strings.ToLower(name), strings.TrimSpace(rest), true
}

// parseExtendArgs reads "<n>" when replying to a member's message, or "<user_id> <n>"
func parseExtendArgs(args string, replyTo int64) (int64, int, error) {
	fields := strings.Fields(args)
	usage := apperror.ValidationFailed("args", "Usage: reply with /extend <n>, or /extend <user_id> <n>")

	switch {
	case replyTo != 0 && len(fields) == 1:
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			return 0, 0, usage
		}
		return replyTo, n, nil
	case len(fields) == 2:
		userID, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return 0, 0, usage
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return 0, 0, usage
		}
		return userID, n, nil
	default:
		return 0, 0, usage
	}
}
