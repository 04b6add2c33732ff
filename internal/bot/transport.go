package bot

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// NewAPI creates a Bot API client whose HTTP calls give up after timeout.
// A zero timeout leaves the client unbounded, as long polling needs.
func NewAPI(token string, timeout time.Duration) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return api, nil
}

// Transport performs outbound Bot API calls under a shared rate limit.
// It implements service.Notifier and service.Moderator.
type Transport struct {
	api     *tgbotapi.BotAPI
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewTransport creates a Transport sending at most perSecond requests per second
func NewTransport(api *tgbotapi.BotAPI, perSecond float64, log zerolog.Logger) *Transport {
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &Transport{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		log:     log.With().Str("component", "transport").Logger(),
	}
}

// Send delivers a message-producing request
func (t *Transport) Send(ctx context.Context, c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return tgbotapi.Message{}, err
	}
	return t.api.Send(c)
}

// Request performs a call whose result is not a message
func (t *Transport) Request(ctx context.Context, c tgbotapi.Chattable) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := t.api.Request(c)
	return err
}

// Notify sends a plain text message
func (t *Transport) Notify(ctx context.Context, chatID int64, text string) error {
	if _, err := t.Send(ctx, tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("failed to send message to %d: %w", chatID, err)
	}
	return nil
}

// Restrict mutes or unmutes a group member
func (t *Transport) Restrict(ctx context.Context, groupID, userID int64, restricted bool) error {
	config := tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: groupID, UserID: userID},
		Permissions:      permissions(!restricted),
	}
	if err := t.Request(ctx, config); err != nil {
		return fmt.Errorf("failed to restrict %d: %w", userID, err)
	}
	return nil
}

// Remove kicks a member out of the group: ban followed by unban, so they may rejoin
func (t *Transport) Remove(ctx context.Context, groupID, userID int64) error {
	member := tgbotapi.ChatMemberConfig{ChatID: groupID, UserID: userID}

	if err := t.Request(ctx, tgbotapi.BanChatMemberConfig{ChatMemberConfig: member}); err != nil {
		return fmt.Errorf("failed to ban %d: %w", userID, err)
	}
	if err := t.Request(ctx, tgbotapi.UnbanChatMemberConfig{ChatMemberConfig: member, OnlyIfBanned: true}); err != nil {
		return fmt.Errorf("failed to unban %d: %w", userID, err)
	}
	return nil
}

// Delete removes a message from a chat
func (t *Transport) Delete(ctx context.Context, chatID int64, messageID int) error {
	if err := t.Request(ctx, tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("failed to delete message %d: %w", messageID, err)
	}
	return nil
}

// Answer acknowledges a callback query with a short toast
func (t *Transport) Answer(ctx context.Context, callbackID, text string) error {
	return t.Request(ctx, tgbotapi.NewCallback(callbackID, text))
}

func permissions(allowed bool) *tgbotapi.ChatPermissions {
	return &tgbotapi.ChatPermissions{
		CanSendMessages:       allowed,
		CanSendMediaMessages:  allowed,
		CanSendPolls:          allowed,
		CanSendOtherMessages:  allowed,
		CanAddWebPagePreviews: allowed,
	}
}
