package bot

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glebk/study-bot/internal/apperror"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text    string
		command string
		args    string
		ok      bool
	}{
		{text: "/mytarget read chapter 5", command: "mytarget", args: "read chapter 5", ok: true},
		{text: "/MyTarget@StudyBot  algebra ", command: "mytarget", args: "algebra", ok: true},
		{text: "/mytarget\nline one\nline two", command: "mytarget", args: "line one\nline two", ok: true},
		{text: "/complete", command: "complete", ok: true},
		{text: "/help@other_bot", ok: false},
		{text: "hello /help", ok: false},
		{text: "/", ok: false},
		{text: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			command, args, ok := parseCommand(tt.text, "studybot")
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.command, command)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestParseExtendArgs(t *testing.T) {
	userID, n, err := parseExtendArgs("10", 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
	assert.Equal(t, 10, n)

	userID, n, err = parseExtendArgs("123456 5", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(123456), userID)
	assert.Equal(t, 5, n)

	for _, args := range []string{"", "ten", "1 2 3", "abc 5"} {
		_, _, err := parseExtendArgs(args, 0)
		assert.ErrorIs(t, err, apperror.ErrValidation, args)
	}

	_, _, err = parseExtendArgs("5", 0)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestMessageTextAndPhoto(t *testing.T) {
	msg := &tgbotapi.Message{
		Caption: "/mytarget solve 10 problems",
		Photo: []tgbotapi.PhotoSize{
			{FileID: "small", Width: 90},
			{FileID: "large", Width: 1280},
		},
	}

	assert.Equal(t, "/mytarget solve 10 problems", messageText(msg))
	assert.Equal(t, "large", photoID(msg))

	assert.Equal(t, "", photoID(&tgbotapi.Message{Text: "hi"}))
	assert.Equal(t, "hi", messageText(&tgbotapi.Message{Text: "hi", Caption: "ignored"}))
}

func TestToMember(t *testing.T) {
	m := toMember(&tgbotapi.User{ID: 7, UserName: "kim", FirstName: "Kim"}, -100)

	assert.Equal(t, int64(7), m.ID)
	assert.Equal(t, "kim", m.Username)
	assert.Equal(t, int64(-100), m.GroupID)
}
