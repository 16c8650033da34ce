package telegrambot

import (
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
)

func TestSplitText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{name: "fits", text: "short", limit: 10, want: []string{"short"}},
		{name: "word boundary", text: "aaaa bbbb cccc", limit: 10, want: []string{"aaaa bbbb", "cccc"}},
		{name: "line boundary", text: "line one\nline two", limit: 12, want: []string{"line one", "line two"}},
		{name: "paragraph first", text: "ab cd\n\nef gh", limit: 10, want: []string{"ab cd", "ef gh"}},
		{name: "hard cut keeps runes", text: "ééééé", limit: 2, want: []string{"éé", "éé", "é"}},
		{name: "no limit", text: "anything", limit: 0, want: []string{"anything"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitText(tt.text, tt.limit))
		})
	}
}

func TestSplitTextLongMessage(t *testing.T) {
	text := strings.Repeat("word ", 2000)

	parts := SplitText(text, maxMessageRunes)
	assert.Len(t, parts, 3)

	for _, p := range parts {
		assert.LessOrEqual(t, len([]rune(p)), maxMessageRunes)
	}
}

func TestIsExcluded(t *testing.T) {
	excluded := []string{"12345", "@HectorziN", " user2 "}

	tests := []struct {
		name string
		user *tgbotapi.User
		want bool
	}{
		{name: "by id", user: &tgbotapi.User{ID: 12345}, want: true},
		{name: "by username folded", user: &tgbotapi.User{ID: 1, UserName: "hectorzin"}, want: true},
		{name: "trimmed entry", user: &tgbotapi.User{ID: 2, UserName: "User2"}, want: true},
		{name: "other user", user: &tgbotapi.User{ID: 3, UserName: "someone"}, want: false},
		{name: "no username", user: &tgbotapi.User{ID: 4}, want: false},
		{name: "nil", user: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isExcluded(excluded, tt.user))
		})
	}
}

func TestIsDiscountCommand(t *testing.T) {
	keywords := []string{"discount", "/Cupones"}

	assert.True(t, isDiscountCommand(keywords, "discount"))
	assert.True(t, isDiscountCommand(keywords, "CUPONES"))
	assert.False(t, isDiscountCommand(keywords, "start"))
	assert.False(t, isDiscountCommand(keywords, ""))
	assert.False(t, isDiscountCommand(nil, "discount"))
}
