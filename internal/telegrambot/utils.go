package telegrambot

import (
	"strconv"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/text/cases"
)

// splitSeparators are tried in order when a text has to be cut.
var splitSeparators = []string{"\n\n", "\n", " "}

// SplitText splits text into parts of at most limit runes, preferring paragraph, line and word
// boundaries. A word longer than limit is cut.
func SplitText(text string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var parts []string

	rest := text
	for utf8.RuneCountInString(rest) > limit {
		window := string([]rune(rest)[:limit])
		cut := len(window)

		for _, sep := range splitSeparators {
			if pos := strings.LastIndex(window, sep); pos > 0 {
				cut = pos + len(sep)

				break
			}
		}

		if part := strings.TrimRight(rest[:cut], " \n"); part != "" {
			parts = append(parts, part)
		}

		rest = strings.TrimLeft(rest[cut:], " \n")
	}

	if rest != "" {
		parts = append(parts, rest)
	}

	return parts
}

// foldName normalizes a username or command for case-insensitive comparison.
func foldName(s string) string {
	return cases.Fold().String(strings.TrimPrefix(strings.TrimSpace(s), "@"))
}

// isExcluded matches the sender by numeric id or by username.
func isExcluded(excluded []string, user *tgbotapi.User) bool {
	if user == nil {
		return false
	}

	id := strconv.FormatInt(user.ID, 10)
	name := foldName(user.UserName)

	for _, entry := range excluded {
		entry = strings.TrimSpace(entry)
		if entry == id {
			return true
		}

		if name != "" && foldName(entry) == name {
			return true
		}
	}

	return false
}

func isDiscountCommand(keywords []string, command string) bool {
	command = foldName(strings.TrimPrefix(command, "/"))
	if command == "" {
		return false
	}

	for _, kw := range keywords {
		if foldName(strings.TrimPrefix(kw, "/")) == command {
			return true
		}
	}

	return false
}
