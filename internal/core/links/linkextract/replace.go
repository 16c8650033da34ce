package linkextract

import "strings"

// ReplaceToken replaces every standalone occurrence of token in text and returns the new text
// and the number of replacements. An occurrence is standalone when it does not sit inside
// another URL on the left, and on the right is followed only by trailing punctuation or a
// non-URL character. This keeps https://a.test/x from matching inside https://a.test/xy or
// inside an already rewritten https://a.test/x?tag=1.
func ReplaceToken(text, token, replacement string) (string, int) {
	if token == "" {
		return text, 0
	}

	var sb strings.Builder

	count := 0
	rest := text

	for {
		idx := strings.Index(rest, token)
		if idx < 0 {
			sb.WriteString(rest)

			break
		}

		end := idx + len(token)
		absStart := len(text) - len(rest) + idx

		if isStandalone(text, absStart, absStart+len(token)) {
			sb.WriteString(rest[:idx])
			sb.WriteString(replacement)

			count++
		} else {
			sb.WriteString(rest[:end])
		}

		rest = rest[end:]
	}

	return sb.String(), count
}

func isStandalone(text string, start, end int) bool {
	runStart := start
	for runStart > 0 && isURLByte(text[runStart-1]) {
		runStart--
	}

	if strings.Contains(text[runStart:start], "://") {
		return false
	}

	runEnd := end
	for runEnd < len(text) && isURLByte(text[runEnd]) {
		runEnd++
	}

	return strings.Trim(text[end:runEnd], trailingPunctuation) == ""
}

// isURLByte mirrors the character class of the URL tokenizer.
func isURLByte(b byte) bool {
	if b <= ' ' {
		return false
	}

	return !strings.ContainsRune("<>\"{}|\\^`[]", rune(b))
}
