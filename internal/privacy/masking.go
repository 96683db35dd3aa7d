// Package privacy masks user identifiers before they reach the logs.
package privacy

import (
	"strconv"
	"strings"
)

// MaskChatID keeps only the last 3 digits of a numeric chat ID.
// Example: -1001234567890 -> "-**********890"
func MaskChatID(chatID int64) string {
	s := strconv.FormatInt(chatID, 10)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign = "-"
		s = s[1:]
	}
	if len(s) <= 3 {
		return sign + strings.Repeat("*", len(s))
	}
	return sign + strings.Repeat("*", len(s)-3) + s[len(s)-3:]
}

// MaskUsername keeps the first two runes of an @username.
// Example: "@someuser" -> "@so******"
func MaskUsername(username string) string {
	trimmed := strings.TrimPrefix(username, "@")
	runes := []rune(trimmed)
	if len(runes) <= 2 {
		return "@" + strings.Repeat("*", len(runes))
	}
	return "@" + string(runes[:2]) + strings.Repeat("*", len(runes)-2)
}
