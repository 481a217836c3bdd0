package service

import (
	"strings"
)

// cleanText makes free text from uploaded files safe for a TEXT column:
// PostgreSQL rejects invalid UTF-8 and NUL bytes.
func cleanText(s string) string {
	s = strings.ToValidUTF8(s, "")
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.TrimSpace(s)
}
