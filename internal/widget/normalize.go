package widget

import "strings"

// Normalize converts CRLF line endings to LF and trims surrounding whitespace. It is idempotent.
func Normalize(raw string) string {
	return strings.TrimSpace(strings.ReplaceAll(raw, "\r\n", "\n"))
}
