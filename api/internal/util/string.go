package util

import "unicode/utf8"

// Truncate режет по рунам, чтобы не ломать UTF-8 в сообщениях Telegram.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}
