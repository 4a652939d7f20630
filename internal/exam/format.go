package exam

import "fmt"

// FormatHMS renders a second count as a zero-padded HH:MM:SS string.
// Negative inputs clamp to "00:00:00".
func FormatHMS(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
