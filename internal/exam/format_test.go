package exam

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatHMS(t *testing.T) {
	tests := []struct {
		name    string
		seconds int
		want    string
	}{
		{name: "zero", seconds: 0, want: "00:00:00"},
		{name: "seconds only", seconds: 9, want: "00:00:09"},
		{name: "one minute", seconds: 60, want: "00:01:00"},
		{name: "typical exam duration", seconds: 5400, want: "01:30:00"},
		{name: "just under an hour", seconds: 3599, want: "00:59:59"},
		{name: "multi hour", seconds: 7325, want: "02:02:05"},
		{name: "negative clamps to zero", seconds: -5, want: "00:00:00"},
		{name: "over a day keeps counting hours", seconds: 90000, want: "25:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatHMS(tt.seconds))
		})
	}
}
