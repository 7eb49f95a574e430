package backup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsDue(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	now := time.Date(2026, 5, 20, 14, 0, 0, 0, loc)

	tests := []struct {
		name string
		last time.Time
		now  time.Time
		want bool
	}{
		{"never backed up", time.Time{}, now, true},
		{"new calendar day", time.Date(2026, 5, 19, 23, 0, 0, 0, loc), time.Date(2026, 5, 20, 0, 30, 0, 0, loc), true},
		{"two hours ago same day", now.Add(-2 * time.Hour), now, false},
		{"thirteen hours ago same day", now.Add(-13 * time.Hour), now, true},
		{"exactly twelve hours", now.Add(-12 * time.Hour), now, true},
		{"day compared in now's location", time.Date(2026, 5, 19, 17, 0, 0, 0, time.UTC), time.Date(2026, 5, 20, 2, 0, 0, 0, loc), false},
		{"last in the future", now.Add(24 * time.Hour), now, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDue(tt.last, tt.now))
		})
	}
}
