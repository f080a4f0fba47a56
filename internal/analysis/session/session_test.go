package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(hour int) time.Time {
	return time.Date(2024, time.March, 4, hour, 30, 0, 0, time.UTC)
}

func TestAt(t *testing.T) {
	tests := []struct {
		hour       int
		label      string
		overlap    bool
		volatility Volatility
		next       string
		until      int
	}{
		{2, "Asia", false, VolatilityLowMedium, "London", 5},
		{8, "Asia + London", true, VolatilityHigh, "New York", 5},
		{10, "London", false, VolatilityMediumHigh, "New York", 3},
		{14, "London + New York", true, VolatilityHigh, "Asia", 10},
		{20, "New York", false, VolatilityMediumHigh, "Asia", 4},
		{23, OffHours, false, VolatilityLow, "Asia", 1},
	}

	for _, tt := range tests {
		c := At(at(tt.hour))
		assert.Equal(t, tt.label, c.Label(), "hour %d", tt.hour)
		assert.Equal(t, tt.overlap, c.Overlap, "hour %d", tt.hour)
		assert.Equal(t, tt.volatility, c.Volatility, "hour %d", tt.hour)
		assert.Equal(t, tt.next, c.NextSession, "hour %d", tt.hour)
		assert.Equal(t, tt.until, c.HoursUntilNext, "hour %d", tt.hour)
	}
}

func TestAtUsesUTC(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	local := time.Date(2024, time.March, 4, 17, 0, 0, 0, tokyo)
	assert.Equal(t, 8, At(local).UTCHour)
}
