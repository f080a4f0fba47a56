// Package session describes which exchange trading sessions are open at a
// given instant.
package session

import (
	"strings"
	"time"
)

// Volatility is the expected activity level for a session mix.
type Volatility string

const (
	VolatilityLow        Volatility = "low"
	VolatilityLowMedium  Volatility = "low-medium"
	VolatilityMediumHigh Volatility = "medium-high"
	VolatilityHigh       Volatility = "high"
)

// Session is a major trading session by UTC hour range [Open, Close).
type Session struct {
	Name  string
	Open  int
	Close int
}

// Sessions lists Asia, London and New York in opening order.
var Sessions = []Session{
	{Name: "Asia", Open: 0, Close: 9},
	{Name: "London", Open: 7, Close: 16},
	{Name: "New York", Open: 13, Close: 22},
}

// OffHours is reported when no session is open.
const OffHours = "Off-hours"

// Context describes the session picture at one instant.
type Context struct {
	Active         []string
	Overlap        bool
	Volatility     Volatility
	Note           string
	NextSession    string
	HoursUntilNext int
	UTCHour        int
}

// Label joins the active sessions for display.
func (c Context) Label() string {
	return strings.Join(c.Active, " + ")
}

// At returns the session context for t.
func At(t time.Time) Context {
	hour := t.UTC().Hour()
	c := Context{UTCHour: hour}

	for _, s := range Sessions {
		if hour >= s.Open && hour < s.Close {
			c.Active = append(c.Active, s.Name)
		}
	}
	if len(c.Active) == 0 {
		c.Active = []string{OffHours}
	}
	c.Overlap = len(c.Active) > 1

	switch {
	case hour < 7:
		c.NextSession, c.HoursUntilNext = "London", 7-hour
	case hour < 13:
		c.NextSession, c.HoursUntilNext = "New York", 13-hour
	default:
		c.NextSession, c.HoursUntilNext = "Asia", 24-hour
	}

	switch {
	case c.Overlap:
		c.Volatility = VolatilityHigh
		c.Note = "Session overlap, expect increased volatility and volume"
	case c.Active[0] == OffHours:
		c.Volatility = VolatilityLow
		c.Note = "Between sessions, thin liquidity, watch for fakeouts"
	case c.Active[0] == "Asia":
		c.Volatility = VolatilityLowMedium
		c.Note = "Asia session, typically lower volume for crypto"
	default:
		c.Volatility = VolatilityMediumHigh
		c.Note = c.Label() + " session active"
	}
	return c
}
