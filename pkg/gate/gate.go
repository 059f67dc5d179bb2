// Package gate decides whether a scheduled trigger is the authoritative run of the day.
// Triggers fire more often than a digest is wanted; the gate lets through only the ones
// that land in a short window after a target local hour, so the send time follows local
// clock time across daylight-saving changes.
package gate

import (
	"fmt"
	"time"
	_ "time/tzdata" // zone database for hosts without one
)

// DefaultWindow is the width of the run window from the top of the target hour
const DefaultWindow = 20 * time.Minute

// Gate is bound to a zone, a local hour and a window
type Gate struct {
	loc    *time.Location
	hour   int
	window time.Duration
}

// New makes a gate for the IANA zone tz. A non-positive window means DefaultWindow.
func New(tz string, hour int, window time.Duration) (*Gate, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", tz, err)
	}
	if hour < 0 || hour > 23 {
		return nil, fmt.Errorf("hour %d out of range", hour)
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Gate{loc: loc, hour: hour, window: window}, nil
}

// ShouldRunNow reports whether now, in the gate's zone, is within the window of the target hour
func (g *Gate) ShouldRunNow(now time.Time) bool {
	local := now.In(g.loc)
	if local.Hour() != g.hour {
		return false
	}
	sinceHour := time.Duration(local.Minute())*time.Minute + time.Duration(local.Second())*time.Second +
		time.Duration(local.Nanosecond())
	return sinceHour < g.window
}

// Date returns the local calendar date of now as YYYY-MM-DD
func (g *Gate) Date(now time.Time) string {
	return now.In(g.loc).Format("2006-01-02")
}

// Location returns the gate's zone
func (g *Gate) Location() *time.Location {
	return g.loc
}

// ShouldRunNow is a one-shot check with the default window
func ShouldRunNow(tz string, hour int, now time.Time) (bool, error) {
	g, err := New(tz, hour, DefaultWindow)
	if err != nil {
		return false, err
	}
	return g.ShouldRunNow(now), nil
}
