package gate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utc(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestGate_ShouldRunNow(t *testing.T) {
	g, err := New("Europe/London", 7, 20*time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name string
		now  string
		want bool
	}{
		{name: "winter on the hour", now: "2025-01-15T07:00:00Z", want: true},
		{name: "winter inside window", now: "2025-01-15T07:19:59Z", want: true},
		{name: "winter window end", now: "2025-01-15T07:20:00Z", want: false},
		{name: "winter previous hour", now: "2025-01-15T06:59:59Z", want: false},
		{name: "summer local 7 is 6 utc", now: "2025-07-01T06:05:00Z", want: true},
		{name: "summer 7 utc is 8 local", now: "2025-07-01T07:05:00Z", want: false},
		// clocks go forward at 01:00 UTC on 2025-03-30
		{name: "spring forward day local 7", now: "2025-03-30T06:10:00Z", want: true},
		{name: "spring forward day 7 utc", now: "2025-03-30T07:10:00Z", want: false},
		{name: "day before spring forward", now: "2025-03-29T07:10:00Z", want: true},
		// clocks go back at 01:00 UTC on 2025-10-26
		{name: "fall back day local 7", now: "2025-10-26T07:10:00Z", want: true},
		{name: "fall back day 6 utc", now: "2025-10-26T06:10:00Z", want: false},
		{name: "day before fall back", now: "2025-10-25T06:10:00Z", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.ShouldRunNow(utc(tt.now)))
		})
	}
}

func TestGate_TriggersCollapseToOne(t *testing.T) {
	g, err := New("Europe/London", 7, DefaultWindow)
	require.NoError(t, err)

	// triggers every 30 minutes through a DST day, exactly one gets through
	start := utc("2025-03-30T00:00:00Z")
	passed := 0
	for i := 0; i < 48; i++ {
		if g.ShouldRunNow(start.Add(time.Duration(i) * 30 * time.Minute)) {
			passed++
		}
	}
	assert.Equal(t, 1, passed)
}

func TestGate_Date(t *testing.T) {
	g, err := New("Europe/London", 7, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultWindow, g.window)
	assert.Equal(t, "2025-07-02", g.Date(utc("2025-07-01T23:30:00Z")), "bst pushes past midnight")
	assert.Equal(t, "2025-01-01", g.Date(utc("2025-01-01T23:30:00Z")))
	assert.Equal(t, "Europe/London", g.Location().String())
}

func TestNew_Errors(t *testing.T) {
	_, err := New("Nowhere/Special", 7, DefaultWindow)
	assert.Error(t, err)

	_, err = New("UTC", 24, DefaultWindow)
	assert.EqualError(t, err, "hour 24 out of range")
}

func TestShouldRunNow(t *testing.T) {
	ok, err := ShouldRunNow("America/New_York", 7, utc("2025-03-09T11:15:00Z"))
	require.NoError(t, err)
	assert.True(t, ok, "edt on the day clocks change")

	ok, err = ShouldRunNow("America/New_York", 7, utc("2025-03-09T12:15:00Z"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = ShouldRunNow("bad zone", 7, time.Now())
	assert.Error(t, err)
}
