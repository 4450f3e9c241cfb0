package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLastNDays_OldestFirstInclusiveOfToday(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)

	got := LastNDays(now, 3)

	assert.Equal(t, []string{"2026-02-28", "2026-03-01", "2026-03-02"}, got)
	assert.Nil(t, LastNDays(now, 0))
}

func TestDaysAgo_UsesCallerLocation(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	// 23:30 UTC on the 1st is already the 2nd in UTC+9
	now := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC).In(loc)

	assert.Equal(t, "2026-03-02", DaysAgo(now, 0))
	assert.Equal(t, "2026-03-01", DaysAgo(now, 1))
}

func TestDaysAgo_AcrossDSTChange(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	// DST starts 2026-03-08 in New York
	now := time.Date(2026, 3, 9, 0, 15, 0, 0, loc)

	assert.Equal(t, []string{"2026-03-07", "2026-03-08", "2026-03-09"}, LastNDays(now, 3))
}

func TestWeekday(t *testing.T) {
	d, ok := Weekday("2026-03-18")
	require.True(t, ok)
	assert.Equal(t, time.Wednesday, d)

	_, ok = Weekday("not-a-date")
	assert.False(t, ok)

	assert.True(t, IsWeekend("2026-03-14"))
	assert.True(t, IsWeekend("2026-03-15"))
	assert.False(t, IsWeekend("2026-03-16"))
	assert.False(t, IsWeekend("garbage"))
}

func TestNextDay(t *testing.T) {
	assert.Equal(t, "2026-03-01", NextDay("2026-02-28"))
	assert.Equal(t, "2024-02-29", NextDay("2024-02-28"))
	assert.Equal(t, "", NextDay("2026-13-01"))
}

func TestDayAbbrAndName(t *testing.T) {
	assert.Equal(t, "W", DayAbbr("2026-03-18"))
	assert.Equal(t, "", DayAbbr("bad"))
	assert.Equal(t, "Saturday", DayName(time.Saturday))
}

func TestGreeting(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{6, "Good morning"},
		{11, "Good morning"},
		{12, "Good afternoon"},
		{16, "Good afternoon"},
		{17, "Good evening"},
		{23, "Good evening"},
	}
	for _, tt := range tests {
		now := time.Date(2026, 3, 18, tt.hour, 0, 0, 0, time.UTC)
		assert.Equal(t, tt.want, Greeting(now), "hour %d", tt.hour)
	}
}
