package tat

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2025-01-03 is a Friday.
func friday(hour, minute int) time.Time {
	return time.Date(2025, time.January, 3, hour, minute, 0, 0, time.UTC)
}

func fixedCalendar(now time.Time) *Calendar {
	return NewCalendar(time.UTC, func() time.Time { return now })
}

func TestAddBusinessHours_WithinDay(t *testing.T) {
	cal := fixedCalendar(friday(9, 0))
	wed := time.Date(2025, time.January, 1, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, wed.Add(5*time.Hour), cal.AddBusinessHours(wed, 5))
	assert.Equal(t, wed.Add(90*time.Minute), cal.AddBusinessHours(wed, 1.5))
	assert.Equal(t, wed, cal.AddBusinessHours(wed, 0))
	assert.Equal(t, wed, cal.AddBusinessHours(wed, -3))
}

func TestAddBusinessHours_SkipsWeekend(t *testing.T) {
	cal := fixedCalendar(friday(9, 0))

	got := cal.AddBusinessHours(friday(11, 0), 48)
	assert.Equal(t, time.Date(2025, time.January, 7, 11, 0, 0, 0, time.UTC), got)

	// Friday 23:00 plus two hours resumes on Monday morning.
	got = cal.AddBusinessHours(friday(23, 0), 2)
	assert.Equal(t, time.Date(2025, time.January, 6, 1, 0, 0, 0, time.UTC), got)
}

func TestAddBusinessHours_NeverLandsOnWeekend(t *testing.T) {
	cal := fixedCalendar(friday(9, 0))
	starts := []time.Time{
		friday(0, 0),
		friday(12, 30),
		friday(22, 0),
		time.Date(2025, time.January, 2, 18, 0, 0, 0, time.UTC),
	}
	for _, start := range starts {
		for _, hours := range []float64{1, 2, 6.5, 12, 24, 30, 47.25, 72} {
			got := cal.AddBusinessHours(start, hours)
			wd := got.Weekday()
			assert.NotEqual(t, time.Saturday, wd, "start=%s hours=%v", start, hours)
			assert.NotEqual(t, time.Sunday, wd, "start=%s hours=%v", start, hours)
			assert.False(t, got.Before(start))
		}
	}
}

func TestAddBusinessHours_StartOnWeekend(t *testing.T) {
	cal := fixedCalendar(friday(9, 0))
	saturday := time.Date(2025, time.January, 4, 15, 0, 0, 0, time.UTC)

	got := cal.AddBusinessHours(saturday, 3)
	assert.Equal(t, time.Date(2025, time.January, 6, 3, 0, 0, 0, time.UTC), got)
}

func TestAddBusinessHours_RespectsLocation(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	cal := NewCalendar(loc, nil)
	// Friday 20:00 UTC is already Saturday 01:30 in IST.
	start := time.Date(2025, time.January, 3, 20, 0, 0, 0, time.UTC)

	got := cal.AddBusinessHours(start, 1)
	assert.Equal(t, time.Date(2025, time.January, 6, 1, 0, 0, 0, loc), got)
}

func TestRemainingBusinessHours(t *testing.T) {
	cal := fixedCalendar(friday(9, 0))

	assert.Equal(t, 0, cal.RemainingBusinessHours(friday(10, 0), friday(9, 0)))
	assert.Equal(t, 0, cal.RemainingBusinessHours(friday(10, 0), friday(10, 0)))
	assert.Equal(t, 3, cal.RemainingBusinessHours(friday(10, 0), friday(12, 30)))

	monday := time.Date(2025, time.January, 6, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, 16, cal.RemainingBusinessHours(friday(10, 0), monday))
}

func TestRemainingBusinessHours_RoundTrip(t *testing.T) {
	cal := fixedCalendar(friday(9, 0))
	starts := []time.Time{
		friday(11, 0),
		friday(23, 15),
		time.Date(2025, time.January, 6, 8, 0, 0, 0, time.UTC),
	}
	for _, start := range starts {
		for _, hours := range []float64{0, 1, 4.5, 10, 24, 48, 100} {
			due := cal.AddBusinessHours(start, hours)
			got := cal.RemainingBusinessHours(start, due)
			assert.InDelta(t, hours, float64(got), 1, "start=%s hours=%v", start, hours)
			assert.GreaterOrEqual(t, float64(got), hours)
		}
	}
}

func TestCalculateDeadlines(t *testing.T) {
	cal := fixedCalendar(friday(11, 0))

	deadlines := cal.CalculateDeadlines(48, friday(11, 0))
	assert.Equal(t, friday(16, 0), deadlines.AcknowledgementDueAt)
	assert.Equal(t, time.Date(2025, time.January, 7, 11, 0, 0, 0, time.UTC), deadlines.ResolutionDueAt)

	fromNow := cal.CalculateDeadlines(10, time.Time{})
	assert.Equal(t, friday(12, 0), fromNow.AcknowledgementDueAt)
	assert.Equal(t, friday(21, 0), fromNow.ResolutionDueAt)
}

func TestParseTAT(t *testing.T) {
	cases := map[string]float64{
		"48":       48,
		"36h":      36,
		"12 hours": 12,
		"1 hour":   1,
		"2 days":   48,
		"1.5d":     36,
		"1 week":   120,
		" 3 HRS ":  3,
	}
	for input, want := range cases {
		got, err := ParseTAT(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	got, err := ParseTAT("52 weeks")
	require.NoError(t, err)
	assert.Equal(t, float64(MaxHours), got)

	for _, bad := range []string{"", "soon", "-4 hours", "0", "3 fortnights", "h", "53 weeks", "1000000 weeks"} {
		_, err := ParseTAT(bad)
		assert.ErrorIs(t, err, ErrInvalidTAT, bad)
	}
}

func TestAddBusinessHours_HugeOffsetStillAdvances(t *testing.T) {
	cal := fixedCalendar(friday(9, 0))
	start := friday(9, 0)

	assert.Equal(t, time.Duration(math.MaxInt64), hoursToDuration(1e7))
	assert.Equal(t, time.Duration(math.MaxInt64), hoursToDuration(math.Inf(1)))

	got := cal.AddBusinessHours(start, 1e7)
	assert.True(t, got.After(start.AddDate(100, 0, 0)), got)
	assert.False(t, isWeekend(got))
}
