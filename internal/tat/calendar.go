// Package tat implements the business-calendar arithmetic behind ticket
// turn-around-time deadlines.
//
// Saturdays and Sundays are non-working days. Every other day counts as a
// full 24 business hours; there is no finer business-hour-of-day window.
package tat

import (
	"math"
	"time"
)

// Deadlines holds the acknowledgement and resolution due instants derived
// from a category SLA.
type Deadlines struct {
	AcknowledgementDueAt time.Time
	ResolutionDueAt      time.Time
}

// Calendar computes business-hour offsets in a fixed location.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

// NewCalendar builds a calendar. A nil location means UTC and a nil clock
// means time.Now.
func NewCalendar(loc *time.Location, now func() time.Time) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Calendar{loc: loc, now: now}
}

// Location returns the calendar's time zone.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// Now returns the current instant in the calendar's location.
func (c *Calendar) Now() time.Time {
	return c.now().In(c.loc)
}

// AddBusinessHours advances start by the given number of business hours.
// Landing on a weekend moves the cursor to midnight of the next working day
// before the remaining hours are added, so the result is never a Saturday or
// Sunday. Negative hours are treated as zero.
func (c *Calendar) AddBusinessHours(start time.Time, hours float64) time.Time {
	cursor := start.In(c.loc)
	remaining := hoursToDuration(hours)
	for {
		if isWeekend(cursor) {
			cursor = c.nextMidnight(cursor)
			continue
		}
		if remaining <= 0 {
			return cursor
		}
		midnight := c.nextMidnight(cursor)
		left := midnight.Sub(cursor)
		if remaining < left {
			return cursor.Add(remaining)
		}
		remaining -= left
		cursor = midnight
	}
}

// RemainingBusinessHours returns the business hours between from and to,
// rounded up to a whole hour. It is zero when to is not after from.
func (c *Calendar) RemainingBusinessHours(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	var total time.Duration
	cursor := from.In(c.loc)
	end := to.In(c.loc)
	for cursor.Before(end) {
		segmentEnd := c.nextMidnight(cursor)
		if segmentEnd.After(end) {
			segmentEnd = end
		}
		if !isWeekend(cursor) {
			total += segmentEnd.Sub(cursor)
		}
		cursor = segmentEnd
	}
	return int(math.Ceil(total.Hours()))
}

// CalculateDeadlines derives both SLA deadlines from start. The
// acknowledgement window is a tenth of the SLA rounded up to a whole hour.
// A zero start means now.
func (c *Calendar) CalculateDeadlines(slaHours float64, start time.Time) Deadlines {
	if start.IsZero() {
		start = c.Now()
	}
	ackHours := math.Ceil(slaHours / 10)
	return Deadlines{
		AcknowledgementDueAt: c.AddBusinessHours(start, ackHours),
		ResolutionDueAt:      c.AddBusinessHours(start, slaHours),
	}
}

func (c *Calendar) nextMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, c.loc)
}

func isWeekend(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return true
	default:
		return false
	}
}

// hoursToDuration saturates at the largest representable duration.
func hoursToDuration(hours float64) time.Duration {
	if hours <= 0 || math.IsNaN(hours) {
		return 0
	}
	nanos := math.Round(hours * float64(time.Hour))
	if nanos >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(nanos)
}
