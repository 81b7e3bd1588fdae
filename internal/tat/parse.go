package tat

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidTAT is returned for TAT strings that cannot be parsed.
var ErrInvalidTAT = errors.New("invalid TAT")

var tatPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([a-z]*)$`)

// BusinessHoursPerDay and BusinessDaysPerWeek convert day and week units.
const (
	BusinessHoursPerDay = 24
	BusinessDaysPerWeek = 5
)

// MaxHours is the largest TAT accepted anywhere: one year of business weeks.
const MaxHours = BusinessHoursPerDay * BusinessDaysPerWeek * 52

// ParseTAT converts strings such as "48", "36h", "12 hours", "2 days" or
// "1 week" into business hours.
func ParseTAT(raw string) (float64, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	match := tatPattern.FindStringSubmatch(value)
	if match == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTAT, raw)
	}
	amount, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTAT, raw)
	}

	var multiplier float64
	switch match[2] {
	case "", "h", "hr", "hrs", "hour", "hours":
		multiplier = 1
	case "d", "day", "days":
		multiplier = BusinessHoursPerDay
	case "w", "wk", "week", "weeks":
		multiplier = BusinessHoursPerDay * BusinessDaysPerWeek
	default:
		return 0, fmt.Errorf("%w: unknown unit %q", ErrInvalidTAT, match[2])
	}

	hours := amount * multiplier
	if hours <= 0 {
		return 0, fmt.Errorf("%w: must be positive", ErrInvalidTAT)
	}
	if hours > MaxHours {
		return 0, fmt.Errorf("%w: exceeds %d business hours", ErrInvalidTAT, MaxHours)
	}
	return hours, nil
}
