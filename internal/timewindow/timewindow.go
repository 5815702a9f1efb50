// Package timewindow compares clock-of-day values.
//
// A Clock has no date component, so every value is treated as falling on a
// single reference day. Windows that cross midnight are not supported.
package timewindow

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clock is an (hour, minute) pair
type Clock struct {
	Hour   int
	Minute int
}

// Parse reads a clock value in H:mm or HH:mm form
func Parse(s string) (Clock, error) {
	hourStr, minStr, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hourStr) < 1 || len(hourStr) > 2 || len(minStr) != 2 {
		return Clock{}, fmt.Errorf("invalid clock value %q: want H:mm", s)
	}

	hour, err := strconv.Atoi(hourStr)
	if err != nil || hour < 0 || hour > 23 {
		return Clock{}, fmt.Errorf("invalid hour in clock value %q", s)
	}
	minute, err := strconv.Atoi(minStr)
	if err != nil || minute < 0 || minute > 59 {
		return Clock{}, fmt.Errorf("invalid minute in clock value %q", s)
	}

	return Clock{Hour: hour, Minute: minute}, nil
}

// MustParse is like Parse but panics on malformed input
func MustParse(s string) Clock {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// FromTime returns the clock value of t in t's location
func FromTime(t time.Time) Clock {
	return Clock{Hour: t.Hour(), Minute: t.Minute()}
}

// String formats the clock as H:mm
func (c Clock) String() string {
	return fmt.Sprintf("%d:%02d", c.Hour, c.Minute)
}

// Compare returns -1 if a is earlier than b, 0 if equal and 1 if later
func Compare(a, b Clock) int {
	switch {
	case a.Hour == b.Hour && a.Minute == b.Minute:
		return 0
	case a.Hour > b.Hour || (a.Hour == b.Hour && a.Minute > b.Minute):
		return 1
	default:
		return -1
	}
}

// IsBetween reports whether value lies in [lower, upper] inclusive.
// Windows are not normalized: if lower is after upper the result is always false.
func IsBetween(value, lower, upper Clock) bool {
	return Compare(value, lower) >= 0 && Compare(value, upper) <= 0
}
