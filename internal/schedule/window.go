/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package schedule holds the one shared implementation of time-window
// arithmetic. Playlist resolution, conflict checking and night-mode
// detection all compare windows through these functions so that the
// midnight-wrap rule cannot diverge between callers.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// ParseClock parses "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock time %q out of range", s)
	}
	return h*60 + m, nil
}

// MustParseClock is ParseClock for trusted constants.
func MustParseClock(s string) int {
	m, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return m
}

// minuteOfDay returns now's minute within its local day.
func minuteOfDay(now time.Time) int {
	return now.Hour()*60 + now.Minute()
}

// WindowContains reports whether the minute-of-day now falls inside
// [start, end). An end at or before start wraps past midnight, so
// start=22:00 end=06:00 contains 23:30 and 02:00 but not 12:00.
func WindowContains(startMin, endMin, nowMin int) bool {
	if startMin == endMin {
		// Degenerate window covers the whole day.
		return true
	}
	if endMin > startMin {
		return nowMin >= startMin && nowMin < endMin
	}
	return nowMin >= startMin || nowMin < endMin
}

// WindowContainsTime is WindowContains against a wall-clock instant.
func WindowContainsTime(start, end string, now time.Time) (bool, error) {
	startMin, err := ParseClock(start)
	if err != nil {
		return false, err
	}
	endMin, err := ParseClock(end)
	if err != nil {
		return false, err
	}
	return WindowContains(startMin, endMin, minuteOfDay(now)), nil
}

// WindowDuration returns the window length in minutes, honoring wrap.
func WindowDuration(startMin, endMin int) int {
	if startMin == endMin {
		return minutesPerDay
	}
	if endMin > startMin {
		return endMin - startMin
	}
	return minutesPerDay - startMin + endMin
}

// WindowsOverlap reports whether two [start,end) windows intersect.
// Wrapped windows are normalized by extending the end past midnight and
// comparing both the base and the day-shifted copies, so windows on
// either side of midnight still collide correctly.
func WindowsOverlap(startA, endA, startB, endB int) bool {
	if endA <= startA {
		endA += minutesPerDay
	}
	if endB <= startB {
		endB += minutesPerDay
	}
	for _, shift := range []int{-minutesPerDay, 0, minutesPerDay} {
		if startA < endB+shift && startB+shift < endA {
			return true
		}
	}
	return false
}

// IsNightMode reports whether now falls outside the [dayStart, dayEnd)
// active window. Shared with the sleep synchronizer.
func IsNightMode(dayStart, dayEnd string, now time.Time) (bool, error) {
	inside, err := WindowContainsTime(dayStart, dayEnd, now)
	if err != nil {
		return false, err
	}
	return !inside, nil
}

// SecondsUntilClock returns the seconds from now until the next occurrence
// of the given "HH:MM", wrapping to tomorrow when already past today.
func SecondsUntilClock(clock string, now time.Time) (int, error) {
	target, err := ParseClock(clock)
	if err != nil {
		return 0, err
	}
	nowSec := minuteOfDay(now)*60 + now.Second()
	targetSec := target * 60
	diff := targetSec - nowSec
	if diff <= 0 {
		diff += minutesPerDay * 60
	}
	return diff, nil
}
