/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package power converts director timing, battery level and day/night
// mode into the single "sleep N seconds" instruction the device consumes.
package power

import (
	"time"

	"github.com/gisete/carbon-sub000/internal/schedule"
)

const (
	// CriticalBatterySleep is the self-preservation sleep used below the
	// critical battery threshold, regardless of schedule.
	CriticalBatterySleep = 7200

	// criticalBatteryBelow is the exclusive critical threshold; zero is
	// excluded because it means "unknown/not reported".
	criticalBatteryBelow = 20

	// wakeBuffer wakes the device slightly after the day-start boundary,
	// never before.
	wakeBuffer = 30

	// prepBuffer covers the device's own wake/fetch/render latency so it
	// finishes preparing just as the next item becomes due.
	prepBuffer = 30

	// minSleep floors the sleep to prevent thrash when a switch is
	// imminent.
	minSleep = 10
)

// CalculateSleepSeconds decides how long the device should sleep.
// Priority: critical battery, then night mode (sleep until day start),
// then the time remaining until the next item switch.
func CalculateSleepSeconds(now time.Time, nextSwitchMilli int64, batteryLevel int, nightMode bool, dayStartTime string) int {
	if batteryLevel > 0 && batteryLevel < criticalBatteryBelow {
		return CriticalBatterySleep
	}

	if nightMode {
		secs, err := schedule.SecondsUntilClock(dayStartTime, now)
		if err != nil {
			// Unparseable day start: fall back to a bounded nap so the
			// device always wakes again.
			return CriticalBatterySleep
		}
		return secs + wakeBuffer
	}

	remaining := int((nextSwitchMilli - now.UnixMilli()) / 1000)
	sleep := remaining - prepBuffer
	if sleep < minSleep {
		return minSleep
	}
	return sleep
}
