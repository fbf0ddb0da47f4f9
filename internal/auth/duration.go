// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth

import "time"

// DisplayUnit is the unit a DisplayDuration is expressed in.
type DisplayUnit string

// Display units from milliseconds up to days.
const (
	UnitMilliseconds DisplayUnit = "milliseconds"
	UnitSeconds      DisplayUnit = "seconds"
	UnitMinutes      DisplayUnit = "minutes"
	UnitHours        DisplayUnit = "hours"
	UnitDays         DisplayUnit = "days"
)

// DisplayDuration is a wait time converted into the largest suitable unit
// for presentation. The core hands these to the Notifier instead of raw
// durations so the presentation layer never does unit math.
type DisplayDuration struct {
	Value int64
	Unit  DisplayUnit
}

// DisplayOf converts a duration to the largest unit whose boundary it
// strictly exceeds: exactly 1000ms stays in milliseconds, 1001ms becomes
// 1 second, and so on through minutes, hours, and days. Values are
// truncated, not rounded.
func DisplayOf(d time.Duration) DisplayDuration {
	millis := d.Milliseconds()
	switch {
	case millis > 1000*60*60*24:
		return DisplayDuration{Value: millis / (1000 * 60 * 60 * 24), Unit: UnitDays}
	case millis > 1000*60*60:
		return DisplayDuration{Value: millis / (1000 * 60 * 60), Unit: UnitHours}
	case millis > 1000*60:
		return DisplayDuration{Value: millis / (1000 * 60), Unit: UnitMinutes}
	case millis > 1000:
		return DisplayDuration{Value: millis / 1000, Unit: UnitSeconds}
	default:
		return DisplayDuration{Value: millis, Unit: UnitMilliseconds}
	}
}
