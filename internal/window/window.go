/*
Copyright © 2026 T. McArthur

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package window computes the per-run collection interval and handles
// timestamp parsing, alignment and inference for the quote feed.
package window

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// APITimeLayout is the only timestamp format the quote API emits.
const APITimeLayout = "2006-01-02 15:04:05"

// Window is the half-open [Start, End) interval one run collects.
type Window struct {
	Start time.Time
	End   time.Time
}

// CurrentHour returns the top of the hour containing now.
func CurrentHour(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location())
}

// AlignTo5Minute floors ts to the nearest 5-minute boundary.
func AlignTo5Minute(ts time.Time) time.Time {
	ts = time.Date(ts.Year(), ts.Month(), ts.Day(), ts.Hour(), ts.Minute(), 0, 0, ts.Location())
	return ts.Add(-time.Duration(ts.Minute()%5) * time.Minute)
}

// Compute derives the collection window from the wall clock. Start is the top
// of the hour, End the latest 5-minute boundary, capped at windowMin minutes
// past Start and never less than 5 minutes past it.
func Compute(now time.Time, windowMin int) Window {
	start := CurrentHour(now)
	end := AlignTo5Minute(now)
	if cap := start.Add(time.Duration(windowMin) * time.Minute); end.After(cap) {
		end = cap
	}
	if min := start.Add(5 * time.Minute); end.Before(min) {
		end = min
	}
	return Window{Start: start, End: end}
}

// ParseAPITime parses an API timestamp string in the exchange time zone.
func ParseAPITime(s string, tz *time.Location) (time.Time, error) {
	return time.ParseInLocation(APITimeLayout, s, tz)
}

// YMD formats t as YYYY-MM-DD.
func YMD(t time.Time) string {
	return t.Format("2006-01-02")
}

// InferTimestamp fills in a missing record timestamp. With a previous
// resolved timestamp in the batch the record is assumed to be the next
// 5-minute bar; otherwise the wall clock floored to 5 minutes is used. The
// returned reason is reasonPrefix plus "_prev_row" or "_wall_clock".
func InferTimestamp(lastTS *time.Time, now time.Time, reasonPrefix string) (time.Time, string) {
	if lastTS != nil {
		return lastTS.Add(5 * time.Minute), reasonPrefix + "_prev_row"
	}
	return AlignTo5Minute(now), reasonPrefix + "_wall_clock"
}

// HHMM is a time of day with minute precision, used for market hours.
type HHMM struct {
	Hour   int
	Minute int
}

// ParseHHMM parses a wall-clock time of day like "04:00".
func ParseHHMM(s string) (HHMM, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return HHMM{}, fmt.Errorf("invalid HH:MM value %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return HHMM{}, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return HHMM{}, fmt.Errorf("invalid minute in %q", s)
	}
	return HHMM{Hour: h, Minute: m}, nil
}

func (h HHMM) minuteOfDay() int {
	return h.Hour*60 + h.Minute
}

// IsMarketOpen reports whether now falls within [open, close).
func IsMarketOpen(now time.Time, open, close HHMM) bool {
	m := now.Hour()*60 + now.Minute()
	return m >= open.minuteOfDay() && m < close.minuteOfDay()
}
