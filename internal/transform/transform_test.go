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

package transform

import (
	"testing"
	"time"

	"github.com/tmcarthur/barloader/internal/model"
)

var nyc = mustLoad("America/New_York")

func mustLoad(name string) *time.Location {
	tz, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return tz
}

type memRecorder struct {
	entries []recEntry
}

type recEntry struct {
	symbol   string
	missing  []string
	inferred time.Time
	reason   string
}

func (m *memRecorder) ValidationError(symbol string, rec model.RawRecord, missing []string, inferred time.Time, reason string) error {
	m.entries = append(m.entries, recEntry{symbol, missing, inferred, reason})
	return nil
}

func (m *memRecorder) reasons() []string {
	var out []string
	for _, e := range m.entries {
		out = append(out, e.reason)
	}
	return out
}

func newProcessor(rec Recorder) *Processor {
	return &Processor{
		Symbol: "AAPL",
		TZ:     nyc,
		Now:    time.Date(2026, 1, 26, 10, 27, 42, 0, nyc),
		Rec:    rec,
	}
}

func goodRecord(date string, close float64) model.RawRecord {
	return model.RawRecord{
		"date": date, "open": 1.0, "high": 2.0, "low": 0.5, "close": close, "volume": 100.0,
	}
}

func TestProcessSortsAscendingByTimestamp(t *testing.T) {
	p := newProcessor(nil)

	bars := p.Process([]model.RawRecord{
		goodRecord("2026-01-26 10:25:00", 1.5),
		goodRecord("2026-01-26 10:05:00", 1.2),
	})

	if len(bars) != 2 {
		t.Fatalf("got %d bars", len(bars))
	}
	if bars[0].Timestamp.Minute() != 5 || bars[1].Timestamp.Minute() != 25 {
		t.Errorf("not sorted: %v, %v", bars[0].Timestamp, bars[1].Timestamp)
	}
}

func TestProcessIsFixedPointWhenSorted(t *testing.T) {
	p := newProcessor(nil)
	in := []model.RawRecord{
		goodRecord("2026-01-26 10:05:00", 1.0),
		goodRecord("2026-01-26 10:10:00", 1.1),
		goodRecord("2026-01-26 10:15:00", 1.2),
	}

	bars := p.Process(in)

	for i := 1; i < len(bars); i++ {
		if !bars[i-1].Timestamp.Before(bars[i].Timestamp) {
			t.Fatalf("output not strictly ascending at %d", i)
		}
	}
}

func TestAllFieldsEmptyRejectedOnce(t *testing.T) {
	rec := &memRecorder{}
	p := newProcessor(rec)

	bars := p.Process([]model.RawRecord{
		{"date": "", "open": nil, "high": " ", "low": "", "close": nil, "volume": ""},
	})

	if len(bars) != 0 {
		t.Fatalf("got %d bars, want 0", len(bars))
	}
	if got := rec.reasons(); len(got) != 1 || got[0] != "AllFieldsEmpty" {
		t.Errorf("reasons = %v", got)
	}
}

func TestDuplicateTimestampFirstWins(t *testing.T) {
	rec := &memRecorder{}
	p := newProcessor(rec)

	first := goodRecord("2026-01-26 10:05:00", 1.5)
	second := goodRecord("2026-01-26 10:05:00", 9.9)
	bars := p.Process([]model.RawRecord{first, second})

	if len(bars) != 1 {
		t.Fatalf("got %d bars, want 1", len(bars))
	}
	if *bars[0].Close != 1.5 {
		t.Errorf("close = %v, want first occurrence 1.5", *bars[0].Close)
	}
	if got := rec.reasons(); len(got) != 1 || got[0] != "DuplicateTimestamp" {
		t.Errorf("reasons = %v", got)
	}
}

func TestMissingDateFirstRecordInfersWallClock(t *testing.T) {
	rec := &memRecorder{}
	p := newProcessor(rec)

	r := goodRecord("", 1.5)
	bars := p.Process([]model.RawRecord{r})

	if len(bars) != 1 {
		t.Fatalf("got %d bars, want 1", len(bars))
	}
	want := time.Date(2026, 1, 26, 10, 25, 0, 0, nyc)
	if !bars[0].Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", bars[0].Timestamp, want)
	}
	if got := rec.reasons(); len(got) != 1 || got[0] != "date_missing_wall_clock" {
		t.Errorf("reasons = %v", got)
	}
}

func TestMissingDateInfersFromPreviousRow(t *testing.T) {
	rec := &memRecorder{}
	p := newProcessor(rec)

	bars := p.Process([]model.RawRecord{
		goodRecord("2026-01-26 10:05:00", 1.0),
		goodRecord("", 1.1),
	})

	if len(bars) != 2 {
		t.Fatalf("got %d bars, want 2", len(bars))
	}
	want := time.Date(2026, 1, 26, 10, 10, 0, 0, nyc)
	if !bars[1].Timestamp.Equal(want) {
		t.Errorf("inferred = %v, want %v", bars[1].Timestamp, want)
	}
	if got := rec.reasons(); len(got) != 1 || got[0] != "date_missing_prev_row" {
		t.Errorf("reasons = %v", got)
	}
}

func TestMissingDateRejectedAfterHardInvalid(t *testing.T) {
	rec := &memRecorder{}
	p := newProcessor(rec)

	bars := p.Process([]model.RawRecord{
		goodRecord("not a timestamp", 1.0), // hard invalid
		goodRecord("", 1.1),                // must not be inferred now
	})

	if len(bars) != 0 {
		t.Fatalf("got %d bars, want 0", len(bars))
	}
	if got := rec.reasons(); len(got) != 2 || got[0] != "InvalidTimestamp" || got[1] != "MissingDate" {
		t.Errorf("reasons = %v", got)
	}
}

func TestDuplicateMakesLaterMissingDatesRejected(t *testing.T) {
	rec := &memRecorder{}
	p := newProcessor(rec)

	bars := p.Process([]model.RawRecord{
		goodRecord("2026-01-26 10:05:00", 1.0),
		goodRecord("2026-01-26 10:05:00", 1.0), // duplicate, hard invalid
		goodRecord("", 1.1),
	})

	if len(bars) != 1 {
		t.Fatalf("got %d bars, want 1", len(bars))
	}
	if got := rec.reasons(); len(got) != 2 || got[0] != "DuplicateTimestamp" || got[1] != "MissingDate" {
		t.Errorf("reasons = %v", got)
	}
}

func TestSchemaTypeMismatchNamesSortedFields(t *testing.T) {
	rec := &memRecorder{}
	p := newProcessor(rec)

	bars := p.Process([]model.RawRecord{
		{"date": "2026-01-26 10:05:00", "open": "x", "high": 2.0, "low": nil, "close": "y", "volume": 100.0},
	})

	if len(bars) != 0 {
		t.Fatalf("got %d bars, want 0", len(bars))
	}
	if len(rec.entries) != 1 {
		t.Fatalf("entries = %v", rec.entries)
	}
	e := rec.entries[0]
	if e.reason != "SchemaTypeMismatch" {
		t.Errorf("reason = %q", e.reason)
	}
	want := []string{"close", "low", "open"}
	if len(e.missing) != len(want) {
		t.Fatalf("fields = %v, want %v", e.missing, want)
	}
	for i := range want {
		if e.missing[i] != want[i] {
			t.Errorf("fields = %v, want %v", e.missing, want)
			break
		}
	}
}

func TestMissingCloseToleratedAsNull(t *testing.T) {
	p := newProcessor(nil)

	bars := p.Process([]model.RawRecord{
		{"date": "2026-01-26 10:05:00", "open": 1.0, "high": 2.0, "low": 0.5, "close": "", "volume": 100.0},
	})

	if len(bars) != 1 {
		t.Fatalf("got %d bars, want 1", len(bars))
	}
	if bars[0].Close != nil {
		t.Errorf("close = %v, want nil", *bars[0].Close)
	}
	if bars[0].Open == nil || *bars[0].Open != 1.0 {
		t.Errorf("open not preserved")
	}
}

func TestNumericStringsCoerce(t *testing.T) {
	p := newProcessor(nil)

	bars := p.Process([]model.RawRecord{
		{"date": "2026-01-26 10:05:00", "open": "1.25", "high": "2", "low": " 0.5 ", "close": "1.5", "volume": "100"},
	})

	if len(bars) != 1 {
		t.Fatalf("got %d bars, want 1", len(bars))
	}
	if *bars[0].Open != 1.25 || *bars[0].Volume != 100 {
		t.Errorf("coercion wrong: %+v", bars[0])
	}
}

func TestCoerceFloatRejectsBooleans(t *testing.T) {
	if _, ok := CoerceFloat(true); ok {
		t.Error("true coerced to a number")
	}
	if _, ok := CoerceFloat(false); ok {
		t.Error("false coerced to a number")
	}
}

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		v    interface{}
		want bool
	}{
		{nil, true},
		{"", true},
		{"   ", true},
		{"0", false},
		{0.0, false},
		{false, false},
	}
	for _, c := range cases {
		if got := IsEmpty(c.v); got != c.want {
			t.Errorf("IsEmpty(%#v) = %v, want %v", c.v, got, c.want)
		}
	}
}
