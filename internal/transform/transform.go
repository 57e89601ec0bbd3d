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

// Package transform turns one symbol's raw API batch into an ordered,
// de-duplicated set of bars ready for storage. Rejections never abort the
// batch; each offending record is logged and dropped.
package transform

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tmcarthur/barloader/internal/model"
	"github.com/tmcarthur/barloader/internal/window"
)

// DataFields is the expected field set of one raw record.
var DataFields = []string{"date", "open", "high", "low", "close", "volume"}

// requiredNumericFields must be present and coercible to a number. close is
// handled separately: absent close is stored as NULL.
var requiredNumericFields = []string{"open", "high", "low", "volume"}

// Recorder receives validation rejections and inference notices. Satisfied
// by *diag.Log.
type Recorder interface {
	ValidationError(symbol string, rec model.RawRecord, missing []string, inferred time.Time, reason string) error
}

// IsEmpty reports whether a raw value is null or a blank string.
func IsEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// AnalyzeRecord returns the expected fields that are missing or empty, and
// whether every expected field is.
func AnalyzeRecord(rec model.RawRecord, fields []string) (missing []string, allEmpty bool) {
	for _, f := range fields {
		if IsEmpty(rec[f]) {
			missing = append(missing, f)
		}
	}
	return missing, len(missing) == len(fields)
}

// CoerceFloat attempts to interpret a raw JSON value as a number. Booleans
// never coerce.
func CoerceFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Processor validates one symbol's batch. Now supplies the wall clock for
// timestamp inference; Rec receives every rejection and inference notice.
type Processor struct {
	Symbol string
	TZ     *time.Location
	Now    time.Time
	Rec    Recorder
}

// Process runs field validation, timestamp resolution and duplicate
// detection over the batch in arrival order, then returns the survivors
// sorted ascending by timestamp. An empty result is not an error.
func (p *Processor) Process(records []model.RawRecord) []model.Bar {
	var (
		bars        []model.Bar
		lastTS      *time.Time
		hardInvalid bool
		seen        = map[time.Time]bool{}
	)

	for _, rec := range records {
		out, ts := p.validate(rec, hardInvalid, lastTS)
		if !out.Accepted {
			if out.Kind != "" {
				hardInvalid = true
			}
			continue
		}

		// First occurrence of a timestamp wins; no merge within a batch.
		if seen[ts] {
			p.record(rec, nil, time.Time{}, string(model.KindDuplicateTimestamp))
			hardInvalid = true
			continue
		}
		seen[ts] = true
		t := ts
		lastTS = &t
		bars = append(bars, out.Bar)
	}

	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})
	return bars
}

// validate checks one record. The returned Outcome has Kind set only for
// hard-invalid rejections; a MissingDate rejection after the batch is
// already suspect leaves Kind empty because the flag is unchanged.
func (p *Processor) validate(rec model.RawRecord, hardInvalid bool, lastTS *time.Time) (model.Outcome, time.Time) {
	missing, allEmpty := AnalyzeRecord(rec, DataFields)
	if allEmpty {
		p.record(rec, missing, time.Time{}, string(model.KindAllFieldsEmpty))
		return model.Rejected(model.KindAllFieldsEmpty, "all fields empty"), time.Time{}
	}

	var ts time.Time
	if IsEmpty(rec["date"]) {
		if hardInvalid {
			p.record(rec, missing, time.Time{}, string(model.KindMissingDate))
			return model.Outcome{}, time.Time{}
		}
		var reason string
		ts, reason = window.InferTimestamp(lastTS, p.Now, "date_missing")
		p.record(rec, missing, ts, reason)
	} else {
		s, _ := rec["date"].(string)
		parsed, err := window.ParseAPITime(s, p.TZ)
		if err != nil {
			p.record(rec, missing, time.Time{}, string(model.KindInvalidTimestamp))
			return model.Rejected(model.KindInvalidTimestamp, "invalid timestamp format"), time.Time{}
		}
		ts = parsed
	}

	var invalid []string
	parsed := map[string]*float64{}
	for _, f := range requiredNumericFields {
		v := rec[f]
		if IsEmpty(v) {
			invalid = append(invalid, f)
			continue
		}
		num, ok := CoerceFloat(v)
		if !ok {
			invalid = append(invalid, f)
			continue
		}
		n := num
		parsed[f] = &n
	}

	// close tolerates absence, but a present non-numeric value is invalid.
	if v := rec["close"]; IsEmpty(v) {
		parsed["close"] = nil
	} else if num, ok := CoerceFloat(v); ok {
		n := num
		parsed["close"] = &n
	} else {
		invalid = append(invalid, "close")
	}

	if len(invalid) > 0 {
		invalid = sortedUnique(invalid)
		p.record(rec, invalid, time.Time{}, string(model.KindSchemaTypeMismatch))
		return model.Rejected(model.KindSchemaTypeMismatch, "invalid fields: "+strings.Join(invalid, ",")), time.Time{}
	}

	return model.Accepted(model.Bar{
		Timestamp: ts,
		Open:      parsed["open"],
		High:      parsed["high"],
		Low:       parsed["low"],
		Close:     parsed["close"],
		Volume:    parsed["volume"],
	}), ts
}

func (p *Processor) record(rec model.RawRecord, missing []string, inferred time.Time, reason string) {
	if p.Rec == nil {
		return
	}
	_ = p.Rec.ValidationError(p.Symbol, rec, missing, inferred, reason)
}

func sortedUnique(in []string) []string {
	sort.Strings(in)
	out := in[:0]
	for i, s := range in {
		if i == 0 || s != in[i-1] {
			out = append(out, s)
		}
	}
	return out
}
