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

package model

import (
	"time"
)

// Bar is one OHLCV sample for one symbol at one timestamp. Value fields are
// nullable; a nil pointer is stored as SQL NULL.
type Bar struct {
	Timestamp time.Time `json:"timestamp,omitempty"`
	Open      *float64  `json:"open,omitempty"`
	High      *float64  `json:"high,omitempty"`
	Low       *float64  `json:"low,omitempty"`
	Close     *float64  `json:"close,omitempty"`
	Volume    *float64  `json:"volume,omitempty"`
}

// RawRecord is one untyped record as decoded from the quote API. Keys and
// value types are not trusted until validated.
type RawRecord map[string]interface{}

type ErrorKind string

const (
	KindAllFieldsEmpty     ErrorKind = "AllFieldsEmpty"
	KindMissingDate        ErrorKind = "MissingDate"
	KindInvalidTimestamp   ErrorKind = "InvalidTimestamp"
	KindSchemaTypeMismatch ErrorKind = "SchemaTypeMismatch"
	KindDuplicateTimestamp ErrorKind = "DuplicateTimestamp"
)

// Outcome tags one raw record as accepted or rejected. Exactly one of Bar or
// Kind is meaningful, depending on Accepted.
type Outcome struct {
	Accepted bool
	Bar      Bar
	Kind     ErrorKind
	Detail   string
}

func Accepted(b Bar) Outcome {
	return Outcome{Accepted: true, Bar: b}
}

func Rejected(kind ErrorKind, detail string) Outcome {
	return Outcome{Kind: kind, Detail: detail}
}
