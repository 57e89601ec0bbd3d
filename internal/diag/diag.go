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

// Package diag maintains the append-only CSV diagnostics logs: API errors,
// validation errors, storage errors, and the per-run fetch audit. Files are
// created with a header on first write and only ever appended to.
package diag

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tmcarthur/barloader/internal/model"
)

const (
	APIErrorFile   = "api_error_log.csv"
	DataErrorFile  = "data_error_log.csv"
	DBErrorFile    = "db_error_log.csv"
	FetchAuditFile = "fetch_data_log.csv"
)

var headers = map[string][]string{
	APIErrorFile:   {"run_ts_market", "symbol", "url", "error_type", "error_message", "status_code"},
	DataErrorFile:  {"run_ts_market", "symbol", "missing_fields", "inferred_date", "reason", "row_json"},
	DBErrorFile:    {"run_ts_market", "symbol", "operation", "error_type", "error_message", "table_name", "row_count"},
	FetchAuditFile: {"run_ts_market", "symbol", "window_start", "window_end", "from_day", "to_day", "api_rows", "filtered_rows"},
}

// Log writes the diagnostics files under one directory. Each write opens and
// closes the file so a crashed run never holds a log open.
type Log struct {
	dir string
	tz  *time.Location
}

func New(dir string, tz *time.Location) *Log {
	return &Log{dir: dir, tz: tz}
}

// Init creates every log file with its header if absent. Existing files are
// left untouched.
func (l *Log) Init() error {
	for name := range headers {
		if err := l.append(name, nil); err != nil {
			return err
		}
	}
	return nil
}

// APIError records one failed quote API call. statusCode 0 means no HTTP
// response was received.
func (l *Log) APIError(symbol, url, errorType, errorMessage string, statusCode int) error {
	code := ""
	if statusCode != 0 {
		code = strconv.Itoa(statusCode)
	}
	return l.append(APIErrorFile, []string{l.now(), symbol, url, errorType, errorMessage, code})
}

// ValidationError records one rejected or inferred record. missing holds the
// offending field names, inferred the fabricated timestamp (zero when none),
// and reason the rejection kind or inference tag.
func (l *Log) ValidationError(symbol string, rec model.RawRecord, missing []string, inferred time.Time, reason string) error {
	inferredStr := ""
	if !inferred.IsZero() {
		inferredStr = inferred.Format(time.RFC3339)
	}
	rowJSON, err := json.Marshal(rec)
	if err != nil {
		rowJSON = []byte("{}")
	}
	return l.append(DataErrorFile, []string{
		l.now(), symbol, strings.Join(missing, "|"), inferredStr, reason, string(rowJSON),
	})
}

// StorageError records one failed store operation.
func (l *Log) StorageError(symbol, operation, errorType, errorMessage, tableName string, rowCount int) error {
	return l.append(DBErrorFile, []string{
		l.now(), symbol, operation, errorType, errorMessage, tableName, strconv.Itoa(rowCount),
	})
}

// FetchAudit records one symbol's fetch for one run.
func (l *Log) FetchAudit(symbol string, start, end time.Time, fromDay, toDay string, apiRows, filteredRows int) error {
	return l.append(FetchAuditFile, []string{
		l.now(), symbol,
		start.Format(time.RFC3339), end.Format(time.RFC3339),
		fromDay, toDay,
		strconv.Itoa(apiRows), strconv.Itoa(filteredRows),
	})
}

func (l *Log) now() string {
	return time.Now().In(l.tz).Format(time.RFC3339)
}

func (l *Log) append(name string, record []string) error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(l.dir, name)

	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(headers[name]); err != nil {
			return err
		}
	}
	if record != nil {
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
