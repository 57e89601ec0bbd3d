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

package diag

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tmcarthur/barloader/internal/model"
)

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func TestAPIErrorWritesHeaderOnceAndAppends(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, time.UTC)

	if err := l.APIError("AAPL", "https://example.test/aapl", "Timeout", "deadline exceeded", 0); err != nil {
		t.Fatal(err)
	}
	if err := l.APIError("MSFT", "https://example.test/msft", "HTTPError", "bad gateway", 502); err != nil {
		t.Fatal(err)
	}

	rows := readAll(t, filepath.Join(dir, APIErrorFile))
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2 entries", len(rows))
	}
	if rows[0][0] != "run_ts_market" || rows[0][5] != "status_code" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][1] != "AAPL" || rows[1][5] != "" {
		t.Errorf("unexpected first entry: %v", rows[1])
	}
	if rows[2][3] != "HTTPError" || rows[2][5] != "502" {
		t.Errorf("unexpected second entry: %v", rows[2])
	}
}

func TestValidationErrorSerializesRecord(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, time.UTC)

	rec := model.RawRecord{"date": "", "close": "1.5"}
	inferred := time.Date(2026, 1, 26, 10, 25, 0, 0, time.UTC)
	if err := l.ValidationError("AAPL", rec, []string{"date", "open"}, inferred, "date_missing_wall_clock"); err != nil {
		t.Fatal(err)
	}

	rows := readAll(t, filepath.Join(dir, DataErrorFile))
	if len(rows) != 2 {
		t.Fatalf("got %d rows", len(rows))
	}
	entry := rows[1]
	if entry[2] != "date|open" {
		t.Errorf("missing_fields = %q", entry[2])
	}
	if entry[3] != "2026-01-26T10:25:00Z" {
		t.Errorf("inferred_date = %q", entry[3])
	}
	if entry[4] != "date_missing_wall_clock" {
		t.Errorf("reason = %q", entry[4])
	}
	if entry[5] != `{"close":"1.5","date":""}` {
		t.Errorf("row_json = %q", entry[5])
	}
}

func TestInitCreatesAllFilesWithoutTruncating(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, time.UTC)

	if err := l.StorageError("AAPL", "UPSERT", "PgError", "boom", "market.aapl", 12); err != nil {
		t.Fatal(err)
	}
	if err := l.Init(); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{APIErrorFile, DataErrorFile, DBErrorFile, FetchAuditFile} {
		rows := readAll(t, filepath.Join(dir, name))
		if len(rows) == 0 {
			t.Errorf("%s: no header written", name)
		}
	}

	// The pre-existing entry must survive Init.
	rows := readAll(t, filepath.Join(dir, DBErrorFile))
	if len(rows) != 2 || rows[1][6] != "12" {
		t.Errorf("db error log truncated or mangled: %v", rows)
	}
}

func TestFetchAudit(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, time.UTC)

	start := time.Date(2026, 1, 26, 15, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 26, 15, 25, 0, 0, time.UTC)
	if err := l.FetchAudit("AAPL", start, end, "2026-01-26", "2026-01-26", 7, 5); err != nil {
		t.Fatal(err)
	}

	rows := readAll(t, filepath.Join(dir, FetchAuditFile))
	entry := rows[1]
	if entry[1] != "AAPL" || entry[4] != "2026-01-26" || entry[6] != "7" || entry[7] != "5" {
		t.Errorf("unexpected audit entry: %v", entry)
	}
}
