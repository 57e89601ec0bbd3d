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

// Package histload bulk-loads historical bars from a multi-symbol CSV export
// into the per-symbol market tables. Unlike the intraday pipeline it accepts
// any row that has a parsable timestamp and a close value; open, high, low
// and volume are nullable.
package histload

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/logging"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/tmcarthur/barloader/internal/load"
	"github.com/tmcarthur/barloader/internal/model"
	"github.com/tmcarthur/barloader/internal/util"
)

// requiredColumns is the header contract of the export. Extra columns are
// ignored.
var requiredColumns = []string{"date", "symbol", "open", "high", "low", "close", "volume"}

// timestampLayouts in trial order. Exports disagree on the date format
// depending on which tool produced them.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp tries the known export layouts in order.
func ParseTimestamp(s string, tz *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, s, tz); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Batch is one symbol's slice of the export, sorted ascending by timestamp.
type Batch struct {
	Symbol string
	Table  string
	Bars   []model.Bar
}

// ReadStats counts what happened to the rows of one file.
type ReadStats struct {
	Rows     int
	Kept     int
	Skipped  int
	Filtered int
}

// ReadCSV decodes the export into per-symbol batches. Rows older than
// fromDate (when non-zero) are filtered out, rows without a close or with an
// unparsable timestamp are skipped and counted, never fatal.
func ReadCSV(r io.Reader, tz *time.Location, fromDate time.Time) ([]Batch, ReadStats, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, ReadStats{}, fmt.Errorf("failed to read csv header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			return nil, ReadStats{}, fmt.Errorf("csv is missing required column %q", name)
		}
	}

	var stats ReadStats
	bySymbol := map[string][]model.Bar{}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("failed to read csv row %d: %w", stats.Rows+2, err)
		}
		stats.Rows++

		symbol := strings.ToUpper(strings.TrimSpace(rec[col["symbol"]]))
		if symbol == "" {
			stats.Skipped++
			continue
		}

		ts, err := ParseTimestamp(rec[col["date"]], tz)
		if err != nil {
			stats.Skipped++
			continue
		}
		if !fromDate.IsZero() && ts.Before(fromDate) {
			stats.Filtered++
			continue
		}

		closeVal := parseFloat(rec[col["close"]])
		if closeVal == nil {
			stats.Skipped++
			continue
		}

		bySymbol[symbol] = append(bySymbol[symbol], model.Bar{
			Timestamp: ts,
			Open:      parseFloat(rec[col["open"]]),
			High:      parseFloat(rec[col["high"]]),
			Low:       parseFloat(rec[col["low"]]),
			Close:     closeVal,
			Volume:    parseFloat(rec[col["volume"]]),
		})
		stats.Kept++
	}

	batches := make([]Batch, 0, len(bySymbol))
	for symbol, bars := range bySymbol {
		table, err := load.TableName(symbol)
		if err != nil {
			stats.Kept -= len(bars)
			stats.Skipped += len(bars)
			continue
		}
		sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
		batches = append(batches, Batch{Symbol: symbol, Table: table, Bars: bars})
	}
	sort.Slice(batches, func(i, j int) bool { return batches[i].Symbol < batches[j].Symbol })
	return batches, stats, nil
}

func parseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// Result is one batch's load outcome.
type Result struct {
	Symbol string
	Rows   int
	Err    error
}

// Load upserts every batch, fanning out over the pool. Each symbol gets its
// own transaction, so one failing symbol never rolls back the others.
func Load(ctx context.Context, pool *pgxpool.Pool, batches []Batch, parallelism int) []Result {
	if parallelism <= 0 {
		parallelism = 4
	}

	results := make([]Result, len(batches))
	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(parallelism)
	for i, batch := range batches {
		i, batch := i, batch
		grp.Go(func() error {
			results[i] = loadBatch(ctx, pool, batch)
			return nil
		})
	}
	_ = grp.Wait()
	return results
}

func loadBatch(ctx context.Context, pool *pgxpool.Pool, batch Batch) Result {
	ctx = util.WithLoggerValue(ctx, "symbol", batch.Symbol)

	err := pool.AcquireFunc(ctx, func(conn *pgxpool.Conn) error {
		exists, err := load.TableExists(ctx, conn.Conn(), batch.Table)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("required table %s does not exist", batch.Table)
		}
		return util.RunTx(ctx, conn.Conn(), func(ctx context.Context, tx pgx.Tx) error {
			ctx, cancel := context.WithTimeout(ctx, util.MedReqTimeout)
			defer cancel()
			return load.Bars(ctx, tx, batch.Table, batch.Bars)
		})
	})
	if err != nil {
		util.Logf(ctx, logging.Error, "failed to load %d historical bars for %q: %v", len(batch.Bars), batch.Symbol, err)
		return Result{Symbol: batch.Symbol, Err: err}
	}

	util.Logf(ctx, logging.Default, "loaded %d historical bars into %s", len(batch.Bars), batch.Table)
	return Result{Symbol: batch.Symbol, Rows: len(batch.Bars)}
}
