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

// Package ingest drives one collection run: for each symbol, fetch the raw
// window, validate it, and upsert the survivors. One symbol's failure never
// stops the run.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/logging"

	"github.com/tmcarthur/barloader/internal/extract"
	"github.com/tmcarthur/barloader/internal/load"
	"github.com/tmcarthur/barloader/internal/model"
	"github.com/tmcarthur/barloader/internal/transform"
	"github.com/tmcarthur/barloader/internal/util"
	"github.com/tmcarthur/barloader/internal/window"
)

// State of one symbol's pipeline. Failed is terminal and reachable from
// Fetching, Validating and Inserting.
type State string

const (
	StateFetching   State = "Fetching"
	StateValidating State = "Validating"
	StateInserting  State = "Inserting"
	StateDone       State = "Done"
	StateFailed     State = "Failed"
)

// Fetcher is the market data collaborator.
type Fetcher interface {
	Bars(ctx context.Context, symbol, fromDay, toDay string) ([]model.RawRecord, error)
}

// Store is the storage collaborator. UpsertBars must be atomic per call.
type Store interface {
	TableExists(ctx context.Context, qualified string) (bool, error)
	UpsertBars(ctx context.Context, qualified string, bars []model.Bar) (int, error)
}

// Diagnostics is the categorized append-only log sink.
type Diagnostics interface {
	transform.Recorder
	APIError(symbol, url, errorType, errorMessage string, statusCode int) error
	StorageError(symbol, operation, errorType, errorMessage, tableName string, rowCount int) error
	FetchAudit(symbol string, start, end time.Time, fromDay, toDay string, apiRows, filteredRows int) error
}

// SymbolResult is one symbol's outcome, collected instead of propagated.
type SymbolResult struct {
	Symbol string
	State  State
	Rows   int
	Err    error
}

// Report summarizes one run.
type Report struct {
	Window  window.Window
	Results []SymbolResult
	Total   int
}

// Runner owns one run's collaborators. Symbols are processed sequentially;
// the connection behind Store is reused across all of them.
type Runner struct {
	Fetcher  Fetcher
	Store    Store
	Diag     Diagnostics
	TZ       *time.Location
	Throttle time.Duration
}

// Run collects the window for every symbol. It only returns early when ctx
// is cancelled, and never because a symbol failed.
func (r *Runner) Run(ctx context.Context, symbols []string, win window.Window, now time.Time) Report {
	report := Report{Window: win}

	throttle := r.Throttle
	if throttle <= 0 {
		throttle = time.Second
	}
	throttler := time.NewTicker(throttle)
	defer throttler.Stop()

	fromDay, toDay := queryDays(win)
	for _, sym := range symbols {
		select {
		case <-ctx.Done():
			util.Logf(ctx, logging.Warning, "aborting run with %d of %d symbols processed: %v", len(report.Results), len(symbols), ctx.Err())
			return report
		case <-throttler.C:
			res := r.runSymbol(ctx, sym, win, fromDay, toDay, now)
			if res.State == StateDone {
				report.Total += res.Rows
			}
			report.Results = append(report.Results, res)
		}
	}
	return report
}

func (r *Runner) runSymbol(ctx context.Context, sym string, win window.Window, fromDay, toDay string, now time.Time) SymbolResult {
	ctx = util.WithLoggerValue(ctx, "symbol", sym)

	// Symbols that map to no table are configuration errors, rejected
	// before any fetch.
	table, err := load.TableName(sym)
	if err != nil {
		_ = r.Diag.StorageError(sym, "MAP", "InvalidSymbol", err.Error(), "", 0)
		util.Logf(ctx, logging.Error, "skipping symbol %q: %v", sym, err)
		return SymbolResult{Symbol: sym, State: StateFailed, Err: err}
	}

	util.Logf(ctx, logging.Default, "requesting %q bars for window %v -> %v (from %s to %s)", sym, win.Start, win.End, fromDay, toDay)

	records, err := r.Fetcher.Bars(ctx, sym, fromDay, toDay)
	if err != nil {
		r.logFetchFailure(sym, err)
		util.Logf(ctx, logging.Error, "failed to fetch bars for %q: %v", sym, err)
		return SymbolResult{Symbol: sym, State: StateFetching, Err: err}.failed()
	}
	util.Logf(ctx, logging.Default, "quote api returned %d rows for %q", len(records), sym)

	proc := transform.Processor{Symbol: sym, TZ: r.TZ, Now: now, Rec: r.Diag}
	bars := proc.Process(records)

	_ = r.Diag.FetchAudit(sym, win.Start, win.End, fromDay, toDay, len(records), len(bars))

	if len(bars) == 0 {
		util.Logf(ctx, logging.Default, "no 5 minute bars in this window for %q", sym)
		return SymbolResult{Symbol: sym, State: StateDone}
	}

	exists, err := r.Store.TableExists(ctx, table)
	if err != nil {
		_ = r.Diag.StorageError(sym, "CHECK", errorType(err), err.Error(), table, len(bars))
		util.Logf(ctx, logging.Error, "failed to check table %s: %v", table, err)
		return SymbolResult{Symbol: sym, State: StateInserting, Err: err}.failed()
	}
	if !exists {
		err := fmt.Errorf("required table %s does not exist, create it first with the provided SQL", table)
		_ = r.Diag.StorageError(sym, "CHECK", "MissingTable", err.Error(), table, len(bars))
		util.Logf(ctx, logging.Error, "%v", err)
		return SymbolResult{Symbol: sym, State: StateInserting, Err: err}.failed()
	}

	n, err := r.Store.UpsertBars(ctx, table, bars)
	if err != nil {
		_ = r.Diag.StorageError(sym, "UPSERT", errorType(err), err.Error(), table, len(bars))
		util.Logf(ctx, logging.Error, "failed to upsert %d bars into %s: %v", len(bars), table, err)
		return SymbolResult{Symbol: sym, State: StateInserting, Err: err}.failed()
	}

	util.Logf(ctx, logging.Default, "inserted/upserted %d rows into %s", n, table)
	return SymbolResult{Symbol: sym, State: StateDone, Rows: n}
}

// failed collapses the failing stage into the terminal state while keeping
// the error that got us there.
func (s SymbolResult) failed() SymbolResult {
	s.Err = fmt.Errorf("%s: %w", s.State, s.Err)
	s.State = StateFailed
	return s
}

func (r *Runner) logFetchFailure(sym string, err error) {
	var apiErr *extract.APIError
	if errors.As(err, &apiErr) {
		_ = r.Diag.APIError(sym, apiErr.URL, apiErr.Kind, apiErr.Err.Error(), apiErr.StatusCode)
		return
	}
	_ = r.Diag.APIError(sym, "", "RequestException", err.Error(), 0)
}

// queryDays widens the window to whole days for the API query, tolerating a
// window that crosses midnight.
func queryDays(win window.Window) (fromDay, toDay string) {
	from, to := win.Start, win.End
	if to.Before(from) {
		from, to = to, from
	}
	return window.YMD(from), window.YMD(to)
}

func errorType(err error) string {
	return fmt.Sprintf("%T", err)
}
