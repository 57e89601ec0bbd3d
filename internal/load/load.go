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

// Package load writes validated bars into the per-symbol market tables.
// Upserts are keyed by the timestamp column; replaying a batch is a no-op
// beyond overwriting identical values.
package load

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"

	"github.com/tmcarthur/barloader/internal/model"
	"github.com/tmcarthur/barloader/internal/util"
)

// Schema is the fixed schema every symbol table lives in.
const Schema = "market"

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]`)

// TableName maps a symbol to its qualified storage table, e.g. "^TNX" to
// "market.tnx". A symbol with no alphanumeric characters is a configuration
// error and must be rejected before any fetch.
func TableName(symbol string) (string, error) {
	base := strings.ToLower(nonAlnum.ReplaceAllString(symbol, ""))
	if base == "" {
		return "", fmt.Errorf("invalid symbol for table mapping: %q", symbol)
	}
	return Schema + "." + base, nil
}

// TableExists checks information_schema for the qualified table.
func TableExists(ctx context.Context, conn *pgx.Conn, qualified string) (bool, error) {
	schema, table, ok := splitQualified(qualified)
	if !ok {
		return false, fmt.Errorf("not a qualified table name: %q", qualified)
	}

	ctx, cancel := context.WithTimeout(ctx, util.ShortReqTimeout)
	defer cancel()

	var one int
	err := conn.QueryRow(ctx,
		`SELECT 1 FROM information_schema.tables WHERE table_schema = $1 AND table_name = $2`,
		schema, table).Scan(&one)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", qualified, err)
	}
	return true, nil
}

func splitQualified(qualified string) (schema, table string, ok bool) {
	i := strings.IndexByte(qualified, '.')
	if i <= 0 || i == len(qualified)-1 {
		return "", "", false
	}
	return qualified[:i], qualified[i+1:], true
}

// UpsertStatement builds the idempotent insert for one symbol table. The
// table name is interpolated; it only ever comes from TableName.
func UpsertStatement(table string) string {
	return `INSERT INTO ` + table + ` (date, open, high, low, close, volume) VALUES ($1, $2, $3, $4, $5, $6) ` +
		`ON CONFLICT (date) DO UPDATE SET open = EXCLUDED.open, high = EXCLUDED.high, low = EXCLUDED.low, close = EXCLUDED.close, volume = EXCLUDED.volume`
}

// Row is a bar in its storage representation; pgtype carries NULLs for the
// absent value fields.
type Row struct {
	Date   pgtype.Timestamptz
	Open   pgtype.Float8
	High   pgtype.Float8
	Low    pgtype.Float8
	Close  pgtype.Float8
	Volume pgtype.Float8
}

func ToRow(b model.Bar) Row {
	var r Row
	_ = r.Date.Set(b.Timestamp)
	setFloat(&r.Open, b.Open)
	setFloat(&r.High, b.High)
	setFloat(&r.Low, b.Low)
	setFloat(&r.Close, b.Close)
	setFloat(&r.Volume, b.Volume)
	return r
}

func setFloat(dst *pgtype.Float8, v *float64) {
	if v == nil {
		*dst = pgtype.Float8{Status: pgtype.Null}
		return
	}
	*dst = pgtype.Float8{Float: *v, Status: pgtype.Present}
}

// Bars upserts one symbol's batch within tx.
func Bars(ctx context.Context, tx pgx.Tx, table string, bars []model.Bar) error {
	sql := UpsertStatement(table)
	for _, b := range bars {
		r := ToRow(b)
		_, err := tx.Exec(ctx, sql, r.Date, r.Open, r.High, r.Low, r.Close, r.Volume)
		if err != nil {
			return fmt.Errorf("failed to upsert bar %s into %s: %w", b.Timestamp, table, err)
		}
	}
	return nil
}

// DB adapts one run's connection to the orchestrator's store interface.
// Every upsert runs in its own transaction so a failed symbol never commits
// partially.
type DB struct {
	Conn *pgx.Conn
}

func (d *DB) TableExists(ctx context.Context, qualified string) (bool, error) {
	return TableExists(ctx, d.Conn, qualified)
}

func (d *DB) UpsertBars(ctx context.Context, qualified string, bars []model.Bar) (int, error) {
	err := util.RunTx(ctx, d.Conn, func(ctx context.Context, tx pgx.Tx) error {
		ctx, cancel := context.WithTimeout(ctx, util.MedReqTimeout)
		defer cancel()
		return Bars(ctx, tx, qualified, bars)
	})
	if err != nil {
		return 0, err
	}
	return len(bars), nil
}
