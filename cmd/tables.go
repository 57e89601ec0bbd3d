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
package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/tmcarthur/barloader/internal/load"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Create the market schema and one bar table per configured symbol",
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runTables(context.Background()))
	},
}

func runTables(ctx context.Context) int {
	lg, cleanup := logger()
	defer cleanup()
	ctx = loggerContext(ctx, lg)

	cfg, err := provideAppConfig()
	if err != nil {
		lg.Errorf("failed to load configuration: %v", err)
		return exitConfig
	}

	pool, cleanupPool, err := openPool(ctx)
	if err != nil {
		lg.Errorf("failed to open database pool: %v", err)
		return exitDbConnect
	}
	defer cleanupPool()

	conn, release, err := openConn(ctx, lg, pool)
	if err != nil {
		lg.Errorf("failed to connect to database: %v", err)
		return exitDbConnect
	}
	defer release()

	if _, err := conn.Exec(ctx, `CREATE SCHEMA IF NOT EXISTS `+load.Schema); err != nil {
		lg.Errorf("failed to create schema %s: %v", load.Schema, err)
		return exitDbConnect
	}

	for _, sym := range cfg.Symbols {
		table, err := load.TableName(sym)
		if err != nil {
			lg.Warningf("skipping symbol %q: %v", sym, err)
			continue
		}
		_, err = conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+table+` (
			date timestamptz PRIMARY KEY,
			open double precision,
			high double precision,
			low double precision,
			close double precision,
			volume double precision
		)`)
		if err != nil {
			lg.Errorf("failed to create table %s: %v", table, err)
			return exitDbConnect
		}
		lg.Defaultf("table %s is ready", table)
	}
	return 0
}

func init() {
	rootCmd.AddCommand(tablesCmd)
}
