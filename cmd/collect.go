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
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tmcarthur/barloader/internal/ingest"
	"github.com/tmcarthur/barloader/internal/window"
)

// Exit codes, relied on by the cron wrapper: 1 means bad configuration,
// 2 means the database could not be reached.
const (
	exitConfig    = 1
	exitDbConnect = 2
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect the current window of 5 minute bars for every configured symbol",
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runCollect(context.Background()))
	},
}

// runCollect returns the process exit code instead of exiting so the logger
// and connection cleanups run.
func runCollect(ctx context.Context) int {
	lg, cleanup := logger()
	defer cleanup()
	ctx = loggerContext(ctx, lg)

	cfg, err := provideAppConfig()
	if err != nil {
		lg.Errorf("failed to load configuration: %v", err)
		return exitConfig
	}
	tz, err := provideTimezone(cfg)
	if err != nil {
		lg.Errorf("failed to load timezone %q: %v", cfg.Timezone, err)
		return exitConfig
	}
	marketOpen, err := window.ParseHHMM(cfg.MarketOpen)
	if err != nil {
		lg.Errorf("invalid market_open: %v", err)
		return exitConfig
	}
	marketClose, err := window.ParseHHMM(cfg.MarketClose)
	if err != nil {
		lg.Errorf("invalid market_close: %v", err)
		return exitConfig
	}

	now := time.Now().In(tz)
	if !window.IsMarketOpen(now, marketOpen, marketClose) {
		lg.Defaultf("market is closed (%s - %s), nothing to collect", cfg.MarketOpen, cfg.MarketClose)
		return 0
	}

	client, err := quoteClient()
	if err != nil {
		lg.Errorf("failed to build quote client: %v", err)
		return exitConfig
	}
	dl, err := diagLog()
	if err != nil {
		lg.Errorf("failed to set up diagnostics logs: %v", err)
		return exitConfig
	}

	win := window.Compute(now, cfg.WindowMinutes)
	lg.Defaultf("collecting window %v -> %v for %d symbols", win.Start, win.End, len(cfg.Symbols))

	pool, cleanupPool, err := openPool(ctx)
	if err != nil {
		_ = dl.StorageError("N/A", "CONNECT", fmt.Sprintf("%T", err), err.Error(), "", 0)
		lg.Errorf("failed to open database pool: %v", err)
		return exitDbConnect
	}
	defer cleanupPool()

	conn, release, err := openConn(ctx, lg, pool)
	if err != nil {
		_ = dl.StorageError("N/A", "CONNECT", fmt.Sprintf("%T", err), err.Error(), "", 0)
		lg.Errorf("failed to connect to database: %v", err)
		return exitDbConnect
	}
	defer release()

	report := newRunner(client, conn, dl, tz).Run(ctx, cfg.Symbols, win, now)

	var failed int
	for _, res := range report.Results {
		if res.State == ingest.StateFailed {
			failed++
			lg.Warningf("symbol %q failed: %v", res.Symbol, res.Err)
		}
	}
	lg.Defaultf("run complete: upserted %d rows across %d symbols, %d failed", report.Total, len(report.Results), failed)
	return 0
}

func init() {
	rootCmd.AddCommand(collectCmd)
}
