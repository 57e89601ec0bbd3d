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
	"time"

	"github.com/spf13/cobra"

	"github.com/tmcarthur/barloader/internal/histload"
)

var (
	loadCsvFile        string
	loadCsvFromDate    string
	loadCsvParallelism int
)

var loadCsvCmd = &cobra.Command{
	Use:   "loadcsv",
	Short: "Bulk-load historical bars from a multi-symbol CSV export",
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runLoadCsv(context.Background()))
	},
}

func runLoadCsv(ctx context.Context) int {
	lg, cleanup := logger()
	defer cleanup()
	ctx = loggerContext(ctx, lg)

	tz, err := timezone()
	if err != nil {
		lg.Errorf("failed to load timezone: %v", err)
		return exitConfig
	}

	var fromDate time.Time
	if loadCsvFromDate != "" {
		fromDate, err = time.ParseInLocation("2006-01-02", loadCsvFromDate, tz)
		if err != nil {
			lg.Errorf("invalid --from-date: %v", err)
			return exitConfig
		}
	}

	f, err := os.Open(loadCsvFile)
	if err != nil {
		lg.Errorf("failed to open csv: %v", err)
		return exitConfig
	}
	defer f.Close()

	batches, stats, err := histload.ReadCSV(f, tz, fromDate)
	if err != nil {
		lg.Errorf("failed to read csv: %v", err)
		return exitConfig
	}
	lg.Defaultf("read %d rows: %d kept, %d skipped, %d before --from-date", stats.Rows, stats.Kept, stats.Skipped, stats.Filtered)

	pool, cleanupPool, err := openPool(ctx)
	if err != nil {
		lg.Errorf("failed to open database pool: %v", err)
		return exitDbConnect
	}
	defer cleanupPool()

	results := histload.Load(ctx, pool, batches, loadCsvParallelism)

	var total, failed int
	for _, res := range results {
		if res.Err != nil {
			failed++
			lg.Warningf("symbol %q failed: %v", res.Symbol, res.Err)
			continue
		}
		total += res.Rows
	}
	lg.Defaultf("historical load complete: %d rows across %d symbols, %d failed", total, len(results), failed)

	if failed == len(results) && failed > 0 {
		return exitDbConnect
	}
	return 0
}

func init() {
	loadCsvCmd.Flags().StringVar(&loadCsvFile, "csv", "", "path to the historical export (required)")
	loadCsvCmd.Flags().StringVar(&loadCsvFromDate, "from-date", "", "only load bars on or after this date (YYYY-MM-DD)")
	loadCsvCmd.Flags().IntVar(&loadCsvParallelism, "parallelism", 4, "symbols loaded concurrently")
	_ = loadCsvCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(loadCsvCmd)
}
