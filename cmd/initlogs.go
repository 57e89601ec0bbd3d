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
	"os"

	"github.com/spf13/cobra"
)

var initLogsCmd = &cobra.Command{
	Use:   "initlogs",
	Short: "Create the diagnostics CSV files with their headers",
	Run: func(cmd *cobra.Command, args []string) {
		lg, cleanup := logger()
		defer cleanup()

		dl, err := diagLog()
		if err != nil {
			lg.Errorf("failed to set up diagnostics logs: %v", err)
			os.Exit(exitConfig)
		}
		if err := dl.Init(); err != nil {
			lg.Errorf("failed to initialize diagnostics logs: %v", err)
			os.Exit(exitConfig)
		}
		lg.Defaultf("diagnostics logs are ready")
	},
}

func init() {
	rootCmd.AddCommand(initLogsCmd)
}
