/*
Copyright © 2020 A. Jensen <jensen.aaro@gmail.com>

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
	"fmt"
	"time"

	"github.com/ajjensen13/gke"
	"github.com/spf13/cobra"

	"github.com/ajjensen13/stockqa/internal/model"
)

var refreshFlags struct {
	symbols    []string
	start, end string
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch new daily prices and reload company metadata",
	Long: `refresh resolves the symbol universe, fetches every trading day after the
latest stored date of each symbol and inserts the new bars. Bars already
stored are never overwritten. Company metadata is reloaded from the
configured spreadsheet when it exists.`,
	Run: func(cmd *cobra.Command, args []string) {
		lg, cleanup := logger()
		defer cleanup()

		o, err := refreshOverrides()
		if err != nil {
			panic(lg.ErrorErr(err))
		}

		ctx, cancel := runContext(lg)
		defer cancel()

		r, cleanupRefresher, err := refresher(ctx, lg, o)
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to setup refresh: %w", err)))
		}
		defer cleanupRefresher()

		report, err := r.Run(ctx)
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("refresh failed: %w", err)))
		}

		lg.Default(gke.NewMsgData(fmt.Sprintf("refreshed %d symbols: %d new bars, %d no data, %d failed", report.Symbols, report.Inserted, len(report.NoData), len(report.Failed)), report))
	},
}

func refreshOverrides() (o overrides, err error) {
	o.Symbols = refreshFlags.symbols
	if o.Start, err = parseDate("start", refreshFlags.start); err != nil {
		return o, err
	}
	if o.End, err = parseDate("end", refreshFlags.end); err != nil {
		return o, err
	}
	return o, nil
}

func parseDate(flag, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q: %w", flag, s, err)
	}
	return t, nil
}

func init() {
	refreshCmd.Flags().StringSliceVar(&refreshFlags.symbols, "symbols", nil, "refresh only these symbols")
	refreshCmd.Flags().StringVar(&refreshFlags.start, "start", "", "first date to fetch (YYYY-MM-DD)")
	refreshCmd.Flags().StringVar(&refreshFlags.end, "end", "", "fetch dates before this one (YYYY-MM-DD)")
	rootCmd.AddCommand(refreshCmd)
}
