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

	"github.com/spf13/cobra"

	"github.com/ajjensen13/stockqa/internal/api"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve refresh, index and ask over HTTP",
	Run: func(cmd *cobra.Command, args []string) {
		lg, cleanup := logger()
		defer cleanup()

		cfg, err := appConfig()
		if err != nil {
			panic(lg.ErrorErr(err))
		}
		addr := cfg.HTTPAddr
		if serveAddr != "" {
			addr = serveAddr
		}

		ctx, cancel := runContext(lg)
		defer cancel()

		job, cleanupServer, err := server(ctx, lg, overrides{})
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to setup server: %w", err)))
		}
		defer cleanupServer()

		if err := ensureIndex(ctx, lg, job.indexJob); err != nil {
			lg.Warningf("%v", err)
		}

		lg.Defaultf("listening on %s", addr)
		if err := api.Serve(ctx, addr, api.SetupRoutes(job.Handler)); err != nil {
			panic(lg.ErrorErr(fmt.Errorf("server failed: %w", err)))
		}
		lg.Defaultf("server stopped")
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (defaults to HTTP_ADDR)")
	rootCmd.AddCommand(serveCmd)
}
