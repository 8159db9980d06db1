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
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or revert the database schema",
}

var upCmd = &cobra.Command{
	Use: "up",
	Run: func(cmd *cobra.Command, args []string) {
		lg, cleanup := logger()
		defer cleanup()

		m, cleanupManager, err := schemaManager(lg)
		if err != nil {
			panic(lg.ErrorErr(err))
		}
		defer cleanupManager()

		ctx, cancel := runContext(lg)
		defer cancel()

		if err := m.Ensure(ctx); err != nil {
			panic(lg.ErrorErr(err))
		}
		lg.Defaultf("database schema is up to date")
	},
}

var downCmd = &cobra.Command{
	Use: "down",
	Run: func(cmd *cobra.Command, args []string) {
		lg, cleanup := logger()
		defer cleanup()

		m, cleanupManager, err := schemaManager(lg)
		if err != nil {
			panic(lg.ErrorErr(err))
		}
		defer cleanupManager()

		ctx, cancel := runContext(lg)
		defer cancel()

		if err := m.Down(ctx); err != nil {
			panic(lg.ErrorErr(err))
		}
		lg.Defaultf("database schema is migrated fully down")
	},
}

func init() {
	migrateCmd.AddCommand(upCmd)
	migrateCmd.AddCommand(downCmd)
	rootCmd.AddCommand(migrateCmd)
}
