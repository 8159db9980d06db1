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
	"context"
	"fmt"

	"github.com/ajjensen13/gke"
	"github.com/spf13/cobra"

	"github.com/ajjensen13/stockqa/internal/index"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the search index",
}

var forceBuild bool

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Rebuild the search index from the stored prices",
	Run: func(cmd *cobra.Command, args []string) {
		lg, cleanup := logger()
		defer cleanup()

		ctx, cancel := runContext(lg)
		defer cancel()

		job, cleanupJob, err := indexer(ctx, lg)
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to setup index build: %w", err)))
		}
		defer cleanupJob()

		out, err := job.Builder.Rebuild(ctx, job.Corpus, forceBuild)
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("index build failed: %w", err)))
		}
		logOutcome(lg, out)
	},
}

var invalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Mark the search index stale so the next build replaces it",
	Run: func(cmd *cobra.Command, args []string) {
		lg, cleanup := logger()
		defer cleanup()

		cfg, err := appConfig()
		if err != nil {
			panic(lg.ErrorErr(err))
		}

		ctx, cancel := runContext(lg)
		defer cancel()

		err = provideIndexStore(cfg).Invalidate(ctx)
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to invalidate index: %w", err)))
		}
		lg.Defaultf("invalidated index at %s", cfg.IndexDir)
	},
}

// ensureIndex builds the index when none exists yet.
func ensureIndex(ctx context.Context, lg gke.Logger, job *indexJob) error {
	st, err := job.Store.State(ctx)
	if err != nil {
		return err
	}
	if st != index.StateAbsent {
		return nil
	}

	lg.Defaultf("no index found, building it")
	out, err := job.Builder.Rebuild(ctx, job.Corpus, false)
	if err != nil {
		return fmt.Errorf("failed to build initial index: %w", err)
	}
	logOutcome(lg, out)
	return nil
}

func logOutcome(lg gke.Logger, out index.Outcome) {
	if out.Built {
		lg.Defaultf("built index with %d entries", out.Entries)
		return
	}
	lg.Defaultf("index not rebuilt: %s", out.Reason)
}

func init() {
	buildCmd.Flags().BoolVar(&forceBuild, "force", false, "rebuild regardless of the rebuild policy")
	indexCmd.AddCommand(buildCmd)
	indexCmd.AddCommand(invalidateCmd)
	rootCmd.AddCommand(indexCmd)
}
