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
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajjensen13/stockqa/internal/answer"
)

var showSources bool

var askCmd = &cobra.Command{
	Use:   "ask QUESTION",
	Short: "Answer a question about the stored prices",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		lg, cleanup := logger()
		defer cleanup()

		ctx, cancel := runContext(lg)
		defer cancel()

		job, cleanupJob, err := asker(ctx, lg)
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to setup question answering: %w", err)))
		}
		defer cleanupJob()

		if err := ensureIndex(ctx, lg, job.indexJob); err != nil {
			lg.Warningf("%v", err)
		}

		a, err := job.Service.Answer(ctx, strings.Join(args, " "))
		if err != nil {
			lg.Warningf("unable to answer: %v", err)
			fmt.Fprintln(cmd.OutOrStdout(), answer.UnableToAnswer(err))
			return
		}

		fmt.Fprintln(cmd.OutOrStdout(), a.Text)
		if showSources {
			for _, s := range a.Sources {
				fmt.Fprintf(cmd.OutOrStdout(), "  [%.3f] %s\n", s.Score, s.Text)
			}
		}
	},
}

func init() {
	askCmd.Flags().BoolVar(&showSources, "sources", false, "print the retrieved context lines")
	rootCmd.AddCommand(askCmd)
}
