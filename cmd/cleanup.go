/*
 * stashd: temporary artifact store
 * Copyright © 2026 nvrio
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// cleanupCmd represents the cleanup command
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "deletes obsolete versions and garbage-collects unreferenced blobs",
	Long: `Deletes every unstarred version older than the configured obsolete_age,
then removes any blob no longer referenced by a live file, subject to the
blob store's grace window.

Safe to run repeatedly, including from a scheduled job (cron, systemd timer).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		if err := eng.Cleanup(ctx); err != nil {
			return fmt.Errorf("error running cleanup: %w", err)
		}

		log.Info().Msg("cleanup complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}
