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

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "resets the stashd datastore and database",
	Long: `Resets stashd's local state.

Removes the datastore directory and recreates it empty, then deletes the
metadata index's database file and recreates it from the schema
migrations. This is destructive: any blob or
metadata not already mirrored elsewhere is lost. There is no confirmation
prompt, matching the tool it is modeled on.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		log.Warn().Msg("resetting datastore directory and database schema")

		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		if err := eng.Create(ctx); err != nil {
			return fmt.Errorf("error initializing stashd state: %w", err)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
