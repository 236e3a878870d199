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
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/nvrio/stashd/internal/engine"
	"github.com/nvrio/stashd/internal/store"
)

// openEngine opens the metadata index database (without migrating it)
// and returns an Engine bound to the configured datastore directory
// and obsolete-version age. Callers must defer eng.Close().
func openEngine() (*engine.Engine, error) {
	if err := os.MkdirAll(viper.GetString("database_dir"), 0o755); err != nil {
		return nil, fmt.Errorf("error creating database directory: %w", err)
	}

	dbPath := databasePath()
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	eng := engine.New(db, dbPath, viper.GetString("datastore_dir"), viper.GetDuration("obsolete_age"))
	return eng, nil
}
