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

// Package store is the Metadata Index: a transactional SQLite-backed
// record of projects, versions, and files. Every public method
// validates its string inputs before touching the database and runs
// to completion against the shared *sql.DB pool, which gives each
// call a scoped connection acquisition without a manual open/close
// per call.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// pragmas enforce the locking discipline spec §5 requires: foreign
// keys checked, WAL journaling for concurrent readers alongside a
// single writer, and a busy timeout so lock contention waits instead
// of failing immediately.
const pragmas = "?_foreign_keys=ON&_journal_mode=WAL&_busy_timeout=10000"

// Open opens (without creating directories) the SQLite database at
// path, configured with the pragmas the Metadata Index requires.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s%s", path, pragmas))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func gooseProvider(db *sql.DB) (*goose.Provider, error) {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("prepare migrations fs: %w", err)
	}
	return goose.NewProvider(goose.DialectSQLite3, db, fsys)
}

// Migrate applies every pending migration, creating the projects,
// versions, and files tables (and their constraints) on a fresh
// database, or bringing an older one up to date.
func Migrate(ctx context.Context, db *sql.DB) error {
	p, err := gooseProvider(db)
	if err != nil {
		return fmt.Errorf("set up migration provider: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}

// HasPendingMigrations reports whether db has migrations newer than
// its current schema_version. Used by the doctor command.
func HasPendingMigrations(ctx context.Context, db *sql.DB) (bool, error) {
	p, err := gooseProvider(db)
	if err != nil {
		return false, err
	}
	return p.HasPending(ctx)
}
