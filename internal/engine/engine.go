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

// Package engine is the thin orchestration layer combining the Blob
// Store and the Metadata Index into the operations an HTTP or CLI
// surface actually calls: upload, download, listing, starring, and
// cleanup.
package engine

import (
	"context"
	"database/sql"
	"io"
	"os"
	"time"

	"github.com/nvrio/stashd/internal/blobstore"
	"github.com/nvrio/stashd/internal/errs"
	"github.com/nvrio/stashd/internal/expiry"
	"github.com/nvrio/stashd/internal/store"
)

// VersionListing is a version annotated with the presentation-level
// date/expiry string the original groups with the version row itself.
type VersionListing struct {
	Name      string
	Timestamp int64
	Star      bool
	Date      string
}

// Engine composes a blob store and a metadata index, plus the
// obsolete-version TTL that governs cleanup and expiry formatting.
type Engine struct {
	Blobs       blobstore.Store
	Index       *store.Index
	ObsoleteAge time.Duration

	db     *sql.DB // owned by Create for bootstrap resets, and by Close
	dbPath string  // path backing db, needed to remove+reopen it on reset
}

// New returns an Engine over an already-open database at dbPath and a
// blob directory.
func New(db *sql.DB, dbPath, datastoreDir string, obsoleteAge time.Duration) *Engine {
	return &Engine{
		Blobs:       blobstore.Store{Dir: datastoreDir},
		Index:       store.New(db),
		ObsoleteAge: obsoleteAge,
		db:          db,
		dbPath:      dbPath,
	}
}

// Close releases the Engine's underlying database handle.
func (e *Engine) Close() error {
	return e.db.Close()
}

// Create resets both substrates: removes the datastore directory and
// the database file, then recreates each empty (the database is
// migrated back up to the current schema). Destructive; intended only
// for bootstrap (`stashd init`). There is no confirmation step,
// matching the original tool's behavior — see DESIGN.md for the
// reasoning.
func (e *Engine) Create(ctx context.Context) error {
	if err := os.RemoveAll(e.Blobs.Dir); err != nil {
		return errs.Wrap(errs.Internal, "reset datastore directory", err)
	}
	if err := os.MkdirAll(e.Blobs.Dir, 0o755); err != nil {
		return errs.Wrap(errs.Internal, "create datastore directory", err)
	}

	if err := e.db.Close(); err != nil {
		return errs.Wrap(errs.Internal, "close database before reset", err)
	}
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(e.dbPath + suffix); err != nil && !os.IsNotExist(err) {
			return errs.Wrap(errs.Internal, "remove database file", err)
		}
	}

	db, err := store.Open(e.dbPath)
	if err != nil {
		return errs.Wrap(errs.Internal, "reopen database", err)
	}
	if err := store.Migrate(ctx, db); err != nil {
		return errs.Wrap(errs.Internal, "migrate database", err)
	}

	e.db = db
	e.Index = store.New(db)
	return nil
}

// ListProjects delegates to the Metadata Index.
func (e *Engine) ListProjects(ctx context.Context) ([]store.Project, error) {
	return e.Index.RetrieveProjects(ctx)
}

// ListVersions fetches project's versions and attaches a formatted
// date field: the creation date in local time, plus an expiry string
// for any version that isn't starred.
func (e *Engine) ListVersions(ctx context.Context, project string) ([]VersionListing, error) {
	versions, err := e.Index.RetrieveVersions(ctx, project)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	listings := make([]VersionListing, len(versions))
	for i, v := range versions {
		created := time.Unix(v.Timestamp, 0)
		date := created.Local().Format("2006-01-02")
		if !v.Star {
			remaining := v.Timestamp + int64(e.ObsoleteAge.Seconds()) - now.Unix()
			date += ", " + expiry.Format(int(remaining))
		}
		listings[i] = VersionListing{Name: v.Name, Timestamp: v.Timestamp, Star: v.Star, Date: date}
	}
	return listings, nil
}

// ListFiles delegates to the Metadata Index.
func (e *Engine) ListFiles(ctx context.Context, project, version string) ([]store.FileRecord, error) {
	return e.Index.RetrieveFiles(ctx, project, version)
}

// Upload writes stream's bytes to the blob store, then records a file
// row pointing at the resulting hash. age backdates both the blob's
// mtime and the version's timestamp; it exists only for tests. If the
// metadata write fails, the blob is left behind as a harmless orphan —
// the next Cleanup reclaims it once the grace window passes.
func (e *Engine) Upload(ctx context.Context, project, version, file string, stream io.Reader, age time.Duration) error {
	sha256Hex, err := e.Blobs.CreateBlob(ctx, stream, age)
	if err != nil {
		return err
	}
	return e.Index.CreateFile(ctx, project, version, file, sha256Hex, age)
}

// Download resolves (project, version, file) to its blob and returns
// an open read handle. A file row whose blob is missing indicates
// internal inconsistency (e.g. an out-of-policy manual deletion) and
// is surfaced as errs.Internal rather than errs.NotFound.
func (e *Engine) Download(ctx context.Context, project, version, file string) (io.ReadCloser, error) {
	sha256Hex, err := e.Index.RetrieveFileSHA256(ctx, project, version, file)
	if err != nil {
		return nil, err
	}

	stream, err := e.Blobs.RetrieveBlob(sha256Hex)
	if errs.Is(err, errs.NotFound) {
		return nil, errs.New(errs.Internal, "recorded blob is missing from the datastore")
	}
	return stream, err
}

// StarVersion pins a version, exempting it from obsolescence.
func (e *Engine) StarVersion(ctx context.Context, project, version string) error {
	return e.Index.UpdateStar(ctx, project, version, true)
}

// UnstarVersion un-pins a version.
func (e *Engine) UnstarVersion(ctx context.Context, project, version string) error {
	return e.Index.UpdateStar(ctx, project, version, false)
}

// Cleanup deletes obsolete unstarred versions, then garbage-collects
// any blob no longer referenced by a live file row. Metadata deletion
// must run first so the hashes it orphans are correctly absent from
// the live set the blob GC snapshot sees.
func (e *Engine) Cleanup(ctx context.Context) error {
	if err := e.Index.DeleteObsoleteVersions(ctx, e.ObsoleteAge); err != nil {
		return err
	}

	hashes, err := e.Index.RetrieveSHA256s(ctx)
	if err != nil {
		return err
	}

	live := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		live[h] = struct{}{}
	}

	return e.Blobs.DeleteUnreferenced(live)
}
