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

package engine

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvrio/stashd/internal/errs"
	"github.com/nvrio/stashd/internal/store"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "packages.db")
	db, err := store.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(context.Background(), db))

	return New(db, dbPath, filepath.Join(dir, "datastore"), time.Hour)
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEngine(t)

	content := []byte("release artifact contents")
	require.NoError(t, e.Upload(ctx, "ProjectX", "1.0", "build.tar", bytes.NewReader(content), 0))

	rc, err := e.Download(ctx, "ProjectX", "1.0", "build.tar")
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestDownloadMissingBlobIsInternal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEngine(t)

	require.NoError(t, e.Upload(ctx, "ProjectX", "1.0", "build.tar", bytes.NewReader([]byte("x")), 2*time.Minute))
	require.NoError(t, e.Blobs.DeleteUnreferenced(map[string]struct{}{}))

	_, err := e.Download(ctx, "ProjectX", "1.0", "build.tar")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.Internal))
}

func TestListVersionsAttachesExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEngine(t)

	require.NoError(t, e.Upload(ctx, "ProjectX", "1.0", "a", bytes.NewReader([]byte("x")), 0))
	require.NoError(t, e.StarVersion(ctx, "ProjectX", "1.0"))

	versions, err := e.ListVersions(ctx, "ProjectX")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.True(t, versions[0].Star)
	assert.NotContains(t, versions[0].Date, ",")

	require.NoError(t, e.UnstarVersion(ctx, "ProjectX", "1.0"))
	versions, err = e.ListVersions(ctx, "ProjectX")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Contains(t, versions[0].Date, ",")
}

func TestCleanupDeletesObsoleteThenGCsBlobs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEngine(t)
	e.ObsoleteAge = 0

	require.NoError(t, e.Upload(ctx, "ProjectX", "1.0", "a", bytes.NewReader([]byte("stale")), 2*time.Minute))
	require.NoError(t, e.Cleanup(ctx))

	_, err := e.Index.RetrieveFileSHA256(ctx, "ProjectX", "1.0", "a")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.NotFound))

	_, err = e.Download(ctx, "ProjectX", "1.0", "a")
	require.Error(t, err)

	entries, err := os.ReadDir(e.Blobs.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "orphaned blob past the grace window should be collected")
}

func TestUploadThenListFiles(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEngine(t)

	require.NoError(t, e.Upload(ctx, "ProjectX", "1.0", "a", bytes.NewReader([]byte("one")), 0))
	require.NoError(t, e.Upload(ctx, "ProjectX", "1.0", "b", bytes.NewReader([]byte("two")), 0))

	files, err := e.ListFiles(ctx, "ProjectX", "1.0")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a", files[0].Name)
	assert.Equal(t, "b", files[1].Name)
}

// TestCreateResetsDatabaseAndBlobs is spec §4.4's dual-substrate reset:
// re-running Create against a populated store must wipe metadata rows
// along with blobs, not just the blob directory.
func TestCreateResetsDatabaseAndBlobs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEngine(t)

	require.NoError(t, e.Upload(ctx, "ProjectX", "1.0", "a", bytes.NewReader([]byte("x")), 0))

	require.NoError(t, e.Create(ctx))

	entries, err := os.ReadDir(e.Blobs.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "Create must clear the blob directory")

	projects, err := e.ListProjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, projects, "Create must clear metadata, not just blobs")

	require.NoError(t, e.Upload(ctx, "ProjectX", "1.0", "a", bytes.NewReader([]byte("y")), 0))
	rc, err := e.Download(ctx, "ProjectX", "1.0", "a")
	require.NoError(t, err, "database must be usable again after Create")
	rc.Close()
}

func TestListProjectsEmpty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEngine(t)

	projects, err := e.ListProjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, projects)
}
