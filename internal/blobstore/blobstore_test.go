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

package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvrio/stashd/internal/errs"
)

func newStore(t *testing.T) Store {
	t.Helper()
	return Store{Dir: t.TempDir()}
}

func TestCreateBlobRoundTrip(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	data := []byte("hello, stashd")
	want := sha256.Sum256(data)
	wantHex := hex.EncodeToString(want[:])

	sha, err := s.CreateBlob(context.Background(), bytes.NewReader(data), 0)
	require.NoError(t, err)
	assert.Equal(t, wantHex, sha)

	r, err := s.RetrieveBlob(sha)
	require.NoError(t, err)
	defer r.Close()

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestCreateBlobNoTempFileSurvives(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	_, err := s.CreateBlob(context.Background(), bytes.NewReader([]byte("x")), 0)
	require.NoError(t, err)

	entries, err := os.ReadDir(s.Dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.NotContains(t, entries[0].Name(), ".tmp-")
}

func TestRetrieveBlobNotFound(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	_, err := s.RetrieveBlob("642472cc4bc4341e7081fb5d8f4a974fa5261f91cad86a8fd752603e96ad47a0")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.NotFound))
}

func TestRetrieveBlobInvalidHash(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	_, err := s.RetrieveBlob("not-a-hash")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.InvalidSHA256))
}

func TestDeleteUnreferencedRespectsGraceWindow(t *testing.T) {
	t.Parallel()

	s := newStore(t)

	shaOld, err := s.CreateBlob(context.Background(), bytes.NewReader([]byte("old-unreferenced")), 120*time.Second)
	require.NoError(t, err)

	shaLive, err := s.CreateBlob(context.Background(), bytes.NewReader([]byte("old-but-referenced")), 120*time.Second)
	require.NoError(t, err)

	shaYoung, err := s.CreateBlob(context.Background(), bytes.NewReader([]byte("young-unreferenced")), 0)
	require.NoError(t, err)

	live := map[string]struct{}{shaLive: {}}
	require.NoError(t, s.DeleteUnreferenced(live))

	_, err = os.Stat(filepath.Join(s.Dir, shaOld))
	assert.True(t, os.IsNotExist(err), "old unreferenced blob should be gone")

	_, err = os.Stat(filepath.Join(s.Dir, shaLive))
	assert.NoError(t, err, "referenced blob should survive")

	_, err = os.Stat(filepath.Join(s.Dir, shaYoung))
	assert.NoError(t, err, "young blob should survive regardless of reference set")
}

func TestCreateBlobParallelIdenticalContent(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	data := []byte("identical payload written concurrently")
	want := sha256.Sum256(data)
	wantHex := hex.EncodeToString(want[:])

	const n = 50
	var wg sync.WaitGroup
	errCh := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sha, err := s.CreateBlob(context.Background(), bytes.NewReader(data), 0)
			if err != nil {
				errCh <- err
				return
			}
			if sha != wantHex {
				errCh <- assert.AnError
				return
			}
			r, err := s.RetrieveBlob(sha)
			if err != nil {
				errCh <- err
				return
			}
			defer r.Close()
			got, err := io.ReadAll(r)
			if err != nil {
				errCh <- err
				return
			}
			if !bytes.Equal(got, data) {
				errCh <- assert.AnError
			}
		}()
	}

	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Errorf("concurrent create/retrieve failed: %v", err)
	}

	r, err := s.RetrieveBlob(wantHex)
	require.NoError(t, err)
	defer r.Close()
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}
