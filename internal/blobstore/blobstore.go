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

// Package blobstore is the content-addressed Blob Store: a single
// flat directory holding one regular file per blob, named by its
// SHA-256 hex digest. A blob file is only ever observed in one of two
// states — absent, or complete and hash-correct — because it is
// always written to a uniquely-named temp file first and only made
// visible under its final name by an atomic rename.
package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/nvrio/stashd/internal/errs"
	"github.com/nvrio/stashd/internal/validate"
)

// GraceWindow bounds how recently a blob must have been written before
// it becomes eligible for garbage collection. It protects a blob whose
// referencing file row has not yet committed.
const GraceWindow = 60 * time.Second

const bufferSize = 64 * 1024

// Store is a content-addressed blob pool rooted at Dir.
type Store struct {
	Dir string
}

func (s Store) pathFor(shaHex string) string {
	return filepath.Join(s.Dir, shaHex)
}

// CreateBlob streams r into the store, addressed by the SHA-256 of
// its bytes. age, when non-zero, backdates the blob's mtime by age —
// a testing hook for exercising the grace window.
//
// The bytes are hashed while they are written, in a single pass, to a
// temp file named ".tmp-<uuid>" in the same directory (so the final
// rename stays within one filesystem); the temp name does not contain
// the hash, which is only known once the write completes. The file is
// fsynced, backdated, then renamed over the final name. Two
// concurrent writes of identical bytes each take their own temp file;
// whichever rename lands last wins, and since both contain the same
// bytes the observable blob is unchanged.
func (s Store) CreateBlob(ctx context.Context, r io.Reader, age time.Duration) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", errs.Wrap(errs.Internal, "create datastore directory", err)
	}

	h := sha256.New()
	tmpName := filepath.Join(s.Dir, fmt.Sprintf(".tmp-%s", uuid.New().String()))

	tmp, err := os.OpenFile(tmpName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", errs.Wrap(errs.Internal, "create temp blob file", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName) // no-op once the rename below succeeds
	}()

	w := io.MultiWriter(tmp, h)
	buf := make([]byte, bufferSize)
	if _, err := copyWithContext(ctx, w, r, buf); err != nil {
		return "", errs.Wrap(errs.Internal, "write blob", err)
	}

	if err := tmp.Sync(); err != nil {
		return "", errs.Wrap(errs.Internal, "fsync blob", err)
	}
	if err := tmp.Close(); err != nil {
		return "", errs.Wrap(errs.Internal, "close blob", err)
	}

	shaHex := hex.EncodeToString(h.Sum(nil))

	mtime := time.Now().Add(-age)
	if err := os.Chtimes(tmpName, mtime, mtime); err != nil {
		return "", errs.Wrap(errs.Internal, "backdate blob mtime", err)
	}

	finalPath := s.pathFor(shaHex)
	if err := os.Rename(tmpName, finalPath); err != nil {
		return "", errs.Wrap(errs.Internal, "publish blob", err)
	}
	_ = fsyncDir(s.Dir) // best effort: directory entry durability

	return shaHex, nil
}

// RetrieveBlob opens the blob named sha256 for reading. The caller
// owns the returned handle and must close it.
func (s Store) RetrieveBlob(sha256Hex string) (io.ReadCloser, error) {
	if err := validate.SHA256(sha256Hex); err != nil {
		return nil, err
	}

	f, err := os.Open(s.pathFor(sha256Hex))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errs.New(errs.NotFound, "blob not found")
		}
		return nil, errs.Wrap(errs.Internal, "open blob", err)
	}
	return f, nil
}

// DeleteUnreferenced scans the store directory and removes any file
// whose name is not present in live and whose mtime is older than
// GraceWindow. live must hold plain lowercase hex digests — composite
// values are never matched. Errors reading or removing an individual
// entry are skipped rather than aborting the scan, since a transient
// stat failure on one blob shouldn't block GC of the rest.
func (s Store) DeleteUnreferenced(live map[string]struct{}) error {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return errs.Wrap(errs.Internal, "list datastore directory", err)
	}

	cutoff := time.Now().Add(-GraceWindow)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		info, err := entry.Info()
		if err != nil {
			continue // transient; next cleanup pass retries
		}
		if info.ModTime().After(cutoff) {
			continue // too young: its file row may not be committed yet
		}
		if _, ok := live[name]; ok {
			continue
		}

		_ = os.Remove(filepath.Join(s.Dir, name))
	}

	return nil
}

// copyWithContext copies src into dst using buf, checking ctx for
// cancellation between reads so a very large upload can still be
// interrupted.
func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader, buf []byte) (int64, error) {
	var total int64

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		default:
		}

		nr, er := src.Read(buf)
		if nr > 0 {
			nw, ew := dst.Write(buf[:nr])
			if nw > 0 {
				total += int64(nw)
			}
			if ew != nil {
				return total, ew
			}
			if nw != nr {
				return total, io.ErrShortWrite
			}
		}
		if er != nil {
			if errors.Is(er, io.EOF) {
				return total, nil
			}
			return total, er
		}
	}
}

// fsyncDir forces directory-entry metadata (the new blob's filename)
// to stable storage after a rename. Best-effort: some filesystems
// ignore directory fsync, and that's not worth aborting an otherwise
// successful publish over.
func fsyncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
