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

package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/nvrio/stashd/internal/errs"
	"github.com/nvrio/stashd/internal/validate"
)

// Project is a row of the projects table.
type Project struct {
	Name string
}

// Version is a row of the versions table.
type Version struct {
	Name      string
	Timestamp int64
	Star      bool
}

// FileRecord is a row of the files table.
type FileRecord struct {
	Name   string
	SHA256 string
}

// Index is the Metadata Index, backed by a shared *sql.DB connection
// pool. Every method binds its work to ctx and the pool's scoped
// acquisition, satisfying spec's "open a connection, run to
// completion, close" discipline without a manual handle per call.
type Index struct {
	db *sql.DB
}

func New(db *sql.DB) *Index {
	return &Index{db: db}
}

// CreateFile upserts the project and version rows (without
// overwriting an existing version's timestamp) and inserts the file
// row, all within one transaction. A unique-constraint violation on
// the file insert rolls the whole transaction back and is reported as
// errs.DuplicateFile.
func (idx *Index) CreateFile(ctx context.Context, project, version, file, sha256Hex string, age time.Duration) error {
	if err := validate.Name(project); err != nil {
		return err
	}
	if err := validate.Name(version); err != nil {
		return err
	}
	if err := validate.Name(file); err != nil {
		return err
	}
	if err := validate.SHA256(sha256Hex); err != nil {
		return err
	}

	timestamp := time.Now().Add(-age).Unix()

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.Internal, "begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO projects(name) VALUES(?)`, project,
	); err != nil {
		return errs.Wrap(errs.Internal, "upsert project", err)
	}

	var projectID int64
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM projects WHERE name = ?`, project,
	).Scan(&projectID); err != nil {
		return errs.Wrap(errs.Internal, "resolve project", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO versions(project_id, name, timestamp) VALUES(?, ?, ?)`,
		projectID, version, timestamp,
	); err != nil {
		return errs.Wrap(errs.Internal, "upsert version", err)
	}

	var versionID int64
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM versions WHERE project_id = ? AND name = ?`, projectID, version,
	).Scan(&versionID); err != nil {
		return errs.Wrap(errs.Internal, "resolve version", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO files(version_id, name, sha256) VALUES(?, ?, ?)`,
		versionID, file, sha256Hex,
	); err != nil {
		if isUniqueViolation(err) {
			return errs.New(errs.DuplicateFile, "unable to create file")
		}
		return errs.Wrap(errs.Internal, "insert file", err)
	}

	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.Internal, "commit transaction", err)
	}
	return nil
}

// RetrieveFileSHA256 returns the SHA-256 hash recorded for a file.
func (idx *Index) RetrieveFileSHA256(ctx context.Context, project, version, file string) (string, error) {
	if err := validate.Name(project); err != nil {
		return "", err
	}
	if err := validate.Name(version); err != nil {
		return "", err
	}
	if err := validate.Name(file); err != nil {
		return "", err
	}

	var sha256Hex string
	err := idx.db.QueryRowContext(ctx, `
		SELECT files.sha256 FROM projects
		INNER JOIN versions ON versions.project_id = projects.id
		INNER JOIN files ON files.version_id = versions.id
		WHERE projects.name = ? AND versions.name = ? AND files.name = ?
	`, project, version, file).Scan(&sha256Hex)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errs.New(errs.NotFound, "file not found")
	}
	if err != nil {
		return "", errs.Wrap(errs.Internal, "retrieve file", err)
	}
	return sha256Hex, nil
}

// RetrieveProjects returns every project, ordered ascending by name.
func (idx *Index) RetrieveProjects(ctx context.Context) ([]Project, error) {
	rows, err := idx.db.QueryContext(ctx, `SELECT name FROM projects ORDER BY name ASC`)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "retrieve projects", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.Name); err != nil {
			return nil, errs.Wrap(errs.Internal, "scan project", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.Internal, "retrieve projects", err)
	}
	return projects, nil
}

// RetrieveVersions returns the versions of project, sorted in reverse
// chronological order, within a single transaction so the snapshot is
// consistent.
func (idx *Index) RetrieveVersions(ctx context.Context, project string) ([]Version, error) {
	if err := validate.Name(project); err != nil {
		return nil, err
	}

	tx, err := idx.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var projectID int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM projects WHERE name = ?`, project).Scan(&projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.New(errs.NotFound, "project not found")
	}
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "resolve project", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT name, timestamp, star FROM versions
		WHERE project_id = ? ORDER BY timestamp DESC
	`, projectID)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "retrieve versions", err)
	}
	defer rows.Close()

	var versions []Version
	for rows.Next() {
		var v Version
		if err := rows.Scan(&v.Name, &v.Timestamp, &v.Star); err != nil {
			return nil, errs.Wrap(errs.Internal, "scan version", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.Internal, "retrieve versions", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errs.Wrap(errs.Internal, "commit transaction", err)
	}
	return versions, nil
}

// RetrieveFiles returns the files of (project, version), sorted
// ascending by name, within a single transaction.
func (idx *Index) RetrieveFiles(ctx context.Context, project, version string) ([]FileRecord, error) {
	if err := validate.Name(project); err != nil {
		return nil, err
	}
	if err := validate.Name(version); err != nil {
		return nil, err
	}

	tx, err := idx.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var versionID int64
	err = tx.QueryRowContext(ctx, `
		SELECT versions.id FROM versions
		INNER JOIN projects ON projects.id = versions.project_id
		WHERE projects.name = ? AND versions.name = ?
	`, project, version).Scan(&versionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.New(errs.NotFound, "version not found")
	}
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "resolve version", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT name, sha256 FROM files WHERE version_id = ? ORDER BY name ASC
	`, versionID)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "retrieve files", err)
	}
	defer rows.Close()

	var files []FileRecord
	for rows.Next() {
		var f FileRecord
		if err := rows.Scan(&f.Name, &f.SHA256); err != nil {
			return nil, errs.Wrap(errs.Internal, "scan file", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.Internal, "retrieve files", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errs.Wrap(errs.Internal, "commit transaction", err)
	}
	return files, nil
}

// RetrieveSHA256s returns every distinct hash referenced by a file.
func (idx *Index) RetrieveSHA256s(ctx context.Context) ([]string, error) {
	rows, err := idx.db.QueryContext(ctx, `SELECT DISTINCT sha256 FROM files`)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "retrieve sha256s", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, errs.Wrap(errs.Internal, "scan sha256", err)
		}
		hashes = append(hashes, h)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.Internal, "retrieve sha256s", err)
	}
	return hashes, nil
}

// UpdateStar sets the star flag on (project, version). It begins an
// immediate (writer-claiming) transaction to avoid the classic
// read-then-upgrade deadlock under concurrent callers. Idempotent:
// setting the current value succeeds and changes nothing observable.
func (idx *Index) UpdateStar(ctx context.Context, project, version string, star bool) error {
	if err := validate.Name(project); err != nil {
		return err
	}
	if err := validate.Name(version); err != nil {
		return err
	}

	conn, err := idx.db.Conn(ctx)
	if err != nil {
		return errs.Wrap(errs.Internal, "acquire connection", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `BEGIN IMMEDIATE`); err != nil {
		return errs.Wrap(errs.Internal, "begin immediate transaction", err)
	}
	commitOrRollback := func(commit bool) error {
		stmt := "ROLLBACK"
		if commit {
			stmt = "COMMIT"
		}
		_, err := conn.ExecContext(ctx, stmt)
		return err
	}

	var versionID int64
	err = conn.QueryRowContext(ctx, `
		SELECT versions.id FROM versions
		INNER JOIN projects ON projects.id = versions.project_id
		WHERE projects.name = ? AND versions.name = ?
	`, project, version).Scan(&versionID)
	if errors.Is(err, sql.ErrNoRows) {
		_ = commitOrRollback(false)
		return errs.New(errs.NotFound, "version not found")
	}
	if err != nil {
		_ = commitOrRollback(false)
		return errs.Wrap(errs.Internal, "resolve version", err)
	}

	if _, err := conn.ExecContext(ctx, `UPDATE versions SET star = ? WHERE id = ?`, star, versionID); err != nil {
		_ = commitOrRollback(false)
		return errs.Wrap(errs.Internal, "update star", err)
	}

	if err := commitOrRollback(true); err != nil {
		return errs.Wrap(errs.Internal, "commit transaction", err)
	}
	return nil
}

// DeleteObsoleteVersions deletes every version that is unstarred and
// at least age old, cascading to its files.
func (idx *Index) DeleteObsoleteVersions(ctx context.Context, age time.Duration) error {
	cutoff := time.Now().Add(-age).Unix()
	if _, err := idx.db.ExecContext(ctx,
		`DELETE FROM versions WHERE star = 0 AND timestamp <= ?`, cutoff,
	); err != nil {
		return errs.Wrap(errs.Internal, "delete obsolete versions", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}
