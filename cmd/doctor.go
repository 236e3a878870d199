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
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nvrio/stashd/internal/store"
)

var deepCheck bool

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// doctorCmd represents the doctor command
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "run health checks on the stashd database and datastore",
	Long: `Run a read-only health check to confirm stashd can operate safely.

Doctor verifies:
  - Database is present and usable (SELECT 1), and reports pending migrations
  - SQLite integrity checks (quick_check by default; integrity_check +
    foreign_key_check with --full)
  - The datastore directory exists and is writable
  - Every blob file is either within the grace window or referenced by a
    live file row (retrieve_sha256s)

Doctor never modifies the database or datastore.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		run := func() error {
			if err := checkDb(ctx); err != nil {
				return err
			}
			if err := checkDatastore(ctx); err != nil {
				return err
			}
			if err := checkProjects(ctx); err != nil {
				return err
			}
			return nil
		}

		if err := run(); err != nil {
			if errors.Is(err, context.Canceled) {
				return fmt.Errorf("cancelled")
			}
			return err
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().BoolVar(&deepCheck, "full", false, "runs a more complete database check")
}

// checkDb verifies the DB exists and is usable, and warns if migrations
// are pending. Returns error only for non-recoverable failures.
func checkDb(ctx context.Context) error {
	dbPath := databasePath()

	fmt.Println(headerStyle.Render("Database Checks"))
	fmt.Println(subtleStyle.Render("  db: " + dbPath))
	fmt.Println()

	info, err := os.Stat(dbPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Println(errStyle.Render("  ✗ database does not exist"))
			fmt.Println(subtleStyle.Render("    run `stashd init` to create the datastore and database"))
			fmt.Println()
			return fmt.Errorf("database missing: %s", dbPath)
		}
		fmt.Println(errStyle.Render("  ✗ could not stat database file"))
		fmt.Println(subtleStyle.Render("    " + err.Error()))
		fmt.Println()
		return fmt.Errorf("cannot stat database: %w", err)
	}
	if info.IsDir() {
		fmt.Println(errStyle.Render("  ✗ database path is a directory, expected a file"))
		fmt.Println()
		return fmt.Errorf("database path is a directory: %s", dbPath)
	}
	fmt.Println(okStyle.Render("  ✓ database file exists"))

	ctxT, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	db, err := store.Open(dbPath)
	if err != nil {
		fmt.Println(errStyle.Render("  ✗ could not open database"))
		fmt.Println(subtleStyle.Render("    " + err.Error()))
		fmt.Println()
		return fmt.Errorf("cannot open database: %w", err)
	}
	defer db.Close()

	var one int
	if err := db.QueryRowContext(ctxT, "SELECT 1").Scan(&one); err != nil || one != 1 {
		fmt.Println(errStyle.Render("  ✗ basic query failed (SELECT 1)"))
		if err != nil {
			fmt.Println(subtleStyle.Render("    " + err.Error()))
		}
		fmt.Println()
		return fmt.Errorf("database not usable: %w", err)
	}
	fmt.Println(okStyle.Render("  ✓ basic query OK (SELECT 1)"))

	pending, err := store.HasPendingMigrations(ctx, db)
	if err != nil {
		fmt.Println(errStyle.Render("  ✗ could not determine migration status"))
		fmt.Println(subtleStyle.Render("    " + err.Error()))
		fmt.Println()
		return fmt.Errorf("cannot determine migration status: %w", err)
	}

	if pending {
		fmt.Println(warnStyle.Render("  ⚠ pending migrations — run `stashd init` to apply them"))
	} else {
		fmt.Println(okStyle.Render("  ✓ migrations up to date"))
	}

	pragma := "PRAGMA quick_check;"
	label := "quick_check"
	if deepCheck {
		pragma = "PRAGMA integrity_check;"
		label = "integrity_check"
	}

	rows, err := db.QueryContext(ctx, pragma)
	if err != nil {
		fmt.Println(errStyle.Render(fmt.Sprintf("  ✗ %s failed", label)))
		fmt.Println(subtleStyle.Render("    " + err.Error()))
		return fmt.Errorf("%s failed: %w", label, err)
	}

	var problems []string
	for rows.Next() {
		var result string
		if err := rows.Scan(&result); err != nil {
			rows.Close()
			return err
		}
		if result != "ok" {
			problems = append(problems, result)
		}
	}
	rows.Close()

	if len(problems) == 0 {
		fmt.Println(okStyle.Render(fmt.Sprintf("  ✓ %s OK", label)))
	} else {
		fmt.Println(errStyle.Render(fmt.Sprintf("  ✗ %s reported corruption", label)))
		for _, p := range problems {
			fmt.Println(subtleStyle.Render("    " + p))
		}
		return fmt.Errorf("database integrity check failed")
	}

	if deepCheck {
		if err := checkForeignKeys(ctx, db); err != nil {
			return err
		}
	}

	fmt.Println()

	return nil
}

func checkForeignKeys(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, "PRAGMA foreign_key_check;")
	if err != nil {
		fmt.Println(errStyle.Render("  ✗ foreign_key_check failed"))
		fmt.Println(subtleStyle.Render("    " + err.Error()))
		return fmt.Errorf("foreign_key_check failed: %w", err)
	}
	defer rows.Close()

	var violations []string

	for rows.Next() {
		var table string
		var rowid int64
		var parent string
		var fkid int64

		if err := rows.Scan(&table, &rowid, &parent, &fkid); err != nil {
			return err
		}

		violations = append(violations,
			fmt.Sprintf("table=%s rowid=%d parent=%s fkid=%d", table, rowid, parent, fkid))
	}

	if len(violations) == 0 {
		fmt.Println(okStyle.Render("  ✓ foreign_key_check OK"))
		return nil
	}

	fmt.Println(errStyle.Render("  ✗ foreign_key_check reported violations"))
	for _, v := range violations {
		fmt.Println(subtleStyle.Render("    " + v))
	}
	return fmt.Errorf("foreign key violations detected")
}

// checkDatastore verifies the blob directory is writable and that
// every blob on disk is either young enough to still be within the
// grace window or accounted for by a live file row.
func checkDatastore(ctx context.Context) error {
	dir := viper.GetString("datastore_dir")

	fmt.Println(headerStyle.Render("Datastore Checks"))
	fmt.Println(subtleStyle.Render("  dir: " + dir))
	fmt.Println()

	info, err := os.Stat(dir)
	if err != nil {
		fmt.Println(errStyle.Render("  ✗ datastore directory does not exist"))
		fmt.Println(subtleStyle.Render("    run `stashd init` to create it"))
		fmt.Println()
		return fmt.Errorf("datastore missing: %s", dir)
	}
	if !info.IsDir() {
		fmt.Println(errStyle.Render("  ✗ datastore path is not a directory"))
		fmt.Println()
		return fmt.Errorf("datastore path is not a directory: %s", dir)
	}
	fmt.Println(okStyle.Render("  ✓ datastore directory exists"))

	testFile := dir + "/.stashd-doctor-write-test"
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		fmt.Println(errStyle.Render("  ✗ datastore directory not writable"))
		fmt.Println(subtleStyle.Render("    " + err.Error()))
		fmt.Println()
		return fmt.Errorf("datastore not writable: %w", err)
	}
	_ = os.Remove(testFile)
	fmt.Println(okStyle.Render("  ✓ datastore directory writable"))

	eng, err := openEngine()
	if err != nil {
		fmt.Println(errStyle.Render("  ✗ could not open database"))
		fmt.Println(subtleStyle.Render("    " + err.Error()))
		fmt.Println()
		return err
	}
	defer eng.Close()

	hashes, err := eng.Index.RetrieveSHA256s(ctx)
	if err != nil {
		fmt.Println(errStyle.Render("  ✗ could not list referenced blobs"))
		fmt.Println(subtleStyle.Render("    " + err.Error()))
		fmt.Println()
		return fmt.Errorf("list sha256s: %w", err)
	}

	live := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		live[h] = struct{}{}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Println(errStyle.Render("  ✗ could not list datastore directory"))
		fmt.Println(subtleStyle.Render("    " + err.Error()))
		fmt.Println()
		return fmt.Errorf("list datastore: %w", err)
	}

	cutoff := time.Now().Add(-60 * time.Second)
	var orphans int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := live[entry.Name()]; ok {
			continue
		}
		fi, err := entry.Info()
		if err != nil || fi.ModTime().After(cutoff) {
			continue // too young to report: next cleanup pass may still claim it
		}
		orphans++
	}

	if orphans == 0 {
		fmt.Println(okStyle.Render(fmt.Sprintf("  ✓ %d blobs referenced, no stale orphans", len(live))))
	} else {
		fmt.Println(warnStyle.Render(fmt.Sprintf("  ⚠ %d orphaned blobs past the grace window — run `stashd cleanup`", orphans)))
	}

	fmt.Println()

	return nil
}

// checkProjects reports how many projects have no remaining versions.
// Cleanup never prunes a project row itself, so these accumulate
// indefinitely; this is informational only, not a failure.
func checkProjects(ctx context.Context) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	fmt.Println(headerStyle.Render("Project Checks"))

	projects, err := eng.ListProjects(ctx)
	if err != nil {
		fmt.Println(errStyle.Render("  ✗ could not list projects"))
		fmt.Println(subtleStyle.Render("    " + err.Error()))
		fmt.Println()
		return fmt.Errorf("list projects: %w", err)
	}

	var empty int
	for _, p := range projects {
		versions, err := eng.ListVersions(ctx, p.Name)
		if err != nil {
			return fmt.Errorf("list versions for %s: %w", p.Name, err)
		}
		if len(versions) == 0 {
			empty++
		}
	}

	if empty == 0 {
		fmt.Println(okStyle.Render(fmt.Sprintf("  ✓ %d projects, none versionless", len(projects))))
	} else {
		fmt.Println(subtleStyle.Render(fmt.Sprintf("  ⓘ %d of %d projects have no remaining versions", empty, len(projects))))
	}

	fmt.Println()

	return nil
}
