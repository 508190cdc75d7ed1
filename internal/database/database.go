// internal/database/database.go
//
// SQLite access for accounts, round history and daily results.
// Open sets WAL, a busy timeout and foreign keys; MigrateFS applies the
// embedded sql/*.sql files once each, tracked in _migrations.

package database

import (
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/mathle/assets"
)

const pragmas = "_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"

// Open opens the SQLite file at dsn, creating its parent directory if needed.
func Open(dsn string) (*sql.DB, error) {
	if dir := filepath.Dir(dsn); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dsn+"?"+pragmas)
	if err != nil {
		return nil, err
	}
	// The DSN flags only apply to new connections; ping to surface a bad path now.
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open %s: %w", dsn, err)
	}
	return db, nil
}

// OpenMigrated opens dsn and applies the embedded migrations.
func OpenMigrated(dsn string) (*sql.DB, error) {
	db, err := Open(dsn)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate applies the embedded migrations.
func Migrate(db *sql.DB) error {
	migrations, err := assets.Migrations()
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	return MigrateFS(db, migrations)
}

// MigrateFS applies every *.sql file in fsys, in lexical order, that is not
// yet recorded in _migrations. Scripts that open their own transaction or
// switch foreign keys off run bare; everything else runs in one transaction
// together with its _migrations row. The first failure stops the run.
func MigrateFS(db *sql.DB, fsys fs.FS) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS _migrations (
		name       TEXT PRIMARY KEY,
		applied_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	names, err := sqlFiles(fsys)
	if err != nil {
		return err
	}
	done, err := appliedMigrations(db)
	if err != nil {
		return err
	}

	for _, name := range names {
		if done[name] {
			log.Debug().Str("migration", name).Msg("already applied")
			continue
		}
		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		script := string(body)
		if ownsTransaction(script) {
			err = applyBare(db, name, script)
		} else {
			err = applyInTx(db, name, script)
		}
		if err != nil {
			return err
		}
		log.Info().Str("migration", name).Msg("applied")
	}
	return nil
}

func sqlFiles(fsys fs.FS) ([]string, error) {
	var names []string
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".sql") {
			names = append(names, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	slices.Sort(names)
	return names, nil
}

func appliedMigrations(db *sql.DB) (map[string]bool, error) {
	rows, err := db.Query(`SELECT name FROM _migrations`)
	if err != nil {
		return nil, fmt.Errorf("read _migrations: %w", err)
	}
	defer rows.Close()

	done := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		done[name] = true
	}
	return done, rows.Err()
}

func ownsTransaction(script string) bool {
	compact := strings.ReplaceAll(strings.ToUpper(script), " ", "")
	return strings.Contains(compact, "BEGINTRANSACTION") ||
		strings.Contains(compact, "PRAGMAFOREIGN_KEYS=OFF")
}

func applyBare(db *sql.DB, name, script string) error {
	if _, err := db.Exec(script); err != nil {
		return fmt.Errorf("apply %s: %w", name, err)
	}
	if _, err := db.Exec(`INSERT INTO _migrations(name) VALUES (?)`, name); err != nil {
		return fmt.Errorf("record %s: %w", name, err)
	}
	return nil
}

func applyInTx(db *sql.DB, name, script string) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin %s: %w", name, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec(script); err != nil {
		return fmt.Errorf("apply %s: %w", name, err)
	}
	if _, err = tx.Exec(`INSERT INTO _migrations(name) VALUES (?)`, name); err != nil {
		return fmt.Errorf("record %s: %w", name, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}
	return nil
}
