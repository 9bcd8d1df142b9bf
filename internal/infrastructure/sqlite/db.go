// Package sqlite persists autoaccept's global state: settings, banned command
// patterns, click statistics and the single-instance lock.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zjrosen/autoaccept/internal/infrastructure/migrations"
	"github.com/zjrosen/autoaccept/internal/log"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB owns the state database connection.
type DB struct {
	conn *sql.DB
	path string
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
}

// NewDB opens (creating if needed) the database at path and applies the schema.
//
//	db, err := sqlite.NewDB(paths.StateDB())
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
func NewDB(path string) (*DB, error) {
	log.Debug(log.CatDB, "Opening database", "path", path)

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	if err := migrations.Up(conn); err != nil {
		_ = conn.Close()
		log.ErrorErr(log.CatDB, "Migration failed", err, "path", path)
		return nil, err
	}

	log.Debug(log.CatDB, "Database ready", "path", path)
	return &DB{conn: conn, path: path}, nil
}

// Close releases the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string { return db.path }

// Settings returns the key/value settings repository.
func (db *DB) Settings() *SettingsRepository { return &SettingsRepository{db: db.conn} }

// Banned returns the banned command pattern repository.
func (db *DB) Banned() *BannedRepository {
	return &BannedRepository{db: db.conn, settings: db.Settings()}
}

// Stats returns the click statistics repository.
func (db *DB) Stats() *StatsRepository { return &StatsRepository{db: db.conn} }

// Lock returns the instance lock repository.
func (db *DB) Lock() *LockRepository { return &LockRepository{db: db.conn} }
