// Package migrations applies the embedded schema to the state database.
//
// golang-migrate's bundled sqlite3 driver links mattn/go-sqlite3, which
// registers the same "sqlite3" driver name as ncruces/go-sqlite3. Driver in
// this package implements database.Driver directly on a *sql.DB instead.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/zjrosen/autoaccept/internal/log"
)

//go:embed *.sql
var schemaFS embed.FS

// FS returns the embedded migration files.
func FS() fs.FS {
	return schemaFS
}

func newMigrate(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(schemaFS, ".")
	if err != nil {
		return nil, fmt.Errorf("opening embedded migrations: %w", err)
	}
	drv, err := WithInstance(db, &Config{})
	if err != nil {
		return nil, err
	}
	return migrate.NewWithInstance("iofs", src, "sqlite3", drv)
}

// Up applies every pending migration. An up-to-date database is not an error.
func Up(db *sql.DB) error {
	m, err := newMigrate(db)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	v, dirty, _ := m.Version()
	log.Debug(log.CatDB, "Schema ready", "version", v, "dirty", dirty)
	return nil
}

// Down reverts every migration.
func Down(db *sql.DB) error {
	m, err := newMigrate(db)
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("reverting migrations: %w", err)
	}
	return nil
}
