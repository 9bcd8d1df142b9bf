package migrations

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/golang-migrate/migrate/v4/database"
)

// DefaultVersionTable records the applied schema version.
const DefaultVersionTable = "schema_migrations"

// ErrNilConfig is returned by WithInstance when config is nil.
var ErrNilConfig = errors.New("migrations: nil config")

// Config configures Driver.
type Config struct {
	VersionTable string
	// NoTxWrap runs each migration outside a transaction.
	NoTxWrap bool
}

// Driver is a database.Driver over a *sql.DB opened with ncruces/go-sqlite3.
type Driver struct {
	db     *sql.DB
	locked atomic.Bool
	cfg    Config
}

var _ database.Driver = (*Driver)(nil)

// WithInstance wraps an open database and ensures the version table exists.
func WithInstance(db *sql.DB, cfg *Config) (database.Driver, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	d := &Driver{db: db, cfg: *cfg}
	if d.cfg.VersionTable == "" {
		d.cfg.VersionTable = DefaultVersionTable
	}
	if err := d.ensureVersionTable(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Driver) ensureVersionTable() (err error) {
	if err := d.Lock(); err != nil {
		return err
	}
	defer func() { err = errors.Join(err, d.Unlock()) }()

	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (version INTEGER NOT NULL, dirty INTEGER NOT NULL);
CREATE UNIQUE INDEX IF NOT EXISTS %[1]s_version ON %[1]s (version);`, d.cfg.VersionTable)
	_, err = d.db.Exec(stmt)
	return err
}

// Open is unsupported; construct with WithInstance.
func (d *Driver) Open(string) (database.Driver, error) {
	return nil, errors.New("migrations: Open unsupported, use WithInstance")
}

// Close closes the wrapped database.
func (d *Driver) Close() error {
	return d.db.Close()
}

// Lock takes the in-process migration lock.
func (d *Driver) Lock() error {
	if !d.locked.CompareAndSwap(false, true) {
		return database.ErrLocked
	}
	return nil
}

// Unlock releases the in-process migration lock.
func (d *Driver) Unlock() error {
	if !d.locked.CompareAndSwap(true, false) {
		return database.ErrNotLocked
	}
	return nil
}

// Run executes one migration file.
func (d *Driver) Run(r io.Reader) error {
	body, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if d.cfg.NoTxWrap {
		if _, err := d.db.Exec(string(body)); err != nil {
			return &database.Error{OrigErr: err, Query: body}
		}
		return nil
	}
	return d.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(string(body)); err != nil {
			return &database.Error{OrigErr: err, Query: body}
		}
		return nil
	})
}

// SetVersion replaces the recorded version.
func (d *Driver) SetVersion(version int, dirty bool) error {
	return d.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM " + d.cfg.VersionTable); err != nil { //nolint:gosec // table name comes from Config
			return &database.Error{OrigErr: err, Err: "clearing version"}
		}
		// NilVersion without dirty means every migration was reverted.
		if version < 0 && (version != database.NilVersion || !dirty) {
			return nil
		}
		if _, err := tx.Exec("INSERT INTO "+d.cfg.VersionTable+" (version, dirty) VALUES (?, ?)", version, dirty); err != nil { //nolint:gosec // table name comes from Config
			return &database.Error{OrigErr: err, Err: "recording version"}
		}
		return nil
	})
}

// Version returns the recorded version, or NilVersion when none is recorded.
func (d *Driver) Version() (int, bool, error) {
	var (
		version int
		dirty   bool
	)
	err := d.db.QueryRow("SELECT version, dirty FROM "+d.cfg.VersionTable+" LIMIT 1").Scan(&version, &dirty) //nolint:gosec // table name comes from Config
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return database.NilVersion, false, nil
	case err != nil:
		return 0, false, &database.Error{OrigErr: err, Err: "reading version"}
	}
	return version, dirty, nil
}

// Drop removes every table.
func (d *Driver) Drop() error {
	rows, err := d.db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return &database.Error{OrigErr: err, Err: "listing tables"}
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return err
		}
		tables = append(tables, name)
	}
	if err := errors.Join(rows.Err(), rows.Close()); err != nil {
		return err
	}

	for _, t := range tables {
		if _, err := d.db.Exec(`DROP TABLE IF EXISTS "` + t + `"`); err != nil {
			return &database.Error{OrigErr: err, Err: "dropping " + t}
		}
	}
	return nil
}

func (d *Driver) inTx(fn func(*sql.Tx) error) error {
	tx, err := d.db.Begin()
	if err != nil {
		return &database.Error{OrigErr: err, Err: "transaction start failed"}
	}
	if err := fn(tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	if err := tx.Commit(); err != nil {
		return &database.Error{OrigErr: err, Err: "transaction commit failed"}
	}
	return nil
}
