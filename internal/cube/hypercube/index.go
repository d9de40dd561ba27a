package hypercube

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Status bits mirror the reference HyperCUBE cache flags: a tile's status
// word tracks whether it has been read back since its last in-memory
// modification (statusRead) and whether memory and backing store agree
// (statusClean).
type tileStatus int

const (
	statusRead  tileStatus = 1
	statusClean tileStatus = 2
)

// index is the on-disk metadata catalog backing a Cache: one row per tile,
// recording where its blob lives, its cache status bits, and when it was
// last touched (for LRU eviction).
type index struct {
	db *sql.DB
}

// newIndex opens (creating if necessary) the sqlite index database at path
// and migrates it to the latest schema.
func newIndex(path string) (*index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("hypercube: open index: %w", err)
	}

	if err := migrateIndex(db); err != nil {
		db.Close()
		return nil, err
	}

	return &index{db: db}, nil
}

func migrateIndex(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("hypercube: migration source: %w", err)
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("hypercube: migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("hypercube: migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("hypercube: migrate up: %w", err)
	}
	return nil
}

func (x *index) Close() error { return x.db.Close() }

type tileRecord struct {
	GridX, GridY   int32
	Path           string
	Status         tileStatus
	LastAccessUnix int64
}

func (x *index) get(gx, gy int32) (tileRecord, bool, error) {
	var r tileRecord
	err := x.db.QueryRow(
		`SELECT grid_x, grid_y, path, status, last_access_unix FROM tiles WHERE grid_x = ? AND grid_y = ?`,
		gx, gy,
	).Scan(&r.GridX, &r.GridY, &r.Path, &r.Status, &r.LastAccessUnix)
	if errors.Is(err, sql.ErrNoRows) {
		return tileRecord{}, false, nil
	}
	if err != nil {
		return tileRecord{}, false, fmt.Errorf("hypercube: get tile (%d,%d): %w", gx, gy, err)
	}
	return r, true, nil
}

func (x *index) upsert(r tileRecord) error {
	_, err := x.db.Exec(
		`INSERT INTO tiles (grid_x, grid_y, path, status, last_access_unix) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(grid_x, grid_y) DO UPDATE SET path = excluded.path, status = excluded.status, last_access_unix = excluded.last_access_unix`,
		r.GridX, r.GridY, r.Path, r.Status, r.LastAccessUnix,
	)
	if err != nil {
		return fmt.Errorf("hypercube: upsert tile (%d,%d): %w", r.GridX, r.GridY, err)
	}
	return nil
}

func (x *index) delete(gx, gy int32) error {
	_, err := x.db.Exec(`DELETE FROM tiles WHERE grid_x = ? AND grid_y = ?`, gx, gy)
	if err != nil {
		return fmt.Errorf("hypercube: delete tile (%d,%d): %w", gx, gy, err)
	}
	return nil
}

func (x *index) all() ([]tileRecord, error) {
	rows, err := x.db.Query(`SELECT grid_x, grid_y, path, status, last_access_unix FROM tiles`)
	if err != nil {
		return nil, fmt.Errorf("hypercube: list tiles: %w", err)
	}
	defer rows.Close()

	var out []tileRecord
	for rows.Next() {
		var r tileRecord
		if err := rows.Scan(&r.GridX, &r.GridY, &r.Path, &r.Status, &r.LastAccessUnix); err != nil {
			return nil, fmt.Errorf("hypercube: scan tile row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
