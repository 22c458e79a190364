// internal/registry/sqlite/store.go
package sqlite

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/NotCoffee418/dbmigrator"

	"github.com/tamzrod/solaredge-bridge/internal/registry"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Store is a registry persisted in a single SQLite table.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// one writer; avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping %s: %w", path, err)
	}

	dbmigrator.SetDatabaseType(dbmigrator.SQLite)
	<-dbmigrator.MigrateUpCh(
		db,
		migrationFS,
		"migrations",
	)

	// migrations report failures through their own logging; verify the result
	if _, err := db.Exec("SELECT 1 FROM entries LIMIT 1;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: migrate %s: %w", path, err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ---- registry.Registry ----

func (s *Store) Exists(id int) (bool, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(1) FROM entries WHERE id = ?;", id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: exists %d: %w", id, err)
	}
	return n > 0, nil
}

func (s *Store) Get(id int) (registry.Entry, error) {
	row := s.db.QueryRow(
		"SELECT id, name, type, subtype, switchtype, options, value FROM entries WHERE id = ?;",
		id,
	)
	e, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return registry.Entry{}, fmt.Errorf("sqlite: entry %d: %w", id, registry.ErrNotFound)
	}
	if err != nil {
		return registry.Entry{}, fmt.Errorf("sqlite: get %d: %w", id, err)
	}
	return e, nil
}

func (s *Store) Create(id int, name string, d registry.Descriptor) error {
	if id < 0 {
		return fmt.Errorf("sqlite: negative id %d", id)
	}
	opts, err := encodeOptions(d.Options)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		"INSERT INTO entries (id, name, type, subtype, switchtype, options) VALUES (?, ?, ?, ?, ?, ?);",
		id, name, d.Type, d.Subtype, d.Switchtype, opts,
	)
	if err != nil {
		return fmt.Errorf("sqlite: create %d: %w", id, err)
	}
	return nil
}

func (s *Store) Update(id int, d registry.Descriptor, value string) error {
	opts, err := encodeOptions(d.Options)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(
		`UPDATE entries
		 SET type = ?, subtype = ?, switchtype = ?, options = ?, value = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?;`,
		d.Type, d.Subtype, d.Switchtype, opts, value, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: update %d: %w", id, err)
	}
	return affected(res, id)
}

// ---- registry.Lister / registry.Deleter ----

func (s *Store) Delete(id int) error {
	res, err := s.db.Exec("DELETE FROM entries WHERE id = ?;", id)
	if err != nil {
		return fmt.Errorf("sqlite: delete %d: %w", id, err)
	}
	return affected(res, id)
}

func (s *Store) List() ([]registry.Entry, error) {
	rows, err := s.db.Query(
		"SELECT id, name, type, subtype, switchtype, options, value FROM entries ORDER BY id;",
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list: %w", err)
	}
	defer rows.Close()

	var out []registry.Entry
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: list: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ---- helpers ----

type scanner interface {
	Scan(dest ...any) error
}

func scan(r scanner) (registry.Entry, error) {
	var (
		e    registry.Entry
		opts string
	)
	err := r.Scan(&e.ID, &e.Name, &e.Descriptor.Type, &e.Descriptor.Subtype, &e.Descriptor.Switchtype, &opts, &e.Value)
	if err != nil {
		return registry.Entry{}, err
	}
	if err := json.Unmarshal([]byte(opts), &e.Descriptor.Options); err != nil {
		return registry.Entry{}, fmt.Errorf("options of %d: %w", e.ID, err)
	}
	if len(e.Descriptor.Options) == 0 {
		e.Descriptor.Options = nil
	}
	return e, nil
}

func encodeOptions(opts map[string]string) (string, error) {
	if len(opts) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(opts)
	if err != nil {
		return "", fmt.Errorf("sqlite: options: %w", err)
	}
	return string(b), nil
}

func affected(res sql.Result, id int) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("sqlite: entry %d: %w", id, registry.ErrNotFound)
	}
	return nil
}
