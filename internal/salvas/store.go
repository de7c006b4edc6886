// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package salvas persists the user's saved searches in a local SQLite
// database. The list is capacity-bounded: saving past the cap is an error
// rather than a silent eviction.
package salvas

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/tjsasakifln/PNCP-poc-sub006/pkg/types"
)

const defaultMax = 10

// ErrCapacity is returned by Save when the list is full; the caller must
// remove an entry first.
var ErrCapacity = errors.New("saved-search list is full")

// ErrNotFound is returned by Remove for an id that does not exist.
var ErrNotFound = errors.New("saved search not found")

// Store manages the saved-search database.
type Store struct {
	db  *sql.DB
	max int
}

// NewStore opens or creates the database at path and applies the schema.
func NewStore(cfg types.SalvasConfig) (*Store, error) {
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	max := cfg.Max
	if max <= 0 {
		max = defaultMax
	}

	s := &Store{db: db, max: max}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS buscas_salvas (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		nome TEXT NOT NULL,
		params TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("executing schema statement: %w", err)
	}
	return nil
}

// Save appends a saved search, preserving insertion order. At capacity it
// returns ErrCapacity without modifying the list.
func (s *Store) Save(ctx context.Context, nome string, params types.SearchParams) (types.SavedSearch, error) {
	if nome == "" {
		return types.SavedSearch{}, fmt.Errorf("saved search needs a name")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.SavedSearch{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM buscas_salvas`).Scan(&count); err != nil {
		return types.SavedSearch{}, fmt.Errorf("counting saved searches: %w", err)
	}
	if count >= s.max {
		return types.SavedSearch{}, fmt.Errorf("%w: %d of %d used", ErrCapacity, count, s.max)
	}

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return types.SavedSearch{}, fmt.Errorf("encoding parameters: %w", err)
	}

	createdAt := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO buscas_salvas (nome, params, created_at) VALUES (?, ?, ?)`,
		nome, string(paramsJSON), createdAt.Format(time.RFC3339Nano))
	if err != nil {
		return types.SavedSearch{}, fmt.Errorf("inserting saved search: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return types.SavedSearch{}, fmt.Errorf("reading insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return types.SavedSearch{}, fmt.Errorf("committing: %w", err)
	}

	return types.SavedSearch{ID: id, Nome: nome, Params: params, CreatedAt: createdAt}, nil
}

// List returns all saved searches in insertion order.
func (s *Store) List(ctx context.Context) ([]types.SavedSearch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, nome, params, created_at FROM buscas_salvas ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying saved searches: %w", err)
	}
	defer rows.Close()

	var out []types.SavedSearch
	for rows.Next() {
		var (
			item       types.SavedSearch
			paramsJSON string
			createdAt  string
		)
		if err := rows.Scan(&item.ID, &item.Nome, &paramsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning saved search: %w", err)
		}
		if err := json.Unmarshal([]byte(paramsJSON), &item.Params); err != nil {
			return nil, fmt.Errorf("decoding parameters for %q: %w", item.Nome, err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			item.CreatedAt = ts
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// Remove deletes a saved search by id.
func (s *Store) Remove(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM buscas_salvas WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting saved search: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading delete count: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return nil
}

// ExportYAML writes the saved searches as YAML, the shareable form.
func (s *Store) ExportYAML(ctx context.Context, w io.Writer) error {
	items, err := s.List(ctx)
	if err != nil {
		return err
	}
	doc := struct {
		BuscasSalvas []types.SavedSearch `yaml:"buscas_salvas"`
	}{BuscasSalvas: items}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	return nil
}
