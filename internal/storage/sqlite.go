// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mwidera/cityguide/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS pois (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		document_text TEXT,
		data TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_pois_category ON pois(category);
	`
	_, err := db.Exec(schema)
	return err
}

// UpsertPOI inserts a POI or replaces the existing row with the same ID.
func (s *SQLiteStorage) UpsertPOI(ctx context.Context, poi *models.POI) error {
	data, err := json.Marshal(poi)
	if err != nil {
		return fmt.Errorf("failed to marshal poi: %w", err)
	}
	now := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pois (id, name, category, document_text, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   category = excluded.category,
		   document_text = excluded.document_text,
		   data = excluded.data,
		   updated_at = excluded.updated_at`,
		poi.ID, poi.Name, poi.Category, poi.DocumentText, string(data), now, now,
	)
	return err
}

// BatchUpsertPOIs upserts multiple POIs in a transaction.
func (s *SQLiteStorage) BatchUpsertPOIs(ctx context.Context, pois []*models.POI) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO pois (id, name, category, document_text, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   category = excluded.category,
		   document_text = excluded.document_text,
		   data = excluded.data,
		   updated_at = excluded.updated_at`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, poi := range pois {
		data, err := json.Marshal(poi)
		if err != nil {
			return fmt.Errorf("failed to marshal poi %s: %w", poi.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			poi.ID, poi.Name, poi.Category, poi.DocumentText, string(data), now, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetPOI returns a POI by ID.
func (s *SQLiteStorage) GetPOI(ctx context.Context, id string) (*models.POI, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM pois WHERE id = ?`, id,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("poi %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var poi models.POI
	if err := json.Unmarshal([]byte(data), &poi); err != nil {
		return nil, fmt.Errorf("failed to unmarshal poi %s: %w", id, err)
	}
	return &poi, nil
}

// GetPOIs returns the POIs for ids, preserving the input order.
// IDs with no matching row are skipped.
func (s *SQLiteStorage) GetPOIs(ctx context.Context, ids []string) ([]*models.POI, error) {
	pois := make([]*models.POI, 0, len(ids))
	for _, id := range ids {
		poi, err := s.GetPOI(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		pois = append(pois, poi)
	}
	return pois, nil
}

// ListCategories returns the distinct categories present, sorted alphabetically.
func (s *SQLiteStorage) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT category FROM pois ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// CountPOIs returns the total number of POIs.
func (s *SQLiteStorage) CountPOIs(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pois`).Scan(&count)
	return count, err
}

// DeleteAll removes all POIs. Used by forced re-indexing.
func (s *SQLiteStorage) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pois`)
	return err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
