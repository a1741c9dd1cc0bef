// SQLite vector cache.
//
// Information Hiding:
// - SQLite connection management hidden behind interface
// - Schema details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling

package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SqliteStorage implements VectorCache using SQLite.
// Thread-safe: sql.DB handles connection pooling and concurrent access.
type SqliteStorage struct {
	db *sql.DB
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteStorage, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	storage := &SqliteStorage{db: db}
	if err := storage.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory() (*SqliteStorage, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}
	// Each pooled connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	storage := &SqliteStorage{db: db}
	if err := storage.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// Close closes the database connection.
func (s *SqliteStorage) Close() error {
	return s.db.Close()
}

func (s *SqliteStorage) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS embeddings (
			model TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			dimension INTEGER NOT NULL,
			vector BLOB NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (model, content_hash)
		);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Get returns the cached vector for (model, hash).
func (s *SqliteStorage) Get(ctx context.Context, model, hash string) ([]float32, bool, error) {
	var dimension int
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT dimension, vector FROM embeddings WHERE model = ? AND content_hash = ?",
		model, hash).Scan(&dimension, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query embedding: %w", err)
	}

	vector, err := decodeVector(blob, dimension)
	if err != nil {
		return nil, false, err
	}
	return vector, true, nil
}

// Put stores a vector, replacing any previous value.
func (s *SqliteStorage) Put(ctx context.Context, model, hash string, vector []float32) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO embeddings (model, content_hash, dimension, vector, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		model, hash, len(vector), encodeVector(vector), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}
	return nil
}

// Count returns the number of cached vectors.
func (s *SqliteStorage) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count embeddings: %w", err)
	}
	return count, nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte, dimension int) ([]float32, error) {
	if len(buf) != 4*dimension {
		return nil, fmt.Errorf("corrupt embedding: %d bytes for dimension %d", len(buf), dimension)
	}
	v := make([]float32, dimension)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v, nil
}

// Verify SqliteStorage implements VectorCache
var _ VectorCache = (*SqliteStorage)(nil)
