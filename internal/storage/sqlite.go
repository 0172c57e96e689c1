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

// SQLiteStorage implements EmbeddingStore using SQLite.
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
	CREATE TABLE IF NOT EXISTS embeddings (
		model_id TEXT NOT NULL,
		text_hash TEXT NOT NULL,
		dimensions INTEGER NOT NULL,
		vector BLOB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (model_id, text_hash)
	);

	CREATE INDEX IF NOT EXISTS idx_embeddings_created_at ON embeddings(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// GetEmbedding returns the stored embedding, or ok=false when absent.
func (s *SQLiteStorage) GetEmbedding(ctx context.Context, modelID, textHash string) ([]float32, bool, error) {
	var dims int
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT dimensions, vector FROM embeddings WHERE model_id = ? AND text_hash = ?`,
		modelID, textHash,
	).Scan(&dims, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	vec, err := decodeVector(blob, dims)
	if err != nil {
		return nil, false, fmt.Errorf("embedding %s/%s: %w", modelID, textHash, err)
	}
	return vec, true, nil
}

// PutEmbedding inserts or replaces an embedding.
func (s *SQLiteStorage) PutEmbedding(ctx context.Context, modelID, textHash string, vec []float32) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO embeddings (model_id, text_hash, dimensions, vector, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		modelID, textHash, len(vec), encodeVector(vec), time.Now(),
	)
	return err
}

// CountEmbeddings returns the number of embeddings stored for modelID.
func (s *SQLiteStorage) CountEmbeddings(ctx context.Context, modelID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM embeddings WHERE model_id = ?`, modelID,
	).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// encodeVector writes vec as little-endian float32s.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(blob []byte, dims int) ([]float32, error) {
	if len(blob) != dims*4 {
		return nil, fmt.Errorf("vector length mismatch: %d bytes for %d dimensions", len(blob), dims)
	}
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec, nil
}
