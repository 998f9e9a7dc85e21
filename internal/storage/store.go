// Package storage persists chunk metadata and embeddings in SQLite and serves
// cosine nearest-neighbor queries over them.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/notable-labs/noteseek/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

const configKeyDimension = "dimension"

var externalTypes = []string{models.BlockTypeBookmark, models.BlockTypeFile, models.BlockTypeFolder}

// Store holds two co-located structures keyed by chunk ID: a metadata table
// and a vector table, plus a config table recording the committed embedding
// dimension and a snapshot table for raw external content.
type Store struct {
	db     *sql.DB
	dim    int
	logger *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open opens or creates the store at dbPath with the given embedding
// dimension. If the store was built with a different dimension, all chunk
// metadata and vectors are cleared and the new dimension is committed; a full
// reindex is the only migration path. Snapshots carry no vectors and survive.
func Open(dbPath string, dim int, opts ...Option) (*Store, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dim)
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	s := &Store{db: db, dim: dim}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.commitDimension(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS block_vectors (
		id TEXT PRIMARY KEY,
		doc_id TEXT NOT NULL,
		source_block_id TEXT,
		content TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		block_type TEXT,
		heading_context TEXT,
		file_path TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_block_vectors_doc ON block_vectors(doc_id);
	CREATE INDEX IF NOT EXISTS idx_block_vectors_type ON block_vectors(block_type);

	CREATE TABLE IF NOT EXISTS vector_index (
		id TEXT PRIMARY KEY,
		embedding BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS store_config (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		block_key TEXT PRIMARY KEY,
		doc_id TEXT NOT NULL,
		content TEXT NOT NULL,
		updated_at TIMESTAMP
	);
	`
	_, err := db.Exec(schema)
	return err
}

// commitDimension verifies the stored dimension against the active one and
// performs the destructive rebuild on mismatch.
func (s *Store) commitDimension() error {
	var stored string
	err := s.db.QueryRow(`SELECT value FROM store_config WHERE key = ?`, configKeyDimension).Scan(&stored)
	switch {
	case err == sql.ErrNoRows:
		// first open: commit the active dimension
	case err != nil:
		return fmt.Errorf("read committed dimension: %w", err)
	default:
		prev, convErr := strconv.Atoi(stored)
		if convErr == nil && prev == s.dim {
			return nil
		}
		if s.logger != nil {
			s.logger.Warn("embedding dimension changed, clearing store",
				zap.String("committed", stored), zap.Int("active", s.dim))
		}
		if _, err := s.db.Exec(`DELETE FROM block_vectors`); err != nil {
			return fmt.Errorf("clear metadata: %w", err)
		}
		if _, err := s.db.Exec(`DELETE FROM vector_index`); err != nil {
			return fmt.Errorf("clear vectors: %w", err)
		}
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO store_config (key, value) VALUES (?, ?)`,
		configKeyDimension, strconv.Itoa(s.dim),
	)
	if err != nil {
		return fmt.Errorf("commit dimension: %w", err)
	}
	return nil
}

// Dimension returns the committed embedding dimension.
func (s *Store) Dimension() int { return s.dim }

// Upsert writes one chunk's metadata and vector atomically: metadata replace
// plus vector delete-then-insert, rolled back together on failure.
func (s *Store) Upsert(ctx context.Context, bv *models.BlockVector) error {
	if len(bv.Embedding) != s.dim {
		return fmt.Errorf("embedding dimension mismatch: got %d, store has %d", len(bv.Embedding), s.dim)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO block_vectors
		 (id, doc_id, source_block_id, content, content_hash, block_type, heading_context, file_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		bv.ID, bv.DocID, bv.SourceBlockID, bv.Content, bv.ContentHash,
		bv.BlockType, bv.HeadingContext, bv.FilePath,
	)
	if err != nil {
		return fmt.Errorf("upsert metadata: %w", err)
	}
	// The vector table has no native upsert semantics worth relying on across
	// schema versions; delete-then-insert keeps the pair consistent.
	if _, err := tx.ExecContext(ctx, `DELETE FROM vector_index WHERE id = ?`, bv.ID); err != nil {
		return fmt.Errorf("delete stale vector: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO vector_index (id, embedding) VALUES (?, ?)`,
		bv.ID, encodeVector(bv.Embedding),
	)
	if err != nil {
		return fmt.Errorf("insert vector: %w", err)
	}
	return tx.Commit()
}

// Get returns one stored chunk (without its embedding).
func (s *Store) Get(ctx context.Context, id string) (*models.BlockVector, error) {
	var bv models.BlockVector
	err := s.db.QueryRowContext(ctx,
		`SELECT id, doc_id, source_block_id, content, content_hash, block_type, heading_context, file_path
		 FROM block_vectors WHERE id = ?`, id,
	).Scan(&bv.ID, &bv.DocID, &bv.SourceBlockID, &bv.Content, &bv.ContentHash,
		&bv.BlockType, &bv.HeadingContext, &bv.FilePath)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("chunk %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &bv, nil
}

// DocumentHashes returns id -> content hash for a document's in-document
// chunks (external chunks excluded). This is what the incremental indexer
// diffs against.
func (s *Store) DocumentHashes(ctx context.Context, docID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content_hash FROM block_vectors
		 WHERE doc_id = ? AND block_type NOT IN (?, ?, ?)`,
		docID, externalTypes[0], externalTypes[1], externalTypes[2],
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hashes := make(map[string]string)
	for rows.Next() {
		var id, hash string
		if err := rows.Scan(&id, &hash); err != nil {
			return nil, err
		}
		hashes[id] = hash
	}
	return hashes, rows.Err()
}

// ExternalBlockIDs returns the distinct source block IDs of a document's
// external chunks, used for orphan cleanup.
func (s *Store) ExternalBlockIDs(ctx context.Context, docID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT source_block_id FROM block_vectors
		 WHERE doc_id = ? AND block_type IN (?, ?, ?)`,
		docID, externalTypes[0], externalTypes[1], externalTypes[2],
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DocIDs returns every document ID with at least one stored chunk.
func (s *Store) DocIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT doc_id FROM block_vectors`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteByID removes one chunk and its vector.
func (s *Store) DeleteByID(ctx context.Context, id string) error {
	return s.deleteWhere(ctx, `id = ?`, id)
}

// DeleteByIDs removes the given chunks and their vectors in one transaction.
func (s *Store) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM vector_index WHERE id = ?`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM block_vectors WHERE id = ?`, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeleteByPrefix removes every chunk whose ID starts with prefix. Used when
// one external block is re-processed.
func (s *Store) DeleteByPrefix(ctx context.Context, prefix string) error {
	return s.deleteWhere(ctx, `id LIKE ? ESCAPE '\'`, likePrefix(prefix))
}

// DeleteByDoc purges a whole document: chunks, vectors, and snapshots.
func (s *Store) DeleteByDoc(ctx context.Context, docID string) error {
	if err := s.deleteWhere(ctx, `doc_id = ?`, docID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE doc_id = ?`, docID)
	return err
}

// DeleteByDocExceptExternal removes a document's in-document chunks, leaving
// bookmark/file/folder chunks intact so in-document re-chunking never disturbs
// externally-indexed knowledge.
func (s *Store) DeleteByDocExceptExternal(ctx context.Context, docID string) error {
	return s.deleteWhere(ctx,
		`doc_id = ? AND block_type NOT IN (?, ?, ?)`,
		docID, externalTypes[0], externalTypes[1], externalTypes[2],
	)
}

// deleteWhere removes matching rows from both tables atomically.
func (s *Store) deleteWhere(ctx context.Context, cond string, args ...interface{}) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM vector_index WHERE id IN (SELECT id FROM block_vectors WHERE `+cond+`)`,
		args...); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM block_vectors WHERE `+cond, args...); err != nil {
		return err
	}
	return tx.Commit()
}

func likePrefix(prefix string) string {
	escaped := ""
	for _, r := range prefix {
		if r == '%' || r == '_' || r == '\\' {
			escaped += `\`
		}
		escaped += string(r)
	}
	return escaped + "%"
}

// SaveSnapshot persists the raw pre-chunking content of one external block,
// keyed by its composite block key.
func (s *Store) SaveSnapshot(ctx context.Context, blockKey, docID, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO snapshots (block_key, doc_id, content, updated_at) VALUES (?, ?, ?, ?)`,
		blockKey, docID, content, time.Now(),
	)
	return err
}

// GetSnapshot returns the raw content stored for an external block key.
func (s *Store) GetSnapshot(ctx context.Context, blockKey string) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM snapshots WHERE block_key = ?`, blockKey,
	).Scan(&content)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("snapshot %s: %w", blockKey, ErrNotFound)
	}
	return content, err
}

// DeleteSnapshotsByPrefix removes snapshots whose block key starts with prefix.
func (s *Store) DeleteSnapshotsByPrefix(ctx context.Context, prefix string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE block_key LIKE ? ESCAPE '\'`, likePrefix(prefix))
	return err
}

// Stats reports what is currently indexed.
func (s *Store) Stats(ctx context.Context) (*models.IndexStats, error) {
	stats := &models.IndexStats{}
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT doc_id) FROM block_vectors WHERE block_type NOT IN (?, ?, ?)`,
		externalTypes[0], externalTypes[1], externalTypes[2],
	).Scan(&stats.Documents)
	if err != nil {
		return nil, err
	}
	for _, q := range []struct {
		blockType string
		dst       *int
	}{
		{models.BlockTypeBookmark, &stats.Bookmarks},
		{models.BlockTypeFile, &stats.Files},
		{models.BlockTypeFolder, &stats.Folders},
	} {
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(DISTINCT source_block_id) FROM block_vectors WHERE block_type = ?`,
			q.blockType,
		).Scan(q.dst)
		if err != nil {
			return nil, err
		}
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM block_vectors`).Scan(&stats.Chunks); err != nil {
		return nil, err
	}
	return stats, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
