package storage

import (
	"context"
	"fmt"
	"sort"

	"github.com/notable-labs/noteseek/internal/models"
	"github.com/notable-labs/noteseek/internal/vector"
)

// SearchFilter scopes a similarity search. At most one of DocID and
// ExcludeDocID should be set; SourceBlockID may combine with DocID.
type SearchFilter struct {
	DocID         string // only chunks of this document
	SourceBlockID string // only chunks tracing back to this block
	ExcludeDocID  string // everything except this document
}

// SearchHit is one nearest-neighbor match with its cosine distance.
type SearchHit struct {
	models.BlockVector
	Distance float64
}

// Search returns the k nearest chunks to query by cosine distance, optionally
// filtered. Brute-force over the vector table; fine at personal-corpus scale.
func (s *Store) Search(ctx context.Context, query []float32, k int, filter *SearchFilter) ([]SearchHit, error) {
	if len(query) != s.dim {
		return nil, fmt.Errorf("query dimension mismatch: got %d, store has %d", len(query), s.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	sqlQuery := `SELECT m.id, m.doc_id, m.source_block_id, m.content, m.content_hash,
		m.block_type, m.heading_context, m.file_path, v.embedding
		FROM block_vectors m JOIN vector_index v ON v.id = m.id`
	var args []interface{}
	var conds []string
	if filter != nil {
		if filter.DocID != "" {
			conds = append(conds, `m.doc_id = ?`)
			args = append(args, filter.DocID)
		}
		if filter.SourceBlockID != "" {
			conds = append(conds, `m.source_block_id = ?`)
			args = append(args, filter.SourceBlockID)
		}
		if filter.ExcludeDocID != "" {
			conds = append(conds, `m.doc_id != ?`)
			args = append(args, filter.ExcludeDocID)
		}
	}
	for i, c := range conds {
		if i == 0 {
			sqlQuery += ` WHERE ` + c
		} else {
			sqlQuery += ` AND ` + c
		}
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var bv models.BlockVector
		var blob []byte
		if err := rows.Scan(&bv.ID, &bv.DocID, &bv.SourceBlockID, &bv.Content, &bv.ContentHash,
			&bv.BlockType, &bv.HeadingContext, &bv.FilePath, &blob); err != nil {
			return nil, err
		}
		emb, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", bv.ID, err)
		}
		bv.Embedding = emb
		hits = append(hits, SearchHit{BlockVector: bv, Distance: vector.CosineDistance(query, emb)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// ChunkVector is one chunk's identity and embedding, for graph building.
type ChunkVector struct {
	ID            string
	DocID         string
	SourceBlockID string
	BlockType     string
	Embedding     []float32
}

// ChunkVectors returns every stored chunk's embedding with enough identity to
// group chunks into graph entities.
func (s *Store) ChunkVectors(ctx context.Context) ([]ChunkVector, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, m.doc_id, m.source_block_id, m.block_type, v.embedding
		 FROM block_vectors m JOIN vector_index v ON v.id = m.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChunkVector
	for rows.Next() {
		var cv ChunkVector
		var blob []byte
		if err := rows.Scan(&cv.ID, &cv.DocID, &cv.SourceBlockID, &cv.BlockType, &blob); err != nil {
			return nil, err
		}
		emb, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", cv.ID, err)
		}
		cv.Embedding = emb
		out = append(out, cv)
	}
	return out, rows.Err()
}
