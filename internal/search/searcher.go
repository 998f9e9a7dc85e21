// Package search provides chunk-level and document-level semantic search over
// the vector store.
package search

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/notable-labs/noteseek/internal/embedding"
	"github.com/notable-labs/noteseek/internal/models"
	"github.com/notable-labs/noteseek/internal/storage"
)

// maxChunksPerDocument caps how many chunk matches each document keeps in
// document-level results.
const maxChunksPerDocument = 3

// defaultLimit applies when the caller passes a non-positive limit.
const defaultLimit = 10

// Searcher answers similarity queries.
type Searcher struct {
	store    *storage.Store
	embedder embedding.Embedder
	logger   *zap.Logger
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(s *Searcher) { s.logger = l }
}

// New creates a searcher.
func New(store *storage.Store, embedder embedding.Embedder, opts ...Option) *Searcher {
	s := &Searcher{store: store, embedder: embedder}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SearchChunks embeds the query and returns the closest chunks, ranked by
// similarity = 1 - cosine distance. filter may scope the search to one
// document or source block, or exclude a document.
func (s *Searcher) SearchChunks(ctx context.Context, query string, limit int, filter *storage.SearchFilter) ([]models.ChunkMatch, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	emb, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := s.store.Search(ctx, emb, limit, filter)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	matches := make([]models.ChunkMatch, 0, len(hits))
	for _, h := range hits {
		matches = append(matches, toMatch(h))
	}
	if s.logger != nil {
		s.logger.Debug("chunk search", zap.String("query", query), zap.Int("hits", len(matches)))
	}
	return matches, nil
}

// SearchDocuments runs a document-level search: chunk hits are over-fetched
// (naive top-k under-represents documents whose best chunk ranks just outside
// a small k), grouped by document, and ranked by each document's best score.
func (s *Searcher) SearchDocuments(ctx context.Context, query string, limit int) ([]models.DocumentSearchResult, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	emb, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	fetchK := limit * 5
	if fetchK < 20 {
		fetchK = 20
	}
	hits, err := s.store.Search(ctx, emb, fetchK, nil)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return aggregateByDocument(hits, limit), nil
}

// RelatedDocuments ranks documents related to arbitrary content (typically a
// whole note), excluding the source document itself. The over-fetch factor is
// larger than SearchDocuments' because an entire document's hits are filtered
// out after retrieval.
func (s *Searcher) RelatedDocuments(ctx context.Context, content, excludeDocID string, limit int) ([]models.DocumentSearchResult, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	emb, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	fetchK := limit * 8
	if fetchK < 30 {
		fetchK = 30
	}
	hits, err := s.store.Search(ctx, emb, fetchK, &storage.SearchFilter{ExcludeDocID: excludeDocID})
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return aggregateByDocument(hits, limit), nil
}

// aggregateByDocument groups chunk hits by document, keeps each document's
// best score and top chunks, and ranks documents by best score descending.
func aggregateByDocument(hits []storage.SearchHit, limit int) []models.DocumentSearchResult {
	byDoc := make(map[string]*models.DocumentSearchResult)
	var order []string
	for _, h := range hits {
		m := toMatch(h)
		doc, ok := byDoc[h.DocID]
		if !ok {
			doc = &models.DocumentSearchResult{DocID: h.DocID}
			byDoc[h.DocID] = doc
			order = append(order, h.DocID)
		}
		if m.Similarity > doc.Score {
			doc.Score = m.Similarity
		}
		doc.Chunks = append(doc.Chunks, m)
	}

	results := make([]models.DocumentSearchResult, 0, len(order))
	for _, docID := range order {
		doc := byDoc[docID]
		sort.Slice(doc.Chunks, func(i, j int) bool {
			return doc.Chunks[i].Similarity > doc.Chunks[j].Similarity
		})
		if len(doc.Chunks) > maxChunksPerDocument {
			doc.Chunks = doc.Chunks[:maxChunksPerDocument]
		}
		results = append(results, *doc)
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func toMatch(h storage.SearchHit) models.ChunkMatch {
	return models.ChunkMatch{
		ID:             h.ID,
		DocID:          h.DocID,
		Content:        h.Content,
		BlockType:      h.BlockType,
		HeadingContext: h.HeadingContext,
		FilePath:       h.FilePath,
		Similarity:     1 - h.Distance,
		SourceBlockID:  ResolveSourceBlock(&h.BlockVector),
	}
}
