// Package service wires the indexing and search components together behind a
// single facade and supports atomic reconfiguration of the embedding provider.
package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/notable-labs/noteseek/internal/blocks"
	"github.com/notable-labs/noteseek/internal/chunker"
	"github.com/notable-labs/noteseek/internal/config"
	"github.com/notable-labs/noteseek/internal/embedding"
	"github.com/notable-labs/noteseek/internal/external"
	"github.com/notable-labs/noteseek/internal/extract"
	"github.com/notable-labs/noteseek/internal/fetch"
	"github.com/notable-labs/noteseek/internal/graph"
	"github.com/notable-labs/noteseek/internal/indexer"
	"github.com/notable-labs/noteseek/internal/models"
	"github.com/notable-labs/noteseek/internal/noterepo"
	"github.com/notable-labs/noteseek/internal/search"
	"github.com/notable-labs/noteseek/internal/storage"
)

// FolderWatcher receives folder block roots as they are indexed, so later
// filesystem changes under a root trigger an automatic re-index.
type FolderWatcher interface {
	AddFolder(ref external.Ref) error
}

// Service owns the component graph. All methods are safe for concurrent use;
// Reconfigure swaps the embedder and store atomically under the write lock.
type Service struct {
	mu       sync.RWMutex
	cfg      *config.Config
	repo     *noterepo.Repository
	store    *storage.Store
	embedder embedding.Embedder
	indexer  *indexer.Indexer
	external *external.Indexer
	searcher *search.Searcher
	graph    *graph.Builder
	watcher  FolderWatcher
	logger   *zap.Logger
}

// New builds the service from configuration. The embedding dimension is
// detected from the provider when not configured, which requires the provider
// to be reachable at startup.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Service, error) {
	repo, err := noterepo.New(cfg.Storage.NotesDir)
	if err != nil {
		return nil, err
	}
	s := &Service{repo: repo, logger: logger}
	if err := s.configure(ctx, cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// configure builds the embedder, store, and dependent components for cfg.
// Caller must hold the write lock (or be the constructor).
func (s *Service) configure(ctx context.Context, cfg *config.Config) error {
	embedder, err := embedding.NewProvider(embedding.Settings{
		Provider:   cfg.Embedding.Provider,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		APIKey:     cfg.Embedding.APIKey,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    cfg.Embedding.Timeout(),
	})
	if err != nil {
		return fmt.Errorf("create embedding provider: %w", err)
	}

	dim := embedder.Dimensions()
	if dim == 0 {
		dim, err = embedder.DetectDimension(ctx)
		if err != nil {
			_ = embedder.Close()
			return fmt.Errorf("detect embedding dimension: %w", err)
		}
	}

	store, err := storage.Open(cfg.Storage.DatabasePath, dim, storage.WithLogger(s.logger))
	if err != nil {
		_ = embedder.Close()
		return fmt.Errorf("open vector store: %w", err)
	}

	ch := chunker.New(cfg.ChunkConfig())
	s.cfg = cfg
	s.embedder = embedder
	s.store = store
	s.indexer = indexer.New(store, embedder, ch, indexer.WithLogger(s.logger))
	s.external = external.New(
		store, embedder, ch,
		extract.NewExtractor(),
		fetch.NewHTTPFetcher(0),
		external.FolderConfig{
			MaxDepth:   cfg.Folders.MaxDepth,
			Extensions: cfg.Folders.Extensions,
			SkipDirs:   cfg.Folders.SkipDirs,
		},
		external.WithLogger(s.logger),
	)
	s.searcher = search.New(store, embedder, search.WithLogger(s.logger))
	s.graph = graph.New(store, cfg.Graph.Threshold, graph.WithLogger(s.logger))

	if s.logger != nil {
		s.logger.Info("service configured",
			zap.String("provider", cfg.Embedding.Provider),
			zap.String("model", cfg.Embedding.Model),
			zap.Int("dimensions", dim))
	}
	return nil
}

// Reconfigure swaps the embedding configuration. The store is reopened with
// the new provider's dimension; a dimension change clears all vectors and the
// caller should trigger a full reindex afterwards.
func (s *Service) Reconfigure(ctx context.Context, cfg *config.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := struct {
		store    *storage.Store
		embedder embedding.Embedder
	}{s.store, s.embedder}

	if err := s.configure(ctx, cfg); err != nil {
		return err
	}
	if old.store != nil {
		_ = old.store.Close()
	}
	if old.embedder != nil {
		_ = old.embedder.Close()
	}
	return nil
}

// Config returns the active configuration.
func (s *Service) Config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Repo returns the note repository.
func (s *Service) Repo() *noterepo.Repository {
	return s.repo
}

// IndexDocument parses and incrementally indexes one document's raw JSON.
func (s *Service) IndexDocument(ctx context.Context, docID string, data []byte) error {
	doc, err := blocks.ParseDocument(docID, data)
	if err != nil {
		return fmt.Errorf("parse document %s: %w", docID, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexer.IndexDocument(ctx, docID, doc.Blocks)
}

// DeleteDocument removes a document's chunks and snapshots.
func (s *Service) DeleteDocument(ctx context.Context, docID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexer.DeleteDocument(ctx, docID)
}

// ReindexAll re-indexes the whole corpus from the note repository. force
// rebuilds every document regardless of stored content hashes, which is
// needed after a chunking-config change.
func (s *Service) ReindexAll(ctx context.Context, force bool, progress models.ProgressFunc) (*models.ReindexSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexer.ReindexAll(ctx, s.repo, force, progress)
}

// SearchChunks runs a chunk-level query.
func (s *Service) SearchChunks(ctx context.Context, query string, limit int, filter *storage.SearchFilter) ([]models.ChunkMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.searcher.SearchChunks(ctx, query, limit, filter)
}

// SearchDocuments runs a document-level query.
func (s *Service) SearchDocuments(ctx context.Context, query string, limit int) ([]models.DocumentSearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.searcher.SearchDocuments(ctx, query, limit)
}

// RelatedDocuments finds documents related to content, excluding its source.
func (s *Service) RelatedDocuments(ctx context.Context, content, excludeDocID string, limit int) ([]models.DocumentSearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.searcher.RelatedDocuments(ctx, content, excludeDocID, limit)
}

// Graph builds the document similarity graph with current tags.
func (s *Service) Graph(ctx context.Context) (*models.GraphData, error) {
	docs, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.Build(ctx, docs)
}

// IndexBookmark indexes one bookmark block.
func (s *Service) IndexBookmark(ctx context.Context, docID, blockID, url string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.external.IndexBookmark(ctx, docID, blockID, url)
}

// IndexFile indexes one file block.
func (s *Service) IndexFile(ctx context.Context, docID, blockID, path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.external.IndexFile(ctx, docID, blockID, path)
}

// IndexFolder indexes one folder block. On success the folder root is
// registered with the watcher (when one is attached), so filesystem changes
// keep the index current.
func (s *Service) IndexFolder(ctx context.Context, docID, blockID, dir string, maxDepth int) (*models.FolderIndexResult, error) {
	s.mu.RLock()
	result, err := s.external.IndexFolder(ctx, docID, blockID, dir, maxDepth)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	s.watchFolder(external.Ref{
		DocID:    docID,
		BlockID:  blockID,
		Kind:     models.BlockTypeFolder,
		Target:   dir,
		MaxDepth: maxDepth,
	})
	return result, nil
}

// SetFolderWatcher attaches a watcher that receives indexed folder roots.
func (s *Service) SetFolderWatcher(w FolderWatcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watcher = w
}

func (s *Service) watchFolder(ref external.Ref) {
	s.mu.RLock()
	w := s.watcher
	s.mu.RUnlock()
	if w == nil {
		return
	}
	if err := w.AddFolder(ref); err != nil && s.logger != nil {
		s.logger.Warn("watch folder failed",
			zap.String("dir", ref.Target), zap.Error(err))
	}
}

// WatchedFolders scans the note repository for folder blocks and returns their
// references, so a restarted server can re-register persisted folder roots
// with the watcher.
func (s *Service) WatchedFolders(ctx context.Context) ([]external.Ref, error) {
	docRefs, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	var refs []external.Ref
	for _, dr := range docRefs {
		raw, err := s.repo.Load(ctx, dr.ID)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("load document for folder scan failed",
					zap.String("doc_id", dr.ID), zap.Error(err))
			}
			continue
		}
		doc, err := blocks.ParseDocument(dr.ID, raw)
		if err != nil {
			continue
		}
		refs = append(refs, collectFolderRefs(dr.ID, doc.Blocks)...)
	}
	return refs, nil
}

func collectFolderRefs(docID string, blks []models.Block) []external.Ref {
	var refs []external.Ref
	for _, blk := range blks {
		if blk.Type == models.BlockTypeFolder && blk.TextContent != "" {
			refs = append(refs, external.Ref{
				DocID:   docID,
				BlockID: blk.ID,
				Kind:    models.BlockTypeFolder,
				Target:  blk.TextContent,
			})
		}
		refs = append(refs, collectFolderRefs(docID, blk.Children)...)
	}
	return refs
}

// ReindexExternal re-indexes a batch of external blocks.
func (s *Service) ReindexExternal(ctx context.Context, refs []external.Ref, progress models.ProgressFunc) (*models.ReindexSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.external.ReindexAll(ctx, refs, progress)
}

// Snapshot returns the raw text captured for an external block key.
func (s *Service) Snapshot(ctx context.Context, blockKey string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.GetSnapshot(ctx, blockKey)
}

// Stats reports index counts.
func (s *Service) Stats(ctx context.Context) (*models.IndexStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Stats(ctx)
}

// Close releases the store and embedder.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			firstErr = err
		}
		s.store = nil
	}
	if s.embedder != nil {
		if err := s.embedder.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.embedder = nil
	}
	return firstErr
}
