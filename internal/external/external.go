// Package external indexes out-of-document content (bookmarks, files, and
// folders) into the same vector store as in-document chunks, under
// deterministic composite IDs so re-indexing never duplicates.
package external

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/notable-labs/noteseek/internal/chunker"
	"github.com/notable-labs/noteseek/internal/embedding"
	"github.com/notable-labs/noteseek/internal/fetch"
	"github.com/notable-labs/noteseek/internal/models"
	"github.com/notable-labs/noteseek/internal/storage"
)

// ContentExtractor is the binary-format text extraction collaborator.
type ContentExtractor interface {
	ExtractText(path string) (string, error)
}

// Indexer chunks and embeds external content via the paragraph pipeline.
type Indexer struct {
	store     *storage.Store
	embedder  embedding.Embedder
	chunker   *chunker.Chunker
	extractor ContentExtractor
	fetcher   fetch.WebFetcher
	folders   FolderConfig
	logger    *zap.Logger
}

// Option configures an external Indexer.
type Option func(*Indexer)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(idx *Indexer) { idx.logger = l }
}

// New creates an external content indexer.
func New(
	store *storage.Store,
	embedder embedding.Embedder,
	ch *chunker.Chunker,
	extractor ContentExtractor,
	fetcher fetch.WebFetcher,
	folders FolderConfig,
	opts ...Option,
) *Indexer {
	folders.applyDefaults()
	idx := &Indexer{
		store:     store,
		embedder:  embedder,
		chunker:   ch,
		extractor: extractor,
		fetcher:   fetcher,
		folders:   folders,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// blockKey is the composite ID prefix for one external block's chunks.
func blockKey(docID, blockID, kind string) string {
	return fmt.Sprintf("%s_%s_%s", docID, blockID, kind)
}

// blockPrefix covers every chunk and snapshot of one external block,
// regardless of kind, so a block changing kind leaves nothing behind.
func blockPrefix(docID, blockID string) string {
	return fmt.Sprintf("%s_%s_", docID, blockID)
}

// IndexBookmark fetches a bookmarked page and indexes its readable content.
// The raw text is snapshotted before chunking for verbatim retrieval.
func (idx *Indexer) IndexBookmark(ctx context.Context, docID, blockID, url string) error {
	if idx.fetcher == nil {
		return fmt.Errorf("no web fetcher configured")
	}
	content, err := idx.fetcher.FetchContent(ctx, url)
	if err != nil {
		return fmt.Errorf("fetch bookmark %s: %w", url, err)
	}
	text := content.TextContent
	if content.Title != "" {
		text = content.Title + "\n" + content.SiteName + "\n\n" + text
	}

	if err := idx.clearBlock(ctx, docID, blockID); err != nil {
		return err
	}
	key := blockKey(docID, blockID, models.BlockTypeBookmark)
	if err := idx.store.SaveSnapshot(ctx, key, docID, text); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	n, err := idx.indexText(ctx, docID, blockID, key, models.BlockTypeBookmark, "", text)
	if err != nil {
		return err
	}
	if idx.logger != nil {
		idx.logger.Debug("bookmark indexed",
			zap.String("doc_id", docID), zap.String("block_id", blockID),
			zap.String("url", url), zap.Int("chunks", n))
	}
	return nil
}

// IndexFile extracts and indexes one attached file.
func (idx *Indexer) IndexFile(ctx context.Context, docID, blockID, path string) error {
	if idx.extractor == nil {
		return fmt.Errorf("no content extractor configured")
	}
	text, err := idx.extractor.ExtractText(path)
	if err != nil {
		return fmt.Errorf("extract %s: %w", path, err)
	}

	if err := idx.clearBlock(ctx, docID, blockID); err != nil {
		return err
	}
	key := blockKey(docID, blockID, models.BlockTypeFile)
	if err := idx.store.SaveSnapshot(ctx, key, docID, text); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	n, err := idx.indexText(ctx, docID, blockID, key, models.BlockTypeFile, path, text)
	if err != nil {
		return err
	}
	if idx.logger != nil {
		idx.logger.Debug("file indexed",
			zap.String("doc_id", docID), zap.String("block_id", blockID),
			zap.String("path", path), zap.Int("chunks", n))
	}
	return nil
}

// clearBlock prefix-deletes an external block's previous chunks and snapshots,
// so re-indexing the same block is delete-then-insert.
func (idx *Indexer) clearBlock(ctx context.Context, docID, blockID string) error {
	prefix := blockPrefix(docID, blockID)
	if err := idx.store.DeleteByPrefix(ctx, prefix); err != nil {
		return fmt.Errorf("clear external block %s: %w", prefix, err)
	}
	if err := idx.store.DeleteSnapshotsByPrefix(ctx, prefix); err != nil {
		return fmt.Errorf("clear external snapshots %s: %w", prefix, err)
	}
	return nil
}

// indexText chunks text with the paragraph pipeline and upserts the chunks
// under key. Returns the number of chunks written; errors only when every
// chunk failed (partial success is accepted and recorded).
func (idx *Indexer) indexText(ctx context.Context, docID, blockID, key, blockType, filePath, text string) (int, error) {
	extracted := idx.chunker.ChunkText(key, blockID, blockType, text)
	if len(extracted) == 0 {
		return 0, nil
	}
	texts := make([]string, len(extracted))
	for i, eb := range extracted {
		texts[i] = eb.Content
	}
	vecs, failed, err := embedding.EmbedAllowingFailures(ctx, idx.embedder, texts)
	if err != nil {
		return 0, fmt.Errorf("embed %s: %w", key, err)
	}
	succeeded := 0
	for i, eb := range extracted {
		if vecs[i] == nil {
			continue
		}
		bv := &models.BlockVector{
			ID:            eb.ID,
			SourceBlockID: blockID,
			DocID:         docID,
			Content:       eb.Content,
			ContentHash:   chunker.ContentHash(eb.Content, ""),
			BlockType:     blockType,
			FilePath:      filePath,
			Embedding:     vecs[i],
		}
		if err := idx.store.Upsert(ctx, bv); err != nil {
			return succeeded, fmt.Errorf("upsert chunk %s: %w", eb.ID, err)
		}
		succeeded++
	}
	if succeeded == 0 {
		return 0, fmt.Errorf("%s: all %d chunks failed to embed (%d failures)", key, len(extracted), failed)
	}
	return succeeded, nil
}
