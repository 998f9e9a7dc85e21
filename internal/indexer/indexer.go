// Package indexer drives incremental and forced re-indexing of documents into
// the vector store using content hashing.
package indexer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/notable-labs/noteseek/internal/chunker"
	"github.com/notable-labs/noteseek/internal/embedding"
	"github.com/notable-labs/noteseek/internal/models"
	"github.com/notable-labs/noteseek/internal/storage"
)

// DocumentRepository is the document storage collaborator. This core reads
// note content; it never owns document lifecycle.
type DocumentRepository interface {
	GetAll(ctx context.Context) ([]models.DocumentRef, error)
	Load(ctx context.Context, docID string) ([]byte, error)
}

// Indexer turns documents into stored chunk vectors, re-embedding only chunks
// whose content hash changed.
type Indexer struct {
	store    *storage.Store
	embedder embedding.Embedder
	chunker  *chunker.Chunker
	logger   *zap.Logger
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(idx *Indexer) { idx.logger = l }
}

// New creates an indexer with the given dependencies.
func New(store *storage.Store, embedder embedding.Embedder, ch *chunker.Chunker, opts ...Option) *Indexer {
	idx := &Indexer{store: store, embedder: embedder, chunker: ch}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IndexDocument incrementally indexes one document's block tree: extract
// chunks, diff content hashes against stored rows, embed and upsert only what
// changed, delete what disappeared, and clean up orphaned bookmark chunks.
// Re-indexing an unchanged document performs zero embedding calls and zero
// writes. The document fails only when none of its changed chunks could be
// embedded.
func (idx *Indexer) IndexDocument(ctx context.Context, docID string, blks []models.Block) error {
	extracted := idx.chunker.ExtractBlocks(blks)

	stored, err := idx.store.DocumentHashes(ctx, docID)
	if err != nil {
		return fmt.Errorf("load stored hashes: %w", err)
	}

	newIDs := make(map[string]bool, len(extracted))
	var changed []models.ExtractedBlock
	var changedHashes []string
	for _, eb := range extracted {
		newIDs[eb.ID] = true
		h := chunker.ContentHash(eb.Content, eb.HeadingContext)
		if stored[eb.ID] == h {
			continue
		}
		changed = append(changed, eb)
		changedHashes = append(changedHashes, h)
	}

	var stale []string
	for id := range stored {
		if !newIDs[id] {
			stale = append(stale, id)
		}
	}
	if err := idx.store.DeleteByIDs(ctx, stale); err != nil {
		return fmt.Errorf("delete stale chunks: %w", err)
	}

	if len(changed) > 0 {
		texts := make([]string, len(changed))
		for i, eb := range changed {
			texts[i] = eb.Content
		}
		vecs, failed, err := embedding.EmbedAllowingFailures(ctx, idx.embedder, texts)
		if err != nil {
			return fmt.Errorf("embed document %s: %w", docID, err)
		}
		succeeded := 0
		for i, eb := range changed {
			if vecs[i] == nil {
				continue
			}
			bv := &models.BlockVector{
				ID:             eb.ID,
				SourceBlockID:  eb.SourceBlockID,
				DocID:          docID,
				Content:        eb.Content,
				ContentHash:    changedHashes[i],
				BlockType:      eb.Type,
				HeadingContext: eb.HeadingContext,
				Embedding:      vecs[i],
			}
			if err := idx.store.Upsert(ctx, bv); err != nil {
				return fmt.Errorf("upsert chunk %s: %w", eb.ID, err)
			}
			succeeded++
		}
		if succeeded == 0 {
			return fmt.Errorf("document %s: all %d changed chunks failed to embed", docID, len(changed))
		}
		if idx.logger != nil {
			idx.logger.Debug("document indexed",
				zap.String("doc_id", docID),
				zap.Int("chunks", len(extracted)),
				zap.Int("embedded", succeeded),
				zap.Int("skipped", len(extracted)-len(changed)),
				zap.Int("failed", failed))
		}
	} else if idx.logger != nil {
		idx.logger.Debug("document unchanged", zap.String("doc_id", docID), zap.Int("chunks", len(extracted)))
	}

	return idx.cleanupOrphans(ctx, docID, blks)
}

// cleanupOrphans removes external chunks (and snapshots) whose bookmark, file,
// or folder block is no longer present in the document, matched by ID prefix.
func (idx *Indexer) cleanupOrphans(ctx context.Context, docID string, blks []models.Block) error {
	present := make(map[string]bool)
	collectExternalIDs(blks, present)

	storedBlocks, err := idx.store.ExternalBlockIDs(ctx, docID)
	if err != nil {
		return fmt.Errorf("list external blocks: %w", err)
	}
	for _, blockID := range storedBlocks {
		if present[blockID] {
			continue
		}
		prefix := fmt.Sprintf("%s_%s_", docID, blockID)
		if err := idx.store.DeleteByPrefix(ctx, prefix); err != nil {
			return fmt.Errorf("delete orphaned external chunks %s: %w", prefix, err)
		}
		if err := idx.store.DeleteSnapshotsByPrefix(ctx, prefix); err != nil {
			return fmt.Errorf("delete orphaned snapshots %s: %w", prefix, err)
		}
		if idx.logger != nil {
			idx.logger.Debug("orphaned external block cleaned up",
				zap.String("doc_id", docID), zap.String("block_id", blockID))
		}
	}
	return nil
}

func collectExternalIDs(blks []models.Block, out map[string]bool) {
	for _, b := range blks {
		if models.IsExternal(b.Type) {
			out[b.ID] = true
		}
		if len(b.Children) > 0 {
			collectExternalIDs(b.Children, out)
		}
	}
}

// ForceReindex discards a document's in-document chunks and rebuilds them
// unconditionally. Used after a chunking-config change, when stored hashes no
// longer correspond to the new chunk boundaries. External chunks are untouched.
func (idx *Indexer) ForceReindex(ctx context.Context, docID string, blks []models.Block) error {
	if err := idx.store.DeleteByDocExceptExternal(ctx, docID); err != nil {
		return fmt.Errorf("clear document %s: %w", docID, err)
	}
	return idx.IndexDocument(ctx, docID, blks)
}

// DeleteDocument purges every chunk and snapshot of a document.
func (idx *Indexer) DeleteDocument(ctx context.Context, docID string) error {
	if idx.logger != nil {
		idx.logger.Debug("deleting document", zap.String("doc_id", docID))
	}
	return idx.store.DeleteByDoc(ctx, docID)
}
