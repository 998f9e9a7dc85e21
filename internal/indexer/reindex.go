package indexer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notable-labs/noteseek/internal/blocks"
	"github.com/notable-labs/noteseek/internal/models"
)

// ReindexAll re-indexes the whole corpus from repo. Documents removed from the
// repository since the last run are purged first. One failed document never
// aborts the batch; it is skipped and reported in the summary. force discards
// stored hashes and rebuilds every document, which is required after a
// chunking-config change. progress, when non-nil, is called after each
// document with (current, total).
func (idx *Indexer) ReindexAll(ctx context.Context, repo DocumentRepository, force bool, progress models.ProgressFunc) (*models.ReindexSummary, error) {
	runID := uuid.New().String()
	refs, err := repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	present := make(map[string]bool, len(refs))
	for _, ref := range refs {
		present[ref.ID] = true
	}
	storedDocs, err := idx.store.DocIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indexed documents: %w", err)
	}
	for _, docID := range storedDocs {
		if present[docID] {
			continue
		}
		if err := idx.store.DeleteByDoc(ctx, docID); err != nil {
			return nil, fmt.Errorf("purge removed document %s: %w", docID, err)
		}
		if idx.logger != nil {
			idx.logger.Debug("purged removed document",
				zap.String("run_id", runID), zap.String("doc_id", docID))
		}
	}

	summary := &models.ReindexSummary{RunID: runID, Total: len(refs)}
	if idx.logger != nil {
		idx.logger.Info("reindex started", zap.String("run_id", runID), zap.Int("documents", len(refs)))
	}
	for i, ref := range refs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := idx.indexFromRepo(ctx, repo, ref.ID, force); err != nil {
			summary.Failed++
			summary.FailedDocs = append(summary.FailedDocs, ref.ID)
			if idx.logger != nil {
				idx.logger.Error("document reindex failed",
					zap.String("run_id", runID), zap.String("doc_id", ref.ID), zap.Error(err))
			}
		} else {
			summary.Succeeded++
		}
		if progress != nil {
			progress(i+1, len(refs))
		}
	}
	if idx.logger != nil {
		idx.logger.Info("reindex finished",
			zap.String("run_id", runID),
			zap.Int("succeeded", summary.Succeeded),
			zap.Int("failed", summary.Failed))
	}
	return summary, nil
}

// indexFromRepo loads and indexes one document. Malformed content degrades to
// zero chunks (clearing the document's stale rows) rather than failing.
func (idx *Indexer) indexFromRepo(ctx context.Context, repo DocumentRepository, docID string, force bool) error {
	raw, err := repo.Load(ctx, docID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	doc, err := blocks.ParseDocument(docID, raw)
	if err != nil {
		if idx.logger != nil {
			idx.logger.Warn("document content unparseable, indexing as empty",
				zap.String("doc_id", docID), zap.Error(err))
		}
		return idx.IndexDocument(ctx, docID, nil)
	}
	if force {
		return idx.ForceReindex(ctx, docID, doc.Blocks)
	}
	return idx.IndexDocument(ctx, docID, doc.Blocks)
}
