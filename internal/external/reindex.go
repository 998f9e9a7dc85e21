package external

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notable-labs/noteseek/internal/models"
)

// Ref identifies one external block to (re)index.
type Ref struct {
	DocID    string `json:"docId"`
	BlockID  string `json:"blockId"`
	Kind     string `json:"kind"`   // bookmark, file, or folder
	Target   string `json:"target"` // URL or filesystem path
	MaxDepth int    `json:"maxDepth,omitempty"`
}

// ReindexAll re-indexes the given external blocks, reporting progress after
// each one. Failures are collected, never fatal to the batch.
func (idx *Indexer) ReindexAll(ctx context.Context, refs []Ref, progress models.ProgressFunc) (*models.ReindexSummary, error) {
	runID := uuid.New().String()
	summary := &models.ReindexSummary{RunID: runID, Total: len(refs)}
	if idx.logger != nil {
		idx.logger.Info("external reindex started", zap.String("run_id", runID), zap.Int("blocks", len(refs)))
	}
	for i, ref := range refs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := idx.indexRef(ctx, ref); err != nil {
			summary.Failed++
			summary.FailedDocs = append(summary.FailedDocs, blockPrefix(ref.DocID, ref.BlockID)+ref.Kind)
			if idx.logger != nil {
				idx.logger.Error("external block reindex failed",
					zap.String("run_id", runID),
					zap.String("doc_id", ref.DocID), zap.String("block_id", ref.BlockID),
					zap.String("kind", ref.Kind), zap.Error(err))
			}
		} else {
			summary.Succeeded++
		}
		if progress != nil {
			progress(i+1, len(refs))
		}
	}
	return summary, nil
}

func (idx *Indexer) indexRef(ctx context.Context, ref Ref) error {
	switch ref.Kind {
	case models.BlockTypeBookmark:
		return idx.IndexBookmark(ctx, ref.DocID, ref.BlockID, ref.Target)
	case models.BlockTypeFile:
		return idx.IndexFile(ctx, ref.DocID, ref.BlockID, ref.Target)
	case models.BlockTypeFolder:
		_, err := idx.IndexFolder(ctx, ref.DocID, ref.BlockID, ref.Target, ref.MaxDepth)
		return err
	default:
		return fmt.Errorf("unknown external block kind: %q", ref.Kind)
	}
}
