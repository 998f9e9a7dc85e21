package external

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/notable-labs/noteseek/internal/models"
)

// DefaultMaxDepth caps folder recursion when no depth is configured.
const DefaultMaxDepth = 5

// FolderConfig governs folder indexing.
type FolderConfig struct {
	MaxDepth   int
	Extensions []string // whitelist, with leading dots
	SkipDirs   []string // directory names skipped in addition to hidden ones
}

func (c *FolderConfig) applyDefaults() {
	if c.MaxDepth <= 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	if len(c.Extensions) == 0 {
		c.Extensions = []string{".md", ".markdown", ".txt", ".rst", ".pdf", ".docx", ".odt", ".xlsx"}
	}
	if len(c.SkipDirs) == 0 {
		c.SkipDirs = []string{"node_modules", "vendor", "target", "dist", "build", "__pycache__"}
	}
}

func (c *FolderConfig) extensionAllowed(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, a := range c.Extensions {
		if strings.ToLower(a) == ext {
			return true
		}
	}
	return false
}

func (c *FolderConfig) skipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, d := range c.SkipDirs {
		if name == d {
			return true
		}
	}
	return false
}

// pathKey derives a stable per-file sub-ID component from the file's path
// relative to the folder root.
func pathKey(rel string) string {
	sum := sha256.Sum256([]byte(filepath.ToSlash(rel)))
	return hex.EncodeToString(sum[:])[:12]
}

// IndexFolder walks dir up to maxDepth (folder config default when zero),
// skipping hidden and vendor directories, and indexes each whitelisted file
// under a per-file sub-ID. Unreadable or unsupported files are recorded in the
// result without aborting the walk.
func (idx *Indexer) IndexFolder(ctx context.Context, docID, blockID, dir string, maxDepth int) (*models.FolderIndexResult, error) {
	if idx.extractor == nil {
		return nil, fmt.Errorf("no content extractor configured")
	}
	if maxDepth <= 0 {
		maxDepth = idx.folders.MaxDepth
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve folder path: %w", err)
	}

	if err := idx.clearBlock(ctx, docID, blockID); err != nil {
		return nil, err
	}

	result := &models.FolderIndexResult{}
	walkErr := filepath.WalkDir(absDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		rel, relErr := filepath.Rel(absDir, path)
		if relErr != nil {
			return nil
		}
		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if idx.folders.skipDir(d.Name()) {
				return fs.SkipDir
			}
			if strings.Count(rel, string(filepath.Separator))+1 >= maxDepth {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !idx.folders.extensionAllowed(path) {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		result.TotalFiles++
		if err := idx.indexFolderFile(ctx, docID, blockID, path, rel); err != nil {
			result.FailedCount++
			result.FailedFiles = append(result.FailedFiles, rel)
			if idx.logger != nil {
				idx.logger.Warn("folder file skipped",
					zap.String("doc_id", docID), zap.String("block_id", blockID),
					zap.String("file", rel), zap.Error(err))
			}
			return nil
		}
		result.SuccessCount++
		return nil
	})
	if walkErr != nil {
		return result, fmt.Errorf("walk folder %s: %w", absDir, walkErr)
	}
	if idx.logger != nil {
		idx.logger.Debug("folder indexed",
			zap.String("doc_id", docID), zap.String("block_id", blockID),
			zap.String("dir", absDir),
			zap.Int("total", result.TotalFiles),
			zap.Int("ok", result.SuccessCount),
			zap.Int("failed", result.FailedCount))
	}
	return result, nil
}

func (idx *Indexer) indexFolderFile(ctx context.Context, docID, blockID, path, rel string) error {
	text, err := idx.extractor.ExtractText(path)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	key := fmt.Sprintf("%s_%s", blockKey(docID, blockID, models.BlockTypeFolder), pathKey(rel))
	if err := idx.store.SaveSnapshot(ctx, key, docID, text); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	_, err = idx.indexText(ctx, docID, blockID, key, models.BlockTypeFolder, path, text)
	return err
}
