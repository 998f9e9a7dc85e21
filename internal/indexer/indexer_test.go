package indexer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/notable-labs/noteseek/internal/chunker"
	"github.com/notable-labs/noteseek/internal/embedding"
	"github.com/notable-labs/noteseek/internal/models"
	"github.com/notable-labs/noteseek/internal/storage"
)

// countingEmbedder wraps the mock and counts embedding calls, so tests can
// assert that unchanged documents cost zero calls.
type countingEmbedder struct {
	*embedding.MockEmbedder
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return c.MockEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls += len(texts)
	return c.MockEmbedder.EmbedBatch(ctx, texts)
}

func newTestIndexer(t *testing.T) (*Indexer, *storage.Store, *countingEmbedder) {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "idx.db"), 32)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	emb := &countingEmbedder{MockEmbedder: embedding.NewMockEmbedder(32)}
	idx := New(store, emb, chunker.New(models.ChunkConfig{}))
	return idx, store, emb
}

func para(id, text string) models.Block {
	return models.Block{ID: id, Type: models.BlockTypeParagraph, TextContent: text}
}

func TestIndexDocument_Basic(t *testing.T) {
	idx, store, _ := newTestIndexer(t)
	ctx := context.Background()

	blks := []models.Block{
		{ID: "h", Type: "heading1", TextContent: "Title"},
		para("p1", "some body text"),
	}
	if err := idx.IndexDocument(ctx, "doc1", blks); err != nil {
		t.Fatal(err)
	}
	hashes, err := store.DocumentHashes(ctx, "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if len(hashes) == 0 {
		t.Fatal("expected stored chunks")
	}
}

func TestIndexDocument_UnchangedIsFree(t *testing.T) {
	idx, _, emb := newTestIndexer(t)
	ctx := context.Background()

	blks := []models.Block{para("p1", "stable content"), para("p2", "more stable content")}
	if err := idx.IndexDocument(ctx, "doc1", blks); err != nil {
		t.Fatal(err)
	}
	before := emb.calls
	if before == 0 {
		t.Fatal("first pass should embed")
	}

	if err := idx.IndexDocument(ctx, "doc1", blks); err != nil {
		t.Fatal(err)
	}
	if emb.calls != before {
		t.Errorf("unchanged document cost %d embedding calls", emb.calls-before)
	}
}

func TestIndexDocument_OnlyChangedReembedded(t *testing.T) {
	// Thresholds of 1 keep each paragraph its own chunk, so the diff is visible.
	store, err := storage.Open(filepath.Join(t.TempDir(), "d.db"), 32)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	emb := &countingEmbedder{MockEmbedder: embedding.NewMockEmbedder(32)}
	idx := New(store, emb, chunker.New(models.ChunkConfig{ShortBlockThreshold: 1, MaxMergedLength: 1}))
	ctx := context.Background()

	if err := idx.IndexDocument(ctx, "doc1", []models.Block{para("p1", "one"), para("p2", "two")}); err != nil {
		t.Fatal(err)
	}
	before := emb.calls

	if err := idx.IndexDocument(ctx, "doc1", []models.Block{para("p1", "one"), para("p2", "two changed")}); err != nil {
		t.Fatal(err)
	}
	if emb.calls != before+1 {
		t.Errorf("expected 1 re-embedding, got %d", emb.calls-before)
	}
}

func TestIndexDocument_StaleChunksDeleted(t *testing.T) {
	idx, store, _ := newTestIndexer(t)
	ctx := context.Background()

	if err := idx.IndexDocument(ctx, "doc1", []models.Block{para("p1", "first"), para("p2", "second")}); err != nil {
		t.Fatal(err)
	}
	// Re-index with one paragraph removed: its chunk must disappear.
	if err := idx.IndexDocument(ctx, "doc1", []models.Block{para("p1", "first")}); err != nil {
		t.Fatal(err)
	}
	hashes, _ := store.DocumentHashes(ctx, "doc1")
	for id := range hashes {
		got, err := store.Get(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if got.Content == "second" {
			t.Error("removed paragraph's chunk should be gone")
		}
	}
}

func TestIndexDocument_OrphanedExternalCleanup(t *testing.T) {
	idx, store, _ := newTestIndexer(t)
	ctx := context.Background()

	// Simulate an external indexer having stored bookmark chunks and a snapshot.
	ext := &models.BlockVector{
		ID:            "doc1_bm1_bookmark_chunk_0",
		SourceBlockID: "bm1",
		DocID:         "doc1",
		Content:       "page text",
		ContentHash:   "h",
		BlockType:     models.BlockTypeBookmark,
		Embedding:     make([]float32, 32),
	}
	if err := store.Upsert(ctx, ext); err != nil {
		t.Fatal(err)
	}
	_ = store.SaveSnapshot(ctx, "doc1_bm1_bookmark", "doc1", "raw")

	// Document still contains the bookmark block: chunks stay.
	withBookmark := []models.Block{
		para("p1", "body"),
		{ID: "bm1", Type: models.BlockTypeBookmark, TextContent: "https://example.com"},
	}
	if err := idx.IndexDocument(ctx, "doc1", withBookmark); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, "doc1_bm1_bookmark_chunk_0"); err != nil {
		t.Fatalf("bookmark chunk should survive while block exists: %v", err)
	}

	// Bookmark block removed: chunks and snapshot are cleaned up.
	if err := idx.IndexDocument(ctx, "doc1", []models.Block{para("p1", "body")}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, "doc1_bm1_bookmark_chunk_0"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("orphaned bookmark chunk should be deleted, got %v", err)
	}
	if _, err := store.GetSnapshot(ctx, "doc1_bm1_bookmark"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("orphaned snapshot should be deleted, got %v", err)
	}
}

func TestIndexDocument_EmptyClearsDocument(t *testing.T) {
	idx, store, _ := newTestIndexer(t)
	ctx := context.Background()

	if err := idx.IndexDocument(ctx, "doc1", []models.Block{para("p1", "text")}); err != nil {
		t.Fatal(err)
	}
	if err := idx.IndexDocument(ctx, "doc1", nil); err != nil {
		t.Fatal(err)
	}
	hashes, _ := store.DocumentHashes(ctx, "doc1")
	if len(hashes) != 0 {
		t.Errorf("expected no chunks after empty reindex, got %d", len(hashes))
	}
}

func TestForceReindex(t *testing.T) {
	idx, store, emb := newTestIndexer(t)
	ctx := context.Background()

	blks := []models.Block{para("p1", "content")}
	if err := idx.IndexDocument(ctx, "doc1", blks); err != nil {
		t.Fatal(err)
	}
	before := emb.calls
	if err := idx.ForceReindex(ctx, "doc1", blks); err != nil {
		t.Fatal(err)
	}
	if emb.calls == before {
		t.Error("force reindex should re-embed even unchanged content")
	}
	hashes, _ := store.DocumentHashes(ctx, "doc1")
	if len(hashes) == 0 {
		t.Error("chunks should be rebuilt")
	}
}

func TestDeleteDocument(t *testing.T) {
	idx, store, _ := newTestIndexer(t)
	ctx := context.Background()

	if err := idx.IndexDocument(ctx, "doc1", []models.Block{para("p1", "text")}); err != nil {
		t.Fatal(err)
	}
	if err := idx.DeleteDocument(ctx, "doc1"); err != nil {
		t.Fatal(err)
	}
	hashes, _ := store.DocumentHashes(ctx, "doc1")
	if len(hashes) != 0 {
		t.Errorf("expected no chunks, got %d", len(hashes))
	}
}
