package graph

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/notable-labs/noteseek/internal/models"
	"github.com/notable-labs/noteseek/internal/storage"
)

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "graph.db"), 2)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seed(t *testing.T, store *storage.Store, id, docID, blockType, sourceBlockID string, emb []float32) {
	t.Helper()
	bv := &models.BlockVector{
		ID:            id,
		DocID:         docID,
		SourceBlockID: sourceBlockID,
		Content:       "content " + id,
		ContentHash:   "h-" + id,
		BlockType:     blockType,
		Embedding:     emb,
	}
	if err := store.Upsert(context.Background(), bv); err != nil {
		t.Fatal(err)
	}
}

func findLink(links []models.GraphLink, source, target string) *models.GraphLink {
	for i := range links {
		l := &links[i]
		if (l.Source == source && l.Target == target) || (l.Source == target && l.Target == source) {
			return l
		}
	}
	return nil
}

func TestBuild_SemanticEdges(t *testing.T) {
	store := openTestStore(t)
	b := New(store, 0.65)

	seed(t, store, "a1", "docA", models.BlockTypeParagraph, "", []float32{1, 0})
	seed(t, store, "b1", "docB", models.BlockTypeParagraph, "", []float32{1, 0})
	seed(t, store, "c1", "docC", models.BlockTypeParagraph, "", []float32{0, 1})

	data, err := b.Build(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(data.Nodes) != 3 {
		t.Fatalf("nodes = %d", len(data.Nodes))
	}

	ab := findLink(data.Links, "docA", "docB")
	if ab == nil {
		t.Fatal("identical documents should be linked")
	}
	if math.Abs(ab.Similarity-1.0) > 1e-6 {
		t.Errorf("similarity = %f", ab.Similarity)
	}
	if !ab.Semantic || ab.TagBoosted {
		t.Errorf("link flags = %+v", ab)
	}

	if l := findLink(data.Links, "docA", "docC"); l != nil {
		t.Errorf("orthogonal documents should not be linked: %+v", l)
	}
}

func TestBuild_TagBoostPromotesSubThresholdPair(t *testing.T) {
	store := openTestStore(t)
	b := New(store, 0.65)

	// Raw cosine is 0.6, below the threshold. With identical tags the boost is
	// 0.6 * (1 + 0.35) = 0.81, which clears it.
	seed(t, store, "a1", "docA", models.BlockTypeParagraph, "", []float32{1, 0})
	seed(t, store, "b1", "docB", models.BlockTypeParagraph, "", []float32{0.6, 0.8})

	docs := []models.DocumentRef{
		{ID: "docA", Tags: []string{"work", "infra"}},
		{ID: "docB", Tags: []string{"work", "infra"}},
	}

	data, err := b.Build(context.Background(), docs)
	if err != nil {
		t.Fatal(err)
	}
	l := findLink(data.Links, "docA", "docB")
	if l == nil {
		t.Fatal("tag-identical pair should be linked")
	}
	if math.Abs(l.Similarity-0.81) > 1e-4 {
		t.Errorf("boosted similarity = %f, want ~0.81", l.Similarity)
	}
	if l.Semantic {
		t.Error("raw similarity below threshold should not be semantic")
	}
	if !l.TagBoosted {
		t.Error("link should be marked tag boosted")
	}

	// Without tags the same pair does not link.
	data, err = b.Build(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if l := findLink(data.Links, "docA", "docB"); l != nil {
		t.Errorf("untagged pair should not link: %+v", l)
	}
}

func TestBuild_BoostClampedToOne(t *testing.T) {
	store := openTestStore(t)
	b := New(store, 0.65)

	seed(t, store, "a1", "docA", models.BlockTypeParagraph, "", []float32{1, 0})
	seed(t, store, "b1", "docB", models.BlockTypeParagraph, "", []float32{1, 0.1})

	docs := []models.DocumentRef{
		{ID: "docA", Tags: []string{"x"}},
		{ID: "docB", Tags: []string{"x"}},
	}
	data, err := b.Build(context.Background(), docs)
	if err != nil {
		t.Fatal(err)
	}
	l := findLink(data.Links, "docA", "docB")
	if l == nil {
		t.Fatal("expected link")
	}
	if l.Similarity > 1 {
		t.Errorf("similarity = %f, must be clamped to 1", l.Similarity)
	}
	if !l.Semantic || l.TagBoosted {
		t.Errorf("high raw similarity flags = %+v", l)
	}
}

func TestBuild_ExternalBlocksAreSeparateNodes(t *testing.T) {
	store := openTestStore(t)
	b := New(store, 0.65)

	seed(t, store, "p1", "docA", models.BlockTypeParagraph, "", []float32{1, 0})
	seed(t, store, "docA_bm_bookmark_chunk_0", "docA", models.BlockTypeBookmark, "bm", []float32{1, 0})
	seed(t, store, "docA_bm_bookmark_chunk_1", "docA", models.BlockTypeBookmark, "bm", []float32{1, 0})

	data, err := b.Build(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(data.Nodes) != 2 {
		t.Fatalf("nodes = %d, want document + bookmark", len(data.Nodes))
	}
	// Sorted by ID: "docA" before "docA/bm".
	if data.Nodes[0].ID != "docA" || data.Nodes[1].ID != "docA/bm" {
		t.Errorf("node order = %s, %s", data.Nodes[0].ID, data.Nodes[1].ID)
	}
	if data.Nodes[0].Kind != KindDocument {
		t.Errorf("document kind = %s", data.Nodes[0].Kind)
	}
	if data.Nodes[1].Kind != models.BlockTypeBookmark {
		t.Errorf("bookmark kind = %s", data.Nodes[1].Kind)
	}
	if data.Nodes[1].ChunkCount != 2 {
		t.Errorf("bookmark chunk count = %d", data.Nodes[1].ChunkCount)
	}
	// The document and its own bookmark are still graph peers.
	if findLink(data.Links, "docA", "docA/bm") == nil {
		t.Error("identical vectors should link across node kinds")
	}
}

func TestBuild_MeanOfChunks(t *testing.T) {
	store := openTestStore(t)
	b := New(store, 0.9)

	// docA's mean of [1,0] and [0,1] points at 45 degrees, exactly docB's
	// direction, so the pair clears even a strict threshold.
	seed(t, store, "a1", "docA", models.BlockTypeParagraph, "", []float32{1, 0})
	seed(t, store, "a2", "docA", models.BlockTypeParagraph, "", []float32{0, 1})
	seed(t, store, "b1", "docB", models.BlockTypeParagraph, "", []float32{1, 1})

	data, err := b.Build(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	l := findLink(data.Links, "docA", "docB")
	if l == nil {
		t.Fatal("mean vector should align with docB")
	}
	if math.Abs(l.Similarity-1.0) > 1e-5 {
		t.Errorf("similarity = %f", l.Similarity)
	}
}

func TestBuild_Empty(t *testing.T) {
	store := openTestStore(t)
	b := New(store, 0)

	data, err := b.Build(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(data.Nodes) != 0 {
		t.Errorf("nodes = %d", len(data.Nodes))
	}
	if data.Links == nil {
		t.Error("links should be an empty slice, not nil")
	}
}

func TestNew_ThresholdDefault(t *testing.T) {
	b := New(nil, -1)
	if b.threshold != DefaultThreshold {
		t.Errorf("threshold = %f", b.threshold)
	}
	b = New(nil, 0.5)
	if b.threshold != 0.5 {
		t.Errorf("threshold = %f", b.threshold)
	}
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want float64
	}{
		{"identical", []string{"x", "y"}, []string{"x", "y"}, 1},
		{"half", []string{"x", "y"}, []string{"y", "z"}, 1.0 / 3.0},
		{"disjoint", []string{"x"}, []string{"y"}, 0},
		{"one empty", []string{"x"}, nil, 0},
		{"duplicates ignored", []string{"x", "x"}, []string{"x"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := jaccard(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("jaccard = %f, want %f", got, tt.want)
			}
		})
	}
}
