package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/notable-labs/noteseek/internal/models"
)

func TestChunkText_Basic(t *testing.T) {
	c := New(models.ChunkConfig{})
	text := "First paragraph of the page.\n\nSecond paragraph with more words."
	out := c.ChunkText("doc1_blk1_bookmark", "blk1", models.BlockTypeBookmark, text)
	if len(out) == 0 {
		t.Fatal("expected chunks")
	}
	for n, eb := range out {
		wantID := fmt.Sprintf("doc1_blk1_bookmark_chunk_%d", n)
		if eb.ID != wantID {
			t.Errorf("chunk %d ID = %s, want %s", n, eb.ID, wantID)
		}
		if eb.SourceBlockID != "blk1" {
			t.Errorf("chunk %d SourceBlockID = %s", n, eb.SourceBlockID)
		}
		if eb.Type != models.BlockTypeBookmark {
			t.Errorf("chunk %d Type = %s", n, eb.Type)
		}
	}
}

func TestChunkText_Empty(t *testing.T) {
	c := New(models.ChunkConfig{})
	if out := c.ChunkText("p", "b", models.BlockTypeFile, "  \n\n \t "); len(out) != 0 {
		t.Errorf("expected no chunks for blank text, got %d", len(out))
	}
}

func TestChunkText_MergesShortParagraphs(t *testing.T) {
	c := New(models.ChunkConfig{})
	text := "Short one.\n\nShort two.\n\nShort three."
	out := c.ChunkText("p", "b", models.BlockTypeFile, text)
	if len(out) != 1 {
		t.Fatalf("short paragraphs should merge into one chunk, got %d", len(out))
	}
	if out[0].Content != "Short one.\n\nShort two.\n\nShort three." {
		t.Errorf("content = %q", out[0].Content)
	}
}

func TestChunkText_SplitsLongParagraph(t *testing.T) {
	c := New(models.ChunkConfig{MaxChunkSize: 40, Overlap: 10, ShortBlockThreshold: 1, MaxMergedLength: 1})
	text := "Alpha sentence goes first. Beta sentence comes after. Gamma sentence closes out the text."
	out := c.ChunkText("p", "b", models.BlockTypeFolder, text)
	if len(out) < 2 {
		t.Fatalf("expected a split, got %d chunks", len(out))
	}
	// Segments after the first carry the tail of the previous one.
	prev := out[0].Content
	tail := []rune(prev)
	if !strings.HasPrefix(out[1].Content, string(tail[len(tail)-10:])) {
		t.Errorf("chunk 1 should start with overlap from chunk 0: %q", out[1].Content)
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"One. Two. Three.", 3},
		{"Pi is 3.14 exactly.", 1},
		{"No terminator at all", 1},
		{"こんにちは。元気です。", 2},
		{"", 0},
	}
	for _, tt := range tests {
		got := splitSentences(tt.in)
		if len(got) != tt.want {
			t.Errorf("splitSentences(%q) = %d parts %v, want %d", tt.in, len(got), got, tt.want)
		}
	}
}

func TestSplitWithOverlap_HardSplit(t *testing.T) {
	long := strings.Repeat("x", 95) // no sentence boundary
	segs := splitWithOverlap(long, 40, 10)
	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segs))
	}
	for i, s := range segs {
		if runeLen(s) > 50 {
			t.Errorf("segment %d too long: %d runes", i, runeLen(s))
		}
	}
}

func TestSplitWithOverlap_NoOverlapWhenSingle(t *testing.T) {
	segs := splitWithOverlap("tiny.", 100, 20)
	if len(segs) != 1 || segs[0] != "tiny." {
		t.Errorf("got %v", segs)
	}
}
