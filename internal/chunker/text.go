package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/notable-labs/noteseek/internal/models"
)

var paragraphSep = regexp.MustCompile(`\n[ \t]*\n+`)

// ChunkText chunks raw external content (bookmark page text, extracted file
// text) with the paragraph pipeline: split on blank lines, merge short
// paragraphs up to MaxMergedLength, split long paragraphs by sentence with
// overlap. There is no heading pass; external text has no block hierarchy.
// Chunk IDs are {prefix}_chunk_{n}; every chunk resolves to sourceBlockID.
func (c *Chunker) ChunkText(prefix, sourceBlockID, blockType, text string) []models.ExtractedBlock {
	var paras []string
	for _, p := range paragraphSep.Split(text, -1) {
		p = strings.TrimSpace(p)
		if p != "" {
			paras = append(paras, p)
		}
	}

	var merged []string
	var cur string
	for _, p := range paras {
		if runeLen(p) >= c.cfg.ShortBlockThreshold {
			if cur != "" {
				merged = append(merged, cur)
				cur = ""
			}
			merged = append(merged, p)
			continue
		}
		switch {
		case cur == "":
			cur = p
		case runeLen(cur)+2+runeLen(p) <= c.cfg.MaxMergedLength:
			cur = cur + "\n\n" + p
		default:
			merged = append(merged, cur)
			cur = p
		}
	}
	if cur != "" {
		merged = append(merged, cur)
	}

	var final []string
	for _, p := range merged {
		if runeLen(p) > c.cfg.MaxChunkSize {
			final = append(final, splitWithOverlap(p, c.cfg.MaxChunkSize, c.cfg.Overlap)...)
		} else {
			final = append(final, p)
		}
	}

	out := make([]models.ExtractedBlock, 0, len(final))
	for n, content := range final {
		out = append(out, models.ExtractedBlock{
			ID:            fmt.Sprintf("%s_chunk_%d", prefix, n),
			SourceBlockID: sourceBlockID,
			Type:          blockType,
			Content:       content,
		})
	}
	return out
}

// splitSentences splits s at sentence-terminal punctuation. CJK terminators
// always end a sentence; Latin terminators only at end of text or before
// whitespace, so "3.14" and "v1.2.3" stay intact.
func splitSentences(s string) []string {
	var out []string
	runes := []rune(s)
	start := 0
	for i, r := range runes {
		terminal := false
		switch r {
		case '。', '！', '？', '；':
			terminal = true
		case '.', '!', '?', ';':
			terminal = i+1 == len(runes) || unicode.IsSpace(runes[i+1])
		}
		if terminal {
			out = append(out, string(runes[start:i+1]))
			start = i + 1
		}
	}
	if start < len(runes) {
		if tail := string(runes[start:]); strings.TrimSpace(tail) != "" {
			out = append(out, tail)
		}
	}
	return out
}

// splitWithOverlap packs sentences into segments of at most maxSize runes.
// Each segment after the first is prefixed with the last overlap runes of the
// previous segment for continuity. A single sentence longer than maxSize is
// hard-split at the size limit.
func splitWithOverlap(s string, maxSize, overlap int) []string {
	var segs []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			segs = append(segs, string(cur))
			cur = nil
		}
	}
	for _, sent := range splitSentences(s) {
		r := []rune(sent)
		for len(r) > maxSize {
			flush()
			segs = append(segs, string(r[:maxSize]))
			r = r[maxSize:]
		}
		if len(cur)+len(r) > maxSize {
			flush()
		}
		cur = append(cur, r...)
	}
	flush()

	if overlap <= 0 || len(segs) <= 1 {
		return segs
	}
	out := make([]string, len(segs))
	out[0] = segs[0]
	for i := 1; i < len(segs); i++ {
		prev := []rune(segs[i-1])
		o := overlap
		if o > len(prev) {
			o = len(prev)
		}
		out[i] = string(prev[len(prev)-o:]) + segs[i]
	}
	return out
}
