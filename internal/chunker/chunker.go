// Package chunker turns block trees and raw text into content-bearing chunks
// with heading context, ready for embedding.
package chunker

import (
	"fmt"
	"strings"

	"github.com/notable-labs/noteseek/internal/models"
)

// Chunker extracts chunks from block trees and raw text according to the
// configured thresholds. All passes are pure: each consumes one sequence and
// produces a new one.
type Chunker struct {
	cfg models.ChunkConfig
}

// New creates a chunker; zero fields in cfg fall back to the defaults.
func New(cfg models.ChunkConfig) *Chunker {
	def := models.DefaultChunkConfig()
	if cfg.MaxChunkSize <= 0 {
		cfg.MaxChunkSize = def.MaxChunkSize
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = def.Overlap
	}
	if cfg.ShortBlockThreshold <= 0 {
		cfg.ShortBlockThreshold = def.ShortBlockThreshold
	}
	if cfg.MaxMergedLength <= 0 {
		cfg.MaxMergedLength = def.MaxMergedLength
	}
	return &Chunker{cfg: cfg}
}

// Config returns the active thresholds.
func (c *Chunker) Config() models.ChunkConfig { return c.cfg }

// piece is the internal chunk representation flowing between passes.
type piece struct {
	id             string
	sourceBlockID  string
	blockType      string
	content        string
	headingContext string
	aggregated     bool // combined from multiple source blocks
	heading        bool // headings-only content
	split          bool // produced by long-block splitting
}

// ExtractBlocks runs the four-pass pipeline over a block tree:
// flatten with heading tracking, list aggregation and long-block splitting,
// heading-forward merging, and short-block merging.
func (c *Chunker) ExtractBlocks(blks []models.Block) []models.ExtractedBlock {
	heading := ""
	flat := flatten(blks, 0, &heading, nil)
	pieces := c.aggregateAndSplit(flat)
	pieces = mergeHeadings(pieces)
	pieces = c.mergeShort(pieces)

	out := make([]models.ExtractedBlock, 0, len(pieces))
	for _, p := range pieces {
		out = append(out, models.ExtractedBlock{
			ID:             p.id,
			SourceBlockID:  p.sourceBlockID,
			Type:           p.blockType,
			Content:        p.content,
			HeadingContext: p.headingContext,
		})
	}
	return out
}

// flatten walks blocks depth-first, tracking the current heading and indenting
// nested content to preserve hierarchy. Heading blocks update the heading
// context for everything that follows until the next heading. External blocks
// (bookmark/file/folder) are skipped; they are indexed by their own pipeline.
func flatten(blks []models.Block, depth int, heading *string, out []piece) []piece {
	for _, b := range blks {
		text := strings.TrimSpace(b.TextContent)
		switch {
		case models.IsExternal(b.Type):
			// handled by the external content indexer
		case models.IsHeading(b.Type):
			if text != "" {
				*heading = text
				out = append(out, piece{
					id:             b.ID,
					sourceBlockID:  b.ID,
					blockType:      b.Type,
					content:        text,
					headingContext: text,
					heading:        true,
				})
			}
		default:
			if text != "" {
				content := text
				if depth > 0 {
					content = strings.Repeat("  ", depth) + text
				}
				out = append(out, piece{
					id:             b.ID,
					sourceBlockID:  b.ID,
					blockType:      b.Type,
					content:        content,
					headingContext: *heading,
				})
			}
		}
		if len(b.Children) > 0 {
			out = flatten(b.Children, depth+1, heading, out)
		}
	}
	return out
}

// aggregateAndSplit merges runs of consecutive same-type list items into one
// chunk and splits over-long non-list pieces by sentence boundary. Mixed list
// types never merge. An aggregated chunk's ID is the hash of the ordered
// member IDs; its source block is the first member.
func (c *Chunker) aggregateAndSplit(in []piece) []piece {
	var out []piece
	for i := 0; i < len(in); {
		p := in[i]
		if models.IsListItem(p.blockType) {
			j := i
			var ids, lines []string
			for j < len(in) && in[j].blockType == p.blockType {
				ids = append(ids, in[j].id)
				lines = append(lines, "• "+strings.TrimSpace(in[j].content))
				j++
			}
			if len(ids) == 1 {
				p.content = lines[0]
				out = append(out, p)
			} else {
				out = append(out, piece{
					id:             HashIDs(ids),
					sourceBlockID:  p.sourceBlockID,
					blockType:      p.blockType,
					content:        strings.Join(lines, "\n"),
					headingContext: p.headingContext,
					aggregated:     true,
				})
			}
			i = j
			continue
		}
		if !p.heading && runeLen(p.content) > c.cfg.MaxChunkSize {
			for n, seg := range splitWithOverlap(p.content, c.cfg.MaxChunkSize, c.cfg.Overlap) {
				out = append(out, piece{
					id:             fmt.Sprintf("%s_chunk_%d", p.id, n),
					sourceBlockID:  p.sourceBlockID,
					blockType:      p.blockType,
					content:        seg,
					headingContext: p.headingContext,
					split:          true,
				})
			}
			i++
			continue
		}
		out = append(out, p)
		i++
	}
	return out
}

// mergeHeadings prefixes one or more consecutive headings onto the next
// non-heading chunk, so headings never stand alone. The merged chunk keeps the
// content chunk's ID and source block. Unconsumed trailing headings become a
// single headings-only chunk.
func mergeHeadings(in []piece) []piece {
	var out []piece
	var pending []piece
	for _, p := range in {
		if p.heading {
			pending = append(pending, p)
			continue
		}
		if len(pending) > 0 {
			texts := make([]string, len(pending))
			for i, h := range pending {
				texts[i] = h.content
			}
			p.content = strings.Join(texts, "\n") + "\n\n" + p.content
			pending = nil
		}
		out = append(out, p)
	}
	if len(pending) > 0 {
		if len(pending) == 1 {
			out = append(out, pending[0])
		} else {
			ids := make([]string, len(pending))
			texts := make([]string, len(pending))
			for i, h := range pending {
				ids[i] = h.id
				texts[i] = h.content
			}
			out = append(out, piece{
				id:             HashIDs(ids),
				sourceBlockID:  pending[0].id,
				blockType:      pending[0].blockType,
				content:        strings.Join(texts, "\n"),
				headingContext: pending[len(pending)-1].content,
				heading:        true,
			})
		}
	}
	return out
}

// mergeShort merges runs of consecutive short pieces sharing the same heading
// context, up to MaxMergedLength. Aggregated, heading, and split pieces never
// participate. The merged ID is the hash of the member IDs; the source block
// is the first member's.
func (c *Chunker) mergeShort(in []piece) []piece {
	var out []piece
	for i := 0; i < len(in); {
		p := in[i]
		if !c.mergeable(p) {
			out = append(out, p)
			i++
			continue
		}
		ids := []string{p.id}
		contents := []string{p.content}
		total := runeLen(p.content)
		j := i + 1
		for j < len(in) {
			q := in[j]
			if !c.mergeable(q) || q.headingContext != p.headingContext {
				break
			}
			if total+1+runeLen(q.content) > c.cfg.MaxMergedLength {
				break
			}
			ids = append(ids, q.id)
			contents = append(contents, q.content)
			total += 1 + runeLen(q.content)
			j++
		}
		if len(ids) > 1 {
			out = append(out, piece{
				id:             HashIDs(ids),
				sourceBlockID:  p.sourceBlockID,
				blockType:      p.blockType,
				content:        strings.Join(contents, "\n"),
				headingContext: p.headingContext,
				aggregated:     true,
			})
		} else {
			out = append(out, p)
		}
		i = j
	}
	return out
}

func (c *Chunker) mergeable(p piece) bool {
	return !p.aggregated && !p.heading && !p.split &&
		runeLen(p.content) < c.cfg.ShortBlockThreshold
}

func runeLen(s string) int { return len([]rune(s)) }
