// Package blocks decodes the editor's serialized block format into typed blocks.
package blocks

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/notable-labs/noteseek/internal/models"
)

// ParseDocument decodes raw note content into a Document. The payload may be a
// document object ({"id", "title", "tags", "blocks": [...]}) or a bare block
// array. Missing fields decode to defensive defaults; blocks without an ID get
// a positional fallback seeded with docID, so downstream chunk IDs stay
// deterministic and never collide across documents.
func ParseDocument(docID string, data []byte) (*models.Document, error) {
	prefix := "blk"
	if docID != "" {
		prefix = docID + "_blk"
	}
	var doc models.Document
	if err := json.Unmarshal(data, &doc); err == nil && doc.Blocks != nil {
		if doc.ID == "" {
			doc.ID = docID
		}
		normalize(doc.Blocks, prefix)
		return &doc, nil
	}
	var blks []models.Block
	if err := json.Unmarshal(data, &blks); err != nil {
		return nil, fmt.Errorf("parse block tree: %w", err)
	}
	normalize(blks, prefix)
	return &models.Document{ID: docID, Blocks: blks}, nil
}

// Text flattens a block tree to plain text, one line per block, depth first.
// External block references contribute nothing; their content lives elsewhere.
func Text(blks []models.Block) string {
	var b strings.Builder
	appendText(&b, blks)
	return strings.TrimSpace(b.String())
}

func appendText(b *strings.Builder, blks []models.Block) {
	for _, blk := range blks {
		if !models.IsExternal(blk.Type) && strings.TrimSpace(blk.TextContent) != "" {
			b.WriteString(strings.TrimSpace(blk.TextContent))
			b.WriteByte('\n')
		}
		appendText(b, blk.Children)
	}
}

func normalize(blks []models.Block, prefix string) {
	for i := range blks {
		if blks[i].ID == "" {
			blks[i].ID = fmt.Sprintf("%s_%d", prefix, i)
		}
		if blks[i].Type == "" {
			blks[i].Type = models.BlockTypeParagraph
		}
		if len(blks[i].Children) > 0 {
			normalize(blks[i].Children, blks[i].ID)
		}
	}
}
