package search

import (
	"regexp"
	"strings"

	"github.com/notable-labs/noteseek/internal/models"
)

// blockIDPattern matches editor block IDs: long alphanumeric tokens, at least
// 20 characters. Shorter tokens (chunk counters, kind suffixes) never match.
var blockIDPattern = regexp.MustCompile(`[0-9A-Za-z]{20,}`)

// ResolveSourceBlock returns the block a stored chunk originated from.
// Rows written by current code carry the source block explicitly; older rows
// only encoded it in the chunk ID, so as a fallback the ID is stripped of its
// split suffix and scanned for a block-ID-shaped token. Aggregate rows whose
// ID is a pure content hash have no recoverable block and resolve to "".
func ResolveSourceBlock(bv *models.BlockVector) string {
	if bv.SourceBlockID != "" {
		return bv.SourceBlockID
	}
	id := bv.ID
	if i := strings.Index(id, "_chunk_"); i >= 0 {
		id = id[:i]
	}
	if isHexHash(id) {
		return ""
	}
	return blockIDPattern.FindString(id)
}

// isHexHash reports whether s looks like a 16-character truncated hex digest,
// the ID shape of aggregated chunks.
func isHexHash(s string) bool {
	if len(s) != 16 {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
