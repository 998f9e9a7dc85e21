package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashIDs returns the content-addressed ID for a chunk combining the given
// ordered member block IDs. Downstream deep-linking depends on this scheme:
// hash-only IDs cannot be mapped back to a block, which is why combined chunks
// also carry an explicit source block ID.
func HashIDs(ids []string) string {
	sum := sha256.Sum256([]byte(strings.Join(ids, "|")))
	return hex.EncodeToString(sum[:])[:16]
}

// ContentHash hashes a chunk's content together with its heading context.
// It is the sole signal for skip-vs-reembed decisions during incremental
// indexing, so a heading edit re-embeds every chunk under that heading.
func ContentHash(content, headingContext string) string {
	sum := sha256.Sum256([]byte(content + headingContext))
	return hex.EncodeToString(sum[:])
}
