// Package graph builds a document similarity graph from stored chunk vectors.
// Each document (and each external block) becomes one node positioned at the
// mean of its chunk embeddings; edges connect pairs whose tag-boosted cosine
// similarity clears a threshold.
package graph

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/notable-labs/noteseek/internal/models"
	"github.com/notable-labs/noteseek/internal/storage"
	"github.com/notable-labs/noteseek/internal/vector"
)

// DefaultThreshold is the edge cutoff when no threshold is configured.
const DefaultThreshold = 0.65

// KindDocument marks in-document nodes; external nodes carry their block type.
const KindDocument = "document"

// Builder computes similarity graphs.
type Builder struct {
	store     *storage.Store
	threshold float64
	logger    *zap.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// New creates a graph builder. A non-positive threshold falls back to
// DefaultThreshold.
func New(store *storage.Store, threshold float64, opts ...Option) *Builder {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	b := &Builder{store: store, threshold: threshold}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// entity is one graph node under construction.
type entity struct {
	id      string
	docID   string
	kind    string
	tags    []string
	vectors [][]float32
	mean    []float32
}

// Build loads every chunk vector, groups them into entities, and returns the
// graph. docs supplies per-document tags for the Jaccard boost; documents
// absent from docs get no tags, external blocks never have tags.
func (b *Builder) Build(ctx context.Context, docs []models.DocumentRef) (*models.GraphData, error) {
	chunks, err := b.store.ChunkVectors(ctx)
	if err != nil {
		return nil, fmt.Errorf("load chunk vectors: %w", err)
	}

	tagsByDoc := make(map[string][]string, len(docs))
	for _, d := range docs {
		tagsByDoc[d.ID] = d.Tags
	}

	entities := groupEntities(chunks, tagsByDoc)
	for _, e := range entities {
		e.mean = vector.Mean(e.vectors)
	}

	data := &models.GraphData{
		Nodes: make([]models.GraphNode, 0, len(entities)),
		Links: []models.GraphLink{},
	}
	for _, e := range entities {
		data.Nodes = append(data.Nodes, models.GraphNode{
			ID:         e.id,
			DocID:      e.docID,
			Kind:       e.kind,
			ChunkCount: len(e.vectors),
		})
	}

	for i := 0; i < len(entities); i++ {
		for j := i + 1; j < len(entities); j++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			link, ok := b.link(entities[i], entities[j])
			if ok {
				data.Links = append(data.Links, link)
			}
		}
	}

	if b.logger != nil {
		b.logger.Debug("graph built",
			zap.Int("nodes", len(data.Nodes)),
			zap.Int("links", len(data.Links)),
			zap.Float64("threshold", b.threshold))
	}
	return data, nil
}

// link evaluates one candidate edge. Shared tags multiply the raw similarity
// by 1 + jaccard*(1-threshold), so fully tag-identical pairs sitting exactly
// at the threshold still qualify; the boosted score is clamped to 1.
func (b *Builder) link(a, c *entity) (models.GraphLink, bool) {
	if a.mean == nil || c.mean == nil {
		return models.GraphLink{}, false
	}
	raw := vector.CosineSimilarity(a.mean, c.mean)
	boosted := raw
	jac := jaccard(a.tags, c.tags)
	if jac > 0 {
		boosted = raw * (1 + jac*(1-b.threshold))
		if boosted > 1 {
			boosted = 1
		}
	}
	if boosted < b.threshold {
		return models.GraphLink{}, false
	}
	return models.GraphLink{
		Source:     a.id,
		Target:     c.id,
		Similarity: boosted,
		Semantic:   raw >= b.threshold,
		TagBoosted: jac > 0 && raw < b.threshold,
	}, true
}

// groupEntities buckets chunk vectors by owner: in-document chunks share the
// document's node, external chunks get one node per source block. Node order
// is deterministic (sorted by ID) so repeated builds are comparable.
func groupEntities(chunks []storage.ChunkVector, tagsByDoc map[string][]string) []*entity {
	byID := make(map[string]*entity)
	for _, ch := range chunks {
		id := ch.DocID
		kind := KindDocument
		if isExternalKind(ch.BlockType) {
			id = ch.DocID + "/" + ch.SourceBlockID
			kind = ch.BlockType
		}
		e, ok := byID[id]
		if !ok {
			e = &entity{id: id, docID: ch.DocID, kind: kind}
			if kind == KindDocument {
				e.tags = tagsByDoc[ch.DocID]
			}
			byID[id] = e
		}
		e.vectors = append(e.vectors, ch.Embedding)
	}
	out := make([]*entity, 0, len(byID))
	for _, e := range byID {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func isExternalKind(blockType string) bool {
	switch blockType {
	case models.BlockTypeBookmark, models.BlockTypeFile, models.BlockTypeFolder:
		return true
	}
	return false
}

// jaccard is |A∩B| / |A∪B| over tag sets; zero when either set is empty.
func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	inter := 0
	union := len(set)
	seen := make(map[string]bool, len(b))
	for _, t := range b {
		if seen[t] {
			continue
		}
		seen[t] = true
		if set[t] {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
