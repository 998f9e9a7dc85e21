package models

// ChunkConfig holds the thresholds governing chunk splitting and merging.
// All values are in characters (runes).
type ChunkConfig struct {
	MaxChunkSize        int `yaml:"max_chunk_size"`
	Overlap             int `yaml:"overlap"`
	ShortBlockThreshold int `yaml:"short_block_threshold"`
	MaxMergedLength     int `yaml:"max_merged_length"`
}

// DefaultChunkConfig returns the default chunking thresholds.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChunkSize:        800,
		Overlap:             100,
		ShortBlockThreshold: 150,
		MaxMergedLength:     600,
	}
}

// ExtractedBlock is a unit of text produced by the chunker, before embedding.
// SourceBlockID is the original user-authored block this chunk traces back to;
// for aggregated chunks it is the first member's ID.
type ExtractedBlock struct {
	ID             string
	SourceBlockID  string
	Type           string
	Content        string
	HeadingContext string
}

// BlockVector is one stored chunk row: metadata plus its embedding.
// ID is the primary key; it is content-addressed for aggregates (hash of member
// IDs) and derived deterministically for splits and external content.
type BlockVector struct {
	ID             string    `json:"id"`
	SourceBlockID  string    `json:"sourceBlockId,omitempty"`
	DocID          string    `json:"docId"`
	Content        string    `json:"content"`
	ContentHash    string    `json:"contentHash"`
	BlockType      string    `json:"blockType"`
	HeadingContext string    `json:"headingContext,omitempty"`
	FilePath       string    `json:"filePath,omitempty"`
	Embedding      []float32 `json:"-"`
}
