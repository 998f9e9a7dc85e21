package models

// ChunkMatch is a single chunk-level search hit.
// SourceBlockID is empty when the chunk cannot be mapped back to a block
// (pure hash-addressed aggregates from older rows).
type ChunkMatch struct {
	ID             string  `json:"id"`
	DocID          string  `json:"docId"`
	Content        string  `json:"content"`
	BlockType      string  `json:"blockType"`
	HeadingContext string  `json:"headingContext,omitempty"`
	FilePath       string  `json:"filePath,omitempty"`
	Similarity     float64 `json:"similarity"`
	SourceBlockID  string  `json:"sourceBlockId,omitempty"`
}

// DocumentSearchResult is one document with its best score and top matched chunks.
type DocumentSearchResult struct {
	DocID  string       `json:"docId"`
	Score  float64      `json:"score"`
	Chunks []ChunkMatch `json:"chunks"`
}

// GraphNode is one entity (document or external block) in the similarity graph.
type GraphNode struct {
	ID         string `json:"id"`
	DocID      string `json:"docId"`
	Kind       string `json:"kind"` // "document", "bookmark", "file", or "folder"
	ChunkCount int    `json:"chunkCount"`
}

// GraphLink is an undirected similarity edge between two graph nodes.
// Semantic is true when the raw cosine similarity alone clears the threshold;
// TagBoosted is true when shared tags contributed to the edge qualifying.
type GraphLink struct {
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Similarity float64 `json:"similarity"`
	Semantic   bool    `json:"semantic"`
	TagBoosted bool    `json:"tagBoosted"`
}

// GraphData is the full similarity graph.
type GraphData struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}

// IndexStats reports what is currently indexed.
type IndexStats struct {
	Documents int `json:"documents"`
	Bookmarks int `json:"bookmarks"`
	Files     int `json:"files"`
	Folders   int `json:"folders"`
	Chunks    int `json:"chunks"`
}

// ProgressFunc reports bulk operation progress as (current, total).
type ProgressFunc func(current, total int)

// ReindexSummary aggregates the outcome of a bulk reindex run.
// One failed document never aborts the batch; it is recorded here instead.
type ReindexSummary struct {
	RunID      string   `json:"runId"`
	Total      int      `json:"total"`
	Succeeded  int      `json:"succeeded"`
	Failed     int      `json:"failed"`
	FailedDocs []string `json:"failedDocs,omitempty"`
}

// FolderIndexResult reports the outcome of indexing one folder block.
// Unreadable or unsupported files are recorded without aborting the walk.
type FolderIndexResult struct {
	TotalFiles   int      `json:"totalFiles"`
	SuccessCount int      `json:"successCount"`
	FailedCount  int      `json:"failedCount"`
	FailedFiles  []string `json:"failedFiles,omitempty"`
}
