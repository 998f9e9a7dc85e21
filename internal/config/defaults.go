package config

import "github.com/notable-labs/noteseek/internal/models"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8765
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = ".noteseek/data/vectors.db"
	}
	if cfg.Storage.NotesDir == "" {
		cfg.Storage.NotesDir = ".noteseek/notes"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "ollama"
	}
	chunk := models.DefaultChunkConfig()
	if cfg.Chunking.MaxChunkSize == 0 {
		cfg.Chunking.MaxChunkSize = chunk.MaxChunkSize
	}
	if cfg.Chunking.ChunkOverlap == 0 {
		cfg.Chunking.ChunkOverlap = chunk.Overlap
	}
	if cfg.Chunking.ShortBlockThreshold == 0 {
		cfg.Chunking.ShortBlockThreshold = chunk.ShortBlockThreshold
	}
	if cfg.Chunking.MaxMergedLength == 0 {
		cfg.Chunking.MaxMergedLength = chunk.MaxMergedLength
	}
	if cfg.Folders.MaxDepth == 0 {
		cfg.Folders.MaxDepth = 5
	}
	if cfg.Graph.Threshold == 0 {
		cfg.Graph.Threshold = 0.65
	}
	if cfg.Watch.DebounceMS == 0 {
		cfg.Watch.DebounceMS = 2000
	}
}

// ChunkConfig converts the chunking section to the chunker's config type.
func (c *Config) ChunkConfig() models.ChunkConfig {
	return models.ChunkConfig{
		MaxChunkSize:        c.Chunking.MaxChunkSize,
		Overlap:             c.Chunking.ChunkOverlap,
		ShortBlockThreshold: c.Chunking.ShortBlockThreshold,
		MaxMergedLength:     c.Chunking.MaxMergedLength,
	}
}
