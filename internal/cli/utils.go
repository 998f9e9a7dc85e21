// Package cli provides CLI utilities for noteseek.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/notable-labs/noteseek/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteDocumentResults writes document-level search results to w.
func WriteDocumentResults(w io.Writer, results []models.DocumentSearchResult, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	fmt.Fprintf(w, "\nFound %d document(s)\n\n", len(results))
	for i, doc := range results {
		fmt.Fprintf(w, "%d. %s (score %.4f)\n", i+1, doc.DocID, doc.Score)
		for _, ch := range doc.Chunks {
			fmt.Fprintf(w, "   [%.4f] %s\n", ch.Similarity, Truncate(oneLine(ch.Content), 120))
		}
		fmt.Fprintln(w)
	}
	return nil
}

// WriteChunkMatches writes chunk-level search results to w.
func WriteChunkMatches(w io.Writer, matches []models.ChunkMatch, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(matches)
	}
	fmt.Fprintf(w, "\nFound %d chunk(s)\n\n", len(matches))
	for i, m := range matches {
		fmt.Fprintf(w, "%d. [%.4f] doc=%s", i+1, m.Similarity, m.DocID)
		if m.SourceBlockID != "" {
			fmt.Fprintf(w, " block=%s", m.SourceBlockID)
		}
		fmt.Fprintln(w)
		if m.HeadingContext != "" {
			fmt.Fprintf(w, "   under: %s\n", m.HeadingContext)
		}
		fmt.Fprintf(w, "   %s\n\n", Truncate(oneLine(m.Content), 160))
	}
	return nil
}

// WriteGraph writes the similarity graph to w.
func WriteGraph(w io.Writer, data *models.GraphData, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	fmt.Fprintf(w, "\n%d node(s), %d link(s)\n\n", len(data.Nodes), len(data.Links))
	for _, l := range data.Links {
		marker := ""
		if l.TagBoosted {
			marker = " (tag boosted)"
		}
		fmt.Fprintf(w, "%s <-> %s  %.4f%s\n", l.Source, l.Target, l.Similarity, marker)
	}
	return nil
}

// WriteStats writes index stats to w.
func WriteStats(w io.Writer, stats *models.IndexStats, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}
	fmt.Fprintf(w, "documents:  %d\n", stats.Documents)
	fmt.Fprintf(w, "bookmarks:  %d\n", stats.Bookmarks)
	fmt.Fprintf(w, "files:      %d\n", stats.Files)
	fmt.Fprintf(w, "folders:    %d\n", stats.Folders)
	fmt.Fprintf(w, "chunks:     %d\n", stats.Chunks)
	return nil
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
