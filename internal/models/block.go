// Package models defines core data structures for blocks, chunks, and search results.
package models

// Block is one node of the editor's serialized block tree.
// Missing fields decode to zero values; children are recursive.
type Block struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	TextContent string  `json:"textContent"`
	Children    []Block `json:"children,omitempty"`
}

// Block types produced by the editor. Heading levels share the "heading" prefix
// (heading1, heading2, ...); list types must match exactly for aggregation.
const (
	BlockTypeParagraph    = "paragraph"
	BlockTypeHeading      = "heading"
	BlockTypeBulletedList = "bulleted_list"
	BlockTypeNumberedList = "numbered_list"
	BlockTypeTodoList     = "todo_list"
	BlockTypeQuote        = "quote"
	BlockTypeCode         = "code"
	BlockTypeBookmark     = "bookmark"
	BlockTypeFile         = "file"
	BlockTypeFolder       = "folder"
)

// IsHeading reports whether t is a heading block type (any level).
func IsHeading(t string) bool {
	return len(t) >= len(BlockTypeHeading) && t[:len(BlockTypeHeading)] == BlockTypeHeading
}

// IsListItem reports whether t is a list-item block type.
func IsListItem(t string) bool {
	switch t {
	case BlockTypeBulletedList, BlockTypeNumberedList, BlockTypeTodoList:
		return true
	}
	return false
}

// IsExternal reports whether t references out-of-document content.
func IsExternal(t string) bool {
	switch t {
	case BlockTypeBookmark, BlockTypeFile, BlockTypeFolder:
		return true
	}
	return false
}

// Document is a parsed note: identity, tags, and its block tree.
type Document struct {
	ID     string   `json:"id"`
	Title  string   `json:"title,omitempty"`
	Tags   []string `json:"tags,omitempty"`
	Blocks []Block  `json:"blocks"`
}

// DocumentRef identifies a document in the repository without its content.
type DocumentRef struct {
	ID    string   `json:"id"`
	Title string   `json:"title,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}
