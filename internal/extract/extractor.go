// Package extract provides the bundled text-extraction collaborator for
// file and folder indexing. The indexing core depends only on the
// ExtractText interface; desktop builds may inject their own implementation.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extractor extracts plain text from files by extension.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractText reads the file at path and returns its text content. Plain
// formats are returned as-is (UTF-8 sanitized); PDF, DOCX, ODT, and XLSX are
// decoded from their binary containers. Unknown extensions are treated as
// plain text.
func (e *Extractor) ExtractText(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".odt", ".rtf":
		return extractODT(content)
	case ".xlsx":
		return extractXLSX(content)
	default:
		return extractPlain(content)
	}
}
