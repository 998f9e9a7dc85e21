// Package noterepo reads note documents from a directory of JSON files, one
// file per document, named {id}.json.
package noterepo

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/notable-labs/noteseek/internal/models"
)

// Repository serves note documents from the filesystem.
type Repository struct {
	dir string
}

// New creates a repository over dir. The directory is created if missing so a
// fresh install starts with an empty corpus instead of an error.
func New(dir string) (*Repository, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create notes dir: %w", err)
	}
	return &Repository{dir: dir}, nil
}

// Dir returns the notes directory.
func (r *Repository) Dir() string {
	return r.dir
}

// GetAll lists every document in the directory with its title and tags.
// Files that fail to parse are listed by ID alone; the indexer decides how to
// handle their content.
func (r *Repository) GetAll(ctx context.Context) ([]models.DocumentRef, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("read notes dir: %w", err)
	}
	refs := make([]models.DocumentRef, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		ref := models.DocumentRef{ID: id}
		if data, err := os.ReadFile(filepath.Join(r.dir, e.Name())); err == nil {
			var meta struct {
				Title string   `json:"title"`
				Tags  []string `json:"tags"`
			}
			if json.Unmarshal(data, &meta) == nil {
				ref.Title = meta.Title
				ref.Tags = meta.Tags
			}
		}
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs, nil
}

// Load returns the raw JSON of one document.
func (r *Repository) Load(ctx context.Context, docID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Document IDs come from clients; never let them escape the notes dir.
	if docID != filepath.Base(docID) || docID == "." || docID == ".." {
		return nil, fmt.Errorf("invalid document id: %q", docID)
	}
	data, err := os.ReadFile(filepath.Join(r.dir, docID+".json"))
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", docID, err)
	}
	return data, nil
}

// Save writes a document's raw JSON, creating or replacing its file.
func (r *Repository) Save(ctx context.Context, docID string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if docID != filepath.Base(docID) || docID == "." || docID == ".." {
		return fmt.Errorf("invalid document id: %q", docID)
	}
	if err := os.WriteFile(filepath.Join(r.dir, docID+".json"), data, 0644); err != nil {
		return fmt.Errorf("save document %s: %w", docID, err)
	}
	return nil
}

// Delete removes a document's file. Missing files are not an error.
func (r *Repository) Delete(ctx context.Context, docID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if docID != filepath.Base(docID) || docID == "." || docID == ".." {
		return fmt.Errorf("invalid document id: %q", docID)
	}
	err := os.Remove(filepath.Join(r.dir, docID+".json"))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete document %s: %w", docID, err)
	}
	return nil
}
