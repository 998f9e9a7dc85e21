package noterepo

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestRepository_SaveLoadDelete(t *testing.T) {
	repo, err := New(filepath.Join(t.TempDir(), "notes"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	doc := []byte(`{"title":"T","blocks":[]}`)
	if err := repo.Save(ctx, "doc1", doc); err != nil {
		t.Fatal(err)
	}
	got, err := repo.Load(ctx, "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(doc) {
		t.Errorf("loaded = %s", got)
	}

	if err := repo.Delete(ctx, "doc1"); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Load(ctx, "doc1"); err == nil {
		t.Error("deleted document should not load")
	}
	// Deleting again is not an error.
	if err := repo.Delete(ctx, "doc1"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestRepository_RejectsPathTraversal(t *testing.T) {
	repo, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	for _, id := range []string{"../escape", "a/b", ".", ".."} {
		if _, err := repo.Load(ctx, id); err == nil {
			t.Errorf("Load(%q) should be rejected", id)
		}
		if err := repo.Save(ctx, id, nil); err == nil {
			t.Errorf("Save(%q) should be rejected", id)
		}
		if err := repo.Delete(ctx, id); err == nil {
			t.Errorf("Delete(%q) should be rejected", id)
		}
	}
}

func TestRepository_GetAll(t *testing.T) {
	dir := t.TempDir()
	repo, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := repo.Save(ctx, "zeta", []byte(`{"title":"Z","tags":["one","two"],"blocks":[]}`)); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(ctx, "alpha", []byte(`{"title":"A","blocks":[]}`)); err != nil {
		t.Fatal(err)
	}
	// Unparseable files are still listed, by ID alone.
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{{"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Non-JSON files are ignored.
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	refs, err := repo.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 3 {
		t.Fatalf("refs = %+v", refs)
	}
	if refs[0].ID != "alpha" || refs[1].ID != "broken" || refs[2].ID != "zeta" {
		t.Errorf("order = %s, %s, %s", refs[0].ID, refs[1].ID, refs[2].ID)
	}
	if refs[0].Title != "A" {
		t.Errorf("alpha title = %q", refs[0].Title)
	}
	if len(refs[2].Tags) != 2 {
		t.Errorf("zeta tags = %v", refs[2].Tags)
	}
	if refs[1].Title != "" {
		t.Errorf("broken title = %q", refs[1].Title)
	}
}

func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "notes")
	repo, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	if repo.Dir() != dir {
		t.Errorf("dir = %s", repo.Dir())
	}
	refs, err := repo.GetAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 0 {
		t.Errorf("fresh repo refs = %d", len(refs))
	}
}
