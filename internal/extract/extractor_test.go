package extract

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeTemp(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractText_Plain(t *testing.T) {
	e := NewExtractor()
	path := writeTemp(t, "notes.md", []byte("# Heading\n\nBody text."))
	got, err := e.ExtractText(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != "# Heading\n\nBody text." {
		t.Errorf("got %q", got)
	}
}

func TestExtractText_UnknownExtensionIsPlain(t *testing.T) {
	e := NewExtractor()
	path := writeTemp(t, "data.log", []byte("log line"))
	got, err := e.ExtractText(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != "log line" {
		t.Errorf("got %q", got)
	}
}

func TestExtractText_InvalidUTF8Sanitized(t *testing.T) {
	e := NewExtractor()
	path := writeTemp(t, "mixed.txt", []byte{'o', 'k', 0xff, 0xfe, '!'})
	got, err := e.ExtractText(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, "ok") || !strings.HasSuffix(got, "!") {
		t.Errorf("got %q", got)
	}
	if !strings.Contains(got, "�") {
		t.Errorf("invalid bytes should be replaced: %q", got)
	}
}

func TestExtractText_MissingFile(t *testing.T) {
	e := NewExtractor()
	if _, err := e.ExtractText(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("expected error")
	}
}

func TestExtractText_DOCX(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = w.Write([]byte(`<w:document><w:body>` +
		`<w:p><w:r><w:t>Hello</w:t></w:r><w:r><w:t xml:space="preserve">world</w:t></w:r></w:p>` +
		`</w:body></w:document>`))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	e := NewExtractor()
	path := writeTemp(t, "doc.docx", buf.Bytes())
	got, err := e.ExtractText(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != "Hello world" {
		t.Errorf("got %q", got)
	}
}

func TestExtractText_DOCXWithoutBody(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if _, err := zw.Create("word/other.xml"); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	e := NewExtractor()
	path := writeTemp(t, "empty.docx", buf.Bytes())
	if _, err := e.ExtractText(path); err == nil {
		t.Error("docx without document.xml should error")
	}
}

func TestExtractText_XLSX(t *testing.T) {
	f := excelize.NewFile()
	if err := f.SetCellValue("Sheet1", "A1", "name"); err != nil {
		t.Fatal(err)
	}
	_ = f.SetCellValue("Sheet1", "B1", "count")
	_ = f.SetCellValue("Sheet1", "A2", "apples")
	_ = f.SetCellValue("Sheet1", "B2", 7)

	path := filepath.Join(t.TempDir(), "sheet.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	e := NewExtractor()
	got, err := e.ExtractText(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "name\tcount") || !strings.Contains(got, "apples\t7") {
		t.Errorf("got %q", got)
	}
}
