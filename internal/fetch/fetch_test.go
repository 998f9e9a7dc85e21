package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
<title>My &amp; Page</title>
<meta property="og:site_name" content="Example Site">
<style>body { color: red; }</style>
<script>console.log("noise");</script>
</head>
<body>
<h1>Welcome</h1>
<p>First paragraph.</p>
<p>Second   paragraph with    spaces.</p>
</body>
</html>`

func TestFetchContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(0)
	content, err := f.FetchContent(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if content.Title != "My & Page" {
		t.Errorf("title = %q", content.Title)
	}
	if content.SiteName != "Example Site" {
		t.Errorf("site name = %q", content.SiteName)
	}
	text := content.TextContent
	if strings.Contains(text, "console.log") || strings.Contains(text, "color: red") {
		t.Errorf("script/style should be stripped: %q", text)
	}
	if !strings.Contains(text, "Welcome") || !strings.Contains(text, "First paragraph.") {
		t.Errorf("body text missing: %q", text)
	}
	if strings.Contains(text, "Second   paragraph") {
		t.Errorf("whitespace should be collapsed: %q", text)
	}
	if strings.Contains(text, "<") {
		t.Errorf("markup left in text: %q", text)
	}
}

func TestFetchContent_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(0)
	if _, err := f.FetchContent(context.Background(), srv.URL); err == nil {
		t.Error("expected status error")
	}
}

func TestFetchContent_ConnectionRefused(t *testing.T) {
	f := NewHTTPFetcher(0)
	if _, err := f.FetchContent(context.Background(), "http://127.0.0.1:1/nope"); err == nil {
		t.Error("expected connection error")
	}
}

func TestStripMarkup_ParagraphBreaks(t *testing.T) {
	got := stripMarkup("<p>one</p><p>two</p><div>three</div>")
	if !strings.Contains(got, "one") || !strings.Contains(got, "two") || !strings.Contains(got, "three") {
		t.Errorf("got %q", got)
	}
	// Block-level closers become paragraph breaks.
	if !strings.Contains(got, "\n\n") {
		t.Errorf("expected paragraph breaks: %q", got)
	}
}

func TestStripMarkup_CollapsesBlankRuns(t *testing.T) {
	got := stripMarkup("a</p>\n\n\n\n\n<p>b")
	if strings.Contains(got, "\n\n\n") {
		t.Errorf("blank runs should collapse: %q", got)
	}
}
