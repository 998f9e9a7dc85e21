// Package fetch defines the web-content fetcher collaborator and a minimal
// HTTP implementation.
package fetch

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// WebContent is the readable content of one web page.
type WebContent struct {
	Title       string
	SiteName    string
	TextContent string
}

// WebFetcher retrieves readable content from a URL. The block editor ships its
// own readability extractor; this interface is the boundary to it.
type WebFetcher interface {
	FetchContent(ctx context.Context, url string) (*WebContent, error)
}

// HTTPFetcher is a basic WebFetcher: it downloads the page and strips markup.
// Good enough headless; the desktop app injects a richer implementation.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a fetcher with the given timeout (default 30s).
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

var (
	titleRe    = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	siteNameRe = regexp.MustCompile(`(?is)<meta[^>]+property=["']og:site_name["'][^>]+content=["']([^"']*)["']`)
	tagRe      = regexp.MustCompile(`(?s)<[^>]*>`)
	blankRe    = regexp.MustCompile(`\n{3,}`)
	dropRe     = regexp.MustCompile(`(?is)<(script|style|noscript|head)[^>]*>.*?</(script|style|noscript|head)>`)
	breakRe    = regexp.MustCompile(`(?i)</(p|div|section|article|li|h[1-6]|br)>`)
)

// FetchContent downloads url and returns its title, site name, and text.
func (f *HTTPFetcher) FetchContent(ctx context.Context, url string) (*WebContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}

	page := string(body)
	content := &WebContent{}
	if m := titleRe.FindStringSubmatch(page); m != nil {
		content.Title = strings.TrimSpace(html.UnescapeString(m[1]))
	}
	if m := siteNameRe.FindStringSubmatch(page); m != nil {
		content.SiteName = strings.TrimSpace(html.UnescapeString(m[1]))
	}
	content.TextContent = stripMarkup(page)
	return content, nil
}

func stripMarkup(page string) string {
	page = dropRe.ReplaceAllString(page, " ")
	page = breakRe.ReplaceAllString(page, "\n\n")
	page = tagRe.ReplaceAllString(page, " ")
	page = html.UnescapeString(page)

	var lines []string
	for _, line := range strings.Split(page, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		lines = append(lines, line)
	}
	text := strings.Join(lines, "\n")
	text = blankRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
