// Package content fetches the full text of an item. GOV.UK documents are read through the
// content API, other pages are downloaded and run through trafilatura. A failed fetch never
// surfaces as an error: the result degrades to the item's title and summary.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html/charset"

	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/domain"
)

const maxBodySize = 10 << 20 // 10MB

// Options configures a Fetcher
type Options struct {
	Timeout   time.Duration
	UserAgent string
	MaxChars  int    // cap on generic page text, 0 for no cap
	GovUKBase string // base URL of GOV.UK, pages on its host use the content API
}

// Fetcher retrieves plain text and a change hint for items
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxChars  int
	govUK     *url.URL
}

// govUKContent is the subset of the GOV.UK content API response used for text
type govUKContent struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	UpdatedAt       string `json:"updated_at"`
	PublicUpdatedAt string `json:"public_updated_at"`
	Details         struct {
		Body  json.RawMessage `json:"body"`
		Parts []struct {
			Title string `json:"title"`
			Body  string `json:"body"`
		} `json:"parts"`
	} `json:"details"`
}

// NewFetcher creates a new full-text fetcher
func NewFetcher(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.GovUKBase == "" {
		opts.GovUKBase = "https://www.gov.uk"
	}
	govUK, err := url.Parse(strings.TrimRight(opts.GovUKBase, "/"))
	if err != nil || govUK.Host == "" {
		log.Printf("[WARN] invalid gov.uk base %q, content api disabled", opts.GovUKBase)
		govUK = nil
	}
	return &Fetcher{
		client:    &http.Client{Timeout: opts.Timeout},
		userAgent: opts.UserAgent,
		maxChars:  opts.MaxChars,
		govUK:     govUK,
	}
}

// Fetch returns the item's plain text and change hint, or a degraded title and summary text
func (f *Fetcher) Fetch(ctx context.Context, item domain.Item) domain.FullText {
	pageURL := strings.TrimSpace(item.URL)

	if path, ok := f.govUKPath(pageURL); ok {
		res, err := f.fetchGovUK(ctx, path)
		if err == nil {
			return res
		}
		log.Printf("[DEBUG] gov.uk content api failed for %s, fetching page: %v", pageURL, err)
	}

	res, err := f.fetchPage(ctx, pageURL)
	if err == nil {
		return res
	}
	log.Printf("[WARN] can't fetch %s, using title and summary: %v", pageURL, err)
	return Degraded(item)
}

// Degraded is the fallback text of an item whose page could not be fetched
func Degraded(item domain.Item) domain.FullText {
	text := strings.TrimSpace(Collapse(item.Title) + "\n" + StripHTML(item.Summary))
	return domain.FullText{Text: text, Degraded: true}
}

// govUKPath returns the path of a page hosted on GOV.UK
func (f *Fetcher) govUKPath(pageURL string) (string, bool) {
	if f.govUK == nil {
		return "", false
	}
	u, err := url.Parse(pageURL)
	if err != nil || !strings.EqualFold(u.Host, f.govUK.Host) {
		return "", false
	}
	path := strings.TrimRight(u.EscapedPath(), "/")
	if path == "" {
		return "", false
	}
	return path, true
}

func (f *Fetcher) fetchGovUK(ctx context.Context, path string) (domain.FullText, error) {
	apiURL := f.govUK.String() + "/api/content" + path
	body, _, err := f.get(ctx, apiURL, "application/json")
	if err != nil {
		return domain.FullText{}, err
	}

	var doc govUKContent
	if err := json.Unmarshal(body, &doc); err != nil {
		return domain.FullText{}, fmt.Errorf("decode content api response: %w", err)
	}

	var bodyHTML string
	var s string
	if len(doc.Details.Body) > 0 && json.Unmarshal(doc.Details.Body, &s) == nil {
		bodyHTML = s
	}
	if bodyHTML == "" && len(doc.Details.Parts) > 0 {
		parts := make([]string, 0, len(doc.Details.Parts))
		for _, p := range doc.Details.Parts {
			parts = append(parts, p.Body)
		}
		bodyHTML = strings.Join(parts, "\n")
	}

	lines := make([]string, 0, 3)
	for _, l := range []string{Collapse(doc.Title), Collapse(doc.Description), StripHTML(bodyHTML)} {
		if l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return domain.FullText{}, errors.New("empty content api document")
	}

	hint := doc.UpdatedAt
	if hint == "" {
		hint = doc.PublicUpdatedAt
	}
	return domain.FullText{Text: strings.Join(lines, "\n"), Hint: hint}, nil
}

func (f *Fetcher) fetchPage(ctx context.Context, pageURL string) (domain.FullText, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return domain.FullText{}, fmt.Errorf("parse URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return domain.FullText{}, fmt.Errorf("invalid URL: %s", pageURL)
	}

	body, header, err := f.get(ctx, pageURL, "")
	if err != nil {
		return domain.FullText{}, err
	}

	text := extractText(body, u)
	if text == "" {
		return domain.FullText{}, fmt.Errorf("no text content extracted from %s", pageURL)
	}

	hint := header.Get("Last-Modified")
	if hint == "" {
		hint = header.Get("ETag")
	}
	return domain.FullText{Text: truncateRunes(text, f.maxChars), Hint: hint}, nil
}

// extractText runs trafilatura and falls back to stripping all markup when it finds nothing
func extractText(page []byte, pageURL *url.URL) string {
	opts := trafilatura.Options{
		EnableFallback:  true,
		ExcludeComments: true,
		OriginalURL:     pageURL,
	}
	result, err := trafilatura.Extract(bytes.NewReader(page), opts)
	if err == nil && result != nil {
		if text := Collapse(result.ContentText); text != "" {
			return text
		}
	}
	return StripHTML(string(page))
}

// get performs a GET with browser-like headers and returns the body decoded to UTF-8
func (f *Fetcher) get(ctx context.Context, rawURL, accept string) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	AddBrowserHeaders(req, accept)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch URL %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("unexpected status code %d for URL %s", resp.StatusCode, rawURL)
	}

	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, nil, fmt.Errorf("detect charset: %w", err)
	}
	body, err := io.ReadAll(io.LimitReader(reader, maxBodySize))
	if err != nil {
		return nil, nil, fmt.Errorf("read body: %w", err)
	}
	return body, resp.Header, nil
}
