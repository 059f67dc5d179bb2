package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/mmcdole/gofeed"

	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/content"
	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/domain"
)

const feedAccept = "application/rss+xml,application/atom+xml,application/xml;q=0.9,text/xml;q=0.8,text/html;q=0.7,*/*;q=0.5"

// errPermanent stops retries on responses that will not change on a second attempt
var errPermanent = errors.New("permanent failure")

// FeedParams configures a Feed
type FeedParams struct {
	Name       string
	URL        string
	MaxEntries int // 0 for no limit
	Client     *http.Client
	UserAgent  string
}

// Feed reads an RSS or Atom feed
type Feed struct {
	params FeedParams
}

// NewFeed makes a feed adapter
func NewFeed(p FeedParams) *Feed {
	if p.Client == nil {
		p.Client = newClient(0)
	}
	if p.UserAgent == "" {
		p.UserAgent = content.DefaultUserAgent
	}
	if p.Name == "" {
		p.Name = p.URL
	}
	return &Feed{params: p}
}

// Name returns the source label used on items
func (f *Feed) Name() string { return f.params.Name }

// Fetch downloads and parses the feed, keeping at most MaxEntries entries in feed order
func (f *Feed) Fetch(ctx context.Context) ([]domain.Item, error) {
	var parsed *gofeed.Feed
	retrier := repeater.NewBackoff(3, 500*time.Millisecond, repeater.WithMaxDelay(5*time.Second))
	err := retrier.Do(ctx, func() error {
		var err error
		parsed, err = f.fetchOnce(ctx)
		return err
	}, errPermanent)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", f.params.URL, err)
	}

	entries := parsed.Items
	if f.params.MaxEntries > 0 && len(entries) > f.params.MaxEntries {
		entries = entries[:f.params.MaxEntries]
	}

	items := make([]domain.Item, 0, len(entries))
	for _, e := range entries {
		published := e.Published
		if published == "" {
			published = e.Updated
		}
		summary := e.Description
		if summary == "" {
			summary = e.Content
		}
		items = append(items, domain.Item{
			Source:    f.params.Name,
			Title:     strings.TrimSpace(e.Title),
			URL:       strings.TrimSpace(e.Link),
			Summary:   content.StripHTML(summary),
			Published: strings.TrimSpace(published),
		})
	}
	return items, nil
}

func (f *Feed) fetchOnce(ctx context.Context) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.params.URL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", errPermanent, err)
	}
	req.Header.Set("User-Agent", f.params.UserAgent)
	content.AddBrowserHeaders(req, feedAccept)

	resp, err := f.params.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse feed: %w", errPermanent, err)
	}
	return parsed, nil
}

// checkStatus treats 5xx and 429 as retryable, any other non-200 as permanent
func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	default:
		return fmt.Errorf("%w: unexpected status code: %d", errPermanent, resp.StatusCode)
	}
}
