// Package source holds the upstream adapters: the GOV.UK search API and RSS/Atom feeds.
// Adapters return whatever the upstream listed, without filtering or deduplication.
package source

import (
	"context"
	"net/http"
	"time"

	log "github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"

	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/config"
	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/domain"
)

// Fetcher is a single upstream adapter
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]domain.Item, error)
}

// Collector fetches a fixed set of sources concurrently
type Collector struct {
	sources []Fetcher
	timeout time.Duration
}

// NewCollector makes a collector over sources, each fetch bounded by timeout
func NewCollector(timeout time.Duration, sources ...Fetcher) *Collector {
	return &Collector{sources: sources, timeout: timeout}
}

// FromConfig builds the collector for configured GOV.UK organisations and feeds, in that order
func FromConfig(cfg config.SourcesConfig, userAgent string) *Collector {
	client := newClient(cfg.Timeout)
	sources := make([]Fetcher, 0, len(cfg.GovUK.Organisations)+len(cfg.Feeds))
	for _, org := range cfg.GovUK.Organisations {
		sources = append(sources, NewGovUKSearch(GovUKParams{
			BaseURL:       cfg.GovUK.BaseURL,
			Organisation:  org,
			LookbackDays:  cfg.GovUK.LookbackDays,
			DocumentTypes: cfg.GovUK.DocumentTypes,
			Client:        client,
			UserAgent:     userAgent,
		}))
	}
	for _, f := range cfg.Feeds {
		sources = append(sources, NewFeed(FeedParams{
			Name:       f.Name,
			URL:        f.URL,
			MaxEntries: cfg.MaxEntries,
			Client:     client,
			UserAgent:  userAgent,
		}))
	}
	return NewCollector(cfg.Timeout, sources...)
}

// Name of the combined source
func (c *Collector) Name() string { return "all sources" }

// Fetch runs every source concurrently and concatenates results in source order.
// A failing source is logged and contributes nothing; Fetch itself never fails.
func (c *Collector) Fetch(ctx context.Context) ([]domain.Item, error) {
	results := make([][]domain.Item, len(c.sources))
	var g errgroup.Group
	for i, src := range c.sources {
		g.Go(func() error {
			fetchCtx := ctx
			if c.timeout > 0 {
				var cancel context.CancelFunc
				fetchCtx, cancel = context.WithTimeout(ctx, c.timeout)
				defer cancel()
			}
			items, err := src.Fetch(fetchCtx)
			if err != nil {
				log.Printf("[WARN] source %s failed: %v", src.Name(), err)
				return nil
			}
			log.Printf("[INFO] fetched %d items from %s", len(items), src.Name())
			results[i] = items
			return nil
		})
	}
	_ = g.Wait() // sources never return errors to the group

	var res []domain.Item
	for _, items := range results {
		res = append(res, items...)
	}
	log.Printf("[INFO] collected %d items from %d sources", len(res), len(c.sources))
	return res, nil
}

func newClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
