package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-pkgz/repeater/v2"

	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/content"
	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/domain"
)

const govUKSearchCount = 50

// GovUKParams configures a GOV.UK search adapter
type GovUKParams struct {
	BaseURL       string
	Organisation  string
	LookbackDays  int
	DocumentTypes []string
	Client        *http.Client
	UserAgent     string
	Now           func() time.Time // clock for the lookback window, time.Now by default
}

// GovUKSearch lists recent documents of one organisation via the GOV.UK search API
type GovUKSearch struct {
	GovUKParams
}

type govUKSearchResponse struct {
	Results []struct {
		Title           string `json:"title"`
		Link            string `json:"link"`
		Description     string `json:"description"`
		PublicTimestamp string `json:"public_timestamp"`
	} `json:"results"`
}

// NewGovUKSearch makes a GOV.UK search adapter
func NewGovUKSearch(p GovUKParams) *GovUKSearch {
	if p.BaseURL == "" {
		p.BaseURL = "https://www.gov.uk"
	}
	p.BaseURL = strings.TrimRight(p.BaseURL, "/")
	if p.LookbackDays <= 0 {
		p.LookbackDays = 3
	}
	if p.Client == nil {
		p.Client = newClient(0)
	}
	if p.UserAgent == "" {
		p.UserAgent = content.DefaultUserAgent
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &GovUKSearch{GovUKParams: p}
}

// Name returns the source label used on items
func (g *GovUKSearch) Name() string {
	return fmt.Sprintf("GOV.UK (%s)", g.Organisation)
}

// Fetch queries the search API, newest first
func (g *GovUKSearch) Fetch(ctx context.Context) ([]domain.Item, error) {
	var resp govUKSearchResponse
	retrier := repeater.NewBackoff(3, 500*time.Millisecond, repeater.WithMaxDelay(5*time.Second))
	err := retrier.Do(ctx, func() error {
		var err error
		resp, err = g.searchOnce(ctx)
		return err
	}, errPermanent)
	if err != nil {
		return nil, fmt.Errorf("search gov.uk %s: %w", g.Organisation, err)
	}

	items := make([]domain.Item, 0, len(resp.Results))
	for _, r := range resp.Results {
		link := strings.TrimSpace(r.Link)
		if link != "" && !strings.HasPrefix(link, "http") {
			link = g.BaseURL + link
		}
		items = append(items, domain.Item{
			Source:    g.Name(),
			Title:     strings.TrimSpace(r.Title),
			URL:       link,
			Summary:   strings.TrimSpace(r.Description),
			Published: strings.TrimSpace(r.PublicTimestamp),
		})
	}
	return items, nil
}

// SearchURL returns the search request URL for the current lookback window
func (g *GovUKSearch) SearchURL() string {
	since := g.Now().UTC().AddDate(0, 0, -g.LookbackDays).Format("2006-01-02")
	q := url.Values{}
	q.Set("filter_organisations", g.Organisation)
	q.Set("order", "-public_timestamp")
	q.Set("count", strconv.Itoa(govUKSearchCount))
	q.Set("filter_public_timestamp", "from:"+since)
	if len(g.DocumentTypes) > 0 {
		q.Set("filter_document_type", strings.Join(g.DocumentTypes, ","))
	}
	return g.BaseURL + "/api/search.json?" + q.Encode()
}

func (g *GovUKSearch) searchOnce(ctx context.Context) (govUKSearchResponse, error) {
	var res govUKSearchResponse
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.SearchURL(), http.NoBody)
	if err != nil {
		return res, fmt.Errorf("%w: create request: %w", errPermanent, err)
	}
	req.Header.Set("User-Agent", g.UserAgent)
	content.AddBrowserHeaders(req, "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return res, fmt.Errorf("fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return res, err
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return res, fmt.Errorf("%w: decode search response: %w", errPermanent, err)
	}
	return res, nil
}
