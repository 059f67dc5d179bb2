package digest

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/domain"
)

// RSS represents the root RSS 2.0 element
type RSS struct {
	XMLName xml.Name    `xml:"rss"`
	Version string      `xml:"version,attr"`
	Atom    string      `xml:"xmlns:atom,attr"`
	Channel *RSSChannel `xml:"channel"`
}

// RSSChannel represents an RSS channel
type RSSChannel struct {
	XMLName       xml.Name   `xml:"channel"`
	Title         string     `xml:"title"`
	Link          string     `xml:"link"`
	Description   string     `xml:"description"`
	AtomLink      *AtomLink  `xml:"http://www.w3.org/2005/Atom link"`
	LastBuildDate string     `xml:"lastBuildDate"`
	Items         []*RSSItem `xml:"item"`
}

// AtomLink represents an Atom link element within RSS
type AtomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

// RSSGUID is an item guid, not a permalink since it changes with content
type RSSGUID struct {
	Value       string `xml:",chardata"`
	IsPermaLink bool   `xml:"isPermaLink,attr"`
}

// RSSItem represents an item in an RSS feed
type RSSItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	GUID        RSSGUID  `xml:"guid"`
	Description string   `xml:"description"`
	PubDate     string   `xml:"pubDate"`
	Categories  []string `xml:"category"`
}

// FeedRenderer makes RSS 2.0 feeds of digests
type FeedRenderer struct {
	baseURL string
}

// NewFeedRenderer creates a feed renderer with links under baseURL
func NewFeedRenderer(baseURL string) *FeedRenderer {
	return &FeedRenderer{baseURL: strings.TrimRight(baseURL, "/")}
}

// RSS renders the digest as an RSS 2.0 document, updated items first.
// builtAt is used for lastBuildDate and item pubDate.
func (f *FeedRenderer) RSS(d domain.Digest, builtAt time.Time) (string, error) {
	items := make([]*RSSItem, 0, len(d.Updated)+len(d.New))
	for _, e := range d.Updated {
		items = append(items, f.convertToRSSItem(e, builtAt))
	}
	for _, e := range d.New {
		items = append(items, f.convertToRSSItem(e, builtAt))
	}

	title := "Immigration Intelligence Brief"
	if d.Date != "" {
		title = Subject(d)
	}

	feed := &RSS{
		Version: "2.0",
		Atom:    "http://www.w3.org/2005/Atom",
		Channel: &RSSChannel{
			Title:         title,
			Link:          f.baseURL + "/",
			Description:   fmt.Sprintf("New and updated immigration items: %d new, %d updated", len(d.New), len(d.Updated)),
			AtomLink:      &AtomLink{Href: f.baseURL + "/rss", Rel: "self", Type: "application/rss+xml"},
			LastBuildDate: builtAt.Format(time.RFC1123Z),
			Items:         items,
		},
	}

	output, err := xml.MarshalIndent(feed, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal RSS: %w", err)
	}
	return xml.Header + string(output), nil
}

func (f *FeedRenderer) convertToRSSItem(e domain.DigestEntry, builtAt time.Time) *RSSItem {
	view := toEntryView(e)

	desc := fmt.Sprintf("%s - relevance %d", view.Source, view.Score)
	if view.PreviouslyCovered != "" {
		desc += "\nPreviously covered: " + view.PreviouslyCovered
	}
	switch {
	case len(view.Bullets) > 0:
		desc += "\n\n- " + strings.Join(view.Bullets, "\n- ")
	case view.Paragraph != "":
		desc += "\n\n" + view.Paragraph
	}

	guid := view.URL
	if fp := string(e.Fingerprint); len(fp) >= 12 {
		guid += "#" + fp[:12]
	}

	return &RSSItem{
		Title:       fmt.Sprintf("[%s] %s", view.Badge, view.Title),
		Link:        view.URL,
		GUID:        RSSGUID{Value: guid},
		Description: desc,
		PubDate:     builtAt.Format(time.RFC1123Z),
		Categories:  []string{Section(view.Source)},
	}
}
