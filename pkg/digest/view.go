// Package digest turns a run's changes into the email brief and an RSS feed.
package digest

import (
	"sort"
	"strings"

	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/domain"
)

// display limits
const (
	maxCritical        = 6
	maxHighlights      = 3
	maxPerSection      = 12
	maxBullets         = 12
	maxParagraphLength = 1200
)

// section names in display order
const (
	SectionGovUK       = "GOV.UK"
	SectionParliament  = "Parliament"
	SectionLegislation = "Legislation"
	SectionCourts      = "Courts & Tribunals"
	SectionOther       = "Other"
)

var sectionOrder = []string{SectionGovUK, SectionParliament, SectionLegislation, SectionCourts, SectionOther}

// Section maps a source label to its digest section
func Section(source string) string {
	switch {
	case strings.Contains(source, "GOV.UK"):
		return SectionGovUK
	case strings.Contains(source, "Parliament"):
		return SectionParliament
	case strings.Contains(source, "legislation.gov.uk"):
		return SectionLegislation
	case strings.Contains(source, "Judiciary"), strings.Contains(source, "UTIAC"):
		return SectionCourts
	default:
		return SectionOther
	}
}

// entryView is a digest entry ready for a template
type entryView struct {
	Badge             string
	Title             string
	URL               string
	Source            string
	Score             int
	PreviouslyCovered string
	Bullets           []string
	Paragraph         string
	Degraded          bool
	Fallback          bool
}

type sectionView struct {
	Name    string
	Entries []entryView
}

// view is the data passed to the email template
type view struct {
	Subject    string
	Date       string
	NewCount   int
	UpdCount   int
	Critical   []entryView
	Highlights []entryView
	Updated    []sectionView
	New        []sectionView
	Empty      bool
	Stats      domain.Stats
}

func buildView(d domain.Digest, criticalScore int) view {
	v := view{
		Subject:  Subject(d),
		Date:     d.Date,
		NewCount: len(d.New),
		UpdCount: len(d.Updated),
		Empty:    d.IsEmpty(),
		Stats:    d.Stats,
	}

	// updated first, then new; stable sort keeps that order on equal scores
	all := make([]entryView, 0, len(d.New)+len(d.Updated))
	for _, e := range d.Updated {
		all = append(all, toEntryView(e))
	}
	for _, e := range d.New {
		all = append(all, toEntryView(e))
	}

	for _, e := range all {
		if e.Score >= criticalScore && len(v.Critical) < maxCritical {
			v.Critical = append(v.Critical, e)
		}
	}

	ranked := make([]entryView, len(all))
	copy(ranked, all)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	if len(ranked) > maxHighlights {
		ranked = ranked[:maxHighlights]
	}
	v.Highlights = ranked

	v.Updated = bySection(all[:len(d.Updated)])
	v.New = bySection(all[len(d.Updated):])
	return v
}

func bySection(entries []entryView) []sectionView {
	buckets := map[string][]entryView{}
	for _, e := range entries {
		name := Section(e.Source)
		if len(buckets[name]) < maxPerSection {
			buckets[name] = append(buckets[name], e)
		}
	}
	res := make([]sectionView, 0, len(buckets))
	for _, name := range sectionOrder {
		if len(buckets[name]) > 0 {
			res = append(res, sectionView{Name: name, Entries: buckets[name]})
		}
	}
	return res
}

func toEntryView(e domain.DigestEntry) entryView {
	title := e.Title
	if title == "" {
		title = "(untitled)"
	}
	link := e.Key.URL
	if link == "" {
		link = e.URL
	}
	res := entryView{
		Badge:             string(e.Status),
		Title:             title,
		URL:               link,
		Source:            e.Source,
		Score:             e.Score,
		PreviouslyCovered: e.PreviouslyCovered,
		Degraded:          e.Degraded,
		Fallback:          e.Summary.Fallback,
	}
	res.Bullets, res.Paragraph = splitSummary(e.Summary.Text)
	return res
}

// splitSummary returns up to 12 bullet lines when the text has any, otherwise a single
// paragraph of at most 1200 characters
func splitSummary(text string) (bullets []string, paragraph string) {
	var lines []string
	for _, ln := range strings.Split(text, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
		}
	}
	for _, ln := range lines {
		if !strings.HasPrefix(ln, "-") && !strings.HasPrefix(ln, "•") && !strings.HasPrefix(ln, "*") {
			continue
		}
		if len(bullets) == maxBullets {
			break
		}
		bullets = append(bullets, strings.TrimSpace(strings.TrimLeft(ln, "-•* ")))
	}
	if len(bullets) > 0 {
		return bullets, ""
	}
	paragraph = strings.Join(lines, " ")
	if r := []rune(paragraph); len(r) > maxParagraphLength {
		paragraph = string(r[:maxParagraphLength])
	}
	return nil, paragraph
}
