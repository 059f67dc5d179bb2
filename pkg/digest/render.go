package digest

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/domain"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Renderer produces the email subject and bodies for a digest
type Renderer struct {
	tmpl          *template.Template
	criticalScore int
}

// NewRenderer parses the embedded email template. Changes scoring at least criticalScore
// are listed as critical alerts.
func NewRenderer(criticalScore int) (*Renderer, error) {
	tmpl, err := template.New("email.html").Funcs(template.FuncMap{
		"badgeColors": badgeColors,
	}).ParseFS(templatesFS, "templates/email.html")
	if err != nil {
		return nil, fmt.Errorf("parse email template: %w", err)
	}
	return &Renderer{tmpl: tmpl, criticalScore: criticalScore}, nil
}

// Subject returns the email subject for the digest date
func Subject(d domain.Digest) string {
	return "Immigration Intelligence Brief — " + d.Date
}

// HTML renders the email body
func (r *Renderer) HTML(d domain.Digest) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "email.html", buildView(d, r.criticalScore)); err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return buf.String(), nil
}

// Text renders a plain text alternative of the email body
func (r *Renderer) Text(d domain.Digest) string {
	v := buildView(d, r.criticalScore)
	var sb strings.Builder
	sb.WriteString(v.Subject + "\n\n")
	fmt.Fprintf(&sb, "Updated: %d | New: %d\n", v.UpdCount, v.NewCount)
	if v.Empty {
		sb.WriteString("\nNo material updates detected for this run.\n")
		return sb.String()
	}

	write := func(heading string, sections []sectionView) {
		if len(sections) == 0 {
			return
		}
		sb.WriteString("\n" + heading + "\n")
		for _, s := range sections {
			sb.WriteString("\n" + s.Name + "\n")
			for _, e := range s.Entries {
				fmt.Fprintf(&sb, "* [%s] %s\n  %s\n", e.Badge, e.Title, e.URL)
				if e.PreviouslyCovered != "" {
					fmt.Fprintf(&sb, "  Previously covered: %s\n", e.PreviouslyCovered)
				}
			}
		}
	}
	write("Updated since last brief", v.Updated)
	write("New items", v.New)
	return sb.String()
}

// badgeColors returns background, border and text colors of a status badge
func badgeColors(badge string) []string {
	if badge == string(domain.StatusNew) {
		return []string{"#EFF6FF", "#BFDBFE", "#1D4ED8"}
	}
	return []string{"#FFF7ED", "#FED7AA", "#9A3412"}
}
