package templates

import (
	"html"
	htmpl "html/template"
	"regexp"
	"strings"

	"github.com/enxergar/outreach/config"
)

// Option pattern
type Option func(*NotificationData)

func WithEvent(title, date, timeRange string) Option {
	return func(d *NotificationData) {
		d.EventTitle = title
		d.EventDate = date
		d.EventTime = timeRange
	}
}

func WithVenue(location, address string) Option {
	return func(d *NotificationData) {
		d.EventLocation = strings.TrimSpace(location)
		d.EventAddress = strings.TrimSpace(address)
	}
}

// NewNotificationData fills organization fields from config, then applies opts.
func NewNotificationData(cfg *config.Config, name string, opts ...Option) map[string]any {
	d := NotificationData{Name: name}
	if cfg != nil {
		d.OrgName = cfg.OrgName
		d.OrgTagline = cfg.OrgTagline
		d.SupportEmail = cfg.SupportEmail
	}
	for _, opt := range opts {
		opt(&d)
	}
	return ToMap(d)
}

// LayoutData feeds layout.html.tmpl.
type LayoutData struct {
	Subject        string
	Body           htmpl.HTML
	OrgName        string
	OrgTagline     string
	UnsubscribeURL string
}

var (
	boldRe   = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicRe = regexp.MustCompile(`\*(.*?)\*`)
)

// FormatMessageHTML turns plain reminder content into safe HTML: the text is
// escaped, newlines become <br>, **bold** and *italic* become strong and em.
func FormatMessageHTML(content string) htmpl.HTML {
	s := html.EscapeString(content)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\n", "<br>")
	s = boldRe.ReplaceAllString(s, "<strong>$1</strong>")
	s = italicRe.ReplaceAllString(s, "<em>$1</em>")
	return htmpl.HTML(s)
}

// RenderLayout wraps rendered reminder content in the email layout.
func RenderLayout(d LayoutData) (string, error) {
	return RenderHTML(Layout, d)
}
