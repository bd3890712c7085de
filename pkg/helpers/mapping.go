package helpers

import (
	"strings"

	"github.com/enxergar/outreach/pkg/mailer"
	mailtpl "github.com/enxergar/outreach/pkg/mailer/templates"
)

// NormalizeEmailJob lower-cases the template name and fills a default subject.
func NormalizeEmailJob(job *mailer.EmailJob) {
	job.To = strings.TrimSpace(job.To)
	job.Template = strings.ToLower(strings.TrimSpace(job.Template))
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	if strings.TrimSpace(job.Subject) == "" && job.Template != "" {
		job.Subject = mailtpl.DefaultSubject(job.Template)
	}
}

// RenderEmailJob produces the final subject, text and html for a queued job.
func RenderEmailJob(job mailer.EmailJob) (subject, text, html string, err error) {
	if job.Template == "" {
		return job.Subject, job.Text, job.HTML, nil
	}
	html, err = mailtpl.RenderHTML(job.Template, job.Data)
	if err != nil {
		return "", "", "", err
	}
	return job.Subject, job.Text, html, nil
}
