package notify

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/enxergar/outreach/internal/domain/entity"
	mailtpl "github.com/enxergar/outreach/pkg/mailer/templates"
)

// EmailProvider sends one email and returns the provider message id.
type EmailProvider interface {
	Send(ctx context.Context, to, subject, text, html string) (string, error)
}

// Branding is shown in the email layout.
type Branding struct {
	OrgName    string
	OrgTagline string
}

type EmailNotifier struct {
	base
	provider EmailProvider
	brand    Branding
}

func NewEmailNotifier(p EmailProvider, brand Branding, d Deps) *EmailNotifier {
	return &EmailNotifier{base: newBase(entity.TemplateEmail, d), provider: p, brand: brand}
}

func (n *EmailNotifier) Send(ctx context.Context, msg Message) (Result, error) {
	res, err := n.send(ctx, msg)
	n.finish(ctx, msg, res, err)
	return res, err
}

func (n *EmailNotifier) send(ctx context.Context, msg Message) (Result, error) {
	res := Result{Channel: n.channel, TestMode: msg.TestMode}

	to := strings.TrimSpace(msg.Recipient.Email)
	if to == "" || !strings.Contains(to, "@") {
		return res, ErrMissingRecipient
	}
	res.Recipient = to

	t, err := n.template(ctx, msg)
	if err != nil {
		return res, err
	}
	res.TemplateName = t.Name
	if strings.TrimSpace(t.Subject) == "" || strings.TrimSpace(t.Content) == "" {
		return res, ErrMissingContent
	}
	subject, content := render(t, msg.Variables)
	res.Subject = subject
	res.Content = content
	res.Length = utf8.RuneCountInString(content)

	html, err := mailtpl.RenderLayout(mailtpl.LayoutData{
		Subject:        subject,
		Body:           mailtpl.FormatMessageHTML(content),
		OrgName:        n.brand.OrgName,
		OrgTagline:     n.brand.OrgTagline,
		UnsubscribeURL: msg.Variables["unsubscribe_link"],
	})
	if err != nil {
		return res, fmt.Errorf("email layout: %w", err)
	}
	if msg.TestMode {
		res.SentAt = n.deps.Now()
		return res, nil
	}
	if n.provider == nil {
		return res, fmt.Errorf("%s: %w", n.channel, ErrProviderNotConfigured)
	}
	id, err := n.provider.Send(ctx, to, subject, content, html)
	if err != nil {
		return res, providerErr(n.channel, err)
	}
	res.MessageID = id
	res.SentAt = n.deps.Now()
	return res, nil
}
