// Package notify delivers rendered notification templates over email, SMS and WhatsApp.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/enxergar/outreach/internal/domain/entity"
	"github.com/enxergar/outreach/internal/domain/repository"
	"github.com/enxergar/outreach/pkg/helpers"
	"github.com/enxergar/outreach/pkg/mailer"
	"github.com/enxergar/outreach/pkg/placeholder"
)

const (
	MaxWhatsAppLength = 4096
	MaxSMSLength      = 1600

	// ManualTemplateName sends templateData.custom_message instead of a stored template.
	ManualTemplateName = "teste_manual"
	customMessageKey   = "custom_message"
)

var (
	ErrTemplateNotFound      = errors.New("template not found or inactive")
	ErrTemplateRequired      = errors.New("templateId or templateName is required")
	ErrMissingContent        = errors.New("template has no content")
	ErrMessageTooLong        = errors.New("message too long")
	ErrInvalidPhone          = errors.New("invalid phone number")
	ErrMissingRecipient      = errors.New("recipient is required")
	ErrProviderNotConfigured = errors.New("provider not configured")
)

type Recipient struct {
	Name  string
	Email string
	Phone string
}

// Message asks a Notifier to render and deliver one template.
type Message struct {
	TemplateID   string
	TemplateName string
	Variables    entity.TemplateVariables
	Recipient    Recipient
	TestMode     bool
	JobID        string

	// Body and Subject replace the stored template for manual sends.
	Body    string
	Subject string
}

// Result describes what was (or in test mode would have been) delivered.
type Result struct {
	Channel      entity.TemplateType `json:"channel"`
	MessageID    string              `json:"messageId,omitempty"`
	TemplateName string              `json:"templateName"`
	Recipient    string              `json:"recipient"`
	Subject      string              `json:"subject,omitempty"`
	Content      string              `json:"content"`
	Length       int                 `json:"messageLength"`
	TestMode     bool                `json:"testMode"`
	SentAt       time.Time           `json:"sentAt"`
}

// Notifier is one delivery channel.
type Notifier interface {
	Channel() entity.TemplateType
	Send(ctx context.Context, msg Message) (Result, error)
}

// TemplateSource looks up the active template of a channel by id or name.
type TemplateSource interface {
	GetActive(ctx context.Context, typ entity.TemplateType, id, name string) (*entity.NotificationTemplate, error)
}

type SettingsRecorder interface {
	Upsert(ctx context.Context, key string, value any, description string) error
}

type DeliveryRecorder interface {
	Record(ctx context.Context, d entity.Delivery) error
}

// Deps are the collaborators shared by every channel.
type Deps struct {
	Templates  TemplateSource
	Settings   SettingsRecorder // optional
	Deliveries DeliveryRecorder // optional
	Logger     *logrus.Logger
	Now        func() time.Time
}

type base struct {
	channel entity.TemplateType
	deps    Deps
}

func newBase(ch entity.TemplateType, d Deps) base {
	if d.Logger == nil {
		d.Logger = helpers.NewNopLogger()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return base{channel: ch, deps: d}
}

func (b base) Channel() entity.TemplateType { return b.channel }

// template returns the template to render, honoring manual bodies.
func (b base) template(ctx context.Context, msg Message) (*entity.NotificationTemplate, error) {
	body := msg.Body
	if body == "" && msg.TemplateName == ManualTemplateName {
		body = msg.Variables[customMessageKey]
	}
	if body != "" {
		return &entity.NotificationTemplate{
			Name:     ManualTemplateName,
			Type:     b.channel,
			Subject:  msg.Subject,
			Content:  body,
			IsActive: true,
		}, nil
	}
	if msg.TemplateID == "" && msg.TemplateName == "" {
		return nil, ErrTemplateRequired
	}
	if b.deps.Templates == nil {
		return nil, ErrTemplateNotFound
	}
	t, err := b.deps.Templates.GetActive(ctx, b.channel, msg.TemplateID, msg.TemplateName)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && t == nil) {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, firstNonEmpty(msg.TemplateName, msg.TemplateID))
	}
	if err != nil {
		return nil, fmt.Errorf("load %s template: %w", b.channel, err)
	}
	return t, nil
}

func checkLength(content string, max int) error {
	if n := utf8.RuneCountInString(content); n > max {
		return fmt.Errorf("%w: %d characters (max %d)", ErrMessageTooLong, n, max)
	}
	return nil
}

func render(t *entity.NotificationTemplate, vars entity.TemplateVariables) (subject, content string) {
	return placeholder.Render(t.Subject, vars), placeholder.Render(t.Content, vars)
}

// providerErr maps provider configuration errors to ErrProviderNotConfigured.
func providerErr(ch entity.TemplateType, err error) error {
	if errors.Is(err, mailer.ErrNotConfigured) || errors.Is(err, helpers.ErrTwilioNotConfigured) {
		return fmt.Errorf("%s: %w", ch, ErrProviderNotConfigured)
	}
	return fmt.Errorf("%s provider: %w", ch, err)
}

// finish records the attempt in system settings and the delivery history.
// Recording failures are logged and never change the send outcome.
func (b base) finish(ctx context.Context, msg Message, res Result, sendErr error) {
	d := entity.Delivery{
		ID:            uuid.NewString(),
		Channel:       b.channel,
		Recipient:     res.Recipient,
		RecipientName: msg.Recipient.Name,
		TemplateName:  res.TemplateName,
		Subject:       res.Subject,
		MessageID:     res.MessageID,
		JobID:         msg.JobID,
		At:            b.deps.Now(),
	}
	switch {
	case sendErr != nil:
		d.Status = entity.DeliveryFailed
		d.Error = sendErr.Error()
	case res.TestMode:
		d.Status = entity.DeliveryPreview
	default:
		d.Status = entity.DeliverySent
	}

	log := b.deps.Logger.WithFields(logrus.Fields{
		"channel":  b.channel,
		"template": res.TemplateName,
		"job_id":   msg.JobID,
		"status":   d.Status,
	})
	if sendErr != nil {
		log.WithError(sendErr).Warn("notification failed")
	} else {
		log.Info("notification processed")
	}

	if d.Status == entity.DeliverySent && b.deps.Settings != nil {
		key := "last_" + string(b.channel) + "_sent"
		value := map[string]any{
			"recipient":  res.Recipient,
			"template":   res.TemplateName,
			"message_id": res.MessageID,
			"sent_at":    d.At.UTC().Format(time.RFC3339),
		}
		if err := b.deps.Settings.Upsert(ctx, key, value, "Último envio de "+string(b.channel)); err != nil {
			log.WithError(err).Warn("settings upsert failed")
		}
	}
	if b.deps.Deliveries != nil {
		if err := b.deps.Deliveries.Record(ctx, d); err != nil {
			log.WithError(err).Warn("delivery record failed")
		}
	}
}

// Preview shortens content to n characters followed by "..." when longer.
func Preview(content string, n int) string {
	if utf8.RuneCountInString(content) <= n {
		return content
	}
	r := []rune(content)
	return string(r[:n]) + "..."
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

var (
	_ Notifier = (*EmailNotifier)(nil)
	_ Notifier = (*SMSNotifier)(nil)
	_ Notifier = (*WhatsAppNotifier)(nil)
)
