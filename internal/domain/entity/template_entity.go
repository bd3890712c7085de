package entity

import "time"

// TemplateType is the delivery channel a template is written for.
type TemplateType string

const (
	TemplateEmail    TemplateType = "email"
	TemplateSMS      TemplateType = "sms"
	TemplateWhatsApp TemplateType = "whatsapp"
)

func (t TemplateType) Valid() bool {
	switch t {
	case TemplateEmail, TemplateSMS, TemplateWhatsApp:
		return true
	}
	return false
}

// NotificationTemplate is an admin-authored message with {{placeholder}} tokens.
// Subject is only meaningful for email templates.
type NotificationTemplate struct {
	ID        string
	Name      string
	Type      TemplateType
	Subject   string
	Content   string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TemplateVariables maps placeholder keys to their substitution values.
type TemplateVariables map[string]string
