package entity

import "time"

const (
	DeliverySent    = "sent"
	DeliveryFailed  = "failed"
	DeliveryPreview = "preview"
)

// Delivery is one channel send attempt, kept for the searchable delivery history.
type Delivery struct {
	ID            string       `json:"id"`
	Channel       TemplateType `json:"channel"`
	Recipient     string       `json:"recipient"`
	RecipientName string       `json:"recipient_name,omitempty"`
	TemplateName  string       `json:"template_name,omitempty"`
	Subject       string       `json:"subject,omitempty"`
	MessageID     string       `json:"message_id,omitempty"`
	Status        string       `json:"status"`
	Error         string       `json:"error,omitempty"`
	JobID         string       `json:"job_id,omitempty"`
	At            time.Time    `json:"at"`
	// Set from provider status callbacks after the send.
	ProviderStatus   string     `json:"provider_status,omitempty"`
	ProviderStatusAt *time.Time `json:"provider_status_at,omitempty"`
}
