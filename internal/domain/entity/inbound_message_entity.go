package entity

import "time"

// InboundMessage is a patient reply received on an SMS or WhatsApp number.
type InboundMessage struct {
	ID          string
	MessageSid  string
	Channel     TemplateType
	From        string
	To          string
	Text        string
	NumMedia    int
	ReceivedAt  time.Time
	Processed   bool
	ProcessedAt *time.Time
}
