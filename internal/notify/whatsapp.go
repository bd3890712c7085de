package notify

import (
	"context"

	"github.com/enxergar/outreach/internal/domain/entity"
)

// WhatsAppProvider delivers a WhatsApp message to a phone number given as digits.
type WhatsAppProvider interface {
	SendWhatsApp(ctx context.Context, toDigits, body string) (string, error)
}

type WhatsAppNotifier struct {
	phoneNotifier
}

func NewWhatsAppNotifier(p WhatsAppProvider, d Deps) *WhatsAppNotifier {
	n := &WhatsAppNotifier{phoneNotifier{base: newBase(entity.TemplateWhatsApp, d), maxLen: MaxWhatsAppLength}}
	if p != nil {
		n.deliver = p.SendWhatsApp
	}
	return n
}
