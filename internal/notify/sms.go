package notify

import (
	"context"

	"github.com/enxergar/outreach/internal/domain/entity"
)

// SMSProvider delivers a text message to a phone number given as digits.
type SMSProvider interface {
	SendSMS(ctx context.Context, toDigits, body string) (string, error)
}

type SMSNotifier struct {
	phoneNotifier
}

func NewSMSNotifier(p SMSProvider, d Deps) *SMSNotifier {
	n := &SMSNotifier{phoneNotifier{base: newBase(entity.TemplateSMS, d), maxLen: MaxSMSLength}}
	if p != nil {
		n.deliver = p.SendSMS
	}
	return n
}
