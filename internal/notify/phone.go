package notify

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const brazilCountryCode = "55"

// NormalizePhone strips formatting and adds the Brazilian country code to
// local numbers: 10 or 11 digits get "55" prepended, 13 digits starting with
// "55" and anything longer than 13 digits are kept, other inputs are returned
// as bare digits.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch n := len(digits); {
	case n == 13 && strings.HasPrefix(digits, brazilCountryCode):
		return digits
	case n == 10 || n == 11:
		return brazilCountryCode + digits
	default:
		return digits
	}
}

// validPhone reports whether a normalized number is long enough to dial.
func validPhone(digits string) bool {
	return len(digits) >= 10
}

// phoneNotifier is the shared send path of the SMS and WhatsApp channels.
type phoneNotifier struct {
	base
	maxLen  int
	deliver func(ctx context.Context, toDigits, body string) (string, error)
}

func (n *phoneNotifier) Send(ctx context.Context, msg Message) (Result, error) {
	res, err := n.send(ctx, msg)
	n.finish(ctx, msg, res, err)
	return res, err
}

func (n *phoneNotifier) send(ctx context.Context, msg Message) (Result, error) {
	res := Result{Channel: n.channel, TestMode: msg.TestMode}

	phone := NormalizePhone(msg.Recipient.Phone)
	if phone == "" {
		return res, ErrMissingRecipient
	}
	if !validPhone(phone) {
		return res, ErrInvalidPhone
	}
	res.Recipient = phone

	t, err := n.template(ctx, msg)
	if err != nil {
		return res, err
	}
	res.TemplateName = t.Name
	_, content := render(t, msg.Variables)
	res.Content = content
	res.Length = utf8.RuneCountInString(content)
	if strings.TrimSpace(content) == "" {
		return res, ErrMissingContent
	}
	if err := checkLength(content, n.maxLen); err != nil {
		return res, err
	}
	if msg.TestMode {
		res.SentAt = n.deps.Now()
		return res, nil
	}
	if n.deliver == nil {
		return res, fmt.Errorf("%s: %w", n.channel, ErrProviderNotConfigured)
	}
	id, err := n.deliver(ctx, phone, content)
	if err != nil {
		return res, providerErr(n.channel, err)
	}
	res.MessageID = id
	res.SentAt = n.deps.Now()
	return res, nil
}
