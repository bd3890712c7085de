package helpers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	twilio "github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

var (
	ErrTwilioNotConfigured = errors.New("twilio not configured")
	ErrInvalidSignature    = errors.New("invalid twilio signature")
)

// TwilioClient sends SMS and WhatsApp messages through the Twilio Messages API
// and verifies the status callbacks Twilio posts back.
type TwilioClient struct {
	client         *twilio.RestClient
	validator      *client.RequestValidator
	smsFrom        string
	whatsAppFrom   string
	statusCallback string
}

func NewTwilioClient(accountSID, authToken, smsFrom, whatsAppFrom, statusCallback string) *TwilioClient {
	c := &TwilioClient{smsFrom: smsFrom, whatsAppFrom: whatsAppFrom, statusCallback: statusCallback}
	if authToken != "" {
		v := client.NewRequestValidator(authToken)
		c.validator = &v
	}
	if accountSID != "" && authToken != "" {
		c.client = twilio.NewRestClientWithParams(twilio.ClientParams{Username: accountSID, Password: authToken})
	}
	return c
}

// VerifyCallback checks the X-Twilio-Signature of a webhook Twilio posted to
// url with the given form params.
func (c *TwilioClient) VerifyCallback(url string, params map[string]string, signature string) error {
	if c == nil || c.validator == nil || url == "" {
		return ErrTwilioNotConfigured
	}
	if signature == "" || !c.validator.Validate(url, params, signature) {
		return ErrInvalidSignature
	}
	return nil
}

// SendSMS delivers body to an E.164 number given as digits. It returns the message SID.
func (c *TwilioClient) SendSMS(ctx context.Context, toDigits, body string) (string, error) {
	if c == nil || c.client == nil || c.smsFrom == "" {
		return "", ErrTwilioNotConfigured
	}
	return c.create(ctx, c.smsFrom, "+"+strings.TrimPrefix(toDigits, "+"), body)
}

// SendWhatsApp delivers body over WhatsApp. It returns the message SID.
func (c *TwilioClient) SendWhatsApp(ctx context.Context, toDigits, body string) (string, error) {
	if c == nil || c.client == nil {
		return "", ErrTwilioNotConfigured
	}
	from := WhatsAppAddress(c.whatsAppFrom)
	if from == "" {
		return "", ErrTwilioNotConfigured
	}
	return c.create(ctx, from, WhatsAppAddress(toDigits), body)
}

func (c *TwilioClient) create(ctx context.Context, from, to, body string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetBody(body)
	if c.statusCallback != "" {
		params.SetStatusCallback(c.statusCallback)
	}

	resp, err := c.client.Api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("twilio create message: %w", err)
	}
	if resp == nil || resp.Sid == nil {
		return "", nil
	}
	return *resp.Sid, nil
}

// WhatsAppAddress converts a phone number into Twilio's whatsapp:+<digits> form.
func WhatsAppAddress(number string) string {
	trimmed := strings.TrimSpace(number)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "whatsapp:") {
		return trimmed
	}
	if strings.HasPrefix(trimmed, "+") {
		return "whatsapp:" + trimmed
	}
	return "whatsapp:+" + trimmed
}
