package helpers

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testCallbackURL = "https://api.example.org/api/webhooks/twilio/status"

func twilioSignature(token, url string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	payload := url
	for _, k := range keys {
		payload += k + params[k]
	}
	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestTwilioVerifyCallback(t *testing.T) {
	params := map[string]string{"MessageSid": "SM123", "MessageStatus": "delivered", "To": "+5511999887766"}
	c := NewTwilioClient("AC1", "secret", "+15550001", "+15550002", testCallbackURL)

	assert.NoError(t, c.VerifyCallback(testCallbackURL, params, twilioSignature("secret", testCallbackURL, params)))
	assert.ErrorIs(t, c.VerifyCallback(testCallbackURL, params, twilioSignature("other", testCallbackURL, params)), ErrInvalidSignature)
	assert.ErrorIs(t, c.VerifyCallback(testCallbackURL, params, ""), ErrInvalidSignature)

	tampered := map[string]string{"MessageSid": "SM123", "MessageStatus": "failed", "To": "+5511999887766"}
	assert.ErrorIs(t, c.VerifyCallback(testCallbackURL, tampered, twilioSignature("secret", testCallbackURL, params)), ErrInvalidSignature)

	otherURL := "https://api.example.org/api/webhooks/twilio/inbound"
	assert.ErrorIs(t, c.VerifyCallback(otherURL, params, twilioSignature("secret", testCallbackURL, params)), ErrInvalidSignature)
}

func TestTwilioVerifyCallbackNotConfigured(t *testing.T) {
	params := map[string]string{"MessageSid": "SM123"}
	assert.ErrorIs(t, NewTwilioClient("", "", "", "", "").VerifyCallback(testCallbackURL, params, "x"), ErrTwilioNotConfigured)
	assert.ErrorIs(t, NewTwilioClient("AC1", "secret", "", "", "").VerifyCallback("", params, "x"), ErrTwilioNotConfigured)

	var nilClient *TwilioClient
	assert.ErrorIs(t, nilClient.VerifyCallback(testCallbackURL, params, "x"), ErrTwilioNotConfigured)
}
