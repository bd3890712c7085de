package templates

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	htmpl "html/template"
	"reflect"
	"strings"
	"time"
)

//go:embed *.tmpl
var FS embed.FS

// NotificationData defines the fields used by the transactional email templates.
type NotificationData struct {
	Name          string `json:"Name"`
	EventTitle    string `json:"EventTitle"`
	EventDate     string `json:"EventDate"`
	EventTime     string `json:"EventTime"`
	EventLocation string `json:"EventLocation"`
	EventAddress  string `json:"EventAddress"`

	OrgName      string `json:"OrgName"`
	OrgTagline   string `json:"OrgTagline"`
	SupportEmail string `json:"SupportEmail"`
}

// ToMap converts NotificationData to a map[string]any for EmailJob.Data
func ToMap(d NotificationData) map[string]any {
	b, _ := json.Marshal(d)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

// defaultFn supports pipe usage: {{ .Value | default "Fallback" }}
func defaultFn(fallback any, value any) any {
	switch x := value.(type) {
	case string:
		if strings.TrimSpace(x) == "" {
			return fallback
		}
		return x
	case nil:
		return fallback
	default:
		rv := reflect.ValueOf(value)
		if !rv.IsValid() {
			return fallback
		}
		if rv.IsZero() {
			return fallback
		}
		return value
	}
}

var htmlFuncMap = htmpl.FuncMap{
	"now":     func() time.Time { return time.Now().UTC() },
	"year":    func() int { return time.Now().Year() },
	"upper":   strings.ToUpper,
	"default": defaultFn,
}

// ---- Template names ----

const (
	RegistrationConfirmation = "registration_confirmation"
	EventReminder            = "event_reminder"
	RegistrationCancelled    = "registration_cancelled"

	// Layout wraps admin-authored reminder content for the email channel.
	Layout = "layout"
)

// Known reports whether name is one of the transactional templates.
func Known(name string) bool {
	switch name {
	case RegistrationConfirmation, EventReminder, RegistrationCancelled:
		return true
	}
	return false
}

// DefaultSubject is used when a notification request carries no subject.
func DefaultSubject(name string) string {
	switch name {
	case RegistrationConfirmation:
		return "Confirmação de Inscrição"
	case EventReminder:
		return "Lembrete do Evento"
	case RegistrationCancelled:
		return "Cancelamento de Inscrição"
	default:
		return "Notificação"
	}
}

// RenderHTML renders <name>.html.tmpl from the embedded FS.
func RenderHTML(name string, data any) (string, error) {
	filename := name + ".html.tmpl"
	tpl, err := htmpl.New(filename).Funcs(htmlFuncMap).ParseFS(FS, filename)
	if err != nil {
		return "", fmt.Errorf("parse html %q: %w", filename, err)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("exec %q: %w", filename, err)
	}
	return buf.String(), nil
}
