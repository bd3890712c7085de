package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/enxergar/outreach/internal/domain/entity"
	repo "github.com/enxergar/outreach/internal/domain/repository"
	"github.com/enxergar/outreach/internal/notify"
	"github.com/enxergar/outreach/pkg/helpers"
)

const defaultBulkSubject = "Mensagem importante"

var (
	ErrBulkNoChannels = errors.New("at least one message type must be specified")
	ErrBulkNoMessage  = errors.New("either templateName or customMessage must be provided")
	ErrBulkChannel    = errors.New("unknown message type")
)

var bulkOrder = []entity.TemplateType{entity.TemplateEmail, entity.TemplateSMS, entity.TemplateWhatsApp}

var channelLabel = map[entity.TemplateType]string{
	entity.TemplateEmail:    "Email",
	entity.TemplateSMS:      "SMS",
	entity.TemplateWhatsApp: "WhatsApp",
}

type BulkFilters struct {
	RegistrationStatuses []string
	Cities               []string
	DateFrom             *time.Time
	DateTo               *time.Time
}

type BulkRequest struct {
	EventIDs      []string
	EventDateIDs  []string
	Channels      []entity.TemplateType
	TemplateName  string
	CustomMessage string
	TestMode      bool
	Filters       BulkFilters
}

type BulkRecipientResult struct {
	PatientID    string   `json:"patientId"`
	PatientName  string   `json:"patientName"`
	Email        string   `json:"email,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	EmailSent    bool     `json:"emailSent"`
	SMSSent      bool     `json:"smsSent"`
	WhatsAppSent bool     `json:"whatsappSent"`
	Errors       []string `json:"errors"`
}

type BulkResult struct {
	TotalRecipients int                   `json:"totalRecipients"`
	EmailsSent      int                   `json:"emailsSent"`
	SMSSent         int                   `json:"smsSent"`
	WhatsAppSent    int                   `json:"whatsappSent"`
	Errors          []string              `json:"errors"`
	Recipients      []BulkRecipientResult `json:"recipients"`
}

// BulkSender sends one template or free-text message to every patient matching a filter.
type BulkSender struct {
	Events    repo.EventRepository
	Resolver  *VariableResolver
	Notifiers map[entity.TemplateType]notify.Notifier
	Logger    *logrus.Logger
	// Pause between patients outside test mode.
	Pause time.Duration
}

func NewBulkSender(events repo.EventRepository, resolver *VariableResolver, pause time.Duration, logger *logrus.Logger, notifiers ...notify.Notifier) *BulkSender {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	if resolver == nil {
		resolver = &VariableResolver{}
	}
	m := make(map[entity.TemplateType]notify.Notifier, len(notifiers))
	for _, n := range notifiers {
		m[n.Channel()] = n
	}
	return &BulkSender{Events: events, Resolver: resolver, Notifiers: m, Logger: logger, Pause: pause}
}

type patientGroup struct {
	first  entity.Recipient
	events int
	titles []string
}

func (b *BulkSender) Send(ctx context.Context, req BulkRequest) (BulkResult, error) {
	res := BulkResult{Errors: []string{}, Recipients: []BulkRecipientResult{}}
	if len(req.Channels) == 0 {
		return res, ErrBulkNoChannels
	}
	for _, ch := range req.Channels {
		if !ch.Valid() {
			return res, fmt.Errorf("%w: %s", ErrBulkChannel, ch)
		}
	}
	if strings.TrimSpace(req.TemplateName) == "" && strings.TrimSpace(req.CustomMessage) == "" {
		return res, ErrBulkNoMessage
	}

	recipients, err := b.Events.Recipients(ctx, repo.RecipientFilter{
		EventIDs:     req.EventIDs,
		EventDateIDs: req.EventDateIDs,
		Statuses:     req.Filters.RegistrationStatuses,
		Cities:       req.Filters.Cities,
		DateFrom:     req.Filters.DateFrom,
		DateTo:       req.Filters.DateTo,
	})
	if err != nil {
		return res, fmt.Errorf("fetch recipients: %w", err)
	}
	res.TotalRecipients = len(recipients)

	// one message per patient, in first-seen order
	var order []string
	groups := map[string]*patientGroup{}
	for _, r := range recipients {
		g, ok := groups[r.Patient.ID]
		if !ok {
			g = &patientGroup{first: r}
			groups[r.Patient.ID] = g
			order = append(order, r.Patient.ID)
		}
		g.events++
		if t := r.EventDate.Event.Title; t != "" {
			g.titles = append(g.titles, t)
		}
	}
	b.Logger.WithFields(logrus.Fields{"registrations": len(recipients), "patients": len(order), "test_mode": req.TestMode}).Info("bulk send started")

	for i, pid := range order {
		if i > 0 && !req.TestMode && b.Pause > 0 {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(b.Pause):
			}
		}
		res.Recipients = append(res.Recipients, b.sendPatient(ctx, req, groups[pid], &res))
	}
	b.Logger.WithFields(logrus.Fields{
		"emails": res.EmailsSent, "sms": res.SMSSent, "whatsapp": res.WhatsAppSent, "errors": len(res.Errors),
	}).Info("bulk send completed")
	return res, nil
}

func (b *BulkSender) sendPatient(ctx context.Context, req BulkRequest, g *patientGroup, res *BulkResult) BulkRecipientResult {
	p := g.first.Patient
	out := BulkRecipientResult{PatientID: p.ID, PatientName: p.Name, Email: p.Email, Phone: p.Phone, Errors: []string{}}

	vars := b.Resolver.Resolve(p, g.first.EventDate, ResolveOptions{IncludeLinks: true, LinkID: g.first.Registration.ID})
	vars["events_count"] = strconv.Itoa(g.events)
	vars["events_list"] = strings.Join(g.titles, ", ")

	msg := notify.Message{
		TemplateName: req.TemplateName,
		Variables:    vars,
		Recipient:    notify.Recipient{Name: p.Name, Email: p.Email, Phone: p.Phone},
		TestMode:     req.TestMode,
		Body:         req.CustomMessage,
	}
	if req.CustomMessage != "" {
		msg.Subject = defaultBulkSubject
	}

	for _, ch := range bulkOrder {
		if !requested(req.Channels, ch) || !usable(ch, p) {
			continue
		}
		n, ok := b.Notifiers[ch]
		if !ok {
			continue
		}
		if _, err := n.Send(ctx, msg); err != nil {
			mChannelAttempts.WithLabelValues(string(ch), "failed").Inc()
			out.Errors = append(out.Errors, fmt.Sprintf("%s failed: %v", channelLabel[ch], err))
			res.Errors = append(res.Errors, fmt.Sprintf("%s failed for %s: %v", channelLabel[ch], p.Name, err))
			continue
		}
		mChannelAttempts.WithLabelValues(string(ch), "sent").Inc()
		switch ch {
		case entity.TemplateEmail:
			out.EmailSent = true
			res.EmailsSent++
		case entity.TemplateSMS:
			out.SMSSent = true
			res.SMSSent++
		case entity.TemplateWhatsApp:
			out.WhatsAppSent = true
			res.WhatsAppSent++
		}
	}
	return out
}

func requested(chs []entity.TemplateType, ch entity.TemplateType) bool {
	for _, c := range chs {
		if c == ch {
			return true
		}
	}
	return false
}
