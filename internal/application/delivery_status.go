package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	repo "github.com/enxergar/outreach/internal/domain/repository"
	"github.com/enxergar/outreach/pkg/helpers"
)

var ErrMissingMessageStatus = errors.New("MessageSid and MessageStatus are required")

// knownProviderStatuses keeps the metric label set bounded.
var knownProviderStatuses = map[string]bool{
	"accepted": true, "scheduled": true, "queued": true, "sending": true, "sent": true,
	"delivered": true, "read": true, "undelivered": true, "failed": true, "canceled": true,
}

// StatusUpdate is one provider delivery status callback.
type StatusUpdate struct {
	MessageSid   string
	Status       string
	To           string
	From         string
	ErrorCode    string
	ErrorMessage string
}

type statusRecord struct {
	MessageSid   string    `json:"message_sid"`
	To           string    `json:"to_number,omitempty"`
	From         string    `json:"from_number,omitempty"`
	Status       string    `json:"status"`
	ErrorCode    string    `json:"error_code,omitempty"`
	ErrorMessage string    `json:"error_text,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DeliveryStatusIndex stamps provider statuses onto recorded deliveries.
type DeliveryStatusIndex interface {
	UpdateStatus(ctx context.Context, messageID, status string, at time.Time) (int, error)
}

// DeliveryStatusService stores provider status callbacks in system_settings
// under message_status_<sid> and mirrors them onto the delivery history.
type DeliveryStatusService struct {
	Settings   repo.SettingsRepository
	Deliveries DeliveryStatusIndex
	Logger     *logrus.Logger
	Now        func() time.Time
}

func NewDeliveryStatusService(settings repo.SettingsRepository, deliveries DeliveryStatusIndex, logger *logrus.Logger) *DeliveryStatusService {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	return &DeliveryStatusService{Settings: settings, Deliveries: deliveries, Logger: logger, Now: time.Now}
}

func (s *DeliveryStatusService) Record(ctx context.Context, u StatusUpdate) error {
	u.MessageSid = strings.TrimSpace(u.MessageSid)
	u.Status = strings.ToLower(strings.TrimSpace(u.Status))
	if u.MessageSid == "" || u.Status == "" {
		return ErrMissingMessageStatus
	}
	now := s.Now().UTC()
	log := s.Logger.WithFields(logrus.Fields{"message_sid": u.MessageSid, "status": u.Status})

	rec := statusRecord{
		MessageSid: u.MessageSid, To: u.To, From: u.From, Status: u.Status,
		ErrorCode: u.ErrorCode, ErrorMessage: u.ErrorMessage, UpdatedAt: now,
	}
	key := "message_status_" + u.MessageSid
	if err := s.Settings.Upsert(ctx, key, rec, fmt.Sprintf("Status da mensagem %s: %s", u.MessageSid, u.Status)); err != nil {
		return fmt.Errorf("save message status: %w", err)
	}

	label := u.Status
	if !knownProviderStatuses[label] {
		label = "other"
	}
	mProviderStatus.WithLabelValues(label).Inc()

	if s.Deliveries != nil {
		if _, err := s.Deliveries.UpdateStatus(ctx, u.MessageSid, u.Status, now); err != nil {
			log.WithError(err).Warn("delivery history status update failed")
		}
	}

	if u.Status == "failed" || u.Status == "undelivered" {
		log.WithFields(logrus.Fields{"to": u.To, "error_code": u.ErrorCode, "error_text": u.ErrorMessage}).Error("message delivery failed")
		return nil
	}
	log.Info("message status recorded")
	return nil
}
