package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/enxergar/outreach/internal/domain/entity"
	repo "github.com/enxergar/outreach/internal/domain/repository"
	"github.com/enxergar/outreach/internal/notify"
	"github.com/enxergar/outreach/pkg/helpers"
)

var ErrMissingInbound = errors.New("MessageSid and From are required")

const whatsAppPrefix = "whatsapp:"

// InboundInput is a reply as posted by the provider.
type InboundInput struct {
	MessageSid string
	From       string
	To         string
	Body       string
	NumMedia   int
}

// InboundService stores patient replies for the back office to work through.
type InboundService struct {
	Messages repo.InboundMessageRepository
	Logger   *logrus.Logger
	Now      func() time.Time
}

func NewInboundService(messages repo.InboundMessageRepository, logger *logrus.Logger) *InboundService {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	return &InboundService{Messages: messages, Logger: logger, Now: time.Now}
}

// Receive stores one reply. Provider retries of a stored message report created=false.
func (s *InboundService) Receive(ctx context.Context, in InboundInput) (*entity.InboundMessage, bool, error) {
	sid := strings.TrimSpace(in.MessageSid)
	from := strings.TrimSpace(in.From)
	if sid == "" || from == "" {
		return nil, false, ErrMissingInbound
	}
	channel := entity.TemplateSMS
	if strings.HasPrefix(from, whatsAppPrefix) {
		channel = entity.TemplateWhatsApp
	}
	msg := &entity.InboundMessage{
		MessageSid: sid,
		Channel:    channel,
		From:       notify.NormalizePhone(strings.TrimPrefix(from, whatsAppPrefix)),
		To:         notify.NormalizePhone(strings.TrimPrefix(strings.TrimSpace(in.To), whatsAppPrefix)),
		Text:       in.Body,
		NumMedia:   in.NumMedia,
		ReceivedAt: s.Now().UTC(),
	}
	created, err := s.Messages.Save(ctx, msg)
	if err != nil {
		return nil, false, fmt.Errorf("save inbound message: %w", err)
	}
	s.Logger.WithFields(logrus.Fields{"message_sid": sid, "channel": channel, "created": created}).Info("inbound message received")
	return msg, created, nil
}

func (s *InboundService) List(ctx context.Context, f repo.InboundFilter) ([]entity.InboundMessage, error) {
	return s.Messages.List(ctx, f)
}

func (s *InboundService) MarkProcessed(ctx context.Context, id string) error {
	return s.Messages.MarkProcessed(ctx, id)
}
