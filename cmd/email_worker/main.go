package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/enxergar/outreach/config"
	"github.com/enxergar/outreach/internal/domain/entity"
	"github.com/enxergar/outreach/internal/infrastructure/search"
	"github.com/enxergar/outreach/pkg/helpers"
	"github.com/enxergar/outreach/pkg/mailer"
)

const (
	prefetch    = 16
	sendTimeout = 15 * time.Second
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-email-worker", cfg.Env)

	if !cfg.MailSendEnabled {
		logger.Info("MAIL_SEND_ENABLED=false; email worker disabled")
		return
	}
	if !cfg.MailgunConfigured() {
		logger.Fatal("mailgun not configured")
	}

	q, err := helpers.DialEmailQueue(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
	if err != nil {
		logger.WithError(err).Fatal("rabbitmq unavailable")
	}
	defer q.Close()

	msgs, err := q.Consume("", prefetch)
	if err != nil {
		logger.WithError(err).Fatal("consume failed")
	}

	var deliveries *search.DeliveryIndex
	if cfg.ESDeliveriesEnabled {
		if es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass); err == nil {
			deliveries = search.NewDeliveryIndex(es, cfg.ESDeliveriesIndex, logger)
		} else {
			logger.WithError(err).Warn("elasticsearch unavailable; delivery history disabled")
		}
	}

	w := &worker{mail: mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender), deliveries: deliveries, log: logger}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range msgs {
			w.handle(ctx, msg)
		}
	}()

	logger.WithField("queue", cfg.RabbitMQEmailQueue).Info("email worker listening")
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-q.NotifyClose():
		logger.WithError(err).Error("rabbitmq connection closed")
	}
	q.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}

type worker struct {
	mail       *mailer.Mailgun
	deliveries *search.DeliveryIndex
	log        *logrus.Logger
}

// handle renders and sends one job. Undecodable or unrenderable payloads are
// dropped; send failures are requeued.
func (w *worker) handle(ctx context.Context, msg amqp.Delivery) {
	var job mailer.EmailJob
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		w.log.WithError(err).Warn("dropping malformed email job")
		_ = msg.Nack(false, false)
		return
	}
	helpers.NormalizeEmailJob(&job)
	entry := w.log.WithFields(logrus.Fields{"template": job.Template, "redelivered": msg.Redelivered})

	subject, text, html, err := helpers.RenderEmailJob(job)
	if err != nil {
		entry.WithError(err).Warn("dropping unrenderable email job")
		_ = msg.Nack(false, false)
		return
	}

	c, cancel := context.WithTimeout(ctx, sendTimeout)
	id, err := w.mail.Send(c, job.To, subject, text, html)
	cancel()

	d := entity.Delivery{
		ID:           uuid.NewString(),
		Channel:      entity.TemplateEmail,
		Recipient:    job.To,
		TemplateName: job.Template,
		Subject:      subject,
		MessageID:    id,
		Status:       entity.DeliverySent,
		At:           time.Now().UTC(),
	}
	if err != nil {
		d.Status, d.Error = entity.DeliveryFailed, err.Error()
	}
	if rerr := w.deliveries.Record(ctx, d); rerr != nil {
		entry.WithError(rerr).Warn("failed to record delivery")
	}

	if err != nil {
		entry.WithError(err).Error("send failed; requeueing")
		_ = msg.Nack(false, true)
		return
	}
	entry.WithField("message_id", id).Info("email sent")
	_ = msg.Ack(false)
}
