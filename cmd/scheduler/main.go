package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/enxergar/outreach/config"
	"github.com/enxergar/outreach/internal/container"
	pginfra "github.com/enxergar/outreach/internal/infrastructure/postgres"
	"github.com/enxergar/outreach/internal/scheduler"
	"github.com/enxergar/outreach/pkg/helpers"
	"github.com/enxergar/outreach/pkg/mailer"
)

// Runs the reminder trigger and processor on REMINDER_TRIGGER_CRON and
// REMINDER_PROCESS_CRON in REMINDER_TIMEZONE.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-scheduler", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to postgres")
	}
	defer pool.Close()

	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetPGPool(pool)
	container.SetTwilio(helpers.NewTwilioClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioSMSFrom, cfg.TwilioWhatsAppFrom, cfg.TwilioStatusCallbackURL()))
	if cfg.MailgunConfigured() {
		container.SetMailgun(mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender))
	}
	if cfg.ESDeliveriesEnabled {
		if es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass); err == nil {
			container.SetES(es)
		} else {
			logger.WithError(err).Warn("elasticsearch unavailable; delivery history disabled")
		}
	}

	svc := container.GetServices()
	s := scheduler.New(cfg.Location(), svc.Trigger, svc.Processor, cfg.ReminderBatchSize, logger)
	if err := s.Start(cfg.TriggerCron, cfg.ProcessCron); err != nil {
		logger.WithError(err).Fatal("invalid cron expression")
	}

	<-ctx.Done()
	logger.Info("stopping scheduler")
	s.Stop()
}
