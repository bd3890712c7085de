package container

import (
	"sync"

	"github.com/enxergar/outreach/internal/application"
	repo "github.com/enxergar/outreach/internal/domain/repository"
	pginfra "github.com/enxergar/outreach/internal/infrastructure/postgres"
	"github.com/enxergar/outreach/internal/infrastructure/search"
	"github.com/enxergar/outreach/internal/notify"
)

// Services are the application services built from the singletons above.
type Services struct {
	Organizers repo.OrganizerRepository
	Templates  repo.TemplateRepository
	Jobs       repo.ReminderJobRepository
	Events     repo.EventRepository
	Settings   repo.SettingsRepository
	Replies    repo.InboundMessageRepository
	Deliveries *search.DeliveryIndex
	Notifiers  []notify.Notifier

	Auth         *application.AuthService
	TemplateSvc  *application.TemplateService
	Trigger      *application.ReminderTrigger
	Processor    *application.ReminderProcessor
	Bulk         *application.BulkSender
	VarsResolver *application.VariableResolver

	DeliveryStatus *application.DeliveryStatusService
	Inbound        *application.InboundService
}

var (
	servicesOnce sync.Once
	services     *Services
)

// GetServices builds the services once. The config, logger and pool must be
// set before the first call.
func GetServices() *Services {
	servicesOnce.Do(func() { services = buildServices() })
	return services
}

func buildServices() *Services {
	c := GetConfig()
	log := GetLogger()
	db := pginfra.NewDB(GetPGPool(), c.DBTimeout)

	s := &Services{
		Organizers: pginfra.NewOrganizerRepository(db),
		Templates:  pginfra.NewTemplateRepository(db),
		Jobs:       pginfra.NewReminderJobRepository(db),
		Events:     pginfra.NewEventRepository(db),
		Settings:   pginfra.NewSettingsRepository(db),
		Replies:    pginfra.NewInboundMessageRepository(db),
	}

	index := ""
	if c.ESDeliveriesEnabled {
		index = c.ESDeliveriesIndex
	}
	s.Deliveries = search.NewDeliveryIndex(GetES(), index, log)

	deps := notify.Deps{Templates: s.Templates, Settings: s.Settings, Deliveries: s.Deliveries, Logger: log}
	var (
		emailProvider    notify.EmailProvider
		smsProvider      notify.SMSProvider
		whatsAppProvider notify.WhatsAppProvider
	)
	if mg := GetMailgun(); mg != nil {
		emailProvider = mg
	}
	if tw := GetTwilio(); tw != nil {
		smsProvider, whatsAppProvider = tw, tw
	}
	s.Notifiers = []notify.Notifier{
		notify.NewEmailNotifier(emailProvider, notify.Branding{OrgName: c.OrgName, OrgTagline: c.OrgTagline}, deps),
		notify.NewSMSNotifier(smsProvider, deps),
		notify.NewWhatsAppNotifier(whatsAppProvider, deps),
	}

	s.VarsResolver = application.NewVariableResolver(c.AppBaseURL)
	s.Auth = application.NewAuthService(s.Organizers, GetJWT(), GetRedis(), log)
	s.TemplateSvc = application.NewTemplateService(s.Templates, log)
	s.Trigger = application.NewReminderTrigger(s.Events, s.Jobs, c.Location(), log)
	s.Processor = application.NewReminderProcessor(s.Jobs, s.VarsResolver, log, s.Notifiers...)
	s.Bulk = application.NewBulkSender(s.Events, s.VarsResolver, c.BulkSendPause, log, s.Notifiers...)
	s.DeliveryStatus = application.NewDeliveryStatusService(s.Settings, s.Deliveries, log)
	s.Inbound = application.NewInboundService(s.Replies, log)
	return s
}
