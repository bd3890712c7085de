package router

import (
	"github.com/enxergar/outreach/internal/container"
	handlers "github.com/enxergar/outreach/internal/interface/http"
	"github.com/enxergar/outreach/internal/router/modules"
)

// InitModules builds the handlers from the container and adds every module
// to the registry. Call once at startup after the container is populated.
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	log := container.GetLogger()
	svc := container.GetServices()

	fnHandler := handlers.NewFunctionsHandler(svc.Trigger, svc.Processor, svc.Bulk, log, svc.Notifiers...)
	var pub handlers.JobPublisher
	if q := container.GetEmailQueue(); q != nil {
		pub = q
	}
	emailHandler := handlers.NewEmailHandler(pub, log, cfg)

	r.Add(modules.NewAuthModule(handlers.NewAuthHandler(svc.Auth, log), svc.Auth))
	r.Add(modules.NewFunctionsModule(fnHandler, emailHandler, svc.Auth, svc.Organizers))
	r.Add(modules.NewAdminModule(
		handlers.NewTemplateHandler(svc.TemplateSvc, log),
		handlers.NewAdminHandler(svc.Jobs, svc.Deliveries, log),
		handlers.NewInboundHandler(svc.Inbound, log),
		svc.Auth,
		svc.Organizers,
	))
	var verifier handlers.CallbackVerifier
	if tw := container.GetTwilio(); tw != nil {
		verifier = tw
	}
	urls := handlers.WebhookURLs{Status: cfg.TwilioStatusCallbackURL(), Inbound: cfg.TwilioInboundURL()}
	r.Add(modules.NewWebhookModule(handlers.NewWebhookHandler(svc.DeliveryStatus, svc.Inbound, verifier, urls, log)))
	r.Add(modules.NewDebugModule(r.Engine, cfg.DebugMetricsEnabled, cfg.MetricsEnabled))
}
