package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enxergar/outreach/config"
	"github.com/enxergar/outreach/internal/application"
	"github.com/enxergar/outreach/internal/domain/entity"
	repo "github.com/enxergar/outreach/internal/domain/repository"
	"github.com/enxergar/outreach/internal/infrastructure/search"
	"github.com/enxergar/outreach/internal/interface/middleware"
	"github.com/enxergar/outreach/internal/notify"
	"github.com/enxergar/outreach/pkg/mailer"
	"github.com/enxergar/outreach/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
}

func call(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

type stubTrigger struct {
	got application.TriggerRequest
	res application.TriggerResult
	err error
}

func (s *stubTrigger) Trigger(_ context.Context, req application.TriggerRequest) (application.TriggerResult, error) {
	s.got = req
	return s.res, s.err
}

type stubRunner struct {
	got application.ProcessRequest
	res application.ProcessResult
	err error
}

func (s *stubRunner) Process(_ context.Context, req application.ProcessRequest) (application.ProcessResult, error) {
	s.got = req
	return s.res, s.err
}

type stubBulk struct {
	got application.BulkRequest
	res application.BulkResult
	err error
}

func (s *stubBulk) Send(_ context.Context, req application.BulkRequest) (application.BulkResult, error) {
	s.got = req
	return s.res, s.err
}

type stubNotifier struct {
	ch  entity.TemplateType
	got notify.Message
	res notify.Result
	err error
}

func (s *stubNotifier) Channel() entity.TemplateType { return s.ch }

func (s *stubNotifier) Send(_ context.Context, msg notify.Message) (notify.Result, error) {
	s.got = msg
	return s.res, s.err
}

func functionsRouter(h *FunctionsHandler) *gin.Engine {
	r := gin.New()
	r.POST("/trigger", h.TriggerReminders)
	r.POST("/process", h.ProcessReminderJobs)
	r.POST("/sms", h.SendSMS)
	r.POST("/email", h.SendEmail)
	r.POST("/whatsapp", h.SendWhatsApp)
	r.POST("/bulk", h.SendBulkMessages)
	return r
}

func TestTriggerReminders(t *testing.T) {
	tr := &stubTrigger{res: application.TriggerResult{JobsCreated: 3, Type: "reminder", Timestamp: "2024-03-14T10:00:00Z"}}
	r := functionsRouter(NewFunctionsHandler(tr, nil, nil, nil))

	w := call(r, http.MethodPost, "/trigger", map[string]any{"type": "reminder", "timestamp": "2024-03-14T10:00:00Z"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Reminder process initiated successfully", body["message"])
	assert.EqualValues(t, 3, body["data"].(map[string]any)["jobsCreated"])
	assert.Equal(t, "reminder", tr.got.Type)
}

func TestTriggerRemindersValidation(t *testing.T) {
	tr := &stubTrigger{}
	r := functionsRouter(NewFunctionsHandler(tr, nil, nil, nil))

	w := call(r, http.MethodPost, "/trigger", map[string]any{"type": "weekly", "timestamp": "2024-03-14T10:00:00Z"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])

	w = call(r, http.MethodPost, "/trigger", map[string]any{"type": "reminder", "timestamp": "yesterday"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	tr.err = application.ErrEventIDRequired
	w = call(r, http.MethodPost, "/trigger", map[string]any{"type": "confirmation", "timestamp": "2024-03-14T10:00:00Z"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, application.ErrEventIDRequired.Error(), decode(t, w)["error"])

	tr.err = errors.New("db down")
	w = call(r, http.MethodPost, "/trigger", map[string]any{"type": "reminder", "timestamp": "2024-03-14T10:00:00Z"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestProcessReminderJobs(t *testing.T) {
	run := &stubRunner{}
	r := functionsRouter(NewFunctionsHandler(nil, run, nil, nil))

	w := call(r, http.MethodPost, "/process", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "No pending reminder jobs found", decode(t, w)["message"])
	assert.Equal(t, 0, run.got.BatchSize)

	run.res = application.ProcessResult{Processed: 2, Sent: 1, Failed: 1, Errors: []string{"boom"}}
	w = call(r, http.MethodPost, "/process", map[string]any{"batchSize": 10, "testMode": true})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Processed 2 reminder jobs", body["message"])
	assert.EqualValues(t, 1, body["failed"])
	assert.Equal(t, []any{"boom"}, body["errors"])
	assert.True(t, run.got.TestMode)
	assert.Equal(t, 10, run.got.BatchSize)

	w = call(r, http.MethodPost, "/process", map[string]any{"batchSize": 5000})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendChannels(t *testing.T) {
	sms := &stubNotifier{ch: entity.TemplateSMS, res: notify.Result{MessageID: "SM1", TemplateName: "lembrete", Recipient: "5511999998888"}}
	email := &stubNotifier{ch: entity.TemplateEmail, res: notify.Result{TestMode: true, TemplateName: "lembrete", Recipient: "a@b.com", Subject: "Oi", Content: "Olá Maria", Length: 9}}
	r := functionsRouter(NewFunctionsHandler(nil, nil, nil, nil, sms, email))

	w := call(r, http.MethodPost, "/sms", map[string]any{
		"templateName":   "lembrete",
		"recipientPhone": "(11) 99999-8888",
		"templateData":   map[string]any{"patient_name": "Maria", "count": 2},
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "SMS sent successfully", body["message"])
	assert.Equal(t, "SM1", body["messageId"])
	assert.Equal(t, "2", sms.got.Variables["count"])
	assert.Equal(t, "(11) 99999-8888", sms.got.Recipient.Phone)

	w = call(r, http.MethodPost, "/email", map[string]any{"templateName": "lembrete", "recipientEmail": "a@b.com", "testMode": true})
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, "Test mode: Email processed but not sent", body["message"])
	assert.Equal(t, "Oi", body["subject"])
	assert.Equal(t, "Olá Maria", body["processedContent"])

	w = call(r, http.MethodPost, "/whatsapp", map[string]any{"templateName": "lembrete", "recipientPhone": "11999998888"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSendErrorStatus(t *testing.T) {
	sms := &stubNotifier{ch: entity.TemplateSMS}
	r := functionsRouter(NewFunctionsHandler(nil, nil, nil, nil, sms))

	cases := []struct {
		err  error
		code int
	}{
		{notify.ErrTemplateNotFound, http.StatusNotFound},
		{notify.ErrInvalidPhone, http.StatusBadRequest},
		{notify.ErrMessageTooLong, http.StatusBadRequest},
		{notify.ErrProviderNotConfigured, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		sms.err = tc.err
		w := call(r, http.MethodPost, "/sms", map[string]any{"templateName": "x", "recipientPhone": "11999998888"})
		assert.Equal(t, tc.code, w.Code, tc.err.Error())
		assert.Equal(t, false, decode(t, w)["success"])
	}
}

func TestSendBulkMessages(t *testing.T) {
	bulk := &stubBulk{res: application.BulkResult{TotalRecipients: 2, EmailsSent: 2, SMSSent: 1, Errors: []string{}, Recipients: []application.BulkRecipientResult{}}}
	r := functionsRouter(NewFunctionsHandler(nil, nil, bulk, nil))

	w := call(r, http.MethodPost, "/bulk", map[string]any{
		"eventIds":     []string{"e1"},
		"messageTypes": []string{"email", "sms"},
		"templateName": " aviso ",
		"filters": map[string]any{
			"city":      []string{"Recife"},
			"dateRange": map[string]any{"start": "2024-03-01", "end": "2024-03-31"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Bulk messages sent successfully. Emails: 2, SMS: 1, WhatsApp: 0", body["message"])
	assert.Equal(t, "aviso", bulk.got.TemplateName)
	assert.Equal(t, []entity.TemplateType{entity.TemplateEmail, entity.TemplateSMS}, bulk.got.Channels)
	require.NotNil(t, bulk.got.Filters.DateFrom)
	assert.Equal(t, []string{"Recife"}, bulk.got.Filters.Cities)

	w = call(r, http.MethodPost, "/bulk", map[string]any{"messageTypes": []string{"fax"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body = decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["data"].(map[string]any)["errors"])

	bulk.err = application.ErrBulkNoMessage
	w = call(r, http.MethodPost, "/bulk", map[string]any{"messageTypes": []string{"sms"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type memPublisher struct {
	jobs []mailer.EmailJob
	err  error
}

func (p *memPublisher) PublishJSON(_ context.Context, body any) error {
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, body.(mailer.EmailJob))
	return nil
}

func TestSendNotificationEmail(t *testing.T) {
	pub := &memPublisher{}
	cfg := &config.Config{MailSendEnabled: true, OrgName: "Enxergar"}
	r := gin.New()
	r.POST("/mail", NewEmailHandler(pub, nil, cfg).SendNotification)

	w := call(r, http.MethodPost, "/mail", map[string]any{
		"to":       "maria@example.com",
		"template": "registration_confirmation",
		"data":     map[string]any{"name": "Maria", "eventTitle": "Mutirão"},
	})
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, pub.jobs, 1)
	assert.Equal(t, "maria@example.com", pub.jobs[0].To)
	assert.Equal(t, "Maria", pub.jobs[0].Data["Name"])

	w = call(r, http.MethodPost, "/mail", map[string]any{"to": "maria@example.com", "template": "newsletter", "data": map[string]any{"name": "Maria"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	cfg.MailSendEnabled = false
	w = call(r, http.MethodPost, "/mail", map[string]any{"to": "maria@example.com", "template": "event_reminder", "data": map[string]any{"name": "Maria"}})
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Len(t, pub.jobs, 1)
}

type stubTemplates struct {
	items  map[string]*entity.NotificationTemplate
	filter repo.TemplateFilter
}

func (s *stubTemplates) List(_ context.Context, f repo.TemplateFilter) ([]entity.NotificationTemplate, error) {
	s.filter = f
	out := []entity.NotificationTemplate{}
	for _, t := range s.items {
		out = append(out, *t)
	}
	return out, nil
}

func (s *stubTemplates) Get(_ context.Context, id string) (*entity.NotificationTemplate, error) {
	if t, ok := s.items[id]; ok {
		return t, nil
	}
	return nil, application.ErrTemplateNotFound
}

func (s *stubTemplates) Create(_ context.Context, in application.TemplateInput) (*entity.NotificationTemplate, error) {
	if err := application.ValidateTemplate(in); err != nil {
		return nil, err
	}
	for _, t := range s.items {
		if t.Name == in.Name {
			return nil, application.ErrTemplateNameTaken
		}
	}
	t := &entity.NotificationTemplate{ID: "new", Name: in.Name, Type: in.Type, Content: in.Content, IsActive: true}
	s.items[t.ID] = t
	return t, nil
}

func (s *stubTemplates) Update(ctx context.Context, id string, in application.TemplateInput) (*entity.NotificationTemplate, error) {
	return s.Get(ctx, id)
}

func (s *stubTemplates) Duplicate(ctx context.Context, id string) (*entity.NotificationTemplate, error) {
	return s.Get(ctx, id)
}

func (s *stubTemplates) Toggle(ctx context.Context, id string) (*entity.NotificationTemplate, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	t.IsActive = !t.IsActive
	return t, nil
}

func (s *stubTemplates) Delete(ctx context.Context, id string) error {
	_, err := s.Get(ctx, id)
	return err
}

func (s *stubTemplates) Preview(_ context.Context, req application.PreviewRequest) (application.PreviewResult, error) {
	return application.PreviewResult{Content: "Olá " + req.Variables["patient_name"]}, nil
}

func (s *stubTemplates) Stats(context.Context) ([]repo.TemplateStats, error) {
	return []repo.TemplateStats{{Type: entity.TemplateSMS, Total: 1, Active: 1}}, nil
}

func TestTemplateHandler(t *testing.T) {
	svc := &stubTemplates{items: map[string]*entity.NotificationTemplate{
		"t1": {ID: "t1", Name: "lembrete_sms_24h", Type: entity.TemplateSMS, Content: "Olá {{patient_name}}", IsActive: true},
	}}
	h := NewTemplateHandler(svc, nil)
	r := gin.New()
	r.GET("/templates", h.List)
	r.GET("/templates/:id", h.Get)
	r.POST("/templates", h.Create)
	r.POST("/templates/:id/toggle", h.Toggle)
	r.POST("/preview", h.Preview)
	r.GET("/variables", h.Variables)

	w := call(r, http.MethodGet, "/templates?type=sms&active=true&q=lembrete", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, entity.TemplateSMS, svc.filter.Type)
	require.NotNil(t, svc.filter.Active)
	assert.True(t, *svc.filter.Active)
	assert.Equal(t, "lembrete", svc.filter.Search)

	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodGet, "/templates?type=fax", nil).Code)
	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodGet, "/templates?active=maybe", nil).Code)
	assert.Equal(t, http.StatusNotFound, call(r, http.MethodGet, "/templates/nope", nil).Code)

	w = call(r, http.MethodPost, "/templates", map[string]any{"name": "lembrete_sms_24h", "type": "sms", "content": "Olá {{patient_name}}, até amanhã"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = call(r, http.MethodPost, "/templates", map[string]any{"name": "x", "type": "sms", "content": "curto"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, decode(t, w)["error"])

	w = call(r, http.MethodPost, "/templates", map[string]any{"name": "aviso_sms", "type": "sms", "content": "Olá {{patient_name}}, até amanhã"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = call(r, http.MethodPost, "/templates/t1/toggle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["data"].(map[string]any)["is_active"])

	w = call(r, http.MethodPost, "/preview", map[string]any{"templateId": "t1", "data": map[string]string{"patient_name": "Ana"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Olá Ana", decode(t, w)["data"].(map[string]any)["content"])

	w = call(r, http.MethodGet, "/variables", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["data"], len(application.AvailableVariables))
}

type stubAuth struct {
	org *entity.Organizer
	err error
}

func (s *stubAuth) Login(context.Context, string, string) (*entity.Organizer, application.TokenPair, error) {
	return s.org, application.TokenPair{AccessToken: "a", RefreshToken: "r"}, s.err
}

func (s *stubAuth) Refresh(_ context.Context, tok string) (application.TokenPair, error) {
	if tok != "r" {
		return application.TokenPair{}, errors.New("bad token")
	}
	return application.TokenPair{AccessToken: "a2", RefreshToken: "r2"}, nil
}

func (s *stubAuth) Logout(context.Context, string) error { return nil }

func (s *stubAuth) Profile(_ context.Context, id string) (*entity.Organizer, error) {
	if s.org == nil || s.org.ID != id {
		return nil, application.ErrOrganizerNotFound
	}
	return s.org, nil
}

func TestAuthHandler(t *testing.T) {
	svc := &stubAuth{org: &entity.Organizer{ID: "o1", Name: "Ana", Email: "ana@example.com", Role: entity.RoleAdmin, Status: entity.OrganizerActive}}
	h := NewAuthHandler(svc, nil)
	r := gin.New()
	r.POST("/login", h.Login)
	r.POST("/refresh", h.Refresh)
	r.GET("/me", func(c *gin.Context) { c.Set(middleware.CtxOrganizerIDKey, "o1") }, h.Me)

	w := call(r, http.MethodPost, "/login", map[string]any{"email": "ana@example.com", "password": "supersecret"})
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, "a", data["tokens"].(map[string]any)["access_token"])
	assert.Equal(t, "o1", data["organizer"].(map[string]any)["id"])

	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodPost, "/login", map[string]any{"email": "nope", "password": "x"}).Code)

	svc.err = application.ErrInvalidCredentials
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodPost, "/login", map[string]any{"email": "ana@example.com", "password": "wrongpass"}).Code)
	svc.err = application.ErrOrganizerInactive
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodPost, "/login", map[string]any{"email": "ana@example.com", "password": "supersecret"}).Code)

	assert.Equal(t, http.StatusOK, call(r, http.MethodPost, "/refresh", map[string]any{"refresh_token": "r"}).Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodPost, "/refresh", map[string]any{"refresh_token": "x"}).Code)

	w = call(r, http.MethodGet, "/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ana@example.com", decode(t, w)["data"].(map[string]any)["email"])
}

type stubJobs struct {
	filter repo.JobFilter
	ids    []string
}

func (s *stubJobs) List(_ context.Context, f repo.JobFilter) ([]entity.ReminderJob, error) {
	s.filter = f
	done := time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)
	return []entity.ReminderJob{{ID: "j1", Status: entity.JobSent, ReminderType: entity.Reminder24h, CompletedAt: &done}}, nil
}

func (s *stubJobs) Requeue(_ context.Context, ids []string) (int, error) {
	s.ids = ids
	return len(ids) - 1, nil
}

type stubDeliveries struct{ q search.SearchQuery }

func (s *stubDeliveries) Search(_ context.Context, q search.SearchQuery) ([]entity.Delivery, error) {
	s.q = q
	return []entity.Delivery{{ID: "d1", Channel: entity.TemplateSMS, Status: entity.DeliverySent}}, nil
}

func TestAdminHandler(t *testing.T) {
	jobs := &stubJobs{}
	dels := &stubDeliveries{}
	h := NewAdminHandler(jobs, dels, nil)
	r := gin.New()
	r.GET("/jobs", h.ListJobs)
	r.POST("/jobs/requeue", h.RequeueJobs)
	r.GET("/deliveries", h.SearchDeliveries)

	w := call(r, http.MethodGet, "/jobs?status=failed&limit=20", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, entity.JobFailed, jobs.filter.Status)
	assert.Equal(t, 20, jobs.filter.Limit)
	job := decode(t, w)["data"].([]any)[0].(map[string]any)
	assert.Equal(t, "2024-03-14T12:00:00Z", job["completed_at"])

	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodGet, "/jobs?status=lost", nil).Code)

	w = call(r, http.MethodPost, "/jobs/requeue", map[string]any{"ids": []string{"j1", "j2"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["data"].(map[string]any)["requeued"])
	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodPost, "/jobs/requeue", map[string]any{"ids": []string{}}).Code)

	w = call(r, http.MethodGet, "/deliveries?q=maria&channel=sms&size=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "maria", dels.q.Text)
	assert.Equal(t, entity.TemplateSMS, dels.q.Channel)
	assert.Equal(t, 5, dels.q.Size)
}
