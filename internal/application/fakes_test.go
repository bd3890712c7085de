package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/enxergar/outreach/internal/domain/entity"
	repo "github.com/enxergar/outreach/internal/domain/repository"
	"github.com/enxergar/outreach/internal/notify"
)

var (
	saoPaulo = time.FixedZone("BRT", -3*60*60)
	// 10:00 in São Paulo on 14 March 2024.
	fixedNow = time.Date(2024, 3, 14, 13, 0, 0, 0, time.UTC)
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

type memJobs struct {
	jobs      []*entity.ReminderJob
	patients  map[string]entity.Patient
	dates     map[string]entity.EventDate
	outcomes  map[string]entity.JobOutcome
	enqErr    error
	claimErr  error
	lastLimit int
}

func newMemJobs() *memJobs {
	return &memJobs{
		patients: map[string]entity.Patient{},
		dates:    map[string]entity.EventDate{},
		outcomes: map[string]entity.JobOutcome{},
	}
}

func (m *memJobs) Enqueue(_ context.Context, job *entity.ReminderJob) (bool, error) {
	if m.enqErr != nil {
		return false, m.enqErr
	}
	for _, j := range m.jobs {
		if j.PatientID == job.PatientID && j.EventDateID == job.EventDateID && j.ReminderType == job.ReminderType {
			return false, nil
		}
	}
	job.ID = fmt.Sprintf("job-%d", len(m.jobs)+1)
	cp := *job
	m.jobs = append(m.jobs, &cp)
	return true, nil
}

func (m *memJobs) ClaimPending(_ context.Context, limit int) ([]entity.ClaimedJob, error) {
	m.lastLimit = limit
	if m.claimErr != nil {
		return nil, m.claimErr
	}
	var out []entity.ClaimedJob
	for _, j := range m.jobs {
		if len(out) == limit {
			break
		}
		if j.Status != entity.JobPending {
			continue
		}
		j.Status = entity.JobProcessing
		j.UpdatedAt = time.Now()
		out = append(out, entity.ClaimedJob{Job: *j, Patient: m.patients[j.PatientID], EventDate: m.dates[j.EventDateID]})
	}
	return out, nil
}

func (m *memJobs) Complete(ctx context.Context, id string, out entity.JobOutcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, j := range m.jobs {
		if j.ID == id {
			j.Status = out.Status
			m.outcomes[id] = out
			return nil
		}
	}
	return repo.ErrNotFound
}

func (m *memJobs) List(_ context.Context, f repo.JobFilter) ([]entity.ReminderJob, error) {
	var out []entity.ReminderJob
	for _, j := range m.jobs {
		if f.Status == "" || j.Status == f.Status {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (m *memJobs) Requeue(_ context.Context, ids []string) (int, error) {
	stale := time.Now().Add(-repo.StaleProcessingAfter)
	return m.move(ids, func(j *entity.ReminderJob) bool {
		return j.Status == entity.JobFailed || (j.Status == entity.JobProcessing && j.UpdatedAt.Before(stale))
	}), nil
}

func (m *memJobs) Release(ctx context.Context, ids []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return m.move(ids, func(j *entity.ReminderJob) bool { return j.Status == entity.JobProcessing }), nil
}

func (m *memJobs) move(ids []string, eligible func(*entity.ReminderJob) bool) int {
	n := 0
	for _, id := range ids {
		for _, j := range m.jobs {
			if j.ID == id && eligible(j) {
				j.Status = entity.JobPending
				n++
			}
		}
	}
	return n
}

func (m *memJobs) add(p entity.Patient, d entity.EventDate, rt entity.ReminderType) string {
	m.patients[p.ID] = p
	m.dates[d.ID] = d
	job := &entity.ReminderJob{PatientID: p.ID, EventDateID: d.ID, ReminderType: rt, Status: entity.JobPending}
	_, _ = m.Enqueue(context.Background(), job)
	return job.ID
}

type memEvents struct {
	dates      []entity.EventDate
	regs       map[string][]entity.Registration
	regErr     map[string]error
	datesErr   error
	recipients []entity.Recipient
	lastDays   []time.Time
	lastFilter repo.RecipientFilter
}

func (m *memEvents) DatesOn(_ context.Context, days []time.Time, eventID string) ([]entity.EventDate, error) {
	m.lastDays = days
	if m.datesErr != nil {
		return nil, m.datesErr
	}
	var out []entity.EventDate
	for _, d := range m.dates {
		if eventID != "" && d.EventID != eventID {
			continue
		}
		for _, want := range days {
			if d.Date.Format("2006-01-02") == want.Format("2006-01-02") {
				out = append(out, d)
			}
		}
	}
	return out, nil
}

func (m *memEvents) DatesByEvent(_ context.Context, eventID string) ([]entity.EventDate, error) {
	if m.datesErr != nil {
		return nil, m.datesErr
	}
	var out []entity.EventDate
	for _, d := range m.dates {
		if d.EventID == eventID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memEvents) ConfirmedRegistrations(_ context.Context, eventDateID string) ([]entity.Registration, error) {
	if err := m.regErr[eventDateID]; err != nil {
		return nil, err
	}
	return m.regs[eventDateID], nil
}

func (m *memEvents) Recipients(_ context.Context, f repo.RecipientFilter) ([]entity.Recipient, error) {
	m.lastFilter = f
	if m.datesErr != nil {
		return nil, m.datesErr
	}
	return m.recipients, nil
}

type memTemplates struct {
	byID map[string]*entity.NotificationTemplate
	seq  int
}

func newMemTemplates(ts ...entity.NotificationTemplate) *memTemplates {
	m := &memTemplates{byID: map[string]*entity.NotificationTemplate{}}
	for i := range ts {
		t := ts[i]
		_ = m.Create(context.Background(), &t)
	}
	return m
}

func (m *memTemplates) GetByID(_ context.Context, id string) (*entity.NotificationTemplate, error) {
	t, ok := m.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTemplates) GetActive(_ context.Context, typ entity.TemplateType, id, name string) (*entity.NotificationTemplate, error) {
	for _, t := range m.byID {
		if t.Type == typ && t.IsActive && ((id != "" && t.ID == id) || (id == "" && t.Name == name)) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *memTemplates) List(_ context.Context, f repo.TemplateFilter) ([]entity.NotificationTemplate, error) {
	var out []entity.NotificationTemplate
	for _, t := range m.byID {
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memTemplates) NameExists(_ context.Context, name, excludeID string) (bool, error) {
	for _, t := range m.byID {
		if t.Name == name && t.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memTemplates) Create(ctx context.Context, t *entity.NotificationTemplate) error {
	if taken, _ := m.NameExists(ctx, t.Name, ""); taken {
		return repo.ErrDuplicate
	}
	m.seq++
	t.ID = fmt.Sprintf("t%d", m.seq)
	cp := *t
	m.byID[t.ID] = &cp
	return nil
}

func (m *memTemplates) Update(ctx context.Context, t *entity.NotificationTemplate) error {
	if _, ok := m.byID[t.ID]; !ok {
		return repo.ErrNotFound
	}
	if taken, _ := m.NameExists(ctx, t.Name, t.ID); taken {
		return repo.ErrDuplicate
	}
	cp := *t
	m.byID[t.ID] = &cp
	return nil
}

func (m *memTemplates) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memTemplates) Stats(_ context.Context) ([]repo.TemplateStats, error) {
	counts := map[entity.TemplateType]*repo.TemplateStats{}
	for _, t := range m.byID {
		s, ok := counts[t.Type]
		if !ok {
			s = &repo.TemplateStats{Type: t.Type}
			counts[t.Type] = s
		}
		s.Total++
		if t.IsActive {
			s.Active++
		} else {
			s.Inactive++
		}
	}
	var out []repo.TemplateStats
	for _, s := range counts {
		out = append(out, *s)
	}
	return out, nil
}

type memOrganizers struct {
	byID map[string]*entity.Organizer
}

func (m *memOrganizers) GetByID(_ context.Context, id string) (*entity.Organizer, error) {
	if o, ok := m.byID[id]; ok {
		return o, nil
	}
	return nil, repo.ErrNotFound
}

func (m *memOrganizers) GetByEmail(_ context.Context, email string) (*entity.Organizer, error) {
	for _, o := range m.byID {
		if o.Email == email {
			return o, nil
		}
	}
	return nil, repo.ErrNotFound
}

type mockNotifier struct {
	mock.Mock
	ch entity.TemplateType
}

func newMockNotifier(ch entity.TemplateType) *mockNotifier { return &mockNotifier{ch: ch} }

func (m *mockNotifier) Channel() entity.TemplateType { return m.ch }

func (m *mockNotifier) Send(ctx context.Context, msg notify.Message) (notify.Result, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(notify.Result), args.Error(1)
}

var jobFilterPending = repo.JobFilter{Status: entity.JobPending}
