package repository

import (
	"context"
	"errors"
	"time"

	"github.com/enxergar/outreach/internal/domain/entity"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
)

// OrganizerRepository reads back-office accounts.
type OrganizerRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Organizer, error)
	GetByEmail(ctx context.Context, email string) (*entity.Organizer, error)
}

type TemplateFilter struct {
	Type   entity.TemplateType
	Active *bool
	Search string
}

type TemplateStats struct {
	Type     entity.TemplateType `json:"type"`
	Total    int                 `json:"total"`
	Active   int                 `json:"active"`
	Inactive int                 `json:"inactive"`
}

// TemplateRepository stores notification templates. Names are unique.
type TemplateRepository interface {
	GetByID(ctx context.Context, id string) (*entity.NotificationTemplate, error)
	// GetActive returns the active template of the given type matching id
	// when id is set, otherwise matching name.
	GetActive(ctx context.Context, typ entity.TemplateType, id, name string) (*entity.NotificationTemplate, error)
	List(ctx context.Context, f TemplateFilter) ([]entity.NotificationTemplate, error)
	NameExists(ctx context.Context, name, excludeID string) (bool, error)
	Create(ctx context.Context, t *entity.NotificationTemplate) error
	Update(ctx context.Context, t *entity.NotificationTemplate) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) ([]TemplateStats, error)
}

type JobFilter struct {
	Status      entity.JobStatus
	EventDateID string
	Limit       int
	Offset      int
}

// ReminderJobRepository is the durable reminder queue.
type ReminderJobRepository interface {
	// Enqueue inserts a pending job unless one already exists for the same
	// patient, event date and reminder type. created is false for duplicates.
	Enqueue(ctx context.Context, job *entity.ReminderJob) (created bool, err error)
	// ClaimPending atomically moves up to limit pending jobs to processing and
	// returns only the rows this call claimed.
	ClaimPending(ctx context.Context, limit int) ([]entity.ClaimedJob, error)
	Complete(ctx context.Context, id string, out entity.JobOutcome) error
	List(ctx context.Context, f JobFilter) ([]entity.ReminderJob, error)
	// Release moves claimed jobs that were never attempted back to pending.
	Release(ctx context.Context, ids []string) (int, error)
	// Requeue moves failed jobs, and processing jobs untouched for longer than
	// StaleProcessingAfter, back to pending and returns how many moved.
	Requeue(ctx context.Context, ids []string) (int, error)
}

// StaleProcessingAfter is how long a job may sit in processing before an
// operator can requeue it.
const StaleProcessingAfter = 30 * time.Minute

type RecipientFilter struct {
	EventIDs     []string
	EventDateIDs []string
	Statuses     []string // registration statuses; confirmed when empty
	Cities       []string
	DateFrom     *time.Time
	DateTo       *time.Time
}

// EventRepository reads events, dates and registrations.
type EventRepository interface {
	// DatesOn returns event dates falling on any of days, optionally restricted to one event.
	DatesOn(ctx context.Context, days []time.Time, eventID string) ([]entity.EventDate, error)
	DatesByEvent(ctx context.Context, eventID string) ([]entity.EventDate, error)
	ConfirmedRegistrations(ctx context.Context, eventDateID string) ([]entity.Registration, error)
	Recipients(ctx context.Context, f RecipientFilter) ([]entity.Recipient, error)
}

// SettingsRepository upserts key/value rows in system_settings.
type SettingsRepository interface {
	Upsert(ctx context.Context, key string, value any, description string) error
}

type InboundFilter struct {
	Processed *bool
	Limit     int
	Offset    int
}

// InboundMessageRepository stores replies received from patients.
type InboundMessageRepository interface {
	// Save inserts msg unless one with the same provider sid exists. created is
	// false for duplicates.
	Save(ctx context.Context, msg *entity.InboundMessage) (created bool, err error)
	List(ctx context.Context, f InboundFilter) ([]entity.InboundMessage, error)
	MarkProcessed(ctx context.Context, id string) error
}
