package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/enxergar/outreach/internal/domain/entity"
	"github.com/enxergar/outreach/internal/domain/repository"
)

type ReminderJobRepository struct {
	db *DB
}

func NewReminderJobRepository(db *DB) *ReminderJobRepository {
	return &ReminderJobRepository{db: db}
}

const (
	qJobEnqueue = `
INSERT INTO reminder_jobs (patient_id, event_date_id, reminder_type, status, scheduled_for)
VALUES ($1, $2, $3, 'pending', $4)
ON CONFLICT ON CONSTRAINT reminder_jobs_unique_triple DO NOTHING
RETURNING id::text, created_at, updated_at;`

	// Rows locked by a concurrent claimer are skipped, and the UPDATE
	// re-checks status so a row is only ever handed to one caller.
	qJobClaim = `
WITH cand AS (
   SELECT id
   FROM reminder_jobs
   WHERE status = 'pending'
   ORDER BY scheduled_for, created_at
   LIMIT $1
   FOR UPDATE SKIP LOCKED
), claimed AS (
   UPDATE reminder_jobs j
   SET status = 'processing', updated_at = now()
   FROM cand
   WHERE j.id = cand.id AND j.status = 'pending'
   RETURNING j.id, j.patient_id, j.event_date_id, j.reminder_type, j.status, j.scheduled_for, j.created_at, j.updated_at
)
SELECT c.id::text, c.patient_id::text, c.event_date_id::text, c.reminder_type, c.status,
       c.scheduled_for, c.created_at, c.updated_at,
       p.nome, COALESCE(p.email, ''), COALESCE(p.telefone, ''),
       ed.event_id::text, ed.date, ed.start_time::text, ed.end_time::text,
       e.title, e.location, e.address, e.city, e.status
FROM claimed c
JOIN patients p     ON p.id = c.patient_id
JOIN event_dates ed ON ed.id = c.event_date_id
JOIN events e       ON e.id = ed.event_id
ORDER BY c.scheduled_for, c.created_at;`

	qJobComplete = `
UPDATE reminder_jobs
SET status = $2,
    email_sent = $3,
    whatsapp_sent = $4,
    sms_sent = $5,
    error_message = NULLIF($6, ''),
    completed_at = $7,
    updated_at = now()
WHERE id = $1;`

	qJobList = `
SELECT id::text, patient_id::text, event_date_id::text, reminder_type, status, scheduled_for,
       completed_at, email_sent, whatsapp_sent, sms_sent, COALESCE(error_message, ''), created_at, updated_at
FROM reminder_jobs
WHERE ($1 = '' OR status = $1)
  AND ($2 = '' OR event_date_id::text = $2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4;`

	qJobRequeue = `
UPDATE reminder_jobs
SET status = 'pending',
    scheduled_for = now(),
    completed_at = NULL,
    error_message = NULL,
    email_sent = FALSE,
    whatsapp_sent = FALSE,
    sms_sent = FALSE,
    updated_at = now()
WHERE id::text = ANY($1)
  AND (status = 'failed' OR (status = 'processing' AND updated_at < now() - make_interval(secs => $2)));`

	qJobRelease = `
UPDATE reminder_jobs
SET status = 'pending', updated_at = now()
WHERE id::text = ANY($1) AND status = 'processing';`
)

func (r *ReminderJobRepository) Enqueue(ctx context.Context, job *entity.ReminderJob) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	err := r.db.Pool.QueryRow(ctx, qJobEnqueue,
		job.PatientID, job.EventDateID, string(job.ReminderType), job.ScheduledFor,
	).Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// conflict: the job already exists
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reminder job enqueue: %w", err)
	}
	job.Status = entity.JobPending
	return true, nil
}

func (r *ReminderJobRepository) ClaimPending(ctx context.Context, limit int) ([]entity.ClaimedJob, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("reminder job claim: limit must be > 0")
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qJobClaim, limit)
	if err != nil {
		return nil, fmt.Errorf("reminder job claim: %w", err)
	}
	defer rows.Close()

	var out []entity.ClaimedJob
	for rows.Next() {
		var (
			cj           entity.ClaimedJob
			reminderType string
			status       string
		)
		if err := rows.Scan(
			&cj.Job.ID, &cj.Job.PatientID, &cj.Job.EventDateID, &reminderType, &status,
			&cj.Job.ScheduledFor, &cj.Job.CreatedAt, &cj.Job.UpdatedAt,
			&cj.Patient.Name, &cj.Patient.Email, &cj.Patient.Phone,
			&cj.EventDate.EventID, &cj.EventDate.Date, &cj.EventDate.StartTime, &cj.EventDate.EndTime,
			&cj.EventDate.Event.Title, &cj.EventDate.Event.Location, &cj.EventDate.Event.Address,
			&cj.EventDate.Event.City, &cj.EventDate.Event.Status,
		); err != nil {
			return nil, fmt.Errorf("reminder job claim scan: %w", err)
		}
		cj.Job.ReminderType = entity.ReminderType(reminderType)
		cj.Job.Status = entity.JobStatus(status)
		cj.Patient.ID = cj.Job.PatientID
		cj.EventDate.ID = cj.Job.EventDateID
		cj.EventDate.Event.ID = cj.EventDate.EventID
		out = append(out, cj)
	}
	return out, rows.Err()
}

func (r *ReminderJobRepository) Complete(ctx context.Context, id string, o entity.JobOutcome) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	res, err := r.db.Pool.Exec(ctx, qJobComplete,
		id, string(o.Status), o.EmailSent, o.WhatsAppSent, o.SMSSent, o.ErrorMessage, o.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("reminder job complete: %w", err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ReminderJobRepository) List(ctx context.Context, f repository.JobFilter) ([]entity.ReminderJob, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qJobList, string(f.Status), f.EventDateID, f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("reminder job list: %w", err)
	}
	defer rows.Close()

	out := []entity.ReminderJob{}
	for rows.Next() {
		var (
			j            entity.ReminderJob
			reminderType string
			status       string
		)
		if err := rows.Scan(
			&j.ID, &j.PatientID, &j.EventDateID, &reminderType, &status, &j.ScheduledFor,
			&j.CompletedAt, &j.EmailSent, &j.WhatsAppSent, &j.SMSSent, &j.ErrorMessage, &j.CreatedAt, &j.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("reminder job list scan: %w", err)
		}
		j.ReminderType = entity.ReminderType(reminderType)
		j.Status = entity.JobStatus(status)
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *ReminderJobRepository) Requeue(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	res, err := r.db.Pool.Exec(ctx, qJobRequeue, ids, repository.StaleProcessingAfter.Seconds())
	if err != nil {
		return 0, fmt.Errorf("reminder job requeue: %w", err)
	}
	return int(res.RowsAffected()), nil
}

func (r *ReminderJobRepository) Release(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	res, err := r.db.Pool.Exec(ctx, qJobRelease, ids)
	if err != nil {
		return 0, fmt.Errorf("reminder job release: %w", err)
	}
	return int(res.RowsAffected()), nil
}

var _ repository.ReminderJobRepository = (*ReminderJobRepository)(nil)
