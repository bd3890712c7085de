package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/enxergar/outreach/internal/domain/entity"
	"github.com/enxergar/outreach/internal/domain/repository"
	"github.com/enxergar/outreach/pkg/helpers"
)

type EventRepository struct {
	db *DB
}

func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

const (
	qEventDateCols = `ed.id::text, ed.event_id::text, ed.date, ed.start_time::text, ed.end_time::text,
       e.title, e.location, e.address, e.city, e.status`

	qDatesOn = `
SELECT ` + qEventDateCols + `
FROM event_dates ed
JOIN events e ON e.id = ed.event_id
WHERE ed.date = ANY(CAST($1 AS text[])::date[])
  AND ($2 = '' OR ed.event_id::text = $2)
ORDER BY ed.date, ed.start_time;`

	qDatesByEvent = `
SELECT ` + qEventDateCols + `
FROM event_dates ed
JOIN events e ON e.id = ed.event_id
WHERE ed.event_id::text = $1
ORDER BY ed.date, ed.start_time;`

	qConfirmedRegistrations = `
SELECT id::text, patient_id::text, event_date_id::text, status, created_at
FROM registrations
WHERE event_date_id::text = $1 AND status = 'confirmed'
ORDER BY created_at;`

	qRecipients = `
SELECT r.id::text, r.patient_id::text, r.event_date_id::text, r.status, r.created_at,
       p.nome, COALESCE(p.email, ''), COALESCE(p.telefone, ''),
       ` + qEventDateCols + `
FROM registrations r
JOIN patients p     ON p.id = r.patient_id
JOIN event_dates ed ON ed.id = r.event_date_id
JOIN events e       ON e.id = ed.event_id
WHERE r.status = ANY($1)
  AND (cardinality($2::text[]) = 0 OR ed.event_id::text = ANY($2))
  AND (cardinality($3::text[]) = 0 OR r.event_date_id::text = ANY($3))
  AND (cardinality($4::text[]) = 0 OR e.city = ANY($4))
  AND ($5::date IS NULL OR ed.date >= $5::date)
  AND ($6::date IS NULL OR ed.date <= $6::date)
ORDER BY ed.date, p.nome;`
)

func scanEventDate(row pgx.Row, d *entity.EventDate, extra ...any) error {
	dest := append(extra,
		&d.ID, &d.EventID, &d.Date, &d.StartTime, &d.EndTime,
		&d.Event.Title, &d.Event.Location, &d.Event.Address, &d.Event.City, &d.Event.Status,
	)
	if err := row.Scan(dest...); err != nil {
		return fmt.Errorf("event date scan: %w", err)
	}
	d.Event.ID = d.EventID
	return nil
}

func (r *EventRepository) queryDates(ctx context.Context, q string, args ...any) ([]entity.EventDate, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("event dates query: %w", err)
	}
	defer rows.Close()

	var out []entity.EventDate
	for rows.Next() {
		var d entity.EventDate
		if err := scanEventDate(rows, &d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *EventRepository) DatesOn(ctx context.Context, days []time.Time, eventID string) ([]entity.EventDate, error) {
	if len(days) == 0 {
		return nil, nil
	}
	ds := make([]string, 0, len(days))
	for _, d := range days {
		ds = append(ds, d.Format(helpers.DateLayoutDB))
	}
	return r.queryDates(ctx, qDatesOn, ds, eventID)
}

func (r *EventRepository) DatesByEvent(ctx context.Context, eventID string) ([]entity.EventDate, error) {
	return r.queryDates(ctx, qDatesByEvent, eventID)
}

func (r *EventRepository) ConfirmedRegistrations(ctx context.Context, eventDateID string) ([]entity.Registration, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qConfirmedRegistrations, eventDateID)
	if err != nil {
		return nil, fmt.Errorf("registrations query: %w", err)
	}
	defer rows.Close()

	var out []entity.Registration
	for rows.Next() {
		var reg entity.Registration
		if err := rows.Scan(&reg.ID, &reg.PatientID, &reg.EventDateID, &reg.Status, &reg.CreatedAt); err != nil {
			return nil, fmt.Errorf("registration scan: %w", err)
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}

func (r *EventRepository) Recipients(ctx context.Context, f repository.RecipientFilter) ([]entity.Recipient, error) {
	statuses := f.Statuses
	if len(statuses) == 0 {
		statuses = []string{entity.RegistrationConfirmed}
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qRecipients,
		statuses, nonNil(f.EventIDs), nonNil(f.EventDateIDs), nonNil(f.Cities),
		dateArg(f.DateFrom), dateArg(f.DateTo),
	)
	if err != nil {
		return nil, fmt.Errorf("recipients query: %w", err)
	}
	defer rows.Close()

	var out []entity.Recipient
	for rows.Next() {
		var rc entity.Recipient
		if err := scanEventDate(rows, &rc.EventDate,
			&rc.Registration.ID, &rc.Registration.PatientID, &rc.Registration.EventDateID,
			&rc.Registration.Status, &rc.Registration.CreatedAt,
			&rc.Patient.Name, &rc.Patient.Email, &rc.Patient.Phone,
		); err != nil {
			return nil, err
		}
		rc.Patient.ID = rc.Registration.PatientID
		out = append(out, rc)
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func dateArg(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(helpers.DateLayoutDB)
	return &s
}

var _ repository.EventRepository = (*EventRepository)(nil)
