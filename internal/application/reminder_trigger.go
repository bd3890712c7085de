package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/enxergar/outreach/internal/domain/entity"
	repo "github.com/enxergar/outreach/internal/domain/repository"
	"github.com/enxergar/outreach/pkg/helpers"
)

const (
	TriggerReminder     = "reminder"
	TriggerConfirmation = "confirmation"
)

var (
	ErrInvalidTriggerType  = errors.New("type must be reminder or confirmation")
	ErrInvalidReminderType = errors.New("reminderType must be 24h or 48h")
	ErrEventIDRequired     = errors.New("eventId is required for confirmation")
)

type TriggerRequest struct {
	Type         string
	Timestamp    string
	EventID      string
	ReminderType entity.ReminderType
}

type TriggerResult struct {
	JobsCreated int      `json:"jobsCreated"`
	Errors      []string `json:"errors,omitempty"`
	Timestamp   string   `json:"timestamp"`
	Type        string   `json:"type"`
}

// ReminderTrigger finds registrations due for a reminder and enqueues one job each.
type ReminderTrigger struct {
	Events   repo.EventRepository
	Jobs     repo.ReminderJobRepository
	Location *time.Location
	Now      func() time.Time
	Logger   *logrus.Logger
}

func NewReminderTrigger(events repo.EventRepository, jobs repo.ReminderJobRepository, loc *time.Location, logger *logrus.Logger) *ReminderTrigger {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	return &ReminderTrigger{Events: events, Jobs: jobs, Location: loc, Now: time.Now, Logger: logger}
}

func (t *ReminderTrigger) Trigger(ctx context.Context, req TriggerRequest) (TriggerResult, error) {
	res := TriggerResult{Timestamp: req.Timestamp, Type: req.Type}
	switch req.Type {
	case TriggerReminder:
		if req.ReminderType != "" && req.ReminderType != entity.Reminder24h && req.ReminderType != entity.Reminder48h {
			return res, ErrInvalidReminderType
		}
		return t.reminders(ctx, req, res)
	case TriggerConfirmation:
		if req.EventID == "" {
			return res, ErrEventIDRequired
		}
		return t.confirmations(ctx, req, res)
	default:
		return res, ErrInvalidTriggerType
	}
}

func (t *ReminderTrigger) reminders(ctx context.Context, req TriggerRequest, res TriggerResult) (TriggerResult, error) {
	now := t.Now()
	tomorrow := helpers.DaysAhead(now, t.Location, 1)
	dayAfter := helpers.DaysAhead(now, t.Location, 2)

	byDay := map[string]entity.ReminderType{}
	var days []time.Time
	if req.ReminderType == "" || req.ReminderType == entity.Reminder24h {
		byDay[tomorrow.Format(helpers.DateLayoutDB)] = entity.Reminder24h
		days = append(days, tomorrow)
	}
	if req.ReminderType == "" || req.ReminderType == entity.Reminder48h {
		byDay[dayAfter.Format(helpers.DateLayoutDB)] = entity.Reminder48h
		days = append(days, dayAfter)
	}

	dates, err := t.Events.DatesOn(ctx, days, req.EventID)
	if err != nil {
		return res, fmt.Errorf("fetch event dates: %w", err)
	}
	t.Logger.WithFields(logrus.Fields{"dates": len(dates), "event_id": req.EventID}).Info("trigger reminders")

	for _, d := range dates {
		rt, ok := byDay[d.Date.Format(helpers.DateLayoutDB)]
		if !ok {
			continue
		}
		t.enqueueDate(ctx, d, rt, now, &res)
	}
	return res, nil
}

func (t *ReminderTrigger) confirmations(ctx context.Context, req TriggerRequest, res TriggerResult) (TriggerResult, error) {
	dates, err := t.Events.DatesByEvent(ctx, req.EventID)
	if err != nil {
		return res, fmt.Errorf("fetch event dates: %w", err)
	}
	now := t.Now()
	for _, d := range dates {
		t.enqueueDate(ctx, d, entity.ReminderConfirmation, now, &res)
	}
	return res, nil
}

// enqueueDate never aborts: failures are appended to res.Errors.
func (t *ReminderTrigger) enqueueDate(ctx context.Context, d entity.EventDate, rt entity.ReminderType, now time.Time, res *TriggerResult) {
	regs, err := t.Events.ConfirmedRegistrations(ctx, d.ID)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("Error processing event date %s: %v", d.ID, err))
		return
	}
	for _, reg := range regs {
		job := &entity.ReminderJob{
			PatientID:    reg.PatientID,
			EventDateID:  d.ID,
			ReminderType: rt,
			Status:       entity.JobPending,
			ScheduledFor: now,
		}
		created, err := t.Jobs.Enqueue(ctx, job)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Error processing registration %s: %v", reg.ID, err))
			continue
		}
		if created {
			res.JobsCreated++
			mJobsTriggered.WithLabelValues(string(rt)).Inc()
		}
	}
}
