package entity

import "time"

type ReminderType string

const (
	Reminder24h          ReminderType = "24h"
	Reminder48h          ReminderType = "48h"
	ReminderConfirmation ReminderType = "confirmation"
)

func (r ReminderType) Valid() bool {
	switch r {
	case Reminder24h, Reminder48h, ReminderConfirmation:
		return true
	}
	return false
}

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobSent       JobStatus = "sent"
	JobFailed     JobStatus = "failed"
)

// ReminderJob is one unit of reminder work. The triple
// (PatientID, EventDateID, ReminderType) is unique.
type ReminderJob struct {
	ID           string
	PatientID    string
	EventDateID  string
	ReminderType ReminderType
	Status       JobStatus
	ScheduledFor time.Time
	CompletedAt  *time.Time
	EmailSent    bool
	WhatsAppSent bool
	SMSSent      bool
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ClaimedJob is a job moved to processing together with the data needed to send it.
type ClaimedJob struct {
	Job       ReminderJob
	Patient   Patient
	EventDate EventDate
}

// JobOutcome is written back when a job finishes.
type JobOutcome struct {
	Status       JobStatus
	EmailSent    bool
	WhatsAppSent bool
	SMSSent      bool
	ErrorMessage string
	CompletedAt  time.Time
}
