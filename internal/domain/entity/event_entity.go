package entity

import "time"

const (
	RegistrationConfirmed = "confirmed"
	RegistrationPending   = "pending"
	RegistrationCancelled = "cancelled"
)

// Patient is the person registered for an event. Email and Phone may be empty.
type Patient struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	CreatedAt time.Time
}

type Event struct {
	ID       string
	Title    string
	Location string
	Address  string
	City     string
	Status   string
}

// EventDate is one dated session of an Event. StartTime and EndTime keep the
// database text form (HH:MM:SS).
type EventDate struct {
	ID        string
	EventID   string
	Date      time.Time
	StartTime string
	EndTime   string
	Event     Event
}

type Registration struct {
	ID          string
	PatientID   string
	EventDateID string
	Status      string
	CreatedAt   time.Time
}

// Recipient is a registration joined with its patient and event date.
type Recipient struct {
	Registration Registration
	Patient      Patient
	EventDate    EventDate
}
