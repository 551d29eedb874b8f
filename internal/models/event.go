package models

import "time"

// RegistrationType declares how students sign up for an event.
type RegistrationType string

const (
	RegistrationTypeIndividual RegistrationType = "individual"
	RegistrationTypeGroup      RegistrationType = "group"
)

// Event represents a published campus event. Events are soft-deleted via the
// is_active flag so registrations keep a valid reference.
type Event struct {
	ID                   string           `db:"id" json:"id"`
	Title                string           `db:"title" json:"title"`
	Description          string           `db:"description" json:"description"`
	EventDate            time.Time        `db:"event_date" json:"event_date"`
	RegistrationDeadline time.Time        `db:"registration_deadline" json:"registration_deadline"`
	RegistrationType     RegistrationType `db:"registration_type" json:"registration_type"`
	Venue                string           `db:"venue" json:"venue"`
	MaxParticipants      *int             `db:"max_participants" json:"max_participants,omitempty"`
	CreatedBy            string           `db:"created_by" json:"created_by"`
	IsActive             bool             `db:"is_active" json:"is_active"`
	CreatedAt            time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time        `db:"updated_at" json:"updated_at"`
}

// IsUpcoming reports whether the event has not happened yet.
func (e *Event) IsUpcoming(now time.Time) bool {
	return now.Before(e.EventDate)
}

// IsRegistrationOpen reports whether registrations are still accepted.
// Strict less-than: at the deadline instant registration is closed.
func (e *Event) IsRegistrationOpen(now time.Time) bool {
	return now.Before(e.RegistrationDeadline)
}

// EventFilter captures listing criteria for events.
type EventFilter struct {
	CreatedBy  string
	ActiveOnly bool
}

// EventListing splits active events around the current instant.
type EventListing struct {
	Upcoming []Event `json:"upcoming"`
	Past     []Event `json:"past"`
}
