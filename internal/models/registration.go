package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// RegistrationStatus represents the review state of a registration.
type RegistrationStatus string

const (
	RegistrationStatusPending  RegistrationStatus = "pending"
	RegistrationStatusApproved RegistrationStatus = "approved"
	RegistrationStatusDeclined RegistrationStatus = "declined"
)

// Terminal reports whether the status is a reviewed end state.
func (s RegistrationStatus) Terminal() bool {
	return s == RegistrationStatusApproved || s == RegistrationStatusDeclined
}

// GroupMember describes one member of a group registration.
type GroupMember struct {
	Name       string `json:"name"`
	StudentID  string `json:"studentId"`
	Department string `json:"department"`
	Year       string `json:"year"`
}

// GroupMembers is stored as a jsonb column.
type GroupMembers []GroupMember

// Value implements driver.Valuer.
func (m GroupMembers) Value() (driver.Value, error) {
	if m == nil {
		m = GroupMembers{}
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *GroupMembers) Scan(src interface{}) error {
	if src == nil {
		*m = GroupMembers{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported group members source %T", src)
	}
	return json.Unmarshal(raw, m)
}

// Registration is a student's admission record for one event. Created once by
// the admission flow, mutated only by the approval flow, never deleted.
// Version is the optimistic concurrency token guarding status updates.
type Registration struct {
	ID           string             `db:"id" json:"id"`
	EventID      string             `db:"event_id" json:"event_id"`
	StudentName  string             `db:"student_name" json:"student_name"`
	StudentEmail string             `db:"student_email" json:"student_email"`
	StudentID    string             `db:"student_id" json:"student_id"`
	Department   string             `db:"department" json:"department"`
	Year         string             `db:"year" json:"year"`
	Phone        string             `db:"phone" json:"phone"`
	GroupMembers GroupMembers       `db:"group_members" json:"group_members"`
	Status       RegistrationStatus `db:"status" json:"status"`
	ApprovedBy   *string            `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt   *time.Time         `db:"approved_at" json:"approved_at,omitempty"`
	EmailSent    bool               `db:"email_sent" json:"email_sent"`
	Version      int                `db:"version" json:"-"`
	CreatedAt    time.Time          `db:"created_at" json:"created_at"`
}

// RegistrationDetail enriches a registration with event context for review
// screens and notification content.
type RegistrationDetail struct {
	Registration
	EventTitle     string           `db:"event_title" json:"event_title"`
	EventDate      time.Time        `db:"event_date" json:"event_date"`
	EventVenue     string           `db:"event_venue" json:"event_venue"`
	EventType      RegistrationType `db:"event_type" json:"event_type"`
	EventCreatedBy string           `db:"event_created_by" json:"-"`
}

// RegistrationFilter captures listing criteria for registrations.
type RegistrationFilter struct {
	EventID   string
	CreatedBy string
	Status    RegistrationStatus
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
