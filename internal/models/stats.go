package models

// DashboardStats summarises a reviewer's scoped view: global for the owner,
// restricted to owned events for admins.
type DashboardStats struct {
	TotalEvents          int `db:"total_events" json:"total_events"`
	UpcomingEvents       int `db:"upcoming_events" json:"upcoming_events"`
	TotalRegistrations   int `db:"total_registrations" json:"total_registrations"`
	PendingRegistrations int `db:"pending_registrations" json:"pending_registrations"`
}
