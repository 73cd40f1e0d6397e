package models

import "time"

// Schedule is an independent container of sessions for one planning week.
// At most one schedule is active at a time.
type Schedule struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ScheduleFilter describes query params for listing schedules.
type ScheduleFilter struct {
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
