package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// TimeRange is a wall-clock window within a single day, both bounds in "HH:mm".
type TimeRange struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// WorkingHours maps each working weekday to the employee's declared window.
// A missing key means the employee does not work that day.
type WorkingHours map[Weekday]TimeRange

// Value serialises working hours into JSONB.
func (w WorkingHours) Value() (driver.Value, error) {
	if w == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(w)
}

// Scan deserialises working hours from JSONB.
func (w *WorkingHours) Scan(src interface{}) error {
	if src == nil {
		*w = WorkingHours{}
		return nil
	}
	data, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("working hours: unsupported scan type %T", src)
	}
	return json.Unmarshal(data, w)
}

// Employee represents a therapist or other staff member that can be assigned to sessions.
type Employee struct {
	ID           string       `db:"id" json:"id"`
	FullName     string       `db:"full_name" json:"full_name"`
	RoleKey      string       `db:"role_key" json:"role_key"`
	WeeklyTarget int          `db:"weekly_target" json:"weekly_target"`
	WorkingHours WorkingHours `db:"working_hours" json:"working_hours"`
	Active       bool         `db:"active" json:"active"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// EmployeeFilter describes query params for listing employees.
type EmployeeFilter struct {
	RoleKey   string
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
