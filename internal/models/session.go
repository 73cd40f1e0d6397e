package models

import (
	"time"

	"github.com/lib/pq"
)

// Session represents one therapy session placed on the week grid of a schedule.
type Session struct {
	ID          string         `db:"id" json:"id"`
	ScheduleID  string         `db:"schedule_id" json:"schedule_id"`
	Day         Weekday        `db:"day_of_week" json:"day_of_week"`
	StartTime   string         `db:"start_time" json:"start_time"`
	EndTime     string         `db:"end_time" json:"end_time"`
	RoomID      string         `db:"room_id" json:"room_id"`
	EmployeeIDs pq.StringArray `db:"employee_ids" json:"employee_ids"`
	PatientIDs  pq.StringArray `db:"patient_ids" json:"patient_ids"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// HasEmployee reports whether the employee is assigned to this session.
func (s Session) HasEmployee(employeeID string) bool {
	for _, id := range s.EmployeeIDs {
		if id == employeeID {
			return true
		}
	}
	return false
}

// HasPatient reports whether the patient is assigned to this session.
func (s Session) HasPatient(patientID string) bool {
	for _, id := range s.PatientIDs {
		if id == patientID {
			return true
		}
	}
	return false
}

// ConstraintViolationError carries the details of a rejected placement or
// assignment so handlers can surface them alongside the error envelope.
type ConstraintViolationError struct {
	Code             string `json:"code"`
	Message          string `json:"message"`
	ConsecutiveCount int    `json:"consecutive_count,omitempty"`
}

// Error implements the error interface for constraint violations.
func (e *ConstraintViolationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// SessionFilter describes query params for listing a schedule's sessions.
type SessionFilter struct {
	EmployeeID string
	PatientID  string
	Day        Weekday
}
