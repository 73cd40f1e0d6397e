package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// RoleTargets maps a therapist role key to the minimum weekly session count a
// patient should receive from that role. Targets are bookkeeping only; the
// constraint engine does not enforce them.
type RoleTargets map[string]int

// Value serialises role targets into JSONB.
func (r RoleTargets) Value() (driver.Value, error) {
	if r == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r)
}

// Scan deserialises role targets from JSONB.
func (r *RoleTargets) Scan(src interface{}) error {
	if src == nil {
		*r = RoleTargets{}
		return nil
	}
	data, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("role targets: unsupported scan type %T", src)
	}
	return json.Unmarshal(data, r)
}

// Patient represents a patient that can be assigned to sessions.
type Patient struct {
	ID          string      `db:"id" json:"id"`
	FullName    string      `db:"full_name" json:"full_name"`
	RoleTargets RoleTargets `db:"role_targets" json:"role_targets"`
	Active      bool        `db:"active" json:"active"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// PatientFilter describes query params for listing patients.
type PatientFilter struct {
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
