package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DayOverride is a per-weekday exception to an activity's default window.
// Exactly one of the two shapes applies: Cleared (the activity does not block
// that day even when a default window exists) or a replacement Window.
type DayOverride struct {
	Cleared bool
	Window  *TimeRange
}

// MarshalJSON encodes a cleared override as an explicit null.
func (o DayOverride) MarshalJSON() ([]byte, error) {
	if o.Cleared || o.Window == nil {
		return []byte("null"), nil
	}
	return json.Marshal(o.Window)
}

// UnmarshalJSON treats an explicit null as "cleared" and anything else as a window.
func (o *DayOverride) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Cleared = true
		o.Window = nil
		return nil
	}
	var window TimeRange
	if err := json.Unmarshal(data, &window); err != nil {
		return err
	}
	o.Cleared = false
	o.Window = &window
	return nil
}

// ActivityOverrides maps weekdays to their override. A missing key falls
// through to the activity's default window.
type ActivityOverrides map[Weekday]DayOverride

// Value serialises overrides into JSONB.
func (a ActivityOverrides) Value() (driver.Value, error) {
	if a == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(a)
}

// Scan deserialises overrides from JSONB.
func (a *ActivityOverrides) Scan(src interface{}) error {
	if src == nil {
		*a = ActivityOverrides{}
		return nil
	}
	data, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("activity overrides: unsupported scan type %T", src)
	}
	return json.Unmarshal(data, a)
}

// Activity represents a recurring period such as a staff meeting or lunch break.
// Blocking activities prohibit session placement inside their effective window.
type Activity struct {
	ID         string            `db:"id" json:"id"`
	Name       string            `db:"name" json:"name"`
	IsBlocking bool              `db:"is_blocking" json:"is_blocking"`
	StartTime  *string           `db:"start_time" json:"start_time,omitempty"`
	EndTime    *string           `db:"end_time" json:"end_time,omitempty"`
	Overrides  ActivityOverrides `db:"overrides" json:"overrides"`
	Active     bool              `db:"active" json:"active"`
	CreatedAt  time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time         `db:"updated_at" json:"updated_at"`
}

// EffectiveWindow resolves the activity's window for a weekday: an override wins
// (including an explicit "cleared"), otherwise the default applies when both
// bounds are set.
func (a Activity) EffectiveWindow(day Weekday) (TimeRange, bool) {
	if override, ok := a.Overrides[day]; ok {
		if override.Cleared || override.Window == nil {
			return TimeRange{}, false
		}
		return *override.Window, true
	}
	if a.StartTime != nil && a.EndTime != nil {
		return TimeRange{StartTime: *a.StartTime, EndTime: *a.EndTime}, true
	}
	return TimeRange{}, false
}

// ActivityFilter describes query params for listing activities.
type ActivityFilter struct {
	Blocking  *bool
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
