package models

import "strings"

// Weekday is one of the five working days of the clinic week.
type Weekday string

const (
	Sunday    Weekday = "SUNDAY"
	Monday    Weekday = "MONDAY"
	Tuesday   Weekday = "TUESDAY"
	Wednesday Weekday = "WEDNESDAY"
	Thursday  Weekday = "THURSDAY"
)

// Weekdays lists the working days in chronological order.
var Weekdays = []Weekday{Sunday, Monday, Tuesday, Wednesday, Thursday}

// ParseWeekday normalises a day string and reports whether it is a working day.
func ParseWeekday(raw string) (Weekday, bool) {
	day := Weekday(strings.ToUpper(strings.TrimSpace(raw)))
	for _, d := range Weekdays {
		if d == day {
			return day, true
		}
	}
	return "", false
}

// Valid reports whether the weekday is one of the five working days.
func (d Weekday) Valid() bool {
	_, ok := ParseWeekday(string(d))
	return ok
}
