package validation

import "github.com/clinicore/clinicore-api/internal/models"

// FindConflicts returns the sessions that match the predicate, share the
// candidate's day and overlap its time interval. The candidate itself is
// excluded by id, so updates never conflict with their own stored row.
// Sessions with unparsable times are skipped; the orchestrator rejects a
// malformed candidate before conflicts are ever computed.
func FindConflicts(candidate models.Session, existing []models.Session, match func(models.Session) bool) []models.Session {
	candStart, err := ToMinutes(candidate.StartTime)
	if err != nil {
		return nil
	}
	candEnd, err := ToMinutes(candidate.EndTime)
	if err != nil {
		return nil
	}

	var conflicts []models.Session
	for _, session := range existing {
		if session.ID == candidate.ID || session.Day != candidate.Day {
			continue
		}
		if !match(session) {
			continue
		}
		start, err := ToMinutes(session.StartTime)
		if err != nil {
			continue
		}
		end, err := ToMinutes(session.EndTime)
		if err != nil {
			continue
		}
		if Overlaps(start, end, candStart, candEnd) {
			conflicts = append(conflicts, session)
		}
	}
	return conflicts
}

// EmployeeConflicts finds sessions already occupying the employee during the
// candidate's interval.
func EmployeeConflicts(candidate models.Session, existing []models.Session, employeeID string) []models.Session {
	return FindConflicts(candidate, existing, func(s models.Session) bool {
		return s.HasEmployee(employeeID)
	})
}

// RoomConflicts finds sessions already occupying the candidate's room.
func RoomConflicts(candidate models.Session, existing []models.Session) []models.Session {
	return FindConflicts(candidate, existing, func(s models.Session) bool {
		return s.RoomID == candidate.RoomID
	})
}

// PatientConflicts finds sessions the patient is already assigned to during
// the candidate's interval.
func PatientConflicts(candidate models.Session, existing []models.Session, patientID string) []models.Session {
	return FindConflicts(candidate, existing, func(s models.Session) bool {
		return s.HasPatient(patientID)
	})
}
