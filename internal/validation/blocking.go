package validation

import "github.com/clinicore/clinicore-api/internal/models"

// FindBlockingOverlap returns the first active blocking activity whose
// effective window for the day intersects the candidate interval. Non-blocking
// activities are informational only and never rejected against. The check is
// independent of employees and rooms: it is purely a function of day and time.
func FindBlockingOverlap(day models.Weekday, startMin, endMin int, activities []models.Activity) *models.Activity {
	for i := range activities {
		activity := activities[i]
		if !activity.Active || !activity.IsBlocking {
			continue
		}
		window, exists := activity.EffectiveWindow(day)
		if !exists {
			continue
		}
		windowStart, err := ToMinutes(window.StartTime)
		if err != nil {
			continue
		}
		windowEnd, err := ToMinutes(window.EndTime)
		if err != nil {
			continue
		}
		if Overlaps(windowStart, windowEnd, startMin, endMin) {
			return &activity
		}
	}
	return nil
}
