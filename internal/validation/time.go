package validation

import (
	"fmt"
	"strconv"
	"strings"
)

// ToMinutes converts an "HH:mm" wall-clock string into minutes since midnight.
func ToMinutes(value string) (int, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q: expected HH:mm", value)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", value, err)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", value, err)
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid time %q: out of range", value)
	}
	return hours*60 + minutes, nil
}

// Overlaps reports whether two half-open minute intervals intersect. Intervals
// that merely touch do not overlap, and zero-length intervals overlap nothing.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}
