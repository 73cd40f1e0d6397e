package validation

import (
	"sort"

	"github.com/clinicore/clinicore-api/internal/models"
)

// ConsecutiveCount computes the length of the unbroken chain of back-to-back
// sessions that would contain the candidate. sameDay holds the patient's other
// sessions on the candidate's weekday; the candidate is merged in, the list is
// sorted by start time, and two independent walks run outward from the
// candidate: backward while the gap between an item's start and its
// predecessor's end stays under gapMinutes, then forward symmetrically. The
// walks are deliberately independent: a break before the candidate does not
// stop the chain from continuing after it. A gap of exactly gapMinutes breaks
// the chain; a gap of zero does not.
func ConsecutiveCount(candidate models.Session, sameDay []models.Session, gapMinutes int) int {
	type interval struct {
		start, end  int
		isCandidate bool
	}

	candStart, err := ToMinutes(candidate.StartTime)
	if err != nil {
		return 0
	}
	candEnd, err := ToMinutes(candidate.EndTime)
	if err != nil {
		return 0
	}

	items := []interval{{start: candStart, end: candEnd, isCandidate: true}}
	for _, session := range sameDay {
		if session.ID == candidate.ID && session.ID != "" {
			continue
		}
		if session.Day != candidate.Day {
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
		items = append(items, interval{start: start, end: end})
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].start < items[j].start })

	idx := 0
	for i, item := range items {
		if item.isCandidate {
			idx = i
			break
		}
	}

	count := 1
	for i := idx; i > 0; i-- {
		if items[i].start-items[i-1].end >= gapMinutes {
			break
		}
		count++
	}
	for i := idx; i < len(items)-1; i++ {
		if items[i+1].start-items[i].end >= gapMinutes {
			break
		}
		count++
	}
	return count
}
