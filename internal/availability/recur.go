package availability

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// maxOccurrences caps a single expansion so an unbounded rule cannot run away
const maxOccurrences = 1000

// Expand turns a recurring window into concrete ranges. first is the initial
// occurrence; every generated range keeps its duration and tags. Only
// occurrences starting in [from, to) are returned.
func Expand(rule string, first Availability, from, to time.Time) ([]Availability, error) {
	rule = strings.TrimPrefix(strings.TrimSpace(rule), "RRULE:")
	if rule == "" {
		return nil, fmt.Errorf("empty recurrence rule")
	}

	r, err := rrule.StrToRRule(rule)
	if err != nil {
		return nil, fmt.Errorf("failed to parse recurrence rule %q: %w", rule, err)
	}
	r.DTStart(first.Start)

	dur := first.End.Sub(first.Start)
	starts := r.Between(from, to, true)
	if len(starts) > maxOccurrences {
		starts = starts[:maxOccurrences]
	}

	out := make([]Availability, 0, len(starts))
	for _, s := range starts {
		if !s.Before(to) {
			continue
		}
		out = append(out, Availability{
			Start:    s,
			End:      s.Add(dur),
			RoomID:   first.RoomID,
			PersonID: first.PersonID,
		})
	}
	return out, nil
}
