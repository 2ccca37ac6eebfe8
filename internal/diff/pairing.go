package diff

import (
	"time"

	"github.com/pders01/schedule-context/internal/models"
)

// pair classifies the placements of one submission present in both schedules.
//
// Unchanged slots are dropped. Surplus old slots become cancellations and
// surplus new slots become additions, taking the earliest-created first. The
// rest are paired in creation order and reported as moves. This is a
// heuristic: it does not search for the pairing with the smallest change.
func pair(
	res *Result,
	olds, news []models.Placement,
	oldIndex, newIndex map[models.SlotKey]models.Placement,
	loc *time.Location,
	rooms map[string]models.Room,
) {
	remOld := make([]models.Placement, 0, len(olds))
	for _, p := range olds {
		if _, same := newIndex[p.Key(loc)]; !same {
			remOld = append(remOld, p)
		}
	}
	remNew := make([]models.Placement, 0, len(news))
	for _, p := range news {
		if _, same := oldIndex[p.Key(loc)]; !same {
			remNew = append(remNew, p)
		}
	}

	surplus := len(remOld) - len(remNew)
	switch {
	case surplus > 0:
		res.CanceledTalks = append(res.CanceledTalks, remOld[:surplus]...)
		remOld = remOld[surplus:]
	case surplus < 0:
		res.NewTalks = append(res.NewTalks, remNew[:-surplus]...)
		remNew = remNew[-surplus:]
	}

	for i := range remOld {
		o, n := remOld[i], remNew[i]
		res.MovedTalks = append(res.MovedTalks, Move{
			Submission: n.SubmissionCode,
			OldStart:   o.Start,
			NewStart:   n.Start,
			OldRoom:    o.RoomID,
			NewRoom:    n.RoomID,
			NewInfo:    rooms[n.RoomID].SpeakerInfo,
			NewSlot:    n.ID,
		})
	}
}
