// Package diff computes what changed between a schedule snapshot and its
// logical predecessor: new talks, canceled talks and moved talks.
package diff

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/pders01/schedule-context/internal/models"
)

// Action tells whether a schedule is the first release or an update
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

// Move records a talk that changed its room or start time
type Move struct {
	Submission string
	OldStart   *time.Time
	NewStart   *time.Time
	OldRoom    string
	NewRoom    string
	// NewInfo is the speaker info of the new room
	NewInfo string
	// NewSlot is the ID of the placement the talk moved into
	NewSlot string
}

// Result is the derived change set of one schedule. It is never stored as a
// system of record, only cached.
type Result struct {
	Count         int
	Action        Action
	NewTalks      []models.Placement
	CanceledTalks []models.Placement
	MovedTalks    []Move
}

func newResult(action Action) *Result {
	return &Result{
		Action:        action,
		NewTalks:      []models.Placement{},
		CanceledTalks: []models.Placement{},
		MovedTalks:    []Move{},
	}
}

// HasChanges reports whether anything changed
func (r *Result) HasChanges() bool {
	return r.Count > 0
}

// Source provides the schedule data a diff reads
type Source interface {
	Event(ctx context.Context, eventID string) (models.Event, error)
	Previous(ctx context.Context, sc models.Schedule) (*models.Schedule, error)
	Placements(ctx context.Context, scheduleID string) ([]models.Placement, error)
	Submissions(ctx context.Context, eventID string) (map[string]models.Submission, error)
	Rooms(ctx context.Context, eventID string) (map[string]models.Room, error)
}

// Engine computes diffs from a Source
type Engine struct {
	src Source
	log *zap.Logger
}

// NewEngine creates a diff engine
func NewEngine(src Source, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{src: src, log: log}
}

// Diff compares sc with its predecessor. The first release of an event is
// not diffed: it reports ActionCreate with no changes.
func (e *Engine) Diff(ctx context.Context, sc models.Schedule) (*Result, error) {
	prev, err := e.src.Previous(ctx, sc)
	if err != nil {
		return nil, fmt.Errorf("failed to find previous schedule: %w", err)
	}
	if prev == nil {
		return newResult(ActionCreate), nil
	}

	ev, err := e.src.Event(ctx, sc.EventID)
	if err != nil {
		return nil, err
	}
	subs, err := e.src.Submissions(ctx, sc.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load submissions: %w", err)
	}
	rooms, err := e.src.Rooms(ctx, sc.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rooms: %w", err)
	}

	oldPlacements, err := e.src.Placements(ctx, prev.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load placements of %s: %w", prev, err)
	}
	newPlacements, err := e.src.Placements(ctx, sc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load placements of %s: %w", sc, err)
	}

	res := Compare(
		Talks(oldPlacements, *prev, subs),
		Talks(newPlacements, sc, subs),
		ev.Location(),
		rooms,
	)

	e.log.Debug("computed schedule diff",
		zap.String("event_id", sc.EventID),
		zap.String("schedule_id", sc.ID),
		zap.String("previous_id", prev.ID),
		zap.Int("count", res.Count),
	)
	return res, nil
}

// Talks filters a schedule's placements down to publicly shown talks. A
// released schedule shows what was visible at freeze time; the WIP shows what
// would become visible if it were frozen now.
func Talks(placements []models.Placement, sc models.Schedule, subs map[string]models.Submission) []models.Placement {
	out := make([]models.Placement, 0, len(placements))
	for _, p := range placements {
		if !p.IsScheduled() {
			continue
		}
		if sc.IsWIP() {
			sub, ok := subs[p.SubmissionCode]
			if !ok || !models.VisibleOnFreeze(p, &sub) {
				continue
			}
		} else if !p.IsVisible {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Compare classifies the differences between two sets of talks. Placements
// that share submission, room and local start time in loc are the same slot.
func Compare(old, cur []models.Placement, loc *time.Location, rooms map[string]models.Room) *Result {
	res := newResult(ActionUpdate)

	oldIndex, oldBySub := index(old, loc)
	newIndex, newBySub := index(cur, loc)

	codes := make([]string, 0, len(oldBySub)+len(newBySub))
	for code := range oldBySub {
		codes = append(codes, code)
	}
	for code := range newBySub {
		if _, ok := oldBySub[code]; !ok {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)

	for _, code := range codes {
		olds, news := oldBySub[code], newBySub[code]
		switch {
		case len(news) == 0:
			res.CanceledTalks = append(res.CanceledTalks, olds...)
		case len(olds) == 0:
			res.NewTalks = append(res.NewTalks, news...)
		default:
			pair(res, olds, news, oldIndex, newIndex, loc, rooms)
		}
	}

	res.Count = len(res.NewTalks) + len(res.CanceledTalks) + len(res.MovedTalks)
	return res
}

// index maps each slot triple to its first placement and groups the distinct
// placements by submission in creation order.
func index(placements []models.Placement, loc *time.Location) (map[models.SlotKey]models.Placement, map[string][]models.Placement) {
	sorted := make([]models.Placement, len(placements))
	copy(sorted, placements)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Seq < sorted[j].Seq
	})

	byKey := make(map[models.SlotKey]models.Placement, len(sorted))
	bySub := make(map[string][]models.Placement)
	for _, p := range sorted {
		key := p.Key(loc)
		if _, dup := byKey[key]; dup {
			continue
		}
		byKey[key] = p
		bySub[p.SubmissionCode] = append(bySub[p.SubmissionCode], p)
	}
	return byKey, bySub
}
