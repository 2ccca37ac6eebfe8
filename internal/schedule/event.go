package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pders01/schedule-context/internal/models"
	"github.com/pders01/schedule-context/internal/store"
)

// CreateEvent stores a new event together with its first, empty WIP
func (e *Engine) CreateEvent(ctx context.Context, ev models.Event) (models.Event, models.Schedule, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	// Store prefixes are joined with '/', so an ID holding one would overlap
	// another event's keys.
	if strings.Contains(ev.ID, "/") {
		return models.Event{}, models.Schedule{}, fmt.Errorf("%w: %q contains '/'", ErrInvalidEventID, ev.ID)
	}
	if ev.Timezone == "" {
		ev.Timezone = "UTC"
	}
	ev.CreatedAt = e.now().UTC().Round(0)

	var wip models.Schedule
	err := e.store.Update(ctx, func(tx *store.Tx) error {
		_, err := tx.Event(ev.ID)
		if err == nil {
			return fmt.Errorf("%w: %s", ErrEventExists, ev.ID)
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if err := tx.PutEvent(ev); err != nil {
			return err
		}
		wip, err = tx.NewSchedule(ev.ID)
		return err
	})
	if err != nil {
		return models.Event{}, models.Schedule{}, err
	}

	e.log.Info("created event", zap.String("event_id", ev.ID), zap.String("wip_id", wip.ID))
	return ev, wip, nil
}

// AddRoom adds a room to an event, appending it after existing rooms
func (e *Engine) AddRoom(ctx context.Context, room models.Room) (models.Room, error) {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	err := e.store.Update(ctx, func(tx *store.Tx) error {
		if _, err := tx.Event(room.EventID); err != nil {
			return err
		}
		rooms, err := tx.Rooms(room.EventID)
		if err != nil {
			return err
		}
		if room.Position == 0 {
			room.Position = len(rooms)
		}
		return tx.PutRoom(room)
	})
	return room, err
}

// PutSubmission creates or replaces a submission of an event
func (e *Engine) PutSubmission(ctx context.Context, sub models.Submission) error {
	if sub.Code == "" {
		return errors.New("submission code is required")
	}
	if sub.State == "" {
		sub.State = models.StateSubmitted
	}
	if !models.IsValidState(sub.State) {
		return fmt.Errorf("invalid submission state: %s", sub.State)
	}
	return e.store.Update(ctx, func(tx *store.Tx) error {
		if _, err := tx.Event(sub.EventID); err != nil {
			return err
		}
		return tx.PutSubmission(sub)
	})
}

// Place adds a placement to the event's current WIP. Room and submission,
// when set, must belong to the event.
func (e *Engine) Place(ctx context.Context, eventID string, p models.Placement) (models.Placement, error) {
	if p.Start != nil && p.End != nil && p.End.Before(*p.Start) {
		return p, errors.New("placement ends before it starts")
	}

	var added models.Placement
	err := e.store.Update(ctx, func(tx *store.Tx) error {
		wip, err := tx.WIP(eventID)
		if err != nil {
			return err
		}
		if p.RoomID != "" {
			rooms, err := tx.Rooms(eventID)
			if err != nil {
				return err
			}
			if _, ok := rooms[p.RoomID]; !ok {
				return fmt.Errorf("room %s: %w", p.RoomID, store.ErrNotFound)
			}
		}
		if p.SubmissionCode != "" {
			if _, err := tx.Submission(eventID, p.SubmissionCode); err != nil {
				return err
			}
		}

		p.ScheduleID = wip.ID
		p.IsVisible = false
		added, err = tx.AddPlacement(p)
		return err
	})
	return added, err
}

// Versions lists an event's released schedules, newest first
func (e *Engine) Versions(ctx context.Context, eventID string) ([]models.Schedule, error) {
	all, err := e.store.Schedules(ctx, eventID)
	if err != nil {
		return nil, err
	}

	out := make([]models.Schedule, 0, len(all))
	for _, sc := range all {
		if !sc.IsWIP() {
			out = append(out, sc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Published.After(*out[j].Published)
	})
	return out, nil
}

// Resolve finds a schedule by version name. "wip" names the current WIP and
// "latest" the most recent release.
func (e *Engine) Resolve(ctx context.Context, eventID, version string) (models.Schedule, error) {
	version = strings.TrimSpace(version)
	switch strings.ToLower(version) {
	case "", "wip":
		return e.store.WIP(ctx, eventID)
	case "latest":
		versions, err := e.Versions(ctx, eventID)
		if err != nil {
			return models.Schedule{}, err
		}
		if len(versions) == 0 {
			return models.Schedule{}, fmt.Errorf("%w: %s has no releases", ErrVersionNotFound, eventID)
		}
		return versions[0], nil
	}

	versions, err := e.Versions(ctx, eventID)
	if err != nil {
		return models.Schedule{}, err
	}
	for _, sc := range versions {
		if sc.Version == version {
			return sc, nil
		}
	}
	return models.Schedule{}, fmt.Errorf("%w: %s", ErrVersionNotFound, version)
}
