package store

import (
	"context"

	"github.com/pders01/schedule-context/internal/models"
)

// The helpers below each run a single read-only transaction. They satisfy the
// read interfaces of the diff engine and the diff cache.

// Event loads an event
func (s *Store) Event(ctx context.Context, eventID string) (ev models.Event, err error) {
	err = s.View(ctx, func(tx *Tx) error {
		ev, err = tx.Event(eventID)
		return err
	})
	return ev, err
}

// Events lists every event
func (s *Store) Events(ctx context.Context) (out []models.Event, err error) {
	err = s.View(ctx, func(tx *Tx) error {
		out, err = tx.Events()
		return err
	})
	return out, err
}

// WIP loads the event's current work-in-progress schedule
func (s *Store) WIP(ctx context.Context, eventID string) (sc models.Schedule, err error) {
	err = s.View(ctx, func(tx *Tx) error {
		sc, err = tx.WIP(eventID)
		return err
	})
	return sc, err
}

// Schedules lists every schedule of an event, oldest release first
func (s *Store) Schedules(ctx context.Context, eventID string) (out []models.Schedule, err error) {
	err = s.View(ctx, func(tx *Tx) error {
		out, err = tx.Schedules(eventID)
		return err
	})
	return out, err
}

// Previous returns the logical predecessor of sc, or nil
func (s *Store) Previous(ctx context.Context, sc models.Schedule) (prev *models.Schedule, err error) {
	err = s.View(ctx, func(tx *Tx) error {
		prev, err = tx.Previous(sc)
		return err
	})
	return prev, err
}

// Placements lists a schedule's placements in creation order
func (s *Store) Placements(ctx context.Context, scheduleID string) (out []models.Placement, err error) {
	err = s.View(ctx, func(tx *Tx) error {
		out, err = tx.Placements(scheduleID)
		return err
	})
	return out, err
}

// Placement loads a placement by ID
func (s *Store) Placement(ctx context.Context, placementID string) (p models.Placement, err error) {
	err = s.View(ctx, func(tx *Tx) error {
		p, err = tx.Placement(placementID)
		return err
	})
	return p, err
}

// Submissions returns all submissions of an event keyed by code
func (s *Store) Submissions(ctx context.Context, eventID string) (out map[string]models.Submission, err error) {
	err = s.View(ctx, func(tx *Tx) error {
		out, err = tx.Submissions(eventID)
		return err
	})
	return out, err
}

// Rooms returns all rooms of an event keyed by ID
func (s *Store) Rooms(ctx context.Context, eventID string) (out map[string]models.Room, err error) {
	err = s.View(ctx, func(tx *Tx) error {
		out, err = tx.Rooms(eventID)
		return err
	})
	return out, err
}
