package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/pders01/schedule-context/internal/models"
	"github.com/pders01/schedule-context/internal/store"
)

// EventID is the ID of the event every fixture seeds
const EventID = "ev"

// At returns 2026-03-14 at the given hour in UTC
func At(hour int) *time.Time {
	t := time.Date(2026, 3, 14, hour, 0, 0, 0, time.UTC)
	return &t
}

// NewStore opens an in-memory store that is closed when the test ends
func NewStore(t *testing.T, cfg store.Config) *store.Store {
	t.Helper()

	cfg.InMemory = true
	s, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TempDir creates a temporary directory for a persistent store or config
type TempDir struct {
	Path string
	T    *testing.T
}

// NewTempDir creates a new temporary directory
func NewTempDir(t *testing.T) *TempDir {
	t.Helper()

	dir, err := os.MkdirTemp("", "schedctx-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	return &TempDir{Path: dir, T: t}
}

// Cleanup removes the temporary directory
func (d *TempDir) Cleanup() {
	d.T.Helper()
	if err := os.RemoveAll(d.Path); err != nil {
		d.T.Errorf("failed to cleanup temp dir: %v", err)
	}
}

// Fixture is a store seeded with one event, two rooms (A and B) and three
// confirmed submissions (TALK1, TALK2, TALK3).
type Fixture struct {
	T     *testing.T
	Store *store.Store
	Event models.Event
}

// NewFixture seeds an in-memory store
func NewFixture(t *testing.T) *Fixture {
	return NewFixtureWithConfig(t, store.Config{})
}

// NewFixtureWithConfig seeds an in-memory store opened with cfg
func NewFixtureWithConfig(t *testing.T, cfg store.Config) *Fixture {
	t.Helper()

	f := &Fixture{
		T:     t,
		Store: NewStore(t, cfg),
		Event: models.Event{ID: EventID, Name: "Conf", Timezone: "UTC", CreatedAt: time.Now().UTC()},
	}

	err := f.Store.Update(context.Background(), func(tx *store.Tx) error {
		if err := tx.PutEvent(f.Event); err != nil {
			return err
		}
		for i, r := range []models.Room{
			{ID: "A", Name: "Room A", SpeakerInfo: "ground floor"},
			{ID: "B", Name: "Room B", SpeakerInfo: "first floor"},
		} {
			r.EventID = EventID
			r.Position = i
			if err := tx.PutRoom(r); err != nil {
				return err
			}
		}
		for _, code := range []string{"TALK1", "TALK2", "TALK3"} {
			sub := models.Submission{Code: code, EventID: EventID, Title: code, State: models.StateConfirmed}
			if err := tx.PutSubmission(sub); err != nil {
				return err
			}
		}
		_, err := tx.NewSchedule(EventID)
		return err
	})
	if err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}
	return f
}

// WIP returns the event's current WIP schedule
func (f *Fixture) WIP() models.Schedule {
	f.T.Helper()

	wip, err := f.Store.WIP(context.Background(), EventID)
	if err != nil {
		f.T.Fatalf("failed to load wip: %v", err)
	}
	return wip
}

// Submit creates or replaces a submission
func (f *Fixture) Submit(code string, state models.SubmissionState) {
	f.T.Helper()

	err := f.Store.Update(context.Background(), func(tx *store.Tx) error {
		return tx.PutSubmission(models.Submission{Code: code, EventID: EventID, Title: code, State: state})
	})
	if err != nil {
		f.T.Fatalf("failed to store submission %s: %v", code, err)
	}
}

// Place adds placements to the current WIP
func (f *Fixture) Place(ps ...models.Placement) []models.Placement {
	f.T.Helper()
	return f.add(f.WIP().ID, false, ps)
}

// Release stores a published schedule published at the given hour, holding
// the given placements as visible.
func (f *Fixture) Release(version string, hour int, ps ...models.Placement) models.Schedule {
	f.T.Helper()

	sc := models.Schedule{
		ID:        "sc-" + version,
		EventID:   EventID,
		Version:   version,
		Published: At(hour),
		CreatedAt: *At(hour),
	}
	err := f.Store.Update(context.Background(), func(tx *store.Tx) error {
		return tx.PutSchedule(sc)
	})
	if err != nil {
		f.T.Fatalf("failed to store schedule %s: %v", version, err)
	}
	f.add(sc.ID, true, ps)
	return sc
}

func (f *Fixture) add(scheduleID string, visible bool, ps []models.Placement) []models.Placement {
	f.T.Helper()

	out := make([]models.Placement, 0, len(ps))
	err := f.Store.Update(context.Background(), func(tx *store.Tx) error {
		out = out[:0]
		for _, p := range ps {
			p.ScheduleID = scheduleID
			if visible {
				p.IsVisible = true
			}
			added, err := tx.AddPlacement(p)
			if err != nil {
				return err
			}
			out = append(out, added)
		}
		return nil
	})
	if err != nil {
		f.T.Fatalf("failed to add placements: %v", err)
	}
	return out
}
