package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/pders01/schedule-context/internal/models"
)

// Tx is a store transaction. It must not be used after the Update or View
// callback that received it returns.
type Tx struct {
	txn   *badger.Txn
	store *Store
}

func (tx *Tx) get(key []byte, v any) error {
	item, err := tx.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func (tx *Tx) put(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return tx.txn.Set(key, data)
}

// each decodes every value under prefix in key order
func each[T any](tx *Tx, prefix []byte, fn func(key []byte, v T) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := tx.txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		var v T
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &v)
		}); err != nil {
			return fmt.Errorf("failed to decode %s: %w", item.Key(), err)
		}
		if err := fn(item.KeyCopy(nil), v); err != nil {
			return err
		}
	}
	return nil
}

// PutEvent creates or replaces an event
func (tx *Tx) PutEvent(ev models.Event) error {
	return tx.put(eventKey(ev.ID), ev)
}

// Event loads an event
func (tx *Tx) Event(eventID string) (models.Event, error) {
	var ev models.Event
	if err := tx.get(eventKey(eventID), &ev); err != nil {
		return ev, fmt.Errorf("event %s: %w", eventID, err)
	}
	return ev, nil
}

// Events lists every event ordered by ID
func (tx *Tx) Events() ([]models.Event, error) {
	out := []models.Event{}
	err := each(tx, eventPrefix, func(_ []byte, ev models.Event) error {
		out = append(out, ev)
		return nil
	})
	return out, err
}

// NewSchedule stores a fresh, unversioned schedule for the event and makes it
// the current WIP. Any previous WIP pointer is replaced.
func (tx *Tx) NewSchedule(eventID string) (models.Schedule, error) {
	sc := models.Schedule{
		ID:        uuid.NewString(),
		EventID:   eventID,
		CreatedAt: time.Now().UTC().Round(0),
	}
	if err := tx.PutSchedule(sc); err != nil {
		return sc, err
	}
	if err := tx.txn.Set(wipKey(eventID), []byte(sc.ID)); err != nil {
		return sc, err
	}
	return sc, nil
}

// PutSchedule creates or replaces a schedule record
func (tx *Tx) PutSchedule(sc models.Schedule) error {
	return tx.put(scheduleKey(sc.EventID, sc.ID), sc)
}

// Schedule loads one schedule
func (tx *Tx) Schedule(eventID, scheduleID string) (models.Schedule, error) {
	var sc models.Schedule
	if err := tx.get(scheduleKey(eventID, scheduleID), &sc); err != nil {
		return sc, fmt.Errorf("schedule %s: %w", scheduleID, err)
	}
	return sc, nil
}

// DeleteSchedule removes a schedule record. Its placements must be deleted
// separately.
func (tx *Tx) DeleteSchedule(sc models.Schedule) error {
	return tx.txn.Delete(scheduleKey(sc.EventID, sc.ID))
}

// WIP loads the event's current work-in-progress schedule
func (tx *Tx) WIP(eventID string) (models.Schedule, error) {
	item, err := tx.txn.Get(wipKey(eventID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return models.Schedule{}, fmt.Errorf("wip schedule of %s: %w", eventID, ErrNotFound)
	}
	if err != nil {
		return models.Schedule{}, err
	}
	id, err := item.ValueCopy(nil)
	if err != nil {
		return models.Schedule{}, err
	}
	return tx.Schedule(eventID, string(id))
}

// Schedules lists every schedule of an event: released versions by
// publication time, then the WIP.
func (tx *Tx) Schedules(eventID string) ([]models.Schedule, error) {
	var out []models.Schedule
	err := each(tx, schedulePrefix(eventID), func(_ []byte, sc models.Schedule) error {
		out = append(out, sc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Published, out[j].Published
		switch {
		case a == nil && b == nil:
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return out, nil
}

// Previous returns the logical predecessor of sc: the most recently
// published schedule before it, or nil for the first version.
func (tx *Tx) Previous(sc models.Schedule) (*models.Schedule, error) {
	all, err := tx.Schedules(sc.EventID)
	if err != nil {
		return nil, err
	}

	var prev *models.Schedule
	for i := range all {
		cand := all[i]
		if cand.ID == sc.ID || cand.Published == nil {
			continue
		}
		if sc.Published != nil && !cand.Published.Before(*sc.Published) {
			continue
		}
		prev = &cand
	}
	return prev, nil
}

// AddPlacement stores a new placement and returns it with its assigned ID
// and creation sequence.
func (tx *Tx) AddPlacement(p models.Placement) (models.Placement, error) {
	if p.ScheduleID == "" {
		return p, errors.New("placement has no schedule")
	}
	seq, err := tx.store.seq.Next()
	if err != nil {
		return p, fmt.Errorf("failed to allocate placement sequence: %w", err)
	}
	p.ID = uuid.NewString()
	p.Seq = seq
	p.Start = normalize(p.Start)
	p.End = normalize(p.End)

	key := placementKey(p.ScheduleID, p.Seq, p.ID)
	if err := tx.put(key, p); err != nil {
		return p, err
	}
	if err := tx.txn.Set(placementIndexKey(p.ID), key); err != nil {
		return p, err
	}
	if err := tx.txn.Set(revisionKey(p.ScheduleID), []byte(strconv.FormatUint(p.Seq, 10))); err != nil {
		return p, err
	}
	return p, nil
}

// eachPlacement iterates a schedule's placements in creation order. It
// reads the schedule's revision first, so the transaction conflicts with any
// placement added to the schedule after it started.
func eachPlacement(tx *Tx, scheduleID string, fn func(key []byte, p models.Placement) error) error {
	if _, err := tx.txn.Get(revisionKey(scheduleID)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}
	return each(tx, placementPrefix(scheduleID), fn)
}

// SetVisible updates the only mutable field of a placement
func (tx *Tx) SetVisible(p models.Placement, visible bool) error {
	p.IsVisible = visible
	return tx.put(placementKey(p.ScheduleID, p.Seq, p.ID), p)
}

// Placement loads a placement by ID
func (tx *Tx) Placement(placementID string) (models.Placement, error) {
	var p models.Placement
	item, err := tx.txn.Get(placementIndexKey(placementID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return p, fmt.Errorf("placement %s: %w", placementID, ErrNotFound)
	}
	if err != nil {
		return p, err
	}
	key, err := item.ValueCopy(nil)
	if err != nil {
		return p, err
	}
	if err := tx.get(key, &p); err != nil {
		return p, fmt.Errorf("placement %s: %w", placementID, err)
	}
	return p, nil
}

// Placements lists a schedule's placements in creation order
func (tx *Tx) Placements(scheduleID string) ([]models.Placement, error) {
	out := []models.Placement{}
	err := eachPlacement(tx, scheduleID, func(_ []byte, p models.Placement) error {
		out = append(out, p)
		return nil
	})
	return out, err
}

// DeletePlacements removes every placement of a schedule and returns how
// many were removed.
func (tx *Tx) DeletePlacements(scheduleID string) (int, error) {
	var keys [][]byte
	var ids []string
	err := eachPlacement(tx, scheduleID, func(key []byte, p models.Placement) error {
		keys = append(keys, key)
		ids = append(ids, p.ID)
		return nil
	})
	if err != nil {
		return 0, err
	}

	for i, key := range keys {
		if err := tx.txn.Delete(key); err != nil {
			return i, err
		}
		if err := tx.txn.Delete(placementIndexKey(ids[i])); err != nil {
			return i, err
		}
	}
	if err := tx.txn.Delete(revisionKey(scheduleID)); err != nil {
		return len(keys), err
	}
	return len(keys), nil
}

// OrderedUnion returns, in creation order, the placements of the WIP whose
// submission the target schedule does not contain, followed by every
// placement of the target.
func (tx *Tx) OrderedUnion(wipID, targetID string) ([]models.Placement, error) {
	if !tx.store.orderedUnion {
		return nil, ErrOrderedUnionUnsupported
	}

	target, err := tx.Placements(targetID)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(target))
	for _, p := range target {
		if p.SubmissionCode != "" {
			known[p.SubmissionCode] = true
		}
	}

	var out []models.Placement
	err = eachPlacement(tx, wipID, func(_ []byte, p models.Placement) error {
		if p.SubmissionCode == "" || !known[p.SubmissionCode] {
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return append(out, target...), nil
}

// PutSubmission creates or replaces a submission
func (tx *Tx) PutSubmission(sub models.Submission) error {
	return tx.put(submissionKey(sub.EventID, sub.Code), sub)
}

// Submission loads a submission by code
func (tx *Tx) Submission(eventID, code string) (models.Submission, error) {
	var sub models.Submission
	if err := tx.get(submissionKey(eventID, code), &sub); err != nil {
		return sub, fmt.Errorf("submission %s: %w", code, err)
	}
	return sub, nil
}

// Submissions returns all submissions of an event keyed by code
func (tx *Tx) Submissions(eventID string) (map[string]models.Submission, error) {
	out := make(map[string]models.Submission)
	err := each(tx, submissionPrefix(eventID), func(_ []byte, sub models.Submission) error {
		out[sub.Code] = sub
		return nil
	})
	return out, err
}

// PutRoom creates or replaces a room
func (tx *Tx) PutRoom(room models.Room) error {
	return tx.put(roomKey(room.EventID, room.ID), room)
}

// Rooms returns all rooms of an event keyed by ID
func (tx *Tx) Rooms(eventID string) (map[string]models.Room, error) {
	out := make(map[string]models.Room)
	err := each(tx, roomPrefix(eventID), func(_ []byte, room models.Room) error {
		out[room.ID] = room
		return nil
	})
	return out, err
}

func normalize(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	n := t.UTC().Round(0)
	return &n
}
