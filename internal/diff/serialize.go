package diff

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pders01/schedule-context/internal/models"
)

// Resolver looks up placements referenced by a serialized diff
type Resolver interface {
	Placement(ctx context.Context, placementID string) (models.Placement, error)
}

// wireResult is the cached representation. It holds submission codes and
// room/slot IDs only, so the payload stays small and store-agnostic.
type wireResult struct {
	Count         int        `json:"count"`
	Action        Action     `json:"action"`
	NewTalks      []wireSlot `json:"new_talks"`
	CanceledTalks []wireSlot `json:"canceled_talks"`
	MovedTalks    []wireMove `json:"moved_talks"`
}

type wireSlot struct {
	ID             string  `json:"id"`
	SubmissionCode *string `json:"submission_code"`
}

type wireMove struct {
	SubmissionCode string     `json:"submission_code"`
	OldStart       *time.Time `json:"old_start"`
	NewStart       *time.Time `json:"new_start"`
	OldRoom        *string    `json:"old_room"`
	NewRoom        *string    `json:"new_room"`
	NewInfo        *string    `json:"new_info"`
	NewSlotID      *string    `json:"new_slot_id"`
}

// Serialize encodes a result for caching
func Serialize(r *Result) ([]byte, error) {
	w := wireResult{
		Count:         r.Count,
		Action:        r.Action,
		NewTalks:      slotsToWire(r.NewTalks),
		CanceledTalks: slotsToWire(r.CanceledTalks),
		MovedTalks:    make([]wireMove, 0, len(r.MovedTalks)),
	}
	for _, m := range r.MovedTalks {
		w.MovedTalks = append(w.MovedTalks, wireMove{
			SubmissionCode: m.Submission,
			OldStart:       utc(m.OldStart),
			NewStart:       utc(m.NewStart),
			OldRoom:        optional(m.OldRoom),
			NewRoom:        optional(m.NewRoom),
			NewInfo:        optional(m.NewInfo),
			NewSlotID:      optional(m.NewSlot),
		})
	}
	return json.Marshal(w)
}

// Deserialize decodes a cached result, loading referenced placements through
// res. A placement that no longer exists is reported as an error so the caller
// can recompute.
func Deserialize(ctx context.Context, data []byte, res Resolver) (*Result, error) {
	var w wireResult
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to decode diff: %w", err)
	}
	if w.Action != ActionCreate && w.Action != ActionUpdate {
		return nil, fmt.Errorf("failed to decode diff: unknown action %q", w.Action)
	}

	r := newResult(w.Action)
	r.Count = w.Count

	var err error
	if r.NewTalks, err = slotsFromWire(ctx, w.NewTalks, res); err != nil {
		return nil, err
	}
	if r.CanceledTalks, err = slotsFromWire(ctx, w.CanceledTalks, res); err != nil {
		return nil, err
	}
	for _, m := range w.MovedTalks {
		r.MovedTalks = append(r.MovedTalks, Move{
			Submission: m.SubmissionCode,
			OldStart:   m.OldStart,
			NewStart:   m.NewStart,
			OldRoom:    deref(m.OldRoom),
			NewRoom:    deref(m.NewRoom),
			NewInfo:    deref(m.NewInfo),
			NewSlot:    deref(m.NewSlotID),
		})
	}
	return r, nil
}

func slotsToWire(ps []models.Placement) []wireSlot {
	out := make([]wireSlot, 0, len(ps))
	for _, p := range ps {
		out = append(out, wireSlot{ID: p.ID, SubmissionCode: optional(p.SubmissionCode)})
	}
	return out
}

func slotsFromWire(ctx context.Context, ws []wireSlot, res Resolver) ([]models.Placement, error) {
	out := make([]models.Placement, 0, len(ws))
	for _, w := range ws {
		p, err := res.Placement(ctx, w.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve cached slot: %w", err)
		}
		if p.SubmissionCode != deref(w.SubmissionCode) {
			return nil, fmt.Errorf("cached slot %s no longer holds submission %s", w.ID, deref(w.SubmissionCode))
		}
		out = append(out, p)
	}
	return out, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
