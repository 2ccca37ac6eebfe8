package schedule

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pders01/schedule-context/internal/models"
	"github.com/pders01/schedule-context/internal/store"
)

// Unfreeze replaces the event's WIP with a new WIP holding the frozen
// schedule's placements plus the old WIP's placements for submissions the
// frozen schedule does not contain. The old WIP and its placements are
// deleted; the frozen schedule is kept.
func (e *Engine) Unfreeze(ctx context.Context, sc models.Schedule, user string) (restored, wip models.Schedule, err error) {
	var (
		old      models.Schedule
		strategy string
		copied   int
	)
	err = e.store.Update(ctx, func(tx *store.Tx) error {
		target, err := tx.Schedule(sc.EventID, sc.ID)
		if err != nil {
			return err
		}
		if target.IsWIP() {
			return fmt.Errorf("%w: %s", ErrNotFrozen, target)
		}
		old, err = tx.WIP(sc.EventID)
		if err != nil {
			return err
		}

		strategy = "ordered"
		union, err := tx.OrderedUnion(old.ID, target.ID)
		if errors.Is(err, store.ErrOrderedUnionUnsupported) {
			strategy = "memory"
			union, err = memoryUnion(tx, old.ID, target.ID)
		}
		if err != nil {
			return fmt.Errorf("failed to collect placements: %w", err)
		}

		next, err := tx.NewSchedule(sc.EventID)
		if err != nil {
			return fmt.Errorf("failed to create wip: %w", err)
		}
		for _, p := range union {
			if _, err := tx.AddPlacement(p.CopyTo(next.ID)); err != nil {
				return fmt.Errorf("failed to copy placement %s: %w", p.ID, err)
			}
		}

		if _, err := tx.DeletePlacements(old.ID); err != nil {
			return fmt.Errorf("failed to delete old wip placements: %w", err)
		}
		if err := tx.DeleteSchedule(old); err != nil {
			return fmt.Errorf("failed to delete old wip: %w", err)
		}

		restored, wip, copied = target, next, len(union)
		return nil
	})
	if err != nil {
		e.metrics.rejected.WithLabelValues("unfreeze").Inc()
		return models.Schedule{}, models.Schedule{}, err
	}

	e.metrics.unfreezes.WithLabelValues(strategy).Inc()
	e.log.Info("unfroze schedule",
		zap.String("event_id", restored.EventID),
		zap.String("schedule_id", restored.ID),
		zap.String("version", restored.Version),
		zap.String("new_wip_id", wip.ID),
		zap.String("user", user),
		zap.String("union", strategy),
		zap.Int("placements", copied),
	)

	e.resetCache(ctx, old)
	return restored, wip, nil
}

func memoryUnion(tx *store.Tx, wipID, targetID string) ([]models.Placement, error) {
	current, err := tx.Placements(wipID)
	if err != nil {
		return nil, err
	}
	target, err := tx.Placements(targetID)
	if err != nil {
		return nil, err
	}
	return Union(current, target), nil
}

// Union returns the wip placements whose submission target does not
// contain, followed by all target placements. Placements without a
// submission are always kept.
func Union(wip, target []models.Placement) []models.Placement {
	known := make(map[string]struct{}, len(target))
	for _, p := range target {
		if p.SubmissionCode != "" {
			known[p.SubmissionCode] = struct{}{}
		}
	}

	out := make([]models.Placement, 0, len(wip)+len(target))
	for _, p := range wip {
		if _, ok := known[p.SubmissionCode]; p.SubmissionCode == "" || !ok {
			out = append(out, p)
		}
	}
	return append(out, target...)
}
