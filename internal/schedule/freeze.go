package schedule

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pders01/schedule-context/internal/models"
	"github.com/pders01/schedule-context/internal/notify"
	"github.com/pders01/schedule-context/internal/store"
)

// Freeze releases the WIP schedule sc under name and returns the frozen
// schedule together with the event's new WIP.
//
// The new WIP is created first and receives a copy of every placement, so a
// concurrent edit of the old WIP either commits before the freeze or is
// retried against the new WIP. Visibility of the frozen placements is fixed
// here and not recomputed later.
func (e *Engine) Freeze(ctx context.Context, sc models.Schedule, name, user string, notifySpeakers bool, comment string) (frozen, wip models.Schedule, err error) {
	name = strings.TrimSpace(name)
	if err := e.checkName(name); err != nil {
		e.metrics.rejected.WithLabelValues("freeze").Inc()
		return frozen, wip, err
	}

	var copied int
	err = e.store.Update(ctx, func(tx *store.Tx) error {
		cur, err := tx.Schedule(sc.EventID, sc.ID)
		if err != nil {
			return err
		}
		if !cur.IsWIP() {
			return fmt.Errorf("%w: %s", ErrAlreadyFrozen, cur)
		}
		current, err := tx.WIP(sc.EventID)
		if err != nil {
			return err
		}
		if current.ID != cur.ID {
			return fmt.Errorf("%w: %s is not the current wip", ErrAlreadyFrozen, cur.ID)
		}

		all, err := tx.Schedules(sc.EventID)
		if err != nil {
			return err
		}
		for _, other := range all {
			if other.Version == name {
				return fmt.Errorf("%w: %q is already used", ErrInvalidVersionName, name)
			}
		}

		next, err := tx.NewSchedule(sc.EventID)
		if err != nil {
			return fmt.Errorf("failed to create next wip: %w", err)
		}

		subs, err := tx.Submissions(sc.EventID)
		if err != nil {
			return err
		}
		placements, err := tx.Placements(cur.ID)
		if err != nil {
			return err
		}
		for _, p := range placements {
			var sub *models.Submission
			if s, ok := subs[p.SubmissionCode]; ok {
				sub = &s
			}
			visible := models.VisibleOnFreeze(p, sub)
			if p.IsVisible != visible {
				if err := tx.SetVisible(p, visible); err != nil {
					return err
				}
				p.IsVisible = visible
			}
			if _, err := tx.AddPlacement(p.CopyTo(next.ID)); err != nil {
				return fmt.Errorf("failed to copy placement %s: %w", p.ID, err)
			}
		}

		published := e.now().UTC().Round(0)
		cur.Version = name
		cur.Comment = comment
		cur.Published = &published
		if err := tx.PutSchedule(cur); err != nil {
			return err
		}

		frozen, wip, copied = cur, next, len(placements)
		return nil
	})
	if err != nil {
		e.metrics.rejected.WithLabelValues("freeze").Inc()
		return models.Schedule{}, models.Schedule{}, err
	}

	e.metrics.freezes.Inc()
	e.log.Info("froze schedule",
		zap.String("event_id", frozen.EventID),
		zap.String("schedule_id", frozen.ID),
		zap.String("version", frozen.Version),
		zap.String("new_wip_id", wip.ID),
		zap.String("user", user),
		zap.Int("placements", copied),
	)

	e.resetCache(ctx, frozen)
	e.publish(ctx, frozen, notifySpeakers)
	return frozen, wip, nil
}

func (e *Engine) checkName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidVersionName)
	}
	for _, r := range e.reserved {
		if strings.EqualFold(name, r) {
			return fmt.Errorf("%w: %q is reserved", ErrInvalidVersionName, name)
		}
	}
	return nil
}

// publish announces a committed release. Nothing here can fail the freeze.
func (e *Engine) publish(ctx context.Context, frozen models.Schedule, notifySpeakers bool) {
	if e.pub == nil {
		return
	}

	msg := notify.Released{
		EventID:        frozen.EventID,
		ScheduleID:     frozen.ID,
		Version:        frozen.Version,
		Comment:        frozen.Comment,
		PublishedAt:    *frozen.Published,
		NotifySpeakers: notifySpeakers,
	}
	if notifySpeakers && e.differ != nil {
		changes, err := e.differ.Diff(ctx, frozen)
		if err != nil {
			e.log.Warn("failed to compute release changes", zap.String("schedule_id", frozen.ID), zap.Error(err))
		} else {
			msg.Changes = changes
		}
	}
	e.pub.Publish(ctx, msg)
}
