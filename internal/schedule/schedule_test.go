package schedule

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/schedule-context/internal/diff"
	"github.com/pders01/schedule-context/internal/models"
	"github.com/pders01/schedule-context/internal/notify"
	"github.com/pders01/schedule-context/internal/store"
	fixtures "github.com/pders01/schedule-context/internal/testutil"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []notify.Released
}

func (p *recordingPublisher) Publish(_ context.Context, msg notify.Released) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return true
}

type recordingCache struct {
	invalidated []string
	unreleased  map[string]bool
}

func (c *recordingCache) Invalidate(_ context.Context, sc models.Schedule) {
	c.invalidated = append(c.invalidated, sc.ID)
}

func (c *recordingCache) SetUnreleased(_ context.Context, eventID string, unreleased bool) {
	c.unreleased[eventID] = unreleased
}

type setup struct {
	f       *fixtures.Fixture
	engine  *Engine
	pub     *recordingPublisher
	cache   *recordingCache
	metrics *Metrics
}

func newSetup(t *testing.T, cfg store.Config) *setup {
	t.Helper()
	f := fixtures.NewFixtureWithConfig(t, cfg)
	s := &setup{
		f:       f,
		pub:     &recordingPublisher{},
		cache:   &recordingCache{unreleased: map[string]bool{}},
		metrics: NewMetrics(prometheus.NewRegistry()),
	}
	s.engine = New(f.Store, Config{
		Differ:    diff.NewEngine(f.Store, nil),
		Cache:     s.cache,
		Publisher: s.pub,
		Metrics:   s.metrics,
		Now:       func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
	return s
}

func codes(ps []models.Placement) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.SubmissionCode)
	}
	return out
}

func TestFreezeRejectsInvalidNames(t *testing.T) {
	s := newSetup(t, store.Config{})
	wip := s.f.WIP()
	ctx := context.Background()

	for _, name := range []string{"wip", "WIP", " latest ", "", "   "} {
		t.Run(name, func(t *testing.T) {
			_, _, err := s.engine.Freeze(ctx, wip, name, "orga", true, "")
			assert.ErrorIs(t, err, ErrInvalidVersionName)
		})
	}

	all, err := s.f.Store.Schedules(ctx, fixtures.EventID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].IsWIP())
	assert.Equal(t, wip.ID, s.f.WIP().ID)
	assert.Empty(t, s.pub.msgs)
}

func TestFreeze(t *testing.T) {
	s := newSetup(t, store.Config{})
	s.f.Submit("DRAFT", models.StateAccepted)
	s.f.Place(
		models.Placement{SubmissionCode: "TALK1", RoomID: "A", Start: fixtures.At(10), End: fixtures.At(11)},
		models.Placement{SubmissionCode: "DRAFT", RoomID: "B", Start: fixtures.At(10)},
		models.Placement{SubmissionCode: "TALK2"},
		models.Placement{RoomID: "A", Start: fixtures.At(12)},
	)
	wip := s.f.WIP()
	ctx := context.Background()

	frozen, next, err := s.engine.Freeze(ctx, wip, " v1 ", "orga", false, "first release")
	require.NoError(t, err)

	assert.Equal(t, wip.ID, frozen.ID)
	assert.Equal(t, "v1", frozen.Version)
	assert.Equal(t, "first release", frozen.Comment)
	require.NotNil(t, frozen.Published)
	assert.True(t, frozen.Published.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))
	assert.True(t, next.IsWIP())
	assert.Equal(t, next.ID, s.f.WIP().ID)

	released, err := s.f.Store.Placements(ctx, frozen.ID)
	require.NoError(t, err)
	visible := map[string]bool{}
	for _, p := range released {
		visible[p.SubmissionCode] = p.IsVisible
	}
	assert.Equal(t, map[string]bool{"TALK1": true, "DRAFT": false, "TALK2": false, "": true}, visible)

	copied, err := s.f.Store.Placements(ctx, next.ID)
	require.NoError(t, err)
	require.Len(t, copied, len(released))
	for i := range copied {
		assert.NotEqual(t, released[i].ID, copied[i].ID)
		assert.Equal(t, released[i].Key(time.UTC), copied[i].Key(time.UTC))
		assert.Equal(t, released[i].IsVisible, copied[i].IsVisible)
	}

	assert.Equal(t, []string{frozen.ID}, s.cache.invalidated)
	assert.False(t, s.cache.unreleased[fixtures.EventID])
	require.Len(t, s.pub.msgs, 1)
	assert.Equal(t, "v1", s.pub.msgs[0].Version)
	assert.Nil(t, s.pub.msgs[0].Changes)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.freezes))
}

func TestFreezeVisibilityIsFixed(t *testing.T) {
	s := newSetup(t, store.Config{})
	s.f.Place(models.Placement{SubmissionCode: "TALK1", RoomID: "A", Start: fixtures.At(10)})
	ctx := context.Background()

	frozen, _, err := s.engine.Freeze(ctx, s.f.WIP(), "v1", "orga", false, "")
	require.NoError(t, err)

	s.f.Submit("TALK1", models.StateWithdrawn)

	released, err := s.f.Store.Placements(ctx, frozen.ID)
	require.NoError(t, err)
	require.Len(t, released, 1)
	assert.True(t, released[0].IsVisible)
}

func TestFreezeNotifiesWithChanges(t *testing.T) {
	s := newSetup(t, store.Config{})
	s.f.Place(models.Placement{SubmissionCode: "TALK1", RoomID: "A", Start: fixtures.At(10)})
	ctx := context.Background()

	_, next, err := s.engine.Freeze(ctx, s.f.WIP(), "v1", "orga", true, "")
	require.NoError(t, err)

	s.f.Place(models.Placement{SubmissionCode: "TALK2", RoomID: "B", Start: fixtures.At(11)})
	s.engine.now = func() time.Time { return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC) }
	_, _, err = s.engine.Freeze(ctx, next, "v2", "orga", true, "")
	require.NoError(t, err)

	require.Len(t, s.pub.msgs, 2)
	first, second := s.pub.msgs[0], s.pub.msgs[1]
	require.NotNil(t, first.Changes)
	assert.Equal(t, diff.ActionCreate, first.Changes.Action)
	require.NotNil(t, second.Changes)
	assert.Equal(t, diff.ActionUpdate, second.Changes.Action)
	assert.Equal(t, []string{"TALK2"}, codes(second.Changes.NewTalks))
	assert.True(t, second.NotifySpeakers)
}

func TestFreezeTwice(t *testing.T) {
	s := newSetup(t, store.Config{})
	wip := s.f.WIP()
	ctx := context.Background()

	frozen, next, err := s.engine.Freeze(ctx, wip, "v1", "orga", false, "")
	require.NoError(t, err)

	_, _, err = s.engine.Freeze(ctx, frozen, "v2", "orga", false, "")
	assert.ErrorIs(t, err, ErrAlreadyFrozen)

	// a stale copy of the old WIP is rejected the same way
	_, _, err = s.engine.Freeze(ctx, wip, "v2", "orga", false, "")
	assert.ErrorIs(t, err, ErrAlreadyFrozen)

	_, _, err = s.engine.Freeze(ctx, next, "v1", "orga", false, "")
	assert.ErrorIs(t, err, ErrInvalidVersionName)
	assert.Equal(t, 3.0, testutil.ToFloat64(s.metrics.rejected.WithLabelValues("freeze")))
}

func TestConcurrentFreezesReleaseOnce(t *testing.T) {
	s := newSetup(t, store.Config{})
	s.f.Place(models.Placement{SubmissionCode: "TALK1", RoomID: "A", Start: fixtures.At(10)})
	wip := s.f.WIP()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, name := range []string{"a", "b"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, errs[i] = s.engine.Freeze(context.Background(), wip, name, "orga", false, "")
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrAlreadyFrozen)
		}
	}
	assert.Equal(t, 1, succeeded)

	versions, err := s.engine.Versions(context.Background(), fixtures.EventID)
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

func TestPlaceAfterFreezeTargetsNewWIP(t *testing.T) {
	s := newSetup(t, store.Config{})
	ctx := context.Background()

	frozen, next, err := s.engine.Freeze(ctx, s.f.WIP(), "v1", "orga", false, "")
	require.NoError(t, err)

	p, err := s.engine.Place(ctx, fixtures.EventID, models.Placement{SubmissionCode: "TALK1", RoomID: "A", Start: fixtures.At(10)})
	require.NoError(t, err)
	assert.Equal(t, next.ID, p.ScheduleID)

	released, err := s.f.Store.Placements(ctx, frozen.ID)
	require.NoError(t, err)
	assert.Empty(t, released)
}

func TestFreezeCopiesPlacementAddedDuringFreeze(t *testing.T) {
	f := fixtures.NewFixture(t)
	f.Place(models.Placement{SubmissionCode: "TALK1", RoomID: "A", Start: fixtures.At(10)})
	ctx := context.Background()

	// Now runs inside the freeze transaction, after the placements were read.
	var engine *Engine
	var once sync.Once
	engine = New(f.Store, Config{Now: func() time.Time {
		once.Do(func() {
			_, err := engine.Place(ctx, fixtures.EventID, models.Placement{SubmissionCode: "TALK2", RoomID: "B", Start: fixtures.At(11)})
			require.NoError(t, err)
		})
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}})

	frozen, next, err := engine.Freeze(ctx, f.WIP(), "v1", "orga", false, "")
	require.NoError(t, err)

	released, err := f.Store.Placements(ctx, frozen.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"TALK1", "TALK2"}, codes(released))
	for _, p := range released {
		assert.True(t, p.IsVisible, p.SubmissionCode)
	}

	copied, err := f.Store.Placements(ctx, next.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"TALK1", "TALK2"}, codes(copied))
}

func unfreezeFixture(t *testing.T, cfg store.Config) (*setup, models.Schedule, models.Schedule) {
	t.Helper()
	s := newSetup(t, cfg)
	s.f.Place(models.Placement{SubmissionCode: "TALK1", RoomID: "A", Start: fixtures.At(10)})

	v1, next, err := s.engine.Freeze(context.Background(), s.f.WIP(), "v1", "orga", false, "")
	require.NoError(t, err)

	// TALK1 is known to v1 and gets restored. TALK2 is new work and is kept.
	s.f.Place(
		models.Placement{SubmissionCode: "TALK2", RoomID: "B", Start: fixtures.At(11)},
		models.Placement{SubmissionCode: "TALK1", RoomID: "B", Start: fixtures.At(12)},
	)
	return s, v1, next
}

func TestUnfreeze(t *testing.T) {
	for _, tc := range []struct {
		name     string
		cfg      store.Config
		strategy string
	}{
		{"ordered union", store.Config{}, "ordered"},
		{"memory fallback", store.Config{DisableOrderedUnion: true}, "memory"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s, v1, old := unfreezeFixture(t, tc.cfg)
			ctx := context.Background()

			restored, wip, err := s.engine.Unfreeze(ctx, v1, "orga")
			require.NoError(t, err)
			assert.Equal(t, v1.ID, restored.ID)
			assert.Equal(t, wip.ID, s.f.WIP().ID)
			assert.NotEqual(t, old.ID, wip.ID)

			placements, err := s.f.Store.Placements(ctx, wip.ID)
			require.NoError(t, err)
			assert.Equal(t, []string{"TALK2", "TALK1"}, codes(placements))
			assert.Equal(t, "A", placements[1].RoomID)

			leftover, err := s.f.Store.Placements(ctx, old.ID)
			require.NoError(t, err)
			assert.Empty(t, leftover)

			all, err := s.f.Store.Schedules(ctx, fixtures.EventID)
			require.NoError(t, err)
			assert.Len(t, all, 2)

			assert.Contains(t, s.cache.invalidated, old.ID)
			assert.False(t, s.cache.unreleased[fixtures.EventID])
			assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.unfreezes.WithLabelValues(tc.strategy)))
		})
	}
}

func TestUnfreezeWIP(t *testing.T) {
	s := newSetup(t, store.Config{})
	_, _, err := s.engine.Unfreeze(context.Background(), s.f.WIP(), "orga")
	assert.ErrorIs(t, err, ErrNotFrozen)
}

func TestUnion(t *testing.T) {
	wip := []models.Placement{
		{ID: "w1", SubmissionCode: "A"},
		{ID: "w2", SubmissionCode: "C"},
		{ID: "w3"},
	}
	target := []models.Placement{
		{ID: "t1", SubmissionCode: "A"},
		{ID: "t2", SubmissionCode: "B"},
	}

	got := Union(wip, target)
	var ids []string
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"w2", "w3", "t1", "t2"}, ids)
	assert.Empty(t, Union(nil, nil))
}
