package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/schedule-context/internal/models"
	"github.com/pders01/schedule-context/internal/store"
	fixtures "github.com/pders01/schedule-context/internal/testutil"
)

func TestCreateEvent(t *testing.T) {
	s := newSetup(t, store.Config{})
	ctx := context.Background()

	ev, wip, err := s.engine.CreateEvent(ctx, models.Event{ID: "other", Name: "Other Conf"})
	require.NoError(t, err)
	assert.Equal(t, "UTC", ev.Timezone)
	assert.True(t, wip.IsWIP())

	current, err := s.f.Store.WIP(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, wip.ID, current.ID)

	_, _, err = s.engine.CreateEvent(ctx, models.Event{ID: "other"})
	assert.ErrorIs(t, err, ErrEventExists)

	generated, _, err := s.engine.CreateEvent(ctx, models.Event{Name: "Anonymous"})
	require.NoError(t, err)
	assert.NotEmpty(t, generated.ID)
}

func TestCreateEventRejectsSeparatorInID(t *testing.T) {
	s := newSetup(t, store.Config{})
	ctx := context.Background()

	_, _, err := s.engine.CreateEvent(ctx, models.Event{ID: fixtures.EventID + "/nested"})
	assert.ErrorIs(t, err, ErrInvalidEventID)

	_, err = s.f.Store.Event(ctx, fixtures.EventID+"/nested")
	assert.ErrorIs(t, err, store.ErrNotFound)

	versions, err := s.engine.Versions(ctx, fixtures.EventID)
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestAddRoom(t *testing.T) {
	s := newSetup(t, store.Config{})
	ctx := context.Background()

	room, err := s.engine.AddRoom(ctx, models.Room{EventID: fixtures.EventID, Name: "Room C"})
	require.NoError(t, err)
	assert.NotEmpty(t, room.ID)
	assert.Equal(t, 2, room.Position)

	_, err = s.engine.AddRoom(ctx, models.Room{EventID: "missing", Name: "Nowhere"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPutSubmission(t *testing.T) {
	s := newSetup(t, store.Config{})
	ctx := context.Background()

	require.NoError(t, s.engine.PutSubmission(ctx, models.Submission{Code: "NEW", EventID: fixtures.EventID}))
	subs, err := s.f.Store.Submissions(ctx, fixtures.EventID)
	require.NoError(t, err)
	assert.Equal(t, models.StateSubmitted, subs["NEW"].State)

	assert.Error(t, s.engine.PutSubmission(ctx, models.Submission{EventID: fixtures.EventID}))
	assert.Error(t, s.engine.PutSubmission(ctx, models.Submission{Code: "X", EventID: fixtures.EventID, State: "bogus"}))
	assert.ErrorIs(t, s.engine.PutSubmission(ctx, models.Submission{Code: "X", EventID: "missing"}), store.ErrNotFound)
}

func TestPlaceValidates(t *testing.T) {
	s := newSetup(t, store.Config{})
	ctx := context.Background()

	_, err := s.engine.Place(ctx, fixtures.EventID, models.Placement{RoomID: "Z", Start: fixtures.At(10)})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.engine.Place(ctx, fixtures.EventID, models.Placement{SubmissionCode: "NOPE"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.engine.Place(ctx, fixtures.EventID, models.Placement{Start: fixtures.At(11), End: fixtures.At(10)})
	assert.Error(t, err)

	p, err := s.engine.Place(ctx, fixtures.EventID, models.Placement{SubmissionCode: "TALK1", RoomID: "A", Start: fixtures.At(10), IsVisible: true})
	require.NoError(t, err)
	assert.False(t, p.IsVisible)
}

func TestVersionsAndResolve(t *testing.T) {
	s := newSetup(t, store.Config{})
	ctx := context.Background()

	_, err := s.engine.Resolve(ctx, fixtures.EventID, "latest")
	assert.ErrorIs(t, err, ErrVersionNotFound)

	day := 1
	s.engine.now = func() time.Time { return time.Date(2026, 3, day, 12, 0, 0, 0, time.UTC) }
	for _, name := range []string{"v1", "v2", "v3"} {
		_, _, err := s.engine.Freeze(ctx, s.f.WIP(), name, "orga", false, "")
		require.NoError(t, err)
		day++
	}

	versions, err := s.engine.Versions(ctx, fixtures.EventID)
	require.NoError(t, err)
	var names []string
	for _, v := range versions {
		names = append(names, v.Version)
	}
	assert.Equal(t, []string{"v3", "v2", "v1"}, names)

	latest, err := s.engine.Resolve(ctx, fixtures.EventID, "latest")
	require.NoError(t, err)
	assert.Equal(t, "v3", latest.Version)

	v2, err := s.engine.Resolve(ctx, fixtures.EventID, "v2")
	require.NoError(t, err)
	assert.Equal(t, "v2", v2.Version)

	wip, err := s.engine.Resolve(ctx, fixtures.EventID, "wip")
	require.NoError(t, err)
	assert.True(t, wip.IsWIP())

	_, err = s.engine.Resolve(ctx, fixtures.EventID, "v9")
	assert.ErrorIs(t, err, ErrVersionNotFound)
}
