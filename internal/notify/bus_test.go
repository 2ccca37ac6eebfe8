package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recorder struct {
	mu   sync.Mutex
	msgs []Released
}

func (r *recorder) handle(_ context.Context, msg Released) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recorder) versions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.msgs {
		out = append(out, m.Version)
	}
	return out
}

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	bus := New(Config{Workers: 1})
	a, b := &recorder{}, &recorder{}
	bus.Subscribe("a", a.handle)
	bus.Subscribe("b", b.handle)

	assert.True(t, bus.Publish(context.Background(), Released{EventID: "ev", Version: "v1"}))
	assert.True(t, bus.Publish(context.Background(), Released{EventID: "ev", Version: "v2"}))
	bus.Close()

	assert.Equal(t, []string{"v1", "v2"}, a.versions())
	assert.Equal(t, []string{"v1", "v2"}, b.versions())
}

func TestHandlerFailuresAreContained(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	bus := New(Config{Logger: zap.New(core)})
	rec := &recorder{}
	bus.Subscribe("fails", func(context.Context, Released) error { return errors.New("smtp down") })
	bus.Subscribe("panics", func(context.Context, Released) error { panic("boom") })
	bus.Subscribe("ok", rec.handle)

	require.True(t, bus.Publish(context.Background(), Released{Version: "v1"}))
	bus.Close()

	assert.Equal(t, []string{"v1"}, rec.versions())
	assert.Equal(t, 1, logs.FilterMessage("release handler failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("release handler panicked").Len())
}

func TestHandlerContextOutlivesPublisher(t *testing.T) {
	bus := New(Config{})
	errs := make(chan error, 1)
	bus.Subscribe("ctx", func(ctx context.Context, _ Released) error {
		errs <- ctx.Err()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	require.True(t, bus.Publish(ctx, Released{Version: "v1"}))
	cancel()
	bus.Close()

	assert.NoError(t, <-errs)
}

func TestPublishAfterClose(t *testing.T) {
	bus := New(Config{})
	bus.Close()
	bus.Close()
	assert.False(t, bus.Publish(context.Background(), Released{Version: "v1"}))
}

func TestPublishDropsWhenQueueFull(t *testing.T) {
	bus := New(Config{Workers: 1, QueueSize: 1})
	release := make(chan struct{})
	started := make(chan struct{}, 8)
	bus.Subscribe("slow", func(context.Context, Released) error {
		started <- struct{}{}
		<-release
		return nil
	})

	require.True(t, bus.Publish(context.Background(), Released{Version: "v1"}))
	<-started

	// v1 occupies the only worker, v2 blocks the dispatcher and v3 fills the queue
	dropped := false
	for i := 0; i < 10 && !dropped; i++ {
		dropped = !bus.Publish(context.Background(), Released{Version: "next"})
	}
	close(release)
	bus.Close()

	assert.True(t, dropped)
}
