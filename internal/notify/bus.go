// Package notify dispatches post-release events to subscribers
// asynchronously. Delivery is fire-and-forget: handler failures are logged
// and never reach the publisher.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/pders01/schedule-context/internal/diff"
)

// Released is published after a schedule version has been committed
type Released struct {
	EventID        string
	ScheduleID     string
	Version        string
	Comment        string
	PublishedAt    time.Time
	NotifySpeakers bool

	// Changes is the version's diff against its predecessor. Set only when
	// speakers are to be notified.
	Changes *diff.Result
}

// Handler consumes release events
type Handler func(ctx context.Context, msg Released) error

type subscriber struct {
	name string
	fn   Handler
}

type envelope struct {
	ctx context.Context
	msg Released
}

// Config holds bus settings
type Config struct {
	// Workers bounds concurrently running handlers
	Workers int
	// QueueSize bounds undelivered messages. Publishing to a full queue drops
	// the message.
	QueueSize int
	Logger    *zap.Logger
}

// Bus is an in-process event bus
type Bus struct {
	mu     sync.RWMutex
	subs   []subscriber
	closed bool

	queue chan envelope
	pool  *pool.Pool
	done  chan struct{}
	log   *zap.Logger
}

// New starts a bus
func New(cfg Config) *Bus {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	b := &Bus{
		queue: make(chan envelope, cfg.QueueSize),
		pool:  pool.New().WithMaxGoroutines(cfg.Workers),
		done:  make(chan struct{}),
		log:   cfg.Logger,
	}
	go b.dispatch()
	return b
}

// Subscribe registers a handler for every subsequent message
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, subscriber{name: name, fn: h})
}

// Publish enqueues msg without blocking. It reports false if the message was
// dropped because the bus is closed or its queue is full. Handlers receive a
// context carrying ctx's values but not its cancellation.
func (b *Bus) Publish(ctx context.Context, msg Released) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.log.Warn("dropping release event, bus closed", zap.String("schedule_id", msg.ScheduleID))
		return false
	}
	select {
	case b.queue <- envelope{ctx: context.WithoutCancel(ctx), msg: msg}:
		return true
	default:
		b.log.Warn("dropping release event, queue full", zap.String("schedule_id", msg.ScheduleID))
		return false
	}
}

// Close stops accepting messages and waits for queued and running handlers
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()

	<-b.done
	b.pool.Wait()
}

func (b *Bus) dispatch() {
	defer close(b.done)
	for env := range b.queue {
		b.mu.RLock()
		subs := make([]subscriber, len(b.subs))
		copy(subs, b.subs)
		b.mu.RUnlock()

		for _, s := range subs {
			b.pool.Go(func() {
				b.deliver(s, env)
			})
		}
	}
}

func (b *Bus) deliver(s subscriber, env envelope) {
	var err error
	var pc panics.Catcher
	pc.Try(func() {
		err = s.fn(env.ctx, env.msg)
	})

	fields := []zap.Field{
		zap.String("handler", s.name),
		zap.String("event_id", env.msg.EventID),
		zap.String("version", env.msg.Version),
	}
	if r := pc.Recovered(); r != nil {
		b.log.Error("release handler panicked", append(fields, zap.Error(r.AsError()))...)
		return
	}
	if err != nil {
		b.log.Error("release handler failed", append(fields, zap.Error(err))...)
	}
}
