// Package schedule manages the lifecycle of an event's schedule snapshots:
// editing the work-in-progress (WIP) snapshot, freezing it into a named
// release and restoring a release back into a new WIP.
package schedule

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pders01/schedule-context/internal/diff"
	"github.com/pders01/schedule-context/internal/models"
	"github.com/pders01/schedule-context/internal/notify"
	"github.com/pders01/schedule-context/internal/store"
)

// DefaultReservedNames cannot be used as version names
var DefaultReservedNames = []string{"wip", "latest"}

// Differ computes the changes a release introduced
type Differ interface {
	Diff(ctx context.Context, sc models.Schedule) (*diff.Result, error)
}

// Cache is the part of the diff cache the engine keeps consistent
type Cache interface {
	Invalidate(ctx context.Context, sc models.Schedule)
	SetUnreleased(ctx context.Context, eventID string, unreleased bool)
}

// Publisher receives release events after a freeze commits
type Publisher interface {
	Publish(ctx context.Context, msg notify.Released) bool
}

// Config holds the engine's collaborators. All of them are optional.
type Config struct {
	ReservedNames []string
	Differ        Differ
	Cache         Cache
	Publisher     Publisher
	Logger        *zap.Logger
	Metrics       *Metrics
	// Now returns the publication time. Defaults to time.Now.
	Now func() time.Time
}

// Engine runs schedule operations against a store
type Engine struct {
	store    *store.Store
	reserved []string
	differ   Differ
	cache    Cache
	pub      Publisher
	log      *zap.Logger
	metrics  *Metrics
	now      func() time.Time
}

// New creates an engine
func New(s *store.Store, cfg Config) *Engine {
	if cfg.ReservedNames == nil {
		cfg.ReservedNames = DefaultReservedNames
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(nil)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		store:    s,
		reserved: cfg.ReservedNames,
		differ:   cfg.Differ,
		cache:    cfg.Cache,
		pub:      cfg.Publisher,
		log:      cfg.Logger,
		metrics:  cfg.Metrics,
		now:      cfg.Now,
	}
}

func (e *Engine) resetCache(ctx context.Context, sc models.Schedule) {
	if e.cache == nil {
		return
	}
	e.cache.Invalidate(ctx, sc)
	e.cache.SetUnreleased(ctx, sc.EventID, false)
}
