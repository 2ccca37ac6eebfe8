package diffcache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/pders01/schedule-context/internal/diff"
	"github.com/pders01/schedule-context/internal/models"
)

// Differ computes a diff for a schedule
type Differ interface {
	Diff(ctx context.Context, sc models.Schedule) (*diff.Result, error)
}

// Source provides the schedule data the service needs besides the diff itself
type Source interface {
	diff.Resolver
	WIP(ctx context.Context, eventID string) (models.Schedule, error)
	Placements(ctx context.Context, scheduleID string) ([]models.Placement, error)
}

// TTLs holds the expiry per cache entry kind
type TTLs struct {
	WIP        time.Duration
	Released   time.Duration
	Unreleased time.Duration
}

// DefaultTTLs returns the standard expiries. A released diff never changes,
// but is still bounded so a bad entry cannot live forever.
func DefaultTTLs() TTLs {
	return TTLs{
		WIP:        60 * time.Second,
		Released:   600 * time.Second,
		Unreleased: 24 * time.Hour,
	}
}

// Config holds optional service dependencies
type Config struct {
	TTLs    TTLs
	Logger  *zap.Logger
	Metrics *Metrics
}

// Service serves diffs from the cache, computing them on a miss. Cache
// failures never reach the caller; they degrade to recomputation.
type Service struct {
	cache   Cache
	differ  Differ
	src     Source
	ttl     TTLs
	log     *zap.Logger
	metrics *Metrics
	group   singleflight.Group
}

// New creates a cached diff service
func New(cache Cache, differ Differ, src Source, cfg Config) *Service {
	if cfg.TTLs == (TTLs{}) {
		cfg.TTLs = DefaultTTLs()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(nil)
	}
	return &Service{
		cache:   cache,
		differ:  differ,
		src:     src,
		ttl:     cfg.TTLs,
		log:     cfg.Logger,
		metrics: cfg.Metrics,
	}
}

// DiffKey returns the cache key of a schedule's diff
func DiffKey(sc models.Schedule) string {
	return "diff:" + sc.EventID + ":" + sc.ID
}

// UnreleasedKey returns the cache key of an event's unreleased flag
func UnreleasedKey(eventID string) string {
	return "unreleased:" + eventID
}

// TTLFor returns the expiry used for a schedule's diff
func (s *Service) TTLFor(sc models.Schedule) time.Duration {
	if sc.IsWIP() {
		return s.ttl.WIP
	}
	return s.ttl.Released
}

// GetCachedDiff returns the diff of sc. Concurrent misses on the same key
// share one computation, which does not stop when the caller that started it
// is cancelled.
func (s *Service) GetCachedDiff(ctx context.Context, sc models.Schedule) (*diff.Result, error) {
	key := DiffKey(sc)
	if res, ok := s.lookup(ctx, key); ok {
		return res, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		ctx := context.WithoutCancel(ctx)
		if res, ok := s.lookup(ctx, key); ok {
			return res, nil
		}
		s.metrics.requests.WithLabelValues("miss").Inc()
		s.metrics.computations.Inc()

		res, err := s.differ.Diff(ctx, sc)
		if err != nil {
			return nil, err
		}
		s.save(ctx, key, res, s.TTLFor(sc))

		if sc.IsWIP() {
			unreleased, err := s.unreleased(ctx, sc, res)
			if err != nil {
				s.log.Warn("failed to evaluate unreleased changes", zap.String("event_id", sc.EventID), zap.Error(err))
			} else {
				s.SetUnreleased(ctx, sc.EventID, unreleased)
			}
		}
		return res, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute diff of %s: %w", sc, err)
	}

	res, ok := v.(*diff.Result)
	if !ok {
		return nil, fmt.Errorf("unexpected type from diff group: got %T", v)
	}
	return res, nil
}

// HasUnreleasedChanges reports whether the event's WIP differs from its
// latest release. The answer is cached and recomputed from the WIP diff on a
// miss.
func (s *Service) HasUnreleasedChanges(ctx context.Context, eventID string) (bool, error) {
	data, err := s.cache.Get(ctx, UnreleasedKey(eventID))
	if err == nil {
		if v, perr := strconv.ParseBool(string(data)); perr == nil {
			return v, nil
		}
		s.metrics.errors.WithLabelValues("decode").Inc()
	} else if !errors.Is(err, ErrCacheMiss) {
		s.metrics.errors.WithLabelValues("get").Inc()
		s.log.Warn("diff cache unavailable", zap.String("key", UnreleasedKey(eventID)), zap.Error(err))
	}

	wip, err := s.src.WIP(ctx, eventID)
	if err != nil {
		return false, err
	}
	res, err := s.GetCachedDiff(ctx, wip)
	if err != nil {
		return false, err
	}
	unreleased, err := s.unreleased(ctx, wip, res)
	if err != nil {
		return false, err
	}
	s.SetUnreleased(ctx, eventID, unreleased)
	return unreleased, nil
}

// SetUnreleased overwrites the event's unreleased flag
func (s *Service) SetUnreleased(ctx context.Context, eventID string, unreleased bool) {
	key := UnreleasedKey(eventID)
	if err := s.cache.Set(ctx, key, []byte(strconv.FormatBool(unreleased)), s.ttl.Unreleased); err != nil {
		s.metrics.errors.WithLabelValues("set").Inc()
		s.log.Warn("failed to cache unreleased flag", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops the cached diff of sc
func (s *Service) Invalidate(ctx context.Context, sc models.Schedule) {
	key := DiffKey(sc)
	if err := s.cache.Delete(ctx, key); err != nil {
		s.metrics.errors.WithLabelValues("delete").Inc()
		s.log.Warn("failed to invalidate cached diff", zap.String("key", key), zap.Error(err))
	}
}

// lookup returns a cached diff. Unreadable entries, including ones whose
// placements have since been deleted, count as misses.
func (s *Service) lookup(ctx context.Context, key string) (*diff.Result, bool) {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			s.metrics.errors.WithLabelValues("get").Inc()
			s.log.Warn("diff cache unavailable", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	res, err := diff.Deserialize(ctx, data, s.src)
	if err != nil {
		s.metrics.errors.WithLabelValues("decode").Inc()
		s.log.Debug("discarding stale cached diff", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	s.metrics.requests.WithLabelValues("hit").Inc()
	s.log.Debug("diff cache hit", zap.String("key", key))
	return res, true
}

func (s *Service) save(ctx context.Context, key string, res *diff.Result, ttl time.Duration) {
	data, err := diff.Serialize(res)
	if err != nil {
		s.metrics.errors.WithLabelValues("encode").Inc()
		s.log.Warn("failed to encode diff", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, data, ttl); err != nil {
		s.metrics.errors.WithLabelValues("set").Inc()
		s.log.Warn("failed to cache diff", zap.String("key", key), zap.Error(err))
	}
}

// unreleased is true when the WIP has changes, or when nothing was ever
// released and the WIP already holds placements.
func (s *Service) unreleased(ctx context.Context, wip models.Schedule, res *diff.Result) (bool, error) {
	if res.Count > 0 {
		return true, nil
	}
	if res.Action != diff.ActionCreate {
		return false, nil
	}
	placements, err := s.src.Placements(ctx, wip.ID)
	if err != nil {
		return false, err
	}
	return len(placements) > 0, nil
}
