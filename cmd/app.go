package cmd

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/pders01/schedule-context/internal/config"
	"github.com/pders01/schedule-context/internal/diff"
	"github.com/pders01/schedule-context/internal/diffcache"
	"github.com/pders01/schedule-context/internal/logging"
	"github.com/pders01/schedule-context/internal/notify"
	"github.com/pders01/schedule-context/internal/schedule"
	"github.com/pders01/schedule-context/internal/store"
)

// app wires the store and engines for one command invocation
type app struct {
	log      *zap.Logger
	store    *store.Store
	bus      *notify.Bus
	differ   *diff.Engine
	cache    *diffcache.Service
	engine   *schedule.Engine
	registry *prometheus.Registry
}

func openApp() (*app, error) {
	log, err := logging.New(config.GetLogLevel(), config.GetLogDevelopment())
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	cfg := store.DefaultConfig(config.GetStorePath())
	cfg.InMemory = config.GetStoreInMemory()
	cfg.Logger = log
	s, err := store.Open(cfg)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	differ := diff.NewEngine(s, log.Named("diff"))
	cache := diffcache.New(diffcache.NewBadgerCache(s.DB()), differ, s, diffcache.Config{
		TTLs: diffcache.TTLs{
			WIP:        config.GetWIPTTL(),
			Released:   config.GetReleasedTTL(),
			Unreleased: config.GetUnreleasedTTL(),
		},
		Logger:  log.Named("diffcache"),
		Metrics: diffcache.NewMetrics(reg),
	})

	bus := notify.New(notify.Config{Workers: config.GetNotifyWorkers(), Logger: log.Named("notify")})
	bus.Subscribe("speakers", speakerNotices(s, log.Named("speakers")))

	engine := schedule.New(s, schedule.Config{
		ReservedNames: config.GetReservedNames(),
		Differ:        differ,
		Cache:         cache,
		Publisher:     bus,
		Logger:        log.Named("schedule"),
		Metrics:       schedule.NewMetrics(reg),
	})

	return &app{
		log:      log,
		store:    s,
		bus:      bus,
		differ:   differ,
		cache:    cache,
		engine:   engine,
		registry: reg,
	}, nil
}

// Close drains pending release events before closing the store
func (a *app) Close() {
	a.bus.Close()
	if err := a.store.Close(); err != nil {
		a.log.Warn("failed to close store", zap.Error(err))
	}
	_ = a.log.Sync()
}

// speakerNotices logs one notice per speaker whose talk changed in a release.
// Delivering them is left to external mail tooling reading the log.
func speakerNotices(s *store.Store, log *zap.Logger) notify.Handler {
	return func(ctx context.Context, msg notify.Released) error {
		if !msg.NotifySpeakers || msg.Changes == nil {
			return nil
		}
		subs, err := s.Submissions(ctx, msg.EventID)
		if err != nil {
			return err
		}

		notice := func(code, change string) {
			for _, speaker := range subs[code].Speakers {
				log.Info("speaker notice",
					zap.String("event_id", msg.EventID),
					zap.String("version", msg.Version),
					zap.String("submission", code),
					zap.String("speaker", speaker),
					zap.String("change", change),
				)
			}
		}
		for _, p := range msg.Changes.NewTalks {
			notice(p.SubmissionCode, "scheduled")
		}
		for _, p := range msg.Changes.CanceledTalks {
			notice(p.SubmissionCode, "canceled")
		}
		for _, m := range msg.Changes.MovedTalks {
			notice(m.Submission, "moved")
		}
		return nil
	}
}
