package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pders01/schedule-context/internal/config"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Keep WIP diffs warm and compact the database periodically",
	Long: `Run in the foreground until interrupted.

The daemon
  - recomputes every event's WIP diff and unreleased flag on daemon.refresh
  - runs value log garbage collection on daemon.gc
  - serves Prometheus metrics when daemon.metrics_addr is set`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := cron.New()
	if _, err := c.AddFunc(config.GetDaemonRefresh(), func() { a.refresh(ctx) }); err != nil {
		return fmt.Errorf("invalid daemon.refresh %q: %w", config.GetDaemonRefresh(), err)
	}
	ratio := config.GetDaemonGCRatio()
	if _, err := c.AddFunc(config.GetDaemonGC(), func() {
		if err := a.store.RunGC(ratio); err != nil {
			a.log.Warn("value log gc failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid daemon.gc %q: %w", config.GetDaemonGC(), err)
	}

	var srv *http.Server
	if addr := config.GetDaemonMetricsAddr(); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
		srv = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("metrics server failed", zap.Error(err))
			}
		}()
		a.log.Info("serving metrics", zap.String("addr", addr))
	}

	a.refresh(ctx)
	c.Start()
	a.log.Info("daemon started",
		zap.String("refresh", config.GetDaemonRefresh()),
		zap.String("gc", config.GetDaemonGC()),
	)

	<-ctx.Done()
	<-c.Stop().Done()
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	a.log.Info("daemon stopped")
	return nil
}

// refresh warms the WIP diff of every event. Computing a WIP diff also
// refreshes the event's unreleased flag.
func (a *app) refresh(ctx context.Context) {
	events, err := a.store.Events(ctx)
	if err != nil {
		a.log.Warn("failed to list events", zap.Error(err))
		return
	}
	for _, ev := range events {
		wip, err := a.store.WIP(ctx, ev.ID)
		if err != nil {
			a.log.Warn("failed to load wip", zap.String("event_id", ev.ID), zap.Error(err))
			continue
		}
		res, err := a.cache.GetCachedDiff(ctx, wip)
		if err != nil {
			a.log.Warn("failed to refresh event", zap.String("event_id", ev.ID), zap.Error(err))
			continue
		}
		a.log.Debug("refreshed event", zap.String("event_id", ev.ID), zap.Int("changes", res.Count))
	}
}
