package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"touchmon/internal/logger"
	"touchmon/internal/metrics"
	"touchmon/internal/process"
	"touchmon/internal/service"
)

const healthInterval = 30 * time.Second

// NewDaemonCmd creates the daemon command. The daemon owns the store and
// runs the sampling, refresh and retention loops until SIGTERM/SIGINT.
// SIGHUP re-applies the settings document.
func NewDaemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "daemon",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon()
		},
	}
}

func runDaemon() (err error) {
	defer func() {
		logger.Info("=== DAEMON EXITING - PID: %d ===", os.Getpid())
	}()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("=== PANIC DETECTED ===")
			logger.Error("Panic value: %v", r)
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			logger.Error("Stack trace:\n%s", string(buf[:n]))
			service.NotifyStopping()
			os.Exit(1)
		}
	}()

	settings := loadSettings()

	logger.Info("========================================")
	logger.Info("=== DAEMON STARTING - PID: %d ===", os.Getpid())
	logger.Info("========================================")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// before the lock: SIGHUP may arrive as soon as the PID is visible
	hup, stopHup := notifyHangup()
	defer stopHup()

	rt, err := newRuntime(ctx, settings, metrics.SaveSnapshot)
	if err != nil {
		if errors.Is(err, process.ErrAlreadyRunning) {
			logger.Error("Refusing to start: %v", err)
		} else {
			logger.Error("Failed to start pipeline: %v", err)
		}
		return err
	}
	defer rt.Close()
	defer metrics.ClearSnapshot()

	logger.Info("Daemon initialized:")
	logger.Info("  Store: %s", rt.store.Path())
	logger.Info("  Sampling every %dms, charts every %dms", settings.DashboardRefreshMS, settings.HistoryRefreshMS)
	logger.Info("  Retention: %d days, checked every %d minutes", settings.RetentionDays, settings.RetentionCheckMinutes)
	logger.Info("  Lock: %s", rt.lock.Path())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return rt.scheduler.Run(gctx)
	})

	if settings.MetricsAddr != "" {
		logger.Info("  Metrics: http://%s/metrics", settings.MetricsAddr)
		g.Go(func() error {
			// a busy port must not take sampling down with it
			if err := metrics.ServeMetrics(gctx, settings.MetricsAddr, rt.registry); err != nil {
				logger.Warning("Metrics listener stopped: %v", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		serveReloads(gctx, rt, hup, nil)
		return nil
	})
	g.Go(func() error {
		reportHealth(gctx, rt)
		return nil
	})

	service.NotifyReady()
	service.NotifyStatus("Sampling")

	err = g.Wait()

	logger.Info("========================================")
	logger.Info("Shutting down...")
	logger.Info("========================================")
	service.NotifyStopping()
	return err
}

// notifyHangup starts capturing SIGHUP. Until then the default action
// would kill the process.
func notifyHangup() (<-chan os.Signal, func()) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	return hup, func() { signal.Stop(hup) }
}

// serveReloads re-applies the settings document on every SIGHUP until ctx
// ends. done, if set, receives each reload's outcome.
func serveReloads(ctx context.Context, rt *pipelineRuntime, hup <-chan os.Signal, done func(error)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			logger.Info("SIGHUP received, reloading settings")
			service.NotifyReloading()
			err := rt.reload()
			if err != nil {
				logger.Warning("Reload failed, keeping previous settings: %v", err)
			}
			service.NotifyReady()
			if done != nil {
				done(err)
			}
		}
	}
}

// reportHealth feeds the systemd watchdog and logs pipeline counters
func reportHealth(ctx context.Context, rt *pipelineRuntime) {
	healthTicker := time.NewTicker(healthInterval)
	defer healthTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-healthTicker.C:
			var memStats runtime.MemStats
			runtime.ReadMemStats(&memStats)
			written, storageErrors := rt.pipeline.Counters()
			logger.Debug("Health check - goroutines: %d, memory: %.1f MB, written: %d, storage errors: %d",
				runtime.NumGoroutine(),
				float64(memStats.Alloc)/1024/1024,
				written, storageErrors)

			service.NotifyWatchdog()
			service.NotifyStatus(fmt.Sprintf("Sampling, %d samples written", written))
		}
	}
}
