package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"touchmon/internal/config"
	"touchmon/internal/logger"
	"touchmon/internal/metrics"
	"touchmon/internal/process"
	"touchmon/internal/retention"
	"touchmon/internal/scheduler"
	"touchmon/internal/store"
)

// loadSettings reads the settings document and points the logger at the
// configured log file
func loadSettings() *config.Settings {
	settings, err := config.LoadSettings()
	if err != nil {
		d := config.Defaults()
		settings = &d
	}
	logger.SetOutputFile(settings.LogFile)
	return settings
}

// schedulerSettings converts the settings document into loop cadences
func schedulerSettings(s *config.Settings) scheduler.Settings {
	out := scheduler.DefaultSettings()
	out.SampleInterval = time.Duration(s.DashboardRefreshMS) * time.Millisecond
	out.RefreshInterval = time.Duration(s.HistoryRefreshMS) * time.Millisecond
	out.RetentionInterval = time.Duration(s.RetentionCheckMinutes) * time.Minute
	out.RetentionDays = s.RetentionDays
	return out
}

// pipelineRuntime is everything a store-owning process runs
type pipelineRuntime struct {
	settings  *config.Settings
	lock      *process.LockFile
	store     *store.Store
	registry  *prometheus.Registry
	observer  *metrics.Observer
	pipeline  *scheduler.Pipeline
	scheduler *scheduler.Scheduler
}

// newRuntime takes the store lock and wires sampler, store, retention and
// scheduler. publish receives the live snapshot after each tick; nil
// disables it.
func newRuntime(ctx context.Context, settings *config.Settings, publish func(metrics.LiveSnapshot) error) (*pipelineRuntime, error) {
	lock, err := process.Acquire()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(settings.DBPath)
	if err != nil {
		lock.Release()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	observer := metrics.NewObserver(registry)

	sampleSettings := schedulerSettings(settings)
	pipeline := scheduler.NewPipeline(scheduler.PipelineConfig{
		Sampler:        metrics.NewSampler(ctx),
		Store:          st,
		Observer:       observer,
		NetInfo:        metrics.NewNetInfoProvider(),
		NetInfoTimeout: time.Duration(settings.NetInfoTimeoutMS) * time.Millisecond,
		Publish:        publish,
		Interval:       sampleSettings.SampleInterval,
	})

	rm, err := retention.NewManager(st, settings.RetentionDays, observer)
	if err != nil {
		st.Close()
		lock.Release()
		return nil, err
	}

	sch, err := scheduler.New(pipeline, st, rm, sampleSettings)
	if err != nil {
		st.Close()
		lock.Release()
		return nil, err
	}

	return &pipelineRuntime{
		settings:  settings,
		lock:      lock,
		store:     st,
		registry:  registry,
		observer:  observer,
		pipeline:  pipeline,
		scheduler: sch,
	}, nil
}

// reload re-reads the settings document and applies it to the running
// scheduler, keeping the selected range
func (r *pipelineRuntime) reload() error {
	next := loadSettings()

	applied := schedulerSettings(next)
	current := r.scheduler.Settings()
	applied.Range = current.Range
	applied.ByTime = current.ByTime

	if err := r.scheduler.Apply(applied); err != nil {
		return fmt.Errorf("failed to apply settings: %w", err)
	}
	if next.DBPath != r.settings.DBPath {
		logger.Warning("db_path changed to %s, restart to switch stores", next.DBPath)
	}
	r.settings = next
	return nil
}

// Close closes the store and releases the lock
func (r *pipelineRuntime) Close() {
	if err := r.store.Close(); err != nil {
		logger.Warning("Failed to close store: %v", err)
	}
	r.lock.Release()
}

// openStoreExclusive opens the store for maintenance writes. It refuses
// while a daemon owns the store.
func openStoreExclusive(settings *config.Settings) (*store.Store, *process.LockFile, error) {
	lock, err := process.Acquire()
	if err != nil {
		if errors.Is(err, process.ErrAlreadyRunning) {
			return nil, nil, fmt.Errorf("%w; run 'touchmon stop' first", err)
		}
		return nil, nil, err
	}
	st, err := store.Open(settings.DBPath)
	if err != nil {
		lock.Release()
		return nil, nil, err
	}
	return st, lock, nil
}
