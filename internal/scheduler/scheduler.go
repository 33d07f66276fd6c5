package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	constants "touchmon/config"
	"touchmon/internal/history"
	"touchmon/internal/logger"
	"touchmon/internal/metrics"
	"touchmon/internal/retention"
	"touchmon/internal/store"
)

// Reader serves history queries
type Reader interface {
	QueryLast(ctx context.Context, n int) ([]metrics.Sample, error)
	QuerySince(ctx context.Context, cutoff time.Time) ([]metrics.Sample, error)
}

// Settings are the cadences and horizons the scheduler runs with
type Settings struct {
	SampleInterval    time.Duration
	RefreshInterval   time.Duration
	RetentionInterval time.Duration
	RetentionDays     int

	Range  history.Range
	ByTime bool // select the range by wall clock instead of row count
}

// DefaultSettings returns the built-in cadences
func DefaultSettings() Settings {
	return Settings{
		SampleInterval:    constants.DEFAULT_DASHBOARD_REFRESH_MS * time.Millisecond,
		RefreshInterval:   constants.DEFAULT_HISTORY_REFRESH_MS * time.Millisecond,
		RetentionInterval: constants.DEFAULT_RETENTION_CHECK_MIN * time.Minute,
		RetentionDays:     constants.DEFAULT_RETENTION_DAYS,
		Range:             history.DefaultRange,
	}
}

// Validate rejects settings the loops cannot run with
func (s Settings) Validate() error {
	if s.SampleInterval < constants.MIN_SAMPLE_INTERVAL_MS*time.Millisecond {
		return fmt.Errorf("sample interval %s is below %dms", s.SampleInterval, constants.MIN_SAMPLE_INTERVAL_MS)
	}
	if s.RefreshInterval < constants.MIN_REFRESH_MS*time.Millisecond {
		return fmt.Errorf("refresh interval %s is below %dms", s.RefreshInterval, constants.MIN_REFRESH_MS)
	}
	if s.RetentionInterval < time.Minute {
		return fmt.Errorf("retention interval %s is below 1m", s.RetentionInterval)
	}
	return retention.ValidateDays(s.RetentionDays)
}

// Snapshot is the chart data produced by one refresh
type Snapshot struct {
	Range       history.Range
	Samples     []metrics.Sample
	Summary     metrics.RangeSummary
	Latest      metrics.Sample
	HasLatest   bool
	Network     metrics.NetworkInfo
	RefreshedAt time.Time

	// Err is the last refresh failure; Samples then hold the last good data
	Err error
}

type refreshSettings struct {
	interval time.Duration
	period   time.Duration
	rng      history.Range
	byTime   bool
}

// Scheduler owns the sampling, refresh and retention tick sources
type Scheduler struct {
	pipeline  *Pipeline
	reader    Reader
	retention *retention.Manager

	sampleCh    chan time.Duration
	refreshCh   chan refreshSettings
	retentionCh chan time.Duration
	snapshots   chan Snapshot

	mu       sync.Mutex
	settings Settings
	last     Snapshot
	netAt    time.Time

	now func() time.Time
}

// New creates a scheduler. Run starts it.
func New(p *Pipeline, r Reader, rm *retention.Manager, s Settings) (*Scheduler, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := rm.SetRetentionDays(s.RetentionDays); err != nil {
		return nil, err
	}
	p.SetInterval(s.SampleInterval)

	return &Scheduler{
		pipeline:    p,
		reader:      r,
		retention:   rm,
		sampleCh:    make(chan time.Duration, 1),
		refreshCh:   make(chan refreshSettings, 1),
		retentionCh: make(chan time.Duration, 1),
		snapshots:   make(chan Snapshot, 1),
		settings:    s,
		last:        Snapshot{Range: s.Range},
		now:         time.Now,
	}, nil
}

// Run drives the three loops until ctx is cancelled
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	settings := s.Settings()

	g.Go(func() error { return s.sampleLoop(ctx, settings.SampleInterval) })
	g.Go(func() error { return s.refreshLoop(ctx, refreshFrom(settings)) })
	g.Go(func() error { return s.retentionLoop(ctx, settings.RetentionInterval) })

	return g.Wait()
}

// Snapshots delivers refresh results. Only the latest unread one is kept.
func (s *Scheduler) Snapshots() <-chan Snapshot {
	return s.snapshots
}

// Last returns the most recent snapshot
func (s *Scheduler) Last() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Apply hands new settings to the running loops. Each loop picks up its
// part on its next wakeup.
func (s *Scheduler) Apply(next Settings) error {
	if err := next.Validate(); err != nil {
		return err
	}
	if err := s.retention.SetRetentionDays(next.RetentionDays); err != nil {
		return err
	}

	s.mu.Lock()
	prev := s.settings
	s.settings = next
	s.mu.Unlock()

	if next.SampleInterval != prev.SampleInterval {
		offer(s.sampleCh, next.SampleInterval)
	}
	if next.RefreshInterval != prev.RefreshInterval || next.Range != prev.Range ||
		next.ByTime != prev.ByTime || next.SampleInterval != prev.SampleInterval {
		offer(s.refreshCh, refreshFrom(next))
	}
	if next.RetentionInterval != prev.RetentionInterval {
		offer(s.retentionCh, next.RetentionInterval)
	}

	logger.Info("Applied settings: sample=%s refresh=%s retention=%dd range=%s",
		next.SampleInterval, next.RefreshInterval, next.RetentionDays, next.Range)
	return nil
}

// SelectRange switches the chart range and refreshes on the next tick
func (s *Scheduler) SelectRange(r history.Range) error {
	next := s.Settings()
	next.Range = r
	return s.Apply(next)
}

// Refresh queries the current range once. On failure the previous samples
// are kept and the error is attached.
func (s *Scheduler) Refresh(ctx context.Context) Snapshot {
	return s.refresh(ctx, refreshFrom(s.Settings()))
}

// Export writes the selected range to a timestamped file in dir. It runs on
// the caller's goroutine and only reads from the store.
func (s *Scheduler) Export(ctx context.Context, label, dir string) (string, error) {
	r, ok := history.Resolve(label)
	if !ok {
		logger.Warning("Unknown range %q, exporting %s", label, r)
	}

	samples, err := QueryRange(ctx, s.reader, r, s.Settings().SampleInterval, false, s.now())
	if err != nil {
		return "", err
	}
	return history.ExportToDir(dir, samples, s.now())
}

// QueryRange loads a range by row count at the nominal period, or by wall
// clock when byTime is set.
func QueryRange(ctx context.Context, r Reader, rng history.Range, period time.Duration, byTime bool, now time.Time) ([]metrics.Sample, error) {
	if byTime {
		return r.QuerySince(ctx, rng.Since(now))
	}
	return r.QueryLast(ctx, rng.Rows(period))
}

func (s *Scheduler) sampleLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.tick(ctx, s.now())
	for {
		select {
		case <-ctx.Done():
			return nil
		case d := <-s.sampleCh:
			s.pipeline.SetInterval(d)
			ticker.Reset(d)
		case <-ticker.C:
			s.tick(ctx, s.now())
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	_, err := s.pipeline.Tick(ctx, now)
	if err == nil {
		return
	}
	var storageErr *store.StorageError
	if errors.As(err, &storageErr) {
		logger.Warning("Failed to store sample: %v", err)
		return
	}
	if ctx.Err() == nil {
		logger.Warning("Sampling tick skipped: %v", err)
	}
}

func (s *Scheduler) refreshLoop(ctx context.Context, rs refreshSettings) error {
	ticker := time.NewTicker(rs.interval)
	defer ticker.Stop()

	s.emit(s.refresh(ctx, rs))
	for {
		select {
		case <-ctx.Done():
			return nil
		case next := <-s.refreshCh:
			if next.interval != rs.interval {
				ticker.Reset(next.interval)
			}
			rs = next
			s.emit(s.refresh(ctx, rs))
		case <-ticker.C:
			s.emit(s.refresh(ctx, rs))
		}
	}
}

func (s *Scheduler) refresh(ctx context.Context, rs refreshSettings) Snapshot {
	now := s.now()

	s.mu.Lock()
	refreshNet := s.netAt.IsZero() || now.Sub(s.netAt) >= constants.NETINFO_REFRESH_SEC*time.Second
	if refreshNet {
		s.netAt = now
	}
	prev := s.last
	s.mu.Unlock()

	network := s.pipeline.Network()
	if refreshNet {
		network = s.pipeline.RefreshNetwork(ctx)
	}

	snap := Snapshot{
		Range:       rs.rng,
		Network:     network,
		RefreshedAt: now,
	}
	snap.Latest, snap.HasLatest = s.pipeline.Latest()

	samples, err := QueryRange(ctx, s.reader, rs.rng, rs.period, rs.byTime, now)
	if err != nil {
		logger.Warning("Chart refresh failed, keeping previous data: %v", err)
		snap.Err = err
		if prev.Range == rs.rng {
			snap.Samples = prev.Samples
			snap.Summary = prev.Summary
		}
	} else {
		snap.Samples = samples
		snap.Summary = metrics.Summarize(samples)
	}

	s.mu.Lock()
	s.last = snap
	s.mu.Unlock()
	return snap
}

// emit publishes snap, replacing an unread older one
func (s *Scheduler) emit(snap Snapshot) {
	offer(s.snapshots, snap)
}

func (s *Scheduler) retentionLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.prune(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case d := <-s.retentionCh:
			ticker.Reset(d)
		case <-ticker.C:
			s.prune(ctx)
		}
	}
}

func (s *Scheduler) prune(ctx context.Context) {
	// failures are logged by the manager and retried on the next tick
	if _, err := s.retention.RunOnce(ctx); errors.Is(err, retention.ErrBusy) {
		logger.Debug("Retention run skipped: previous run still in progress")
	}
}

func refreshFrom(s Settings) refreshSettings {
	return refreshSettings{
		interval: s.RefreshInterval,
		period:   s.SampleInterval,
		rng:      s.Range,
		byTime:   s.ByTime,
	}
}

// offer replaces any pending value in a one-slot channel with v
func offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
