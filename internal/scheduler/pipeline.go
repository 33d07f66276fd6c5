package scheduler

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	constants "touchmon/config"
	"touchmon/internal/logger"
	"touchmon/internal/metrics"
)

// Sampler takes one host reading
type Sampler interface {
	Sample(ctx context.Context) (metrics.RawReading, error)
}

// Writer persists samples
type Writer interface {
	Upsert(ctx context.Context, s metrics.Sample) error
}

// PipelineConfig wires a Pipeline
type PipelineConfig struct {
	Sampler  Sampler
	Store    Writer
	Observer *metrics.Observer

	// NetInfo is optional; without it the network state stays unknown
	NetInfo        metrics.NetInfoProvider
	NetInfoTimeout time.Duration

	// Publish receives the live snapshot after every tick. Nil disables it.
	Publish func(metrics.LiveSnapshot) error

	// Interval bounds a single sampler call
	Interval time.Duration
}

// Pipeline runs sampler, rate engine and store for one tick at a time.
// Tick must only be called from one goroutine; it owns the rate engine.
type Pipeline struct {
	cfg   PipelineConfig
	rates *metrics.RateEngine

	interval atomic.Int64

	netMu   sync.RWMutex
	network metrics.NetworkInfo

	latestMu sync.RWMutex
	latest   metrics.Sample
	hasAny   bool

	written       atomic.Uint64
	storageErrors atomic.Uint64
}

// NewPipeline creates a pipeline with an empty counter baseline
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.NetInfoTimeout <= 0 {
		cfg.NetInfoTimeout = constants.DEFAULT_NETINFO_TIMEOUT_MS * time.Millisecond
	}
	p := &Pipeline{
		cfg:     cfg,
		rates:   metrics.NewRateEngine(),
		network: metrics.NetworkInfo{State: metrics.NetStateUnknown},
	}
	p.interval.Store(int64(cfg.Interval))
	return p
}

// SetInterval changes the bound applied to the next sampler call
func (p *Pipeline) SetInterval(d time.Duration) {
	if d > 0 {
		p.interval.Store(int64(d))
	}
}

// Tick samples the host at now, derives throughput and upserts the result.
// The sample is returned even when the store write fails.
func (p *Pipeline) Tick(ctx context.Context, now time.Time) (metrics.Sample, error) {
	start := time.Now()
	defer func() { p.cfg.Observer.ObserveTick(time.Since(start)) }()

	sctx, cancel := context.WithTimeout(ctx, time.Duration(p.interval.Load()))
	raw, err := p.cfg.Sampler.Sample(sctx)
	cancel()
	if err != nil {
		p.cfg.Observer.SampleFailed()
		return metrics.Sample{}, fmt.Errorf("sample failed: %w", err)
	}

	if !raw.Temperature.Valid {
		p.cfg.Observer.SensorUnavailable()
	}

	tp := p.rates.Observe(raw, now)
	if tp.Clamped {
		p.cfg.Observer.CounterClamped()
		logger.Debug("Network counter went backwards (sent=%d recv=%d), rate clamped to 0", raw.BytesSent, raw.BytesRecv)
	}

	sample := metrics.NewSample(now, raw, tp)
	p.latestMu.Lock()
	p.latest = sample
	p.hasAny = true
	p.latestMu.Unlock()

	storeErr := p.cfg.Store.Upsert(ctx, sample)
	if storeErr != nil {
		p.storageErrors.Add(1)
		p.cfg.Observer.StorageFailed()
	} else {
		p.written.Add(1)
		p.cfg.Observer.SampleWritten(sample)
	}

	p.publish(sample)
	return sample, storeErr
}

// RefreshNetwork looks up the active interface and keeps the result for
// the next snapshots. Failures degrade to NetStateUnknown.
func (p *Pipeline) RefreshNetwork(ctx context.Context) metrics.NetworkInfo {
	if p.cfg.NetInfo == nil {
		return p.Network()
	}

	info, err := metrics.LookupNetworkInfo(ctx, p.cfg.NetInfo, p.cfg.NetInfoTimeout)
	if err != nil {
		p.cfg.Observer.NetInfoFailed()
		logger.Debug("Network info lookup failed: %v", err)
	}

	p.netMu.Lock()
	p.network = info
	p.netMu.Unlock()
	return info
}

// Network returns the last looked up interface
func (p *Pipeline) Network() metrics.NetworkInfo {
	p.netMu.RLock()
	defer p.netMu.RUnlock()
	return p.network
}

// Latest returns the most recent sample and whether one exists
func (p *Pipeline) Latest() (metrics.Sample, bool) {
	p.latestMu.RLock()
	defer p.latestMu.RUnlock()
	return p.latest, p.hasAny
}

// Counters returns the number of samples written and failed writes
func (p *Pipeline) Counters() (written, storageErrors uint64) {
	return p.written.Load(), p.storageErrors.Load()
}

func (p *Pipeline) publish(sample metrics.Sample) {
	if p.cfg.Publish == nil {
		return
	}
	written, storageErrors := p.Counters()
	snap := metrics.LiveSnapshot{
		Sample:         sample,
		Network:        p.Network(),
		SamplesWritten: written,
		StorageErrors:  storageErrors,
		PID:            os.Getpid(),
		WrittenAt:      time.Now(),
	}
	if err := p.cfg.Publish(snap); err != nil {
		logger.Debug("Failed to publish live snapshot: %v", err)
	}
}
