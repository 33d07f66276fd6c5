package retention

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	constants "touchmon/config"
	"touchmon/internal/logger"
	"touchmon/internal/metrics"
)

// State of the retention manager
type State int

const (
	Idle State = iota
	Pruning
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pruning:
		return "pruning"
	default:
		return "unknown"
	}
}

// ErrInvalidDays is returned for retention outside the accepted range
var ErrInvalidDays = fmt.Errorf("retention days must be between %d and %d",
	constants.MIN_RETENTION_DAYS, constants.MAX_RETENTION_DAYS)

// ErrBusy is returned when a run is requested while another is in progress
var ErrBusy = errors.New("retention run already in progress")

// Pruner deletes samples older than a cutoff
type Pruner interface {
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Result describes one completed run
type Result struct {
	Cutoff  time.Time
	Deleted int64
	Err     error
	At      time.Time
}

// Manager prunes samples older than the configured number of days
type Manager struct {
	mu       sync.Mutex
	pruner   Pruner
	observer *metrics.Observer
	days     int
	state    State
	last     Result

	now func() time.Time
}

// NewManager creates a manager keeping days of history
func NewManager(p Pruner, days int, obs *metrics.Observer) (*Manager, error) {
	if err := ValidateDays(days); err != nil {
		return nil, err
	}
	return &Manager{
		pruner:   p,
		observer: obs,
		days:     days,
		state:    Idle,
		now:      time.Now,
	}, nil
}

// ValidateDays checks days against the accepted range
func ValidateDays(days int) error {
	if days < constants.MIN_RETENTION_DAYS || days > constants.MAX_RETENTION_DAYS {
		return fmt.Errorf("%w: got %d", ErrInvalidDays, days)
	}
	return nil
}

// SetRetentionDays changes the horizon used by the next run
func (m *Manager) SetRetentionDays(days int) error {
	if err := ValidateDays(days); err != nil {
		return err
	}
	m.mu.Lock()
	m.days = days
	m.mu.Unlock()
	return nil
}

func (m *Manager) RetentionDays() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.days
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastResult returns the outcome of the most recent run
func (m *Manager) LastResult() Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Cutoff returns the oldest timestamp kept for a run at now
func (m *Manager) Cutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -m.RetentionDays())
}

// RunOnce prunes everything older than the retention horizon. A failure
// is logged and returned; the horizon is left unchanged and the next run
// starts over.
func (m *Manager) RunOnce(ctx context.Context) (Result, error) {
	m.mu.Lock()
	if m.state == Pruning {
		m.mu.Unlock()
		return Result{}, ErrBusy
	}
	m.state = Pruning
	now := m.now()
	cutoff := now.AddDate(0, 0, -m.days)
	m.mu.Unlock()

	deleted, err := m.pruner.PruneOlderThan(ctx, cutoff)
	res := Result{Cutoff: cutoff, Deleted: deleted, Err: err, At: now}

	m.mu.Lock()
	m.state = Idle
	m.last = res
	m.mu.Unlock()

	m.observer.RetentionRun(deleted, err)
	if err != nil {
		logger.Warning("Retention run failed (cutoff %s): %v", cutoff.Format(time.RFC3339), err)
		return res, err
	}
	if deleted > 0 {
		logger.Info("Retention removed %d samples older than %s", deleted, cutoff.Format("2006-01-02 15:04:05"))
	}
	return res, nil
}
