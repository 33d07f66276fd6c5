package metrics

import (
	"math"
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/v4/cpu"
)

// cpuTracker computes busy percentage from the delta between two cpu.Times
// readings. The first reading only seeds the baseline and yields 0.
type cpuTracker struct {
	mu          sync.Mutex
	last        cpu.TimesStat
	initialized bool
}

// observe folds a new aggregate cpu.Times reading in and returns busy %
func (c *cpuTracker) observe(t cpu.TimesStat) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		c.last = t
		c.initialized = true
		return 0
	}

	busy := calculateBusy(c.last, t)
	c.last = t
	return busy
}

// calculateBusy calculates the CPU busy percentage between two time points.
// Returns a percentage clamped between 0 and 100.
func calculateBusy(t1, t2 cpu.TimesStat) float64 {
	t1All, t1Busy := getAllBusy(t1)
	t2All, t2Busy := getAllBusy(t2)

	if t2All <= t1All || t2Busy <= t1Busy {
		return 0
	}

	return clampPercent((t2Busy - t1Busy) / (t2All - t1All) * 100)
}

// getAllBusy calculates total CPU time and busy CPU time from CPU times statistics.
// On Linux, guest and guest_nice are already counted in user/nice, so they are
// removed from the total to match htop.
func getAllBusy(t cpu.TimesStat) (float64, float64) {
	tot := t.User + t.System + t.Idle + t.Nice + t.Iowait + t.Irq +
		t.Softirq + t.Steal + t.Guest + t.GuestNice

	if runtime.GOOS == "linux" {
		tot -= t.Guest
		tot -= t.GuestNice
	}

	busy := tot - t.Idle - t.Iowait

	return tot, busy
}

// clampPercent ensures the percentage is between 0 and 100
func clampPercent(value float64) float64 {
	if math.IsNaN(value) {
		return 0
	}
	return math.Min(100, math.Max(0, value))
}
