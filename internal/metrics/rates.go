package metrics

import "time"

// CounterBaseline holds the previous cumulative network counters.
// It lives only in memory and starts unset on every process start.
type CounterBaseline struct {
	Sent uint64
	Recv uint64
	Set  bool
}

// Throughput is the per-interval network rate derived from two counter readings
type Throughput struct {
	UploadKBps   float64
	DownloadKBps float64
	Ready        bool // false until a baseline exists
	Clamped      bool // a counter went backwards (reset or wrap)
}

// Derive converts cumulative counters into KB/s against base.
// The first call (unset base) yields zero rates with Ready=false. A counter
// that went backwards contributes zero. The returned baseline always holds
// the latest counters.
func Derive(base CounterBaseline, sent, recv uint64, elapsed time.Duration) (Throughput, CounterBaseline) {
	next := CounterBaseline{Sent: sent, Recv: recv, Set: true}
	if !base.Set {
		return Throughput{}, next
	}

	tp := Throughput{Ready: true}
	upDelta, upClamped := counterDelta(base.Sent, sent)
	downDelta, downClamped := counterDelta(base.Recv, recv)
	tp.Clamped = upClamped || downClamped

	secs := elapsed.Seconds()
	if secs <= 0 {
		return tp, next
	}
	tp.UploadKBps = float64(upDelta) / 1024 / secs
	tp.DownloadKBps = float64(downDelta) / 1024 / secs
	return tp, next
}

func counterDelta(prev, cur uint64) (uint64, bool) {
	if cur < prev {
		return 0, true
	}
	return cur - prev, false
}

// RateEngine threads a CounterBaseline through successive readings.
// It is owned by a single goroutine and is not safe for concurrent use.
type RateEngine struct {
	baseline CounterBaseline
	last     time.Time
}

// NewRateEngine returns an engine with no baseline
func NewRateEngine() *RateEngine {
	return &RateEngine{}
}

// Observe derives throughput for a reading taken at t, using the time since
// the previous reading as the interval.
func (e *RateEngine) Observe(r RawReading, t time.Time) Throughput {
	var elapsed time.Duration
	if !e.last.IsZero() {
		elapsed = t.Sub(e.last)
	}
	tp, next := Derive(e.baseline, r.BytesSent, r.BytesRecv, elapsed)
	e.baseline = next
	e.last = t
	return tp
}

// Baseline returns the current baseline
func (e *RateEngine) Baseline() CounterBaseline {
	return e.baseline
}

// Reset forgets the baseline; the next reading starts over
func (e *RateEngine) Reset() {
	e.baseline = CounterBaseline{}
	e.last = time.Time{}
}
