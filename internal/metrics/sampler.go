package metrics

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/sensors"
)

// ErrSensorUnavailable means no usable CPU temperature sensor was found
var ErrSensorUnavailable = errors.New("temperature sensor unavailable")

// OS probes. Variables (not functions) to allow override in tests.
var (
	readCPUTimes = func(ctx context.Context) ([]cpu.TimesStat, error) {
		return cpu.TimesWithContext(ctx, false)
	}
	readVirtualMemory = func(ctx context.Context) (*mem.VirtualMemoryStat, error) {
		return mem.VirtualMemoryWithContext(ctx)
	}
	readTemperatures = func(ctx context.Context) ([]sensors.TemperatureStat, error) {
		return sensors.TemperaturesWithContext(ctx)
	}
	readNetCounters = func(ctx context.Context) ([]net.IOCountersStat, error) {
		return net.IOCountersWithContext(ctx, false)
	}
)

// cpuSensorKeys are matched as substrings of sensor keys, in priority order
var cpuSensorKeys = []string{
	"coretemp_package_id_0",
	"coretemp",
	"k10temp_tctl",
	"k10temp",
	"cpu_thermal",
	"cpu-thermal",
	"soc_thermal",
	"acpitz",
}

// Sampler reads instantaneous host metrics and cumulative network counters
type Sampler struct {
	cpu *cpuTracker
}

// NewSampler creates a sampler and seeds the CPU baseline so the first
// Sample already reports a real busy percentage.
func NewSampler(ctx context.Context) *Sampler {
	s := &Sampler{cpu: &cpuTracker{}}
	if times, err := readCPUTimes(ctx); err == nil && len(times) > 0 {
		s.cpu.observe(times[0])
	}
	return s
}

// Sample takes one reading. A missing temperature sensor yields
// NoTemperature rather than an error; CPU, memory and counter failures
// are returned.
func (s *Sampler) Sample(ctx context.Context) (RawReading, error) {
	var r RawReading

	times, err := readCPUTimes(ctx)
	if err != nil {
		return r, fmt.Errorf("read cpu times: %w", err)
	}
	if len(times) == 0 {
		return r, fmt.Errorf("read cpu times: no data")
	}
	r.CPUPercent = s.cpu.observe(times[0])

	vm, err := readVirtualMemory(ctx)
	if err != nil {
		return r, fmt.Errorf("read memory: %w", err)
	}
	r.RAMPercent = clampPercent(vm.UsedPercent)

	counters, err := readNetCounters(ctx)
	if err != nil {
		return r, fmt.Errorf("read net counters: %w", err)
	}
	for _, c := range counters {
		r.BytesSent += c.BytesSent
		r.BytesRecv += c.BytesRecv
	}

	if temp, err := ReadCPUTemperature(ctx); err == nil {
		r.Temperature = temp
	}

	return r, nil
}

// ReadCPUTemperature returns the CPU temperature from the best matching
// sensor, or ErrSensorUnavailable.
func ReadCPUTemperature(ctx context.Context) (Temperature, error) {
	stats, err := readTemperatures(ctx)
	// gopsutil returns partial results together with warnings
	if len(stats) == 0 {
		if err != nil {
			return NoTemperature, fmt.Errorf("%w: %v", ErrSensorUnavailable, err)
		}
		return NoTemperature, ErrSensorUnavailable
	}

	for _, key := range cpuSensorKeys {
		for _, st := range stats {
			if strings.Contains(strings.ToLower(st.SensorKey), key) && validTemperature(st.Temperature) {
				return Celsius(st.Temperature), nil
			}
		}
	}
	return NoTemperature, ErrSensorUnavailable
}

// validTemperature rejects negative sentinels and out-of-range garbage
func validTemperature(c float64) bool {
	return c >= 0 && c < 150
}
