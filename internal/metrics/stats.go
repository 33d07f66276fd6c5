package metrics

import (
	"math"
	"sort"
	"time"
)

// MetricStatistics holds statistical analysis of one series
type MetricStatistics struct {
	Current float64 // Newest value
	Min     float64
	Max     float64
	Avg     float64
	P50     float64 // Median
	P95     float64
	P99     float64
	StdDev  float64
	Count   int
}

// RangeSummary aggregates a chronological range of samples
type RangeSummary struct {
	From     time.Time
	To       time.Time
	Samples  int
	CPU      MetricStatistics
	RAM      MetricStatistics
	Temp     MetricStatistics // valid readings only
	Upload   MetricStatistics
	Download MetricStatistics
}

// Span returns the wall-clock time covered by the range
func (r RangeSummary) Span() time.Duration {
	if r.Samples == 0 {
		return 0
	}
	return r.To.Sub(r.From)
}

// Summarize computes per-series statistics over samples, oldest first.
// Absent temperatures are left out of Temp.
func Summarize(samples []Sample) RangeSummary {
	summary := RangeSummary{Samples: len(samples)}
	if len(samples) == 0 {
		return summary
	}
	summary.From = samples[0].Timestamp
	summary.To = samples[len(samples)-1].Timestamp

	cpu := make([]float64, 0, len(samples))
	ram := make([]float64, 0, len(samples))
	temp := make([]float64, 0, len(samples))
	up := make([]float64, 0, len(samples))
	down := make([]float64, 0, len(samples))

	for _, s := range samples {
		cpu = append(cpu, s.CPUPercent)
		ram = append(ram, s.RAMPercent)
		up = append(up, s.UploadKBps)
		down = append(down, s.DownloadKBps)
		if s.Temperature.Valid {
			temp = append(temp, s.Temperature.Celsius)
		}
	}

	summary.CPU = seriesStatistics(cpu)
	summary.RAM = seriesStatistics(ram)
	summary.Temp = seriesStatistics(temp)
	summary.Upload = seriesStatistics(up)
	summary.Download = seriesStatistics(down)
	return summary
}

// seriesStatistics expects values in chronological order
func seriesStatistics(values []float64) MetricStatistics {
	if len(values) == 0 {
		return MetricStatistics{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return MetricStatistics{
		Current: values[len(values)-1],
		Min:     sorted[0],
		Max:     sorted[len(sorted)-1],
		Avg:     average(values),
		P50:     percentile(sorted, 50),
		P95:     percentile(sorted, 95),
		P99:     percentile(sorted, 99),
		StdDev:  stdDev(values),
		Count:   len(values),
	}
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func percentile(sortedValues []float64, p int) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	index := int(float64(len(sortedValues)-1) * float64(p) / 100.0)
	if index >= len(sortedValues) {
		index = len(sortedValues) - 1
	}
	return sortedValues[index]
}

func stdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	avg := average(values)
	variance := 0.0

	for _, v := range values {
		diff := v - avg
		variance += diff * diff
	}

	variance /= float64(len(values))
	return math.Sqrt(variance)
}
