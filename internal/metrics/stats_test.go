package metrics

import (
	"math"
	"testing"
	"time"
)

func makeSamples(cpu ...float64) []Sample {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local)
	samples := make([]Sample, len(cpu))
	for i, v := range cpu {
		samples[i] = Sample{
			Timestamp:  start.Add(time.Duration(i) * time.Second),
			CPUPercent: v,
			RAMPercent: 50,
		}
	}
	return samples
}

func TestSummarize_Basic(t *testing.T) {
	summary := Summarize(makeSamples(50, 60, 70))

	if summary.CPU.Min != 50.0 {
		t.Errorf("Expected Min=50.0, got %.1f", summary.CPU.Min)
	}
	if summary.CPU.Max != 70.0 {
		t.Errorf("Expected Max=70.0, got %.1f", summary.CPU.Max)
	}
	if math.Abs(summary.CPU.Avg-60.0) > 0.1 {
		t.Errorf("Expected Avg≈60.0, got %.1f", summary.CPU.Avg)
	}
	if summary.CPU.Current != 70.0 {
		t.Errorf("Expected Current=70.0 (newest), got %.1f", summary.CPU.Current)
	}
	if summary.Span() != 2*time.Second {
		t.Errorf("Expected span 2s, got %s", summary.Span())
	}
}

func TestSummarize_Percentiles(t *testing.T) {
	values := make([]float64, 0, 100)
	for i := 1; i <= 100; i++ {
		values = append(values, float64(i))
	}
	summary := Summarize(makeSamples(values...))

	if summary.CPU.P50 < 49 || summary.CPU.P50 > 51 {
		t.Errorf("Expected P50≈50, got %.1f", summary.CPU.P50)
	}
	if summary.CPU.P95 < 94 || summary.CPU.P95 > 96 {
		t.Errorf("Expected P95≈95, got %.1f", summary.CPU.P95)
	}
	if summary.CPU.P99 < 98 || summary.CPU.P99 > 100 {
		t.Errorf("Expected P99≈99, got %.1f", summary.CPU.P99)
	}
}

func TestSummarize_StdDev(t *testing.T) {
	summary := Summarize(makeSamples(2, 4, 4, 4, 5, 5, 7, 9))
	if math.Abs(summary.CPU.StdDev-2.0) > 1e-9 {
		t.Errorf("Expected StdDev=2, got %.4f", summary.CPU.StdDev)
	}
	if summary.RAM.StdDev != 0 {
		t.Errorf("Constant series should have StdDev=0, got %.4f", summary.RAM.StdDev)
	}
}

func TestSummarize_TemperatureSkipsAbsent(t *testing.T) {
	samples := makeSamples(10, 20, 30, 40)
	samples[0].Temperature = Celsius(40)
	samples[2].Temperature = Celsius(60)

	summary := Summarize(samples)
	if summary.Temp.Count != 2 {
		t.Fatalf("Expected 2 temperature readings, got %d", summary.Temp.Count)
	}
	if summary.Temp.Avg != 50 {
		t.Errorf("Expected temperature Avg=50, got %.1f", summary.Temp.Avg)
	}
	if summary.Temp.Current != 60 {
		t.Errorf("Expected newest valid temperature 60, got %.1f", summary.Temp.Current)
	}
}

func TestSummarize_Empty(t *testing.T) {
	summary := Summarize(nil)
	if summary.Samples != 0 || summary.CPU.Count != 0 {
		t.Errorf("Expected empty summary, got %+v", summary)
	}
	if summary.Span() != 0 {
		t.Errorf("Expected zero span, got %s", summary.Span())
	}
}
