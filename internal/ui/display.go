package ui

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"touchmon/internal/metrics"
	"touchmon/pkg/utils"
)

// PrintHeader prints the application banner
func PrintHeader() {
	fmt.Println(RenderBanner())
	fmt.Println(RenderSubtitle())
}

// PrintSection prints a section header
func PrintSection(title string) {
	fmt.Println(RenderSectionStart(title))
}

// PrintSectionEnd prints a section footer
func PrintSectionEnd() {
	fmt.Println(RenderSectionEnd())
}

// PrintStatus prints a status message: success, warning, error or info
func PrintStatus(status, message string) {
	fmt.Println(RenderStatus(status, message))
}

// PrintError prints an error status and the log file to look at
func PrintError(message, logFile string) {
	PrintStatus("error", message)
	if logFile != "" {
		fmt.Println("  " + MutedStyle.Render("Details: "+logFile))
	}
}

// KeyValue is one row of a key-value list
type KeyValue struct {
	Key   string
	Value string
}

// CreateList renders pairs in order with aligned keys
func CreateList(pairs []KeyValue) string {
	width := 0
	for _, kv := range pairs {
		if len(kv.Key) > width {
			width = len(kv.Key)
		}
	}

	var result strings.Builder
	for _, kv := range pairs {
		result.WriteString(RenderKeyValue(fmt.Sprintf("%-*s", width, kv.Key), kv.Value))
		result.WriteString("\n")
	}
	return result.String()
}

// CreateBeautifulList renders a map sorted by key
func CreateBeautifulList(data map[string]string) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]KeyValue, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, KeyValue{Key: k, Value: data[k]})
	}
	return CreateList(pairs)
}

// RenderLatest renders the newest sample with usage bars
func RenderLatest(s metrics.Sample) string {
	var b strings.Builder
	line := func(label, bar, value string) {
		b.WriteString(fmt.Sprintf("  %s %s %s\n", KeyStyle.Render(fmt.Sprintf("%-5s", label)), bar, ValueStyle.Render(value)))
	}

	line("CPU", RenderProgressBar(s.CPUPercent, 20), utils.FormatPercentage(s.CPUPercent))
	line("RAM", RenderProgressBar(s.RAMPercent, 20), utils.FormatPercentage(s.RAMPercent))
	if s.Temperature.Valid {
		// 100 °C fills the bar
		line("Temp", RenderProgressBar(s.Temperature.Celsius, 20), utils.FormatTemperature(s.Temperature.Celsius, true))
	} else {
		line("Temp", DimStyle.Render(strings.Repeat(ProgressEmpty, 20)), utils.FormatTemperature(0, false))
	}
	b.WriteString(fmt.Sprintf("  %s %s %s   %s %s\n",
		KeyStyle.Render(fmt.Sprintf("%-5s", "Net")),
		PrimaryStyle.Render(IconUp), ValueStyle.Render(utils.FormatRate(s.UploadKBps)),
		PrimaryStyle.Render(IconDown), ValueStyle.Render(utils.FormatRate(s.DownloadKBps))))
	return b.String()
}

// RenderNetwork renders the active interface with signal bars for Wi-Fi
func RenderNetwork(n metrics.NetworkInfo) string {
	switch n.State {
	case metrics.NetStateConnected:
		label := n.Device
		if n.Type != "" {
			label += " (" + n.Type + ")"
		}
		if n.HasSignal {
			return fmt.Sprintf("%s %s %d%%", ValueStyle.Render(label), RenderSignalBars(n.SignalBars()), n.Signal)
		}
		return ValueStyle.Render(label)
	case metrics.NetStateOffline:
		return WarningStyle.Render("offline")
	default:
		return MutedStyle.Render("unknown")
	}
}

// RenderSummaryTable renders per-series statistics for a range
func RenderSummaryTable(summary metrics.RangeSummary) string {
	var b strings.Builder
	if summary.Samples == 0 {
		b.WriteString("  " + MutedStyle.Render("No samples in range") + "\n")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("  %s\n", GrayStyle.Render(fmt.Sprintf("%d samples, %s to %s (%s)",
		summary.Samples,
		summary.From.Format("2006-01-02 15:04:05"),
		summary.To.Format("15:04:05"),
		utils.FormatDuration(summary.Span())))))
	b.WriteString(fmt.Sprintf("  %s\n", BoldStyle.Render(fmt.Sprintf("%-10s %10s %10s %10s %10s %10s",
		"", "Current", "Min", "Avg", "P95", "Max"))))
	b.WriteString("  " + SeparatorStyle.Render(strings.Repeat(BoxHorizontal, 65)) + "\n")

	row := func(name string, st metrics.MetricStatistics, format func(float64) string) {
		if st.Count == 0 {
			b.WriteString(fmt.Sprintf("  %-10s %10s\n", name, MutedStyle.Render("n/a")))
			return
		}
		b.WriteString(fmt.Sprintf("  %-10s %10s %10s %10s %10s %10s\n", name,
			format(st.Current), format(st.Min), format(st.Avg), format(st.P95), format(st.Max)))
	}
	pct := func(v float64) string { return fmt.Sprintf("%.1f%%", v) }
	deg := func(v float64) string { return fmt.Sprintf("%.1f°C", v) }
	kb := func(v float64) string { return fmt.Sprintf("%.1f", v) }

	row("CPU", summary.CPU, pct)
	row("RAM", summary.RAM, pct)
	row("Temp", summary.Temp, deg)
	row("Up KB/s", summary.Upload, kb)
	row("Down KB/s", summary.Download, kb)
	return b.String()
}

// RenderSparklines renders one sparkline per series, width glyphs wide
func RenderSparklines(samples []metrics.Sample, width int) string {
	if len(samples) == 0 {
		return ""
	}

	cpu := make([]float64, len(samples))
	ram := make([]float64, len(samples))
	temp := make([]float64, len(samples))
	up := make([]float64, len(samples))
	down := make([]float64, len(samples))
	for i, s := range samples {
		cpu[i] = s.CPUPercent
		ram[i] = s.RAMPercent
		temp[i] = math.NaN()
		if s.Temperature.Valid {
			temp[i] = s.Temperature.Celsius
		}
		up[i] = s.UploadKBps
		down[i] = s.DownloadKBps
	}

	netMax := math.Max(seriesMax(up), seriesMax(down))
	if netMax <= 0 {
		netMax = 1
	}

	var b strings.Builder
	line := func(name string, values []float64, lo, hi float64, color lipgloss.Color) {
		spark := utils.Sparkline(utils.Downsample(values, width), lo, hi)
		b.WriteString(fmt.Sprintf("  %s %s\n", KeyStyle.Render(fmt.Sprintf("%-5s", name)), lipgloss.NewStyle().Foreground(color).Render(spark)))
	}
	line("CPU", cpu, 0, 100, CPUColor)
	line("RAM", ram, 0, 100, RAMColor)
	line("Temp", temp, 0, 100, TempColor)
	line("Up", up, 0, netMax, UploadColor)
	line("Down", down, 0, netMax, DownloadColor)
	return b.String()
}

// RenderSampleTable renders up to limit of the newest samples
func RenderSampleTable(samples []metrics.Sample, limit int) string {
	var b strings.Builder
	if limit > 0 && len(samples) > limit {
		samples = samples[len(samples)-limit:]
	}

	b.WriteString(fmt.Sprintf("  %s\n", BoldStyle.Render(fmt.Sprintf("%-19s %7s %7s %8s %10s %10s",
		"Time", "CPU", "RAM", "Temp", "Up KB/s", "Down KB/s"))))
	b.WriteString("  " + SeparatorStyle.Render(strings.Repeat(BoxHorizontal, 66)) + "\n")
	for _, s := range samples {
		b.WriteString(fmt.Sprintf("  %-19s %6.1f%% %6.1f%% %8s %10.1f %10.1f\n",
			s.Timestamp.Format("2006-01-02 15:04:05"),
			s.CPUPercent, s.RAMPercent,
			utils.FormatTemperature(s.Temperature.Celsius, s.Temperature.Valid),
			s.UploadKBps, s.DownloadKBps))
	}
	return b.String()
}

func seriesMax(values []float64) float64 {
	m := 0.0
	for _, v := range values {
		if v > m {
			m = v
		}
	}
	return m
}
