package history

import (
	"strings"
	"time"
)

// Range is a named history window
type Range struct {
	Label    string
	Duration time.Duration
}

var (
	Range5Min   = Range{Label: "5 min", Duration: 5 * time.Minute}
	Range30Min  = Range{Label: "30 min", Duration: 30 * time.Minute}
	Range2Hour  = Range{Label: "2 hours", Duration: 2 * time.Hour}
	Range12Hour = Range{Label: "12 hours", Duration: 12 * time.Hour}

	// DefaultRange is used for unknown labels
	DefaultRange = Range5Min
)

var ranges = []Range{Range5Min, Range30Min, Range2Hour, Range12Hour}

// aliases from the settings screen of older installs
var aliases = map[string]Range{
	"2 ore":  Range2Hour,
	"12 ore": Range12Hour,
	"5m":     Range5Min,
	"30m":    Range30Min,
	"2h":     Range2Hour,
	"12h":    Range12Hour,
}

// Resolve maps a label to its range. Unknown labels resolve to DefaultRange
// and ok reports false.
func Resolve(label string) (r Range, ok bool) {
	key := strings.ToLower(strings.TrimSpace(label))
	for _, r := range ranges {
		if r.Label == key {
			return r, true
		}
	}
	if r, found := aliases[key]; found {
		return r, true
	}
	return DefaultRange, false
}

// Labels lists the canonical labels, shortest first
func Labels() []string {
	labels := make([]string, len(ranges))
	for i, r := range ranges {
		labels[i] = r.Label
	}
	return labels
}

// Rows is the number of samples the range covers at the given nominal
// sampling period. A non-positive period means one second.
func (r Range) Rows(period time.Duration) int {
	if period <= 0 {
		period = time.Second
	}
	return int(r.Duration / period)
}

// Since returns the wall-clock cutoff of the range ending at now
func (r Range) Since(now time.Time) time.Time {
	return now.Add(-r.Duration)
}

func (r Range) String() string {
	return r.Label
}
