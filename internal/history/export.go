package history

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"touchmon/internal/metrics"
	"touchmon/internal/store"
)

// ErrNoData is returned when a range holds no samples. No file is written.
var ErrNoData = errors.New("no data to export")

// Header is the fixed export header
var Header = []string{"ts", "cpu", "ram", "temp", "up_kb", "down_kb"}

// absentTemp matches the value the store writes for a missing reading
const absentTemp = "-1"

// Export writes samples as comma-delimited rows under Header. Samples are
// expected oldest first.
func Export(w io.Writer, samples []metrics.Sample) error {
	if len(samples) == 0 {
		return ErrNoData
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, s := range samples {
		if err := cw.Write(record(s)); err != nil {
			return fmt.Errorf("failed to write row %s: %w", store.FormatTimestamp(s.Timestamp), err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportToDir writes samples to a new timestamped file in dir and returns
// its path. The file appears only once fully written. An existing export
// is never replaced: a second export in the same second gets a _2, _3...
// suffix.
func ExportToDir(dir string, samples []metrics.Sample, now time.Time) (string, error) {
	if len(samples) == 0 {
		return "", ErrNoData
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create exports directory: %w", err)
	}

	path, err := reserveName(dir, now)
	if err != nil {
		return "", err
	}
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	if err := Export(f, samples); err != nil {
		f.Close()
		os.Remove(tmp)
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		os.Remove(path)
		return "", fmt.Errorf("failed to close export file: %w", err)
	}
	// replaces only the empty placeholder this call created
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		os.Remove(path)
		return "", fmt.Errorf("failed to finalize export file: %w", err)
	}
	return path, nil
}

const maxNameAttempts = 100

// reserveName claims a free export name in dir by creating it empty with
// O_EXCL
func reserveName(dir string, now time.Time) (string, error) {
	name := FileName(now)
	stem := strings.TrimSuffix(name, ".csv")
	for i := 1; i <= maxNameAttempts; i++ {
		if i > 1 {
			name = fmt.Sprintf("%s_%d.csv", stem, i)
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			f.Close()
			return path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("failed to create export file: %w", err)
		}
	}
	return "", fmt.Errorf("no free export name for %s in %s", stem, dir)
}

// FileName returns the export file name for an export taken at now
func FileName(now time.Time) string {
	return "touchmon_" + now.Format("20060102_150405") + ".csv"
}

// ReadCSV parses an export back into samples. A blank or negative temp
// reads as absent.
func ReadCSV(r io.Reader) ([]metrics.Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoData
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i, col := range Header {
		if head[i] != col {
			return nil, fmt.Errorf("unexpected column %q at position %d, want %q", head[i], i+1, col)
		}
	}

	var samples []metrics.Sample
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		s, err := parseRecord(rec)
		if err != nil {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func record(s metrics.Sample) []string {
	temp := absentTemp
	if s.Temperature.Valid {
		temp = formatFloat(s.Temperature.Celsius)
	}
	return []string{
		store.FormatTimestamp(s.Timestamp),
		formatFloat(s.CPUPercent),
		formatFloat(s.RAMPercent),
		temp,
		formatFloat(s.UploadKBps),
		formatFloat(s.DownloadKBps),
	}
}

func parseRecord(rec []string) (metrics.Sample, error) {
	ts, err := store.ParseTimestamp(rec[0])
	if err != nil {
		return metrics.Sample{}, err
	}

	values := make([]float64, 5)
	for i, field := range rec[1:] {
		if i == 2 && field == "" {
			values[i] = -1
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return metrics.Sample{}, fmt.Errorf("invalid %s value %q", Header[i+1], field)
		}
		values[i] = v
	}

	temp := metrics.NoTemperature
	if values[2] >= 0 {
		temp = metrics.Celsius(values[2])
	}

	return metrics.Sample{
		Timestamp:    ts,
		CPUPercent:   values[0],
		RAMPercent:   values[1],
		Temperature:  temp,
		UploadKBps:   values[3],
		DownloadKBps: values[4],
	}, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
