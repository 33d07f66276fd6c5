package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"touchmon/internal/metrics"
)

// TimestampLayout is the on-disk key format: local wall clock, second
// resolution, no offset. Fixed width, so string order is time order.
const TimestampLayout = "2006-01-02T15:04:05"

// absentTemp is written for samples without a temperature reading.
// Reads treat NULL and any negative value as absent.
const absentTemp = -1.0

// metricRow maps the `metrics` table
type metricRow struct {
	TS     string          `gorm:"column:ts;primaryKey;type:TEXT"`
	CPU    float64         `gorm:"column:cpu;type:REAL"`
	RAM    float64         `gorm:"column:ram;type:REAL"`
	Temp   sql.NullFloat64 `gorm:"column:temp;type:REAL"`
	UpKB   float64         `gorm:"column:up_kb;type:REAL"`
	DownKB float64         `gorm:"column:down_kb;type:REAL"`
}

func (metricRow) TableName() string {
	return "metrics"
}

// Store is the time-series store. Writers (Upsert, Prune) are serialized
// against readers; readers run concurrently.
type Store struct {
	db   *gorm.DB
	path string
	mu   sync.RWMutex
}

// Open opens or creates the sqlite database at path
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &StorageError{Op: "open", Err: err}
		}
	}

	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}

	// Existing databases keep their table as is
	if !db.Migrator().HasTable(&metricRow{}) {
		if err := db.Migrator().CreateTable(&metricRow{}); err != nil {
			return nil, &StorageError{Op: "migrate", Err: err}
		}
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// Close releases the database handle
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return &StorageError{Op: "close", Err: err}
	}
	return sqlDB.Close()
}

// Upsert writes a sample keyed by its timestamp; a later write wins
func (s *Store) Upsert(ctx context.Context, sample metrics.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := toRow(sample)
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "ts"}}, UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return &StorageError{Op: "upsert", Err: err}
	}
	return nil
}

// UpsertBatch writes samples in one transaction and returns how many were written
func (s *Store) UpsertBatch(ctx context.Context, samples []metrics.Sample) (int, error) {
	if len(samples) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]metricRow, len(samples))
	for i, sample := range samples {
		rows[i] = toRow(sample)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "ts"}}, UpdateAll: true}).
			CreateInBatches(&rows, 500).Error
	})
	if err != nil {
		return 0, &StorageError{Op: "upsert batch", Err: err}
	}
	return len(rows), nil
}

// QueryLast returns the n most recent samples, oldest first
func (s *Store) QueryLast(ctx context.Context, n int) ([]metrics.Sample, error) {
	if n <= 0 {
		return []metrics.Sample{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []metricRow
	err := s.db.WithContext(ctx).Order("ts DESC").Limit(n).Find(&rows).Error
	if err != nil {
		return nil, &StorageError{Op: "query last", Err: err}
	}

	samples := make([]metrics.Sample, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		sample, err := fromRow(rows[i])
		if err != nil {
			return nil, &StorageError{Op: "query last", Err: err}
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

// QuerySince returns samples with timestamp at or after cutoff, oldest first
func (s *Store) QuerySince(ctx context.Context, cutoff time.Time) ([]metrics.Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []metricRow
	err := s.db.WithContext(ctx).
		Where("ts >= ?", FormatTimestamp(cutoff)).
		Order("ts ASC").
		Find(&rows).Error
	if err != nil {
		return nil, &StorageError{Op: "query since", Err: err}
	}

	samples := make([]metrics.Sample, 0, len(rows))
	for _, row := range rows {
		sample, err := fromRow(row)
		if err != nil {
			return nil, &StorageError{Op: "query since", Err: err}
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

// PruneOlderThan deletes samples with timestamp strictly before cutoff
func (s *Store) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.db.WithContext(ctx).Where("ts < ?", FormatTimestamp(cutoff)).Delete(&metricRow{})
	if res.Error != nil {
		return 0, &StorageError{Op: "prune", Err: res.Error}
	}
	return res.RowsAffected, nil
}

// Count returns the number of stored samples
func (s *Store) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	if err := s.db.WithContext(ctx).Model(&metricRow{}).Count(&n).Error; err != nil {
		return 0, &StorageError{Op: "count", Err: err}
	}
	return n, nil
}

// FormatTimestamp renders t as a store key
func FormatTimestamp(t time.Time) string {
	return t.In(time.Local).Format(TimestampLayout)
}

// ParseTimestamp parses a store key. Keys with fractional seconds or an
// offset, as written by older tools, are accepted too.
func ParseTimestamp(s string) (time.Time, error) {
	// time.Parse takes a fractional seconds field even when the layout has none
	if t, err := time.ParseInLocation(TimestampLayout, s, time.Local); err == nil {
		return t.Truncate(time.Second), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(time.Local).Truncate(time.Second), nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

func toRow(sample metrics.Sample) metricRow {
	temp := sql.NullFloat64{Float64: absentTemp, Valid: true}
	if sample.Temperature.Valid {
		temp.Float64 = sample.Temperature.Celsius
	}
	return metricRow{
		TS:     FormatTimestamp(sample.Timestamp),
		CPU:    sample.CPUPercent,
		RAM:    sample.RAMPercent,
		Temp:   temp,
		UpKB:   sample.UploadKBps,
		DownKB: sample.DownloadKBps,
	}
}

func fromRow(row metricRow) (metrics.Sample, error) {
	ts, err := ParseTimestamp(row.TS)
	if err != nil {
		return metrics.Sample{}, err
	}

	temp := metrics.NoTemperature
	if row.Temp.Valid && row.Temp.Float64 >= 0 {
		temp = metrics.Celsius(row.Temp.Float64)
	}

	return metrics.Sample{
		Timestamp:    ts,
		CPUPercent:   row.CPU,
		RAMPercent:   row.RAM,
		Temperature:  temp,
		UploadKBps:   row.UpKB,
		DownloadKBps: row.DownKB,
	}, nil
}
