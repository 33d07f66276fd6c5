package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"touchmon/internal/metrics"
)

var base = time.Date(2026, 1, 1, 10, 0, 0, 0, time.Local)

func at(sec int) time.Time {
	return base.Add(time.Duration(sec) * time.Second)
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "metrics.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustUpsert(t *testing.T, s *Store, sample metrics.Sample) {
	t.Helper()
	if err := s.Upsert(context.Background(), sample); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
}

func TestQueryLast_MostRecentChronological(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, cpu := range []float64{10, 20, 30} {
		mustUpsert(t, s, metrics.Sample{Timestamp: at(i + 1), CPUPercent: cpu})
	}

	got, err := s.QueryLast(ctx, 2)
	if err != nil {
		t.Fatalf("QueryLast failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 samples, got %d", len(got))
	}
	if !got[0].Timestamp.Equal(at(2)) || got[0].CPUPercent != 20 {
		t.Errorf("Expected (2,20) first, got (%s,%.0f)", got[0].Timestamp, got[0].CPUPercent)
	}
	if !got[1].Timestamp.Equal(at(3)) || got[1].CPUPercent != 30 {
		t.Errorf("Expected (3,30) second, got (%s,%.0f)", got[1].Timestamp, got[1].CPUPercent)
	}
}

func TestQueryLast_Bounds(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		mustUpsert(t, s, metrics.Sample{Timestamp: at(i), CPUPercent: float64(i)})
	}

	got, err := s.QueryLast(ctx, 300)
	if err != nil {
		t.Fatalf("QueryLast failed: %v", err)
	}
	if len(got) != 5 {
		t.Errorf("Expected all 5 samples, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if !got[i].Timestamp.After(got[i-1].Timestamp) {
			t.Errorf("Samples not chronological at %d", i)
		}
	}

	for _, n := range []int{0, -3} {
		got, err := s.QueryLast(ctx, n)
		if err != nil {
			t.Fatalf("QueryLast(%d) failed: %v", n, err)
		}
		if len(got) != 0 {
			t.Errorf("QueryLast(%d) should be empty, got %d", n, len(got))
		}
	}
}

func TestUpsert_SameTimestampReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	mustUpsert(t, s, metrics.Sample{Timestamp: at(1), CPUPercent: 10})
	mustUpsert(t, s, metrics.Sample{Timestamp: at(1).Add(400 * time.Millisecond), CPUPercent: 99})

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("Re-upserting a timestamp should not add rows, got %d", n)
	}

	got, _ := s.QueryLast(ctx, 1)
	if got[0].CPUPercent != 99 {
		t.Errorf("Later write should win, got %.0f", got[0].CPUPercent)
	}
}

func TestPruneOlderThan(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		mustUpsert(t, s, metrics.Sample{Timestamp: at(i)})
	}

	deleted, err := s.PruneOlderThan(ctx, at(4))
	if err != nil {
		t.Fatalf("PruneOlderThan failed: %v", err)
	}
	if deleted != 4 {
		t.Errorf("Expected 4 deleted (ts 0..3), got %d", deleted)
	}

	remaining, _ := s.QueryLast(ctx, 100)
	if len(remaining) != 6 || !remaining[0].Timestamp.Equal(at(4)) {
		t.Errorf("Sample at the cutoff must survive, got %d rows starting %s", len(remaining), remaining[0].Timestamp)
	}

	deleted, err = s.PruneOlderThan(ctx, at(4))
	if err != nil {
		t.Fatalf("Second prune failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("Second prune should be a no-op, deleted %d", deleted)
	}
}

func TestQuerySince(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		mustUpsert(t, s, metrics.Sample{Timestamp: at(i), CPUPercent: float64(i)})
	}

	got, err := s.QuerySince(ctx, at(7))
	if err != nil {
		t.Fatalf("QuerySince failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 samples (7,8,9), got %d", len(got))
	}
	if got[0].CPUPercent != 7 || got[2].CPUPercent != 9 {
		t.Errorf("Unexpected range %v..%v", got[0].CPUPercent, got[2].CPUPercent)
	}
}

func TestTemperatureRepresentation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	mustUpsert(t, s, metrics.Sample{Timestamp: at(1), Temperature: metrics.NoTemperature})
	mustUpsert(t, s, metrics.Sample{Timestamp: at(2), Temperature: metrics.Celsius(0)})
	mustUpsert(t, s, metrics.Sample{Timestamp: at(3), Temperature: metrics.Celsius(47.5)})

	// legacy rows: NULL and a negative sentinel
	if err := s.db.Exec("INSERT INTO metrics(ts,cpu,ram,temp,up_kb,down_kb) VALUES (?,?,?,?,?,?)",
		FormatTimestamp(at(4)), 1, 1, nil, 0, 0).Error; err != nil {
		t.Fatalf("Raw insert failed: %v", err)
	}
	if err := s.db.Exec("INSERT INTO metrics(ts,cpu,ram,temp,up_kb,down_kb) VALUES (?,?,?,?,?,?)",
		FormatTimestamp(at(5)), 1, 1, -1, 0, 0).Error; err != nil {
		t.Fatalf("Raw insert failed: %v", err)
	}

	got, err := s.QueryLast(ctx, 10)
	if err != nil {
		t.Fatalf("QueryLast failed: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("Expected 5 samples, got %d", len(got))
	}
	if got[0].Temperature.Valid {
		t.Error("Absent temperature should read back absent")
	}
	if !got[1].Temperature.Valid || got[1].Temperature.Celsius != 0 {
		t.Errorf("0 °C should read back as a valid reading, got %+v", got[1].Temperature)
	}
	if got[2].Temperature.Celsius != 47.5 {
		t.Errorf("Expected 47.5, got %+v", got[2].Temperature)
	}
	if got[3].Temperature.Valid || got[4].Temperature.Valid {
		t.Error("NULL and negative legacy values should both read as absent")
	}

	var stored float64
	s.db.Raw("SELECT temp FROM metrics WHERE ts = ?", FormatTimestamp(at(1))).Scan(&stored)
	if stored != absentTemp {
		t.Errorf("New writes should store the canonical sentinel, got %v", stored)
	}
}

func TestOpen_ExistingLegacyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	legacy, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		t.Fatalf("gorm.Open failed: %v", err)
	}
	legacy.Exec(`CREATE TABLE metrics(ts TEXT PRIMARY KEY, cpu REAL, ram REAL, temp REAL, up_kb REAL, down_kb REAL)`)
	legacy.Exec(`INSERT INTO metrics VALUES ('2026-01-01T09:59:59', 12.5, 40, NULL, 1.5, 2.5)`)
	sqlDB, _ := legacy.DB()
	sqlDB.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open on legacy db failed: %v", err)
	}
	defer s.Close()

	mustUpsert(t, s, metrics.Sample{Timestamp: base, CPUPercent: 20})

	got, err := s.QueryLast(context.Background(), 10)
	if err != nil {
		t.Fatalf("QueryLast failed: %v", err)
	}
	if len(got) != 2 || got[0].CPUPercent != 12.5 || got[0].UploadKBps != 1.5 {
		t.Errorf("Legacy row not read back correctly: %+v", got)
	}
}

func TestUpsertBatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	batch := make([]metrics.Sample, 1200)
	for i := range batch {
		batch[i] = metrics.Sample{Timestamp: at(i), CPUPercent: float64(i % 100)}
	}
	n, err := s.UpsertBatch(ctx, batch)
	if err != nil {
		t.Fatalf("UpsertBatch failed: %v", err)
	}
	if n != 1200 {
		t.Errorf("Expected 1200 written, got %d", n)
	}

	// importing the same batch again is idempotent
	if _, err := s.UpsertBatch(ctx, batch); err != nil {
		t.Fatalf("Second UpsertBatch failed: %v", err)
	}
	if count, _ := s.Count(ctx); count != 1200 {
		t.Errorf("Expected 1200 rows after re-import, got %d", count)
	}
}

func TestConcurrentWritersAndReaders(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, 64)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if err := s.Upsert(ctx, metrics.Sample{Timestamp: at(i), CPUPercent: float64(i)}); err != nil {
				errs <- err
				return
			}
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				got, err := s.QueryLast(ctx, 300)
				if err != nil {
					errs <- err
					return
				}
				for j := 1; j < len(got); j++ {
					if !got[j].Timestamp.After(got[j-1].Timestamp) {
						errs <- errors.New("unordered read")
						return
					}
				}
			}
		}()
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Concurrent access failed: %v", err)
	}

	if n, _ := s.Count(context.Background()); n != 200 {
		t.Errorf("Expected 200 rows, got %d", n)
	}
}

func TestStorageError(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "closed.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	s.Close()

	err = s.Upsert(context.Background(), metrics.Sample{Timestamp: base})
	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("Expected StorageError, got %v", err)
	}
	if storageErr.Op != "upsert" {
		t.Errorf("Expected op upsert, got %s", storageErr.Op)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2026-01-01T10:00:05", at(5)},
		{"2026-01-01T10:00:05.123456", at(5)},
		{"2026-01-01T10:00:05.999999999", at(5)},
		{at(5).Add(700 * time.Millisecond).Format(time.RFC3339Nano), at(5)},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		if err != nil {
			t.Errorf("ParseTimestamp(%q) failed: %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) || got.Nanosecond() != 0 {
			t.Errorf("ParseTimestamp(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Error("Expected error for garbage timestamp")
	}
	if FormatTimestamp(at(5)) != "2026-01-01T10:00:05" {
		t.Errorf("Unexpected format %s", FormatTimestamp(at(5)))
	}
}
