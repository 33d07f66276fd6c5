package metrics

import (
	"os"
	"sync"
	"time"

	constants "touchmon/config"
	"touchmon/internal/encoding"
)

const cacheMaxAge = constants.SNAPSHOT_MAX_AGE_SEC * time.Second

var (
	cacheMutex sync.RWMutex

	// snapshotFile is a variable to allow override in tests
	snapshotFile = constants.SNAPSHOT_FILE
)

// LiveSnapshot is what the running daemon publishes for `status`
type LiveSnapshot struct {
	Sample         Sample      `cbor:"sample"`
	Network        NetworkInfo `cbor:"network"`
	SamplesWritten uint64      `cbor:"written"`
	StorageErrors  uint64      `cbor:"storage_errors"`
	PID            int         `cbor:"pid"`
	WrittenAt      time.Time   `cbor:"written_at"`
}

// SaveSnapshot writes the snapshot atomically
func SaveSnapshot(s LiveSnapshot) error {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()

	if s.WrittenAt.IsZero() {
		s.WrittenAt = time.Now()
	}
	return encoding.WriteCBORFile(snapshotFile, s)
}

// LoadSnapshot returns the snapshot and true if it is fresh (< 30 seconds old)
func LoadSnapshot() (*LiveSnapshot, bool) {
	cacheMutex.RLock()
	defer cacheMutex.RUnlock()

	var s LiveSnapshot
	if err := encoding.ReadCBORFile(snapshotFile, &s); err != nil {
		return nil, false
	}

	if time.Since(s.WrittenAt) > cacheMaxAge {
		return &s, false
	}
	return &s, true
}

// ClearSnapshot removes the snapshot file
func ClearSnapshot() error {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()

	if err := os.Remove(snapshotFile); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// SnapshotFilePath returns the snapshot file path
func SnapshotFilePath() string {
	return snapshotFile
}
