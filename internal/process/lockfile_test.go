//go:build !windows
// +build !windows

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"touchmon/internal/logger"
)

// usePIDFile points the lock at a temp file for the duration of the test
func usePIDFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test_touchmon.pid")

	original := getPIDFilePath
	getPIDFilePath = func() string { return path }
	prev := logger.SetDefault(logger.NewWithWriter(io.Discard))
	t.Cleanup(func() {
		getPIDFilePath = original
		logger.SetDefault(prev)
	})
	return path
}

func TestLockfile_SingleWriter(t *testing.T) {
	usePIDFile(t)

	lock1, err := Acquire()
	if err != nil {
		t.Fatalf("First instance failed to acquire lock: %v", err)
	}
	defer lock1.Release()

	lock2, err := Acquire()
	if err == nil {
		lock2.Release()
		t.Fatal("Second instance should not have acquired lock")
	}
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("Expected ErrAlreadyRunning, got: %v", err)
	}
	if err.Error() != "another touchmon instance is already running" {
		t.Errorf("Unexpected message %q", err.Error())
	}
}

func TestLockfile_ReleaseAndReacquire(t *testing.T) {
	path := usePIDFile(t)

	lock1, err := Acquire()
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	lock1.Release()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("PID file should be removed on release")
	}

	lock2, err := Acquire()
	if err != nil {
		t.Fatalf("Failed to reacquire lock after release: %v", err)
	}
	defer lock2.Release()

	if lock2.Path() != path {
		t.Errorf("Unexpected lock path %s", lock2.Path())
	}
}

func TestLockfile_Check(t *testing.T) {
	usePIDFile(t)

	running, pid, err := Check()
	if err != nil || running || pid != 0 {
		t.Errorf("Expected not running, got running=%v pid=%d err=%v", running, pid, err)
	}

	lock, err := Acquire()
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	defer lock.Release()

	running, pid, err = Check()
	if err != nil {
		t.Errorf("Check failed: %v", err)
	}
	if !running || pid != os.Getpid() {
		t.Errorf("Expected running with PID %d, got running=%v pid=%d", os.Getpid(), running, pid)
	}
}

func TestLockfile_ConcurrentAcquisition(t *testing.T) {
	usePIDFile(t)

	var success, failed atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			lock, err := Acquire()
			if err != nil {
				failed.Add(1)
				return
			}
			success.Add(1)
			time.Sleep(100 * time.Millisecond)
			lock.Release()
		}()
	}
	close(start)
	wg.Wait()

	if success.Load() != 1 {
		t.Errorf("Expected exactly 1 successful acquisition, got %d", success.Load())
	}
	if failed.Load() != 9 {
		t.Errorf("Expected 9 failed acquisitions, got %d", failed.Load())
	}
}

func TestLockfile_StaleFileIsTakenOver(t *testing.T) {
	path := usePIDFile(t)

	// a crashed owner leaves the file but no flock
	if err := os.WriteFile(path, []byte("99999\n"), 0644); err != nil {
		t.Fatalf("Failed to create stale PID file: %v", err)
	}

	lock, err := Acquire()
	if err != nil {
		t.Fatalf("Stale PID file should not block acquisition: %v", err)
	}
	defer lock.Release()

	content, _ := os.ReadFile(path)
	var filePID int
	fmt.Sscanf(string(content), "%d", &filePID)
	if filePID != os.Getpid() {
		t.Errorf("PID file should contain %d, got %d", os.Getpid(), filePID)
	}
}

func TestLockfile_CleanupStale(t *testing.T) {
	path := usePIDFile(t)

	os.WriteFile(path, []byte("99999\n"), 0644)
	if err := CleanupStale(); err != nil {
		t.Errorf("CleanupStale should not error on stale file: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Stale PID file should have been removed")
	}
}

func TestLockfile_MultipleReleases(t *testing.T) {
	usePIDFile(t)

	lock, err := Acquire()
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	lock.Release()
	lock.Release()

	var nilLock *LockFile
	if err := nilLock.Release(); err != nil {
		t.Errorf("Releasing a nil lock should be a no-op, got %v", err)
	}
}

func TestIsTouchmonProcess(t *testing.T) {
	original := readCmdline
	defer func() { readCmdline = original }()

	tests := []struct {
		cmdline string
		want    bool
	}{
		{"/usr/local/bin/touchmon daemon ", true},
		{"touchmon dashboard --range 2h ", true},
		{"touchmon status ", false},
		{"/usr/bin/python3 app.py ", false},
	}
	for _, tt := range tests {
		readCmdline = func(int) (string, error) { return tt.cmdline, nil }
		if got := IsTouchmonProcess(1234); got != tt.want {
			t.Errorf("IsTouchmonProcess(%q) = %v, want %v", tt.cmdline, got, tt.want)
		}
	}

	readCmdline = func(int) (string, error) { return "", errors.New("no such process") }
	if IsTouchmonProcess(1234) {
		t.Error("Unreadable process should not match")
	}
	if IsTouchmonProcess(0) {
		t.Error("PID 0 should not match")
	}
}
