//go:build !windows
// +build !windows

package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	constants "touchmon/config"
	"touchmon/internal/logger"
)

// ErrAlreadyRunning is returned when another process owns the store
var ErrAlreadyRunning = errors.New("another touchmon instance is already running")

// LockFile is an exclusive flock on the PID file. Holding it makes the
// process the single writer of the metrics store.
type LockFile struct {
	path string
	fd   int
}

// getPIDFilePath returns the PID file path for the OS
// Variable (not function) to allow override in tests
var getPIDFilePath = func() string {
	if runtime.GOOS == "linux" {
		if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
			return filepath.Join(runtimeDir, constants.PID_FILE_NAME)
		}

		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, ".local", "run", constants.PID_FILE_NAME)
		}

		return fmt.Sprintf("/tmp/touchmon-%d.pid", os.Getuid())
	}

	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Library", "Application Support", "touchmon", constants.PID_FILE_NAME)
	}
	return filepath.Join(os.TempDir(), constants.PID_FILE_NAME)
}

// PIDFilePath returns the lock file location
func PIDFilePath() string {
	return getPIDFilePath()
}

// Acquire creates and locks the PID file.
// Returns ErrAlreadyRunning if another instance holds it.
func Acquire() (*LockFile, error) {
	return acquire(true)
}

func acquire(retryStale bool) (*LockFile, error) {
	pidFile := getPIDFilePath()

	if err := os.MkdirAll(filepath.Dir(pidFile), 0755); err != nil {
		return nil, fmt.Errorf("failed to create PID directory: %w", err)
	}

	// don't truncate before the lock is ours
	fd, err := syscall.Open(pidFile, syscall.O_RDWR|syscall.O_CREAT, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open PID file: %w", err)
	}

	if err := syscall.Flock(fd, syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		syscall.Close(fd)

		if retryStale {
			if stale, stalePID := checkStaleLock(pidFile); stale {
				logger.Info("Cleaning up stale PID file (process %d no longer exists)", stalePID)
				os.Remove(pidFile)
				return acquire(false)
			}
		}
		return nil, ErrAlreadyRunning
	}

	if err := syscall.Ftruncate(fd, 0); err != nil {
		syscall.Flock(fd, syscall.LOCK_UN)
		syscall.Close(fd)
		return nil, fmt.Errorf("failed to truncate PID file: %w", err)
	}

	pid := fmt.Sprintf("%d\n", os.Getpid())
	if _, err := syscall.Write(fd, []byte(pid)); err != nil {
		syscall.Flock(fd, syscall.LOCK_UN)
		syscall.Close(fd)
		return nil, fmt.Errorf("failed to write PID: %w", err)
	}

	logger.Debug("Acquired PID file lock: %s (PID: %d)", pidFile, os.Getpid())

	// fd stays open for as long as the lock is held
	return &LockFile{path: pidFile, fd: fd}, nil
}

// Path returns the locked file
func (lf *LockFile) Path() string {
	return lf.path
}

// Release releases the lock and removes the PID file
func (lf *LockFile) Release() error {
	if lf == nil || lf.fd <= 0 {
		return nil
	}

	logger.Debug("Releasing PID file lock: %s", lf.path)

	syscall.Flock(lf.fd, syscall.LOCK_UN)
	syscall.Close(lf.fd)
	os.Remove(lf.path)

	lf.fd = 0
	return nil
}

// Check reports whether another instance holds the lock and its PID
func Check() (bool, int, error) {
	pidFile := getPIDFilePath()

	fd, err := syscall.Open(pidFile, syscall.O_RDONLY, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("failed to open PID file: %w", err)
	}
	defer syscall.Close(fd)

	if err := syscall.Flock(fd, syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		return true, readPIDFromFd(fd), nil
	}

	// nobody holds it
	syscall.Flock(fd, syscall.LOCK_UN)
	return false, 0, nil
}

// checkStaleLock reports whether the PID file is unlocked, with the PID it names
func checkStaleLock(pidFile string) (bool, int) {
	fd, err := syscall.Open(pidFile, syscall.O_RDONLY, 0)
	if err != nil {
		return false, 0
	}
	defer syscall.Close(fd)

	if err := syscall.Flock(fd, syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		return false, 0
	}
	syscall.Flock(fd, syscall.LOCK_UN)

	return true, readPIDFromFd(fd)
}

func readPIDFromFd(fd int) int {
	buf := make([]byte, 32)
	n, err := syscall.Read(fd, buf)
	if err != nil || n == 0 {
		return 0
	}

	var pid int
	fmt.Sscanf(string(buf[:n]), "%d", &pid)
	return pid
}

// readCmdline is a variable to allow override in tests
var readCmdline = func(pid int) (string, error) {
	if runtime.GOOS == "linux" {
		data, err := os.ReadFile(fmt.Sprintf("/proc/%d/cmdline", pid))
		if err != nil {
			return "", err
		}
		return strings.ReplaceAll(string(data), "\x00", " "), nil
	}
	out, err := exec.Command("ps", "-p", fmt.Sprintf("%d", pid), "-o", "command=").Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// IsTouchmonProcess verifies that pid is a touchmon process that owns the
// store, guarding against PID reuse
func IsTouchmonProcess(pid int) bool {
	if pid <= 0 {
		return false
	}
	cmdline, err := readCmdline(pid)
	if err != nil {
		return false
	}
	cmdline = strings.ToLower(cmdline)
	return strings.Contains(cmdline, "touchmon") &&
		(strings.Contains(cmdline, "daemon") || strings.Contains(cmdline, "dashboard"))
}

// CleanupStale removes a PID file left behind by a dead or unrelated process
func CleanupStale() error {
	pidFile := getPIDFilePath()

	running, pid, err := Check()
	if err != nil {
		return err
	}
	if !running {
		os.Remove(pidFile)
		return nil
	}

	if !IsTouchmonProcess(pid) {
		logger.Info("PID file names non-touchmon process %d, cleaning up", pid)
		os.Remove(pidFile)
		return nil
	}

	return fmt.Errorf("touchmon is running (PID %d)", pid)
}
