//go:build !windows
// +build !windows

package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"touchmon/internal/logger"
)

// ErrNotRunning is returned by StopProcess when no daemon holds the lock
var ErrNotRunning = errors.New("touchmon is not running")

const (
	stopTimeout  = 10 * time.Second
	startTimeout = 5 * time.Second
	pollInterval = 100 * time.Millisecond
)

// executable is a variable to allow override in tests
var executable = os.Executable

// IsRunning reports whether a daemon currently owns the store
func IsRunning() bool {
	running, _, err := Check()
	return err == nil && running
}

// RunningPID returns the PID of the lock holder, or 0
func RunningPID() int {
	running, pid, err := Check()
	if err != nil || !running {
		return 0
	}
	return pid
}

// StartProcess launches "touchmon daemon" detached from the terminal and
// waits until it holds the lock
func StartProcess() (int, error) {
	if running, pid, _ := Check(); running {
		return pid, ErrAlreadyRunning
	}

	exe, err := executable()
	if err != nil {
		return 0, fmt.Errorf("failed to locate executable: %w", err)
	}

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", os.DevNull, err)
	}
	defer devNull.Close()

	cmd := exec.Command(exe, "daemon")
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start daemon: %w", err)
	}
	pid := cmd.Process.Pid
	// the child is reparented; don't leave a zombie if it dies early
	go cmd.Wait()

	deadline := time.Now().Add(startTimeout)
	for time.Now().Before(deadline) {
		if running, lockPID, _ := Check(); running {
			logger.Info("Daemon started (PID %d)", lockPID)
			return lockPID, nil
		}
		if !alive(pid) {
			return 0, fmt.Errorf("daemon exited during startup, see the log file")
		}
		time.Sleep(pollInterval)
	}
	return pid, fmt.Errorf("daemon (PID %d) did not take the lock within %s", pid, startTimeout)
}

// StopProcess sends SIGTERM to the daemon and waits for it to release the
// lock, killing it if it does not exit in time
func StopProcess() error {
	running, pid, err := Check()
	if err != nil {
		return err
	}
	if !running || pid <= 0 {
		return ErrNotRunning
	}
	if !IsTouchmonProcess(pid) {
		return fmt.Errorf("PID %d holds the lock but is not a touchmon daemon", pid)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to signal PID %d: %w", pid, err)
	}

	if waitReleased(stopTimeout) {
		logger.Info("Daemon stopped (PID %d)", pid)
		return nil
	}

	logger.Warning("Daemon (PID %d) ignored SIGTERM, killing", pid)
	if err := proc.Kill(); err != nil {
		return fmt.Errorf("failed to kill PID %d: %w", pid, err)
	}
	waitReleased(time.Second)
	CleanupStale()
	return nil
}

// RestartProcess stops the daemon if it runs and starts a new one
func RestartProcess() (int, error) {
	if err := StopProcess(); err != nil && !errors.Is(err, ErrNotRunning) {
		return 0, err
	}
	return StartProcess()
}

// SignalReload asks the running daemon to re-read its settings
func SignalReload() error {
	pid := RunningPID()
	if pid == 0 {
		return ErrNotRunning
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(syscall.SIGHUP)
}

func waitReleased(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !IsRunning() {
			return true
		}
		time.Sleep(pollInterval)
	}
	return !IsRunning()
}

func alive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
