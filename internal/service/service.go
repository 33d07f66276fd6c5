//go:build !windows
// +build !windows

package service

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/okzk/sdnotify"
	"github.com/takama/daemon"

	"touchmon/internal/logger"
)

const (
	serviceName        = "touchmon"
	serviceDescription = "touchmon host telemetry sampler"

	// arguments the unit passes back to the binary
	daemonArg = "daemon"
)

// Service manages the touchmon unit through systemd or launchd
type Service struct {
	daemon daemon.Daemon
	kind   daemon.Kind
}

// New picks a system daemon for root and a per-user agent otherwise
func New() (*Service, error) {
	kind := daemon.UserAgent
	if os.Geteuid() == 0 {
		kind = daemon.SystemDaemon
	}

	d, err := daemon.New(serviceName, serviceDescription, kind)
	if err != nil {
		return nil, fmt.Errorf("service manager unavailable: %w", err)
	}
	return &Service{daemon: d, kind: kind}, nil
}

// System reports whether the unit is installed system-wide
func (s *Service) System() bool {
	return s.kind == daemon.SystemDaemon
}

func (s *Service) do(verb string, fn func() (string, error)) (string, error) {
	status, err := fn()
	if err != nil {
		logger.Warning("Service %s failed: %v", verb, err)
		return status, err
	}
	logger.Info("Service %s: %s", verb, strings.TrimSpace(status))
	return status, nil
}

// Install writes the unit running "touchmon daemon"
func (s *Service) Install() (string, error) {
	return s.do("install", func() (string, error) { return s.daemon.Install(daemonArg) })
}

func (s *Service) Remove() (string, error) { return s.do("remove", s.daemon.Remove) }

func (s *Service) Start() (string, error) { return s.do("start", s.daemon.Start) }

func (s *Service) Stop() (string, error) { return s.do("stop", s.daemon.Stop) }

// Status returns the service manager's own status line
func (s *Service) Status() (string, error) {
	return s.daemon.Status()
}

// IsRunning is true when the unit is active
func (s *Service) IsRunning() bool {
	status, err := s.daemon.Status()
	return err == nil && strings.Contains(strings.ToLower(status), "running")
}

// sd_notify only means something under systemd
func notify(send func() error, what string) {
	if runtime.GOOS != "linux" {
		return
	}
	if err := send(); err != nil && err != sdnotify.ErrSdNotifyNoSocket {
		logger.Debug("sd_notify %s: %v", what, err)
	}
}

// NotifyReady is sent once the first sample has been stored
func NotifyReady() { notify(sdnotify.Ready, "READY") }

func NotifyReloading() { notify(sdnotify.Reloading, "RELOADING") }

func NotifyStopping() { notify(sdnotify.Stopping, "STOPPING") }

func NotifyWatchdog() { notify(sdnotify.Watchdog, "WATCHDOG") }

// NotifyStatus shows a one-line status in systemctl output
func NotifyStatus(status string) {
	notify(func() error { return sdnotify.Status(status) }, "STATUS")
}
