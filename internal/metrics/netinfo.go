package metrics

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/net"
)

// NetState is the connectivity state shown next to the interface name
type NetState string

const (
	NetStateConnected NetState = "connected"
	NetStateOffline   NetState = "offline"
	NetStateUnknown   NetState = "unknown"
)

// NetworkInfo identifies the active network interface
type NetworkInfo struct {
	Device    string   `cbor:"device"`
	Type      string   `cbor:"type"` // wifi, ethernet, ...
	Signal    int      `cbor:"signal"`
	HasSignal bool     `cbor:"has_signal"` // only Wi-Fi reports signal
	State     NetState `cbor:"state"`
}

// SignalBars maps a 0-100 signal to 0-5 bars; bar i is lit at (i+1)*20
func (n NetworkInfo) SignalBars() int {
	if !n.HasSignal {
		return 0
	}
	bars := 0
	for i := 0; i < 5; i++ {
		if n.Signal >= (i+1)*20 {
			bars++
		}
	}
	return bars
}

// ExternalCommandError wraps a failed OS command used for interface lookup
type ExternalCommandError struct {
	Command string
	Err     error
}

func (e *ExternalCommandError) Error() string {
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *ExternalCommandError) Unwrap() error {
	return e.Err
}

// NetInfoProvider looks up the active network interface
type NetInfoProvider interface {
	Lookup(ctx context.Context) (NetworkInfo, error)
}

// runCommand is a variable to allow override in tests
var runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// readInterfaces is a variable to allow override in tests
var readInterfaces = func(ctx context.Context) (net.InterfaceStatList, error) {
	return net.InterfacesWithContext(ctx)
}

// NewNetInfoProvider returns the nmcli provider when NetworkManager is
// installed and the interface-list provider otherwise
func NewNetInfoProvider() NetInfoProvider {
	if _, err := exec.LookPath("nmcli"); err == nil {
		return NmcliProvider{}
	}
	return InterfaceProvider{}
}

// LookupNetworkInfo bounds the lookup by timeout and degrades any failure
// to NetStateUnknown. The error is returned for logging only.
func LookupNetworkInfo(ctx context.Context, p NetInfoProvider, timeout time.Duration) (NetworkInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	info, err := p.Lookup(ctx)
	if err != nil {
		return NetworkInfo{State: NetStateUnknown}, err
	}
	return info, nil
}

// NmcliProvider reads interface identity from NetworkManager
type NmcliProvider struct{}

func (NmcliProvider) Lookup(ctx context.Context) (NetworkInfo, error) {
	out, err := runCommand(ctx, "nmcli", "-t", "-f", "DEVICE,TYPE,STATE", "device")
	if err != nil {
		return NetworkInfo{}, &ExternalCommandError{Command: "nmcli device", Err: err}
	}

	info, ok := parseNmcliDevices(string(out))
	if !ok {
		return NetworkInfo{State: NetStateOffline}, nil
	}

	if info.Type == "wifi" {
		out, err := runCommand(ctx, "nmcli", "-t", "-f", "IN-USE,SIGNAL", "device", "wifi")
		if err != nil {
			// interface identity is still good without signal
			return info, nil
		}
		if signal, ok := parseNmcliSignal(string(out)); ok {
			info.Signal = signal
			info.HasSignal = true
		}
	}
	return info, nil
}

// parseNmcliDevices picks the first connected non-loopback device from
// `nmcli -t -f DEVICE,TYPE,STATE device`
func parseNmcliDevices(out string) (NetworkInfo, bool) {
	for _, line := range strings.Split(out, "\n") {
		parts := strings.SplitN(strings.TrimSpace(line), ":", 3)
		if len(parts) != 3 {
			continue
		}
		device, kind, state := parts[0], parts[1], parts[2]
		if kind == "loopback" || !strings.HasPrefix(state, "connected") {
			continue
		}
		return NetworkInfo{Device: device, Type: kind, State: NetStateConnected}, true
	}
	return NetworkInfo{}, false
}

// parseNmcliSignal returns the signal of the in-use access point from
// `nmcli -t -f IN-USE,SIGNAL device wifi`
func parseNmcliSignal(out string) (int, bool) {
	for _, line := range strings.Split(out, "\n") {
		parts := strings.SplitN(strings.TrimSpace(line), ":", 2)
		if len(parts) != 2 || parts[0] != "*" {
			continue
		}
		signal, err := strconv.Atoi(parts[1])
		if err != nil {
			return 0, false
		}
		if signal < 0 {
			signal = 0
		} else if signal > 100 {
			signal = 100
		}
		return signal, true
	}
	return 0, false
}

// InterfaceProvider names the first up non-loopback interface that has an
// address. It cannot report Wi-Fi signal.
type InterfaceProvider struct{}

func (InterfaceProvider) Lookup(ctx context.Context) (NetworkInfo, error) {
	ifaces, err := readInterfaces(ctx)
	if err != nil {
		return NetworkInfo{}, &ExternalCommandError{Command: "list interfaces", Err: err}
	}

	for _, iface := range ifaces {
		if !hasFlag(iface.Flags, "up") || hasFlag(iface.Flags, "loopback") || len(iface.Addrs) == 0 {
			continue
		}
		return NetworkInfo{
			Device: iface.Name,
			Type:   interfaceType(iface.Name),
			State:  NetStateConnected,
		}, nil
	}
	return NetworkInfo{State: NetStateOffline}, nil
}

func hasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}

func interfaceType(name string) string {
	switch {
	case strings.HasPrefix(name, "wl"):
		return "wifi"
	case strings.HasPrefix(name, "en"), strings.HasPrefix(name, "eth"):
		return "ethernet"
	default:
		return "other"
	}
}
