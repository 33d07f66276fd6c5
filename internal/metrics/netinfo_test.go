package metrics

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v4/net"
)

func stubCommand(t *testing.T, fn func(name string, args ...string) ([]byte, error)) {
	t.Helper()
	orig := runCommand
	runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return fn(name, args...)
	}
	t.Cleanup(func() { runCommand = orig })
}

func TestNmcliProvider_Wifi(t *testing.T) {
	stubCommand(t, func(name string, args ...string) ([]byte, error) {
		if args[len(args)-1] == "wifi" {
			return []byte(" :35\n*:72\n :10\n"), nil
		}
		return []byte("lo:loopback:unmanaged\nwlan0:wifi:connected\neth0:ethernet:unavailable\n"), nil
	})

	info, err := NmcliProvider{}.Lookup(context.Background())
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if info.Device != "wlan0" || info.Type != "wifi" {
		t.Errorf("Unexpected device %+v", info)
	}
	if !info.HasSignal || info.Signal != 72 {
		t.Errorf("Expected signal 72, got %+v", info)
	}
	if info.SignalBars() != 3 {
		t.Errorf("Expected 3 bars at 72%%, got %d", info.SignalBars())
	}
}

func TestNmcliProvider_Ethernet(t *testing.T) {
	calls := 0
	stubCommand(t, func(name string, args ...string) ([]byte, error) {
		calls++
		return []byte("eth0:ethernet:connected (externally)\n"), nil
	})

	info, err := NmcliProvider{}.Lookup(context.Background())
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if info.Type != "ethernet" || info.State != NetStateConnected {
		t.Errorf("Unexpected info %+v", info)
	}
	if info.HasSignal {
		t.Error("Ethernet should not report signal")
	}
	if calls != 1 {
		t.Errorf("Signal lookup should be skipped for ethernet, got %d calls", calls)
	}
}

func TestNmcliProvider_Offline(t *testing.T) {
	stubCommand(t, func(name string, args ...string) ([]byte, error) {
		return []byte("lo:loopback:unmanaged\nwlan0:wifi:disconnected\n"), nil
	})

	info, err := NmcliProvider{}.Lookup(context.Background())
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if info.State != NetStateOffline {
		t.Errorf("Expected offline, got %s", info.State)
	}
}

func TestLookupNetworkInfo_CommandFailureDegrades(t *testing.T) {
	stubCommand(t, func(name string, args ...string) ([]byte, error) {
		return nil, errors.New("exit status 8")
	})

	info, err := LookupNetworkInfo(context.Background(), NmcliProvider{}, time.Second)
	var cmdErr *ExternalCommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("Expected ExternalCommandError, got %v", err)
	}
	if !strings.Contains(cmdErr.Error(), "nmcli") {
		t.Errorf("Error should name the command: %v", cmdErr)
	}
	if info.State != NetStateUnknown {
		t.Errorf("Expected unknown state, got %s", info.State)
	}
}

func TestLookupNetworkInfo_Timeout(t *testing.T) {
	orig := runCommand
	runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	defer func() { runCommand = orig }()

	start := time.Now()
	info, err := LookupNetworkInfo(context.Background(), NmcliProvider{}, 50*time.Millisecond)
	if err == nil {
		t.Error("Expected timeout error")
	}
	if time.Since(start) > time.Second {
		t.Error("Lookup should be bounded by the timeout")
	}
	if info.State != NetStateUnknown {
		t.Errorf("Expected unknown state, got %s", info.State)
	}
}

func TestInterfaceProvider(t *testing.T) {
	orig := readInterfaces
	defer func() { readInterfaces = orig }()

	readInterfaces = func(ctx context.Context) (net.InterfaceStatList, error) {
		return net.InterfaceStatList{
			{Name: "lo", Flags: []string{"up", "loopback"}, Addrs: net.InterfaceAddrList{{Addr: "127.0.0.1/8"}}},
			{Name: "eth0", Flags: []string{"broadcast"}},
			{Name: "wlp2s0", Flags: []string{"up", "broadcast"}, Addrs: net.InterfaceAddrList{{Addr: "192.168.1.20/24"}}},
		}, nil
	}

	info, err := InterfaceProvider{}.Lookup(context.Background())
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if info.Device != "wlp2s0" || info.Type != "wifi" {
		t.Errorf("Unexpected info %+v", info)
	}
}

func TestSignalBars(t *testing.T) {
	tests := []struct {
		signal int
		want   int
	}{
		{0, 0}, {19, 0}, {20, 1}, {59, 2}, {80, 4}, {100, 5},
	}
	for _, tt := range tests {
		info := NetworkInfo{Signal: tt.signal, HasSignal: true}
		if got := info.SignalBars(); got != tt.want {
			t.Errorf("SignalBars(%d) = %d, want %d", tt.signal, got, tt.want)
		}
	}

	if (NetworkInfo{Signal: 100}).SignalBars() != 0 {
		t.Error("No signal should light no bars")
	}
}
