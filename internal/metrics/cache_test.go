package metrics

import (
	"path/filepath"
	"testing"
	"time"
)

func useTempSnapshot(t *testing.T) {
	t.Helper()
	orig := snapshotFile
	snapshotFile = filepath.Join(t.TempDir(), "snapshot.cbor")
	t.Cleanup(func() { snapshotFile = orig })
}

func TestSnapshot_SaveLoad(t *testing.T) {
	useTempSnapshot(t)

	ts := time.Date(2026, 5, 4, 8, 30, 15, 0, time.Local)
	in := LiveSnapshot{
		Sample: Sample{
			Timestamp:   ts,
			CPUPercent:  12.5,
			RAMPercent:  40,
			Temperature: Celsius(48),
			UploadKBps:  3.25,
		},
		Network:        NetworkInfo{Device: "wlan0", Type: "wifi", Signal: 64, HasSignal: true, State: NetStateConnected},
		SamplesWritten: 120,
		PID:            4242,
	}
	if err := SaveSnapshot(in); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	out, fresh := LoadSnapshot()
	if !fresh {
		t.Fatal("Snapshot should be fresh right after saving")
	}
	if !out.Sample.Timestamp.Equal(ts) {
		t.Errorf("Timestamp mismatch: %s vs %s", out.Sample.Timestamp, ts)
	}
	if out.Sample.Temperature != Celsius(48) {
		t.Errorf("Temperature mismatch: %+v", out.Sample.Temperature)
	}
	if out.Network.Device != "wlan0" || out.Network.SignalBars() != 3 {
		t.Errorf("Network mismatch: %+v", out.Network)
	}
	if out.SamplesWritten != 120 || out.PID != 4242 {
		t.Errorf("Counters mismatch: %+v", out)
	}
}

func TestSnapshot_Stale(t *testing.T) {
	useTempSnapshot(t)

	if err := SaveSnapshot(LiveSnapshot{WrittenAt: time.Now().Add(-time.Minute)}); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if _, fresh := LoadSnapshot(); fresh {
		t.Error("A minute-old snapshot should be stale")
	}
}

func TestSnapshot_MissingAndClear(t *testing.T) {
	useTempSnapshot(t)

	if s, fresh := LoadSnapshot(); s != nil || fresh {
		t.Error("Missing snapshot should load as nil")
	}
	if err := ClearSnapshot(); err != nil {
		t.Errorf("Clearing a missing snapshot should not fail: %v", err)
	}

	SaveSnapshot(LiveSnapshot{})
	if err := ClearSnapshot(); err != nil {
		t.Fatalf("ClearSnapshot failed: %v", err)
	}
	if s, _ := LoadSnapshot(); s != nil {
		t.Error("Snapshot should be gone after clear")
	}
}
