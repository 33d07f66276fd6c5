package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"touchmon/internal/history"
	"touchmon/internal/metrics"
	"touchmon/internal/scheduler"
)

type fakeController struct {
	ch        chan scheduler.Snapshot
	selected  []history.Range
	selectErr error

	exportPath string
	exportErr  error
	exported   []string
}

func newFakeController() *fakeController {
	return &fakeController{ch: make(chan scheduler.Snapshot, 1)}
}

func (f *fakeController) Snapshots() <-chan scheduler.Snapshot { return f.ch }

func (f *fakeController) Last() scheduler.Snapshot {
	return scheduler.Snapshot{Range: history.DefaultRange}
}

func (f *fakeController) SelectRange(r history.Range) error {
	if f.selectErr != nil {
		return f.selectErr
	}
	f.selected = append(f.selected, r)
	return nil
}

func (f *fakeController) Export(ctx context.Context, label, dir string) (string, error) {
	f.exported = append(f.exported, label)
	return f.exportPath, f.exportErr
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m DashboardModel, msg tea.Msg) (DashboardModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	dm, ok := next.(DashboardModel)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return dm, cmd
}

// runExport executes the export command inside the batch returned for "e"
func runExport(t *testing.T, cmd tea.Cmd) exportDoneMsg {
	t.Helper()
	if cmd == nil {
		t.Fatal("Expected a command")
	}
	batch, ok := cmd().(tea.BatchMsg)
	if !ok {
		t.Fatal("Expected a batch")
	}
	for _, c := range batch {
		if done, ok := c().(exportDoneMsg); ok {
			return done
		}
	}
	t.Fatal("No export command in batch")
	return exportDoneMsg{}
}

func TestDashboard_Snapshot(t *testing.T) {
	ctrl := newFakeController()
	m := NewDashboard(context.Background(), ctrl, t.TempDir())

	if !strings.Contains(m.View(), "Waiting for the first sample") {
		t.Error("Expected waiting message before the first snapshot")
	}

	latest := metrics.Sample{
		Timestamp:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local),
		CPUPercent: 42, RAMPercent: 61,
		Temperature: metrics.NoTemperature,
		UploadKBps:  3, DownloadKBps: 2048,
	}
	snap := scheduler.Snapshot{
		Range:     history.Range5Min,
		Samples:   []metrics.Sample{latest},
		Summary:   metrics.Summarize([]metrics.Sample{latest}),
		Latest:    latest,
		HasLatest: true,
		Network:   metrics.NetworkInfo{Device: "wlan0", Type: "wifi", Signal: 70, HasSignal: true, State: metrics.NetStateConnected},
	}

	m, cmd := update(t, m, snapshotMsg(snap))
	if cmd == nil {
		t.Error("Expected the model to keep listening for snapshots")
	}

	view := m.View()
	for _, want := range []string{"42.0%", "n/a", "2.00 MB/s", "wlan0 (wifi)", "1 samples"} {
		if !strings.Contains(view, want) {
			t.Errorf("View missing %q", want)
		}
	}
}

func TestDashboard_RangeKeys(t *testing.T) {
	ctrl := newFakeController()
	m := NewDashboard(context.Background(), ctrl, t.TempDir())

	m, _ = update(t, m, keyMsg("2"))
	m, _ = update(t, m, keyMsg("tab"))
	m, _ = update(t, m, keyMsg("2")) // back to 30 min
	m, _ = update(t, m, keyMsg("2")) // unchanged, not re-selected

	want := []history.Range{history.Range30Min, history.Range2Hour, history.Range30Min}
	if len(ctrl.selected) != len(want) {
		t.Fatalf("Expected %d selections, got %v", len(want), ctrl.selected)
	}
	for i := range want {
		if ctrl.selected[i] != want[i] {
			t.Errorf("Selection %d: got %s, want %s", i, ctrl.selected[i], want[i])
		}
	}
	if m.rng != history.Range30Min {
		t.Errorf("Expected current range 30 min, got %s", m.rng)
	}

	ctrl.selectErr = errors.New("closed")
	m, _ = update(t, m, keyMsg("4"))
	if m.rng != history.Range30Min || m.kind != "error" {
		t.Errorf("Failed selection should keep the range and show an error, got %s %q", m.rng, m.status)
	}
}

func TestDashboard_Export(t *testing.T) {
	ctrl := newFakeController()
	ctrl.exportPath = "/tmp/touchmon_20240501_120000.csv"
	m := NewDashboard(context.Background(), ctrl, t.TempDir())

	m, cmd := update(t, m, keyMsg("e"))
	if !m.exporting {
		t.Fatal("Expected exporting state")
	}
	if !strings.Contains(m.View(), "Exporting 5 min") {
		t.Error("Expected spinner line while exporting")
	}

	// a second press while busy is ignored
	if _, again := update(t, m, keyMsg("e")); again != nil {
		t.Error("Expected no command while an export is running")
	}

	done := runExport(t, cmd)
	m, _ = update(t, m, done)
	if m.exporting || m.kind != "success" || !strings.Contains(m.status, ctrl.exportPath) {
		t.Errorf("Unexpected state after export: exporting=%v %s %q", m.exporting, m.kind, m.status)
	}
	if len(ctrl.exported) != 1 || ctrl.exported[0] != "5 min" {
		t.Errorf("Unexpected export calls %v", ctrl.exported)
	}
}

func TestDashboard_ExportNoData(t *testing.T) {
	ctrl := newFakeController()
	ctrl.exportErr = history.ErrNoData
	m := NewDashboard(context.Background(), ctrl, t.TempDir())

	m, cmd := update(t, m, keyMsg("e"))
	m, _ = update(t, m, runExport(t, cmd))
	if m.kind != "warning" || !strings.Contains(m.View(), "No data to export") {
		t.Errorf("Expected no-data warning, got %s %q", m.kind, m.status)
	}
}

func TestDashboard_Quit(t *testing.T) {
	m := NewDashboard(context.Background(), newFakeController(), t.TempDir())

	for _, key := range []string{"q", "ctrl+c"} {
		_, cmd := update(t, m, keyMsg(key))
		if cmd == nil {
			t.Fatalf("Expected quit command for %s", key)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("Expected QuitMsg for %s", key)
		}
	}
}

func TestDashboard_SubscriptionEndsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewDashboard(ctx, newFakeController(), t.TempDir())
	cancel()

	if _, ok := m.Init()().(tea.QuitMsg); !ok {
		t.Error("Expected the subscription to quit once the context is done")
	}
}
