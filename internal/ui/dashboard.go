package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"touchmon/internal/history"
	"touchmon/internal/scheduler"
)

// Controller is the part of the scheduler the dashboard drives
type Controller interface {
	Snapshots() <-chan scheduler.Snapshot
	Last() scheduler.Snapshot
	SelectRange(r history.Range) error
	Export(ctx context.Context, label, dir string) (string, error)
}

type snapshotMsg scheduler.Snapshot

type exportDoneMsg struct {
	path string
	err  error
}

// DashboardModel is the live view: latest values, range charts and export
type DashboardModel struct {
	ctx       context.Context
	ctrl      Controller
	exportDir string

	ranges []history.Range
	rng    history.Range
	snap   scheduler.Snapshot
	ready  bool

	spinner   spinner.Model
	exporting bool
	status    string
	kind      string // success, warning, error

	width  int
	height int
}

// NewDashboard creates the dashboard model. ctx bounds exports and the
// snapshot subscription.
func NewDashboard(ctx context.Context, ctrl Controller, exportDir string) DashboardModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(PrimaryColor)

	var ranges []history.Range
	for _, label := range history.Labels() {
		r, _ := history.Resolve(label)
		ranges = append(ranges, r)
	}

	last := ctrl.Last()
	return DashboardModel{
		ctx:       ctx,
		ctrl:      ctrl,
		exportDir: exportDir,
		ranges:    ranges,
		rng:       last.Range,
		snap:      last,
		spinner:   s,
		width:     DefaultWidth,
	}
}

func (m DashboardModel) Init() tea.Cmd {
	return m.waitForSnapshot()
}

func (m DashboardModel) waitForSnapshot() tea.Cmd {
	ch := m.ctrl.Snapshots()
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case snap := <-ch:
			return snapshotMsg(snap)
		case <-ctx.Done():
			return tea.Quit()
		}
	}
}

func (m DashboardModel) export() tea.Cmd {
	ctrl, ctx, label, dir := m.ctrl, m.ctx, m.rng.Label, m.exportDir
	return func() tea.Msg {
		path, err := ctrl.Export(ctx, label, dir)
		return exportDoneMsg{path: path, err: err}
	}
}

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case snapshotMsg:
		m.snap = scheduler.Snapshot(msg)
		m.ready = true
		return m, m.waitForSnapshot()

	case exportDoneMsg:
		m.exporting = false
		switch {
		case errors.Is(msg.err, history.ErrNoData):
			m.setStatus("warning", "No data to export for "+m.rng.Label)
		case msg.err != nil:
			m.setStatus("error", "Export failed: "+msg.err.Error())
		default:
			m.setStatus("success", "Exported to "+msg.path)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.exporting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m DashboardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit
	case "e":
		if m.exporting {
			return m, nil
		}
		m.exporting = true
		m.status = ""
		return m, tea.Batch(m.spinner.Tick, m.export())
	case "tab", "right", "l":
		return m.selectRange(m.rangeIndex() + 1)
	case "shift+tab", "left", "h":
		return m.selectRange(m.rangeIndex() - 1)
	}

	if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
		if i := int(key[0] - '1'); i < len(m.ranges) {
			return m.selectRange(i)
		}
	}
	return m, nil
}

func (m DashboardModel) rangeIndex() int {
	for i, r := range m.ranges {
		if r == m.rng {
			return i
		}
	}
	return 0
}

func (m DashboardModel) selectRange(i int) (tea.Model, tea.Cmd) {
	n := len(m.ranges)
	if n == 0 {
		return m, nil
	}
	i = ((i % n) + n) % n
	if m.ranges[i] == m.rng {
		return m, nil
	}
	if err := m.ctrl.SelectRange(m.ranges[i]); err != nil {
		m.setStatus("error", "Range change failed: "+err.Error())
		return m, nil
	}
	m.rng = m.ranges[i]
	m.status = ""
	return m, nil
}

func (m *DashboardModel) setStatus(kind, text string) {
	m.kind = kind
	m.status = text
}

func (m DashboardModel) View() string {
	var b strings.Builder

	title := PrimaryStyle.Render("touchmon")
	clock := MutedStyle.Render(time.Now().Format("15:04:05"))
	b.WriteString(fmt.Sprintf(" %s  %s  %s\n\n", title, clock, RenderNetwork(m.snap.Network)))

	tabs := make([]string, 0, len(m.ranges))
	for i, r := range m.ranges {
		label := fmt.Sprintf("%d %s", i+1, r.Label)
		if r == m.rng {
			tabs = append(tabs, ActiveTabStyle.Render(label))
		} else {
			tabs = append(tabs, TabStyle.Render(label))
		}
	}
	b.WriteString(" " + lipgloss.JoinHorizontal(lipgloss.Top, tabs...) + "\n\n")

	if m.snap.HasLatest {
		b.WriteString(RenderLatest(m.snap.Latest))
	} else {
		b.WriteString("  " + MutedStyle.Render("Waiting for the first sample...") + "\n")
	}
	b.WriteString("\n")

	width := m.width - 10
	if width < 10 {
		width = 10
	}
	if len(m.snap.Samples) > 0 {
		b.WriteString(RenderSparklines(m.snap.Samples, width))
		b.WriteString("\n")
		b.WriteString(RenderSummaryTable(m.snap.Summary))
	} else if m.ready {
		b.WriteString("  " + MutedStyle.Render("No samples in range") + "\n")
	}

	if m.snap.Err != nil {
		b.WriteString("\n" + RenderStatus("warning", "Chart refresh failed, showing last good data"))
	}

	b.WriteString("\n")
	switch {
	case m.exporting:
		b.WriteString("  " + m.spinner.View() + " " + WhiteStyle.Render("Exporting "+m.rng.Label+"..."))
	case m.status != "":
		b.WriteString(RenderStatus(m.kind, m.status))
	}
	b.WriteString("\n\n")
	b.WriteString("  " + MutedStyle.Render("1-4/tab range • e export • q quit"))
	return b.String()
}
