package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Dark palette of the touch panel
var (
	PrimaryColor = lipgloss.Color("#4FC3F7")
	SuccessColor = lipgloss.Color("#66BB6A")
	WarningColor = lipgloss.Color("#FFCA28")
	ErrorColor   = lipgloss.Color("#EF5350")
	TextColor    = lipgloss.Color("#FFFFFF")
	SubtextColor = lipgloss.Color("#B0BEC5")
	MutedColor   = lipgloss.Color("#607D8B")
	DimColor     = lipgloss.Color("#37474F")

	// drawn on top of PrimaryColor
	BgTextColor = lipgloss.Color("#102027")
)

// One color per chart series
var (
	CPUColor      = lipgloss.Color("#4FC3F7")
	RAMColor      = lipgloss.Color("#9575CD")
	TempColor     = lipgloss.Color("#FF7043")
	UploadColor   = lipgloss.Color("#26A69A")
	DownloadColor = lipgloss.Color("#FFCA28")
)

func fg(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

var (
	BoldStyle    = lipgloss.NewStyle().Bold(true)
	PrimaryStyle = fg(PrimaryColor).Bold(true)
	SuccessStyle = fg(SuccessColor).Bold(true)
	WarningStyle = fg(WarningColor).Bold(true)
	ErrorStyle   = fg(ErrorColor).Bold(true)

	WhiteStyle = fg(TextColor)
	GrayStyle  = fg(SubtextColor)
	MutedStyle = fg(MutedColor)
	DimStyle   = fg(DimColor)

	KeyStyle       = WhiteStyle
	ValueStyle     = GrayStyle
	SeparatorStyle = MutedStyle

	ActiveTabStyle = lipgloss.NewStyle().
			Foreground(BgTextColor).
			Background(PrimaryColor).
			Bold(true).
			Padding(0, 1)

	TabStyle = GrayStyle.Padding(0, 1)
)

const (
	IconBullet = "•"
	IconUp     = "↑"
	IconDown   = "↓"

	BoxHorizontal = "─"

	ProgressFull  = "█"
	ProgressEmpty = "░"
)

// DefaultWidth is the width of section frames
const DefaultWidth = 60

// status name -> icon and style; unknown names render as info
var statusKinds = map[string]struct {
	icon  string
	style lipgloss.Style
}{
	"success": {"✓", SuccessStyle},
	"warning": {"⚠", WarningStyle},
	"error":   {"✗", ErrorStyle},
	"info":    {"ℹ", PrimaryStyle},
}

const banner = `▀█▀ █▀█ █ █ █▀▀ █ █ █▀▄▀█ █▀█ █▄ █
 █  █▄█ █▄█ █▄▄ █▀█ █ ▀ █ █▄█ █ ▀█`

func RenderBanner() string {
	return PrimaryStyle.Render(banner)
}

func RenderSubtitle() string {
	return BoldStyle.Foreground(TextColor).Render(strings.Repeat(" ", 9) + "Host Telemetry")
}

// RenderSectionStart frames a title as "┌─ title ───┐" across DefaultWidth
func RenderSectionStart(title string) string {
	fill := DefaultWidth - lipgloss.Width(title) - 3
	if fill < 0 {
		fill = 0
	}
	return PrimaryStyle.Render("┌"+BoxHorizontal+" ") +
		BoldStyle.Foreground(TextColor).Render(title) +
		PrimaryStyle.Render(" "+strings.Repeat(BoxHorizontal, fill)+"┐")
}

func RenderSectionEnd() string {
	return PrimaryStyle.Render("└" + strings.Repeat(BoxHorizontal, DefaultWidth) + "┘")
}

// RenderStatus prefixes message with the icon for status
func RenderStatus(status, message string) string {
	kind, ok := statusKinds[status]
	if !ok {
		kind = statusKinds["info"]
	}
	return "  " + kind.style.Render(kind.icon) + " " + WhiteStyle.Render(message)
}

func RenderKeyValue(key, value string) string {
	return "  " + fg(PrimaryColor).Render(IconBullet) + " " +
		KeyStyle.Render(key) + " " + SeparatorStyle.Render(":") + " " + ValueStyle.Render(value)
}

// loadStyle colors a 0-100 load: red from 90, amber from 70
func loadStyle(percent float64) lipgloss.Style {
	switch {
	case percent >= 90:
		return ErrorStyle
	case percent >= 70:
		return WarningStyle
	}
	return SuccessStyle
}

// RenderProgressBar draws percent as a width-cell bar
func RenderProgressBar(percent float64, width int) string {
	if width <= 0 {
		width = 20
	}
	filled := int(percent / 100 * float64(width))
	filled = max(0, min(filled, width))

	return loadStyle(percent).Render(strings.Repeat(ProgressFull, filled)) +
		DimStyle.Render(strings.Repeat(ProgressEmpty, width-filled))
}

var signalGlyphs = []string{"▂", "▃", "▅", "▆", "█"}

// RenderSignalBars lights the first n of five bars
func RenderSignalBars(n int) string {
	var b strings.Builder
	for i, g := range signalGlyphs {
		style := DimStyle
		if i < n {
			style = SuccessStyle
		}
		b.WriteString(style.Render(g))
	}
	return b.String()
}
