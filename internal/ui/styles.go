package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	PrimaryColor = lipgloss.Color("#5B9BD5")
	SuccessColor = lipgloss.Color("#2ECC71")
	WarningColor = lipgloss.Color("#F1C40F")
	ErrorColor   = lipgloss.Color("#E74C3C")
	TextColor    = lipgloss.Color("#FFFFFF")
	SubtextColor = lipgloss.Color("#B0B0B0")
	MutedColor   = lipgloss.Color("#6C6C6C")
	DimColor     = lipgloss.Color("#4A4A4A")
)

var (
	BoldStyle    = lipgloss.NewStyle().Bold(true)
	SuccessStyle = lipgloss.NewStyle().Foreground(SuccessColor).Bold(true)
	WarningStyle = lipgloss.NewStyle().Foreground(WarningColor).Bold(true)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ErrorColor).Bold(true)
	InfoStyle    = lipgloss.NewStyle().Foreground(PrimaryColor).Bold(true)
	WhiteStyle   = lipgloss.NewStyle().Foreground(TextColor)
	MutedStyle   = lipgloss.NewStyle().Foreground(MutedColor)
	DimStyle     = lipgloss.NewStyle().Foreground(DimColor)

	BannerStyle       = lipgloss.NewStyle().Foreground(PrimaryColor).Bold(true)
	SectionTitleStyle = lipgloss.NewStyle().Foreground(TextColor).Bold(true)
	BorderStyle       = lipgloss.NewStyle().Foreground(PrimaryColor).Bold(true)
	BulletStyle       = lipgloss.NewStyle().Foreground(PrimaryColor)
	KeyStyle          = lipgloss.NewStyle().Foreground(TextColor)
	ValueStyle        = lipgloss.NewStyle().Foreground(SubtextColor)
	SeparatorStyle    = lipgloss.NewStyle().Foreground(MutedColor)
	TableHeaderStyle  = lipgloss.NewStyle().Foreground(PrimaryColor).Bold(true)
)

const (
	IconSuccess = "✓"
	IconWarning = "⚠"
	IconError   = "✗"
	IconInfo    = "ℹ"
	IconBullet  = "•"
)

const (
	boxTopLeft     = "┌"
	boxTopRight    = "┐"
	boxBottomLeft  = "└"
	boxBottomRight = "┘"
	boxHorizontal  = "─"

	progressFull  = "█"
	progressEmpty = "░"
)

// DefaultWidth is the inner width of section frames.
const DefaultWidth = 60

func RenderBanner() string {
	banner := `███╗   ██╗███████╗███████╗██╗     ███████╗
████╗  ██║██╔════╝██╔════╝██║     ██╔════╝
██╔██╗ ██║███████╗█████╗  ██║     █████╗
██║╚██╗██║╚════██║██╔══╝  ██║     ██╔══╝
██║ ╚████║███████║███████╗███████╗██║
╚═╝  ╚═══╝╚══════╝╚══════╝╚══════╝╚═╝`
	return BannerStyle.Render(banner)
}

func RenderSubtitle() string {
	return BoldStyle.Foreground(TextColor).Render("            admin sync engine")
}

// RenderSectionStart draws "┌─ title ───┐" padded to DefaultWidth.
func RenderSectionStart(title string) string {
	dashCount := DefaultWidth - lipgloss.Width(title) - 4
	if dashCount < 0 {
		dashCount = 0
	}
	prefix := BorderStyle.Render(boxTopLeft + boxHorizontal + " ")
	suffix := BorderStyle.Render(" " + boxHorizontal + strings.Repeat(boxHorizontal, dashCount) + boxTopRight)
	return prefix + SectionTitleStyle.Render(title) + suffix
}

func RenderSectionEnd() string {
	return BorderStyle.Render(boxBottomLeft + strings.Repeat(boxHorizontal, DefaultWidth) + boxBottomRight)
}

// RenderStatus renders a message with the icon for status
// ("success", "warning", "error", anything else is info).
func RenderStatus(status, message string) string {
	icon, style := IconInfo, InfoStyle
	switch status {
	case "success":
		icon, style = IconSuccess, SuccessStyle
	case "warning":
		icon, style = IconWarning, WarningStyle
	case "error":
		icon, style = IconError, ErrorStyle
	}
	return "  " + style.Render(icon) + " " + WhiteStyle.Render(message)
}

func RenderKeyValue(key, value string) string {
	return "  " + BulletStyle.Render(IconBullet) + " " +
		KeyStyle.Render(key) + " " +
		SeparatorStyle.Render(":") + " " +
		ValueStyle.Render(value)
}

// RenderProgressBar draws percent as a bar of width cells, colored by load.
func RenderProgressBar(percent float64, width int) string {
	if width <= 0 {
		width = 20
	}
	filled := int(percent / 100 * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	barStyle := SuccessStyle
	switch {
	case percent >= 90:
		barStyle = ErrorStyle
	case percent >= 70:
		barStyle = WarningStyle
	}
	return barStyle.Render(strings.Repeat(progressFull, filled)) +
		DimStyle.Render(strings.Repeat(progressEmpty, width-filled))
}
