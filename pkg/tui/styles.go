package tui

import "github.com/charmbracelet/lipgloss"

var (
	ink    = lipgloss.Color("#18181b")
	muted  = lipgloss.Color("#71717a")
	link   = lipgloss.Color("#2563eb")
	danger = lipgloss.Color("#b91c1c")
	border = lipgloss.Color("#e4e4e7")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(ink).MarginBottom(1)
	mutedStyle = lipgloss.NewStyle().Foreground(muted)
	labelStyle = lipgloss.NewStyle().Foreground(muted)
	valueStyle = lipgloss.NewStyle().Foreground(ink)
	linkStyle  = lipgloss.NewStyle().Foreground(link).Bold(true)
	errorStyle = lipgloss.NewStyle().
			Foreground(danger).
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(danger).
			PaddingLeft(1).
			Margin(1, 0)

	rowStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(border).
			PaddingLeft(2)
	selectedRowStyle = rowStyle.
				Border(lipgloss.ThickBorder(), false, false, true, true).
				BorderForeground(link).
				PaddingLeft(1)
	rowTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(ink)

	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1).
			MarginBottom(1)
	sectionTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(ink).MarginBottom(1)

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Background(ink).
			Padding(0, 2).
			MarginTop(1)
	secondaryButtonStyle = lipgloss.NewStyle().
				Foreground(ink).
				Border(lipgloss.NormalBorder()).
				BorderForeground(border).
				Padding(0, 2)
	footerStyle = lipgloss.NewStyle().Foreground(muted).MarginTop(1)
)

func badge(text, color string) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(color)).
		Bold(true).
		Render(text)
}
