package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorBorder = lipgloss.Color("#282726")
	colorText   = lipgloss.Color("#FFFCF0")
	colorMuted  = lipgloss.Color("#6F6E69")
	colorAccent = lipgloss.Color("#3AA99F")
	colorGreen  = lipgloss.Color("#879A39")
	colorRed    = lipgloss.Color("#D14D41")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorText).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	okStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	failStyle = lipgloss.NewStyle().
			Foreground(colorRed)
)

// renderTitle renders a centered title bar in a bordered box.
func renderTitle(title string) string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1).
		Render(titleStyle.Render(title))
}

// renderTable lays rows out in padded columns under a bold header.
func renderTable(headers []string, rows [][]string) string {
	if len(rows) == 0 {
		return mutedStyle.Render("  (none)") + "\n"
	}
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	line := func(cells []string, style lipgloss.Style) {
		b.WriteString(" ")
		for i, w := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			b.WriteString(" ")
			b.WriteString(style.Render(cell + strings.Repeat(" ", w-len(cell))))
			b.WriteString(" ")
		}
		b.WriteString("\n")
	}
	line(headers, headerStyle)
	for _, row := range rows {
		line(row, lipgloss.NewStyle())
	}
	return b.String()
}

// renderFields prints label: value pairs with aligned labels.
func renderFields(pairs [][2]string) string {
	width := 0
	for _, p := range pairs {
		if len(p[0]) > width {
			width = len(p[0])
		}
	}
	var b strings.Builder
	for _, p := range pairs {
		b.WriteString("  ")
		b.WriteString(mutedStyle.Render(p[0] + ":" + strings.Repeat(" ", width-len(p[0])+1)))
		b.WriteString(p[1])
		b.WriteString("\n")
	}
	return b.String()
}
