// Package ui renders CLI output with lipgloss.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/denttrack/denttrack/internal/model"
)

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

var (
	colorMuted  = ac("240", "245")
	colorAccent = ac("27", "75")
	colorOK     = ac("28", "114")
	colorWarn   = ac("130", "214")
	colorError  = ac("124", "203")

	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	okStyle      = lipgloss.NewStyle().Foreground(colorOK)
	warnStyle    = lipgloss.NewStyle().Foreground(colorWarn)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorError)
	labelStyle   = lipgloss.NewStyle().Foreground(colorMuted)
)

func Heading(s string) string { return headingStyle.Render(s) }
func Muted(s string) string   { return mutedStyle.Render(s) }
func OK(s string) string      { return okStyle.Render(s) }
func Warn(s string) string    { return warnStyle.Render(s) }
func Error(s string) string   { return errorStyle.Render(s) }

var statusColors = map[model.ToothStatus]lipgloss.AdaptiveColor{
	model.StatusHealthy:          colorOK,
	model.StatusFilled:           ac("25", "111"),
	model.StatusRootCanalTreated: ac("91", "177"),
	model.StatusCrown:            ac("136", "220"),
	model.StatusVeneer:           ac("30", "80"),
	model.StatusMissing:          colorMuted,
	model.StatusImplant:          ac("61", "147"),
	model.StatusNeedsAttention:   colorError,
}

// Status renders a tooth status in its chart color.
func Status(s model.ToothStatus) string {
	c, ok := statusColors[s]
	if !ok {
		return string(s)
	}
	return lipgloss.NewStyle().Foreground(c).Render(string(s))
}

// KeyValues renders aligned "label  value" lines. pairs alternates label
// and value.
func KeyValues(pairs ...string) string {
	width := 0
	for i := 0; i < len(pairs); i += 2 {
		if w := lipgloss.Width(pairs[i]); w > width {
			width = w
		}
	}
	label := labelStyle.Width(width + 2)

	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		b.WriteString(label.Render(pairs[i]))
		b.WriteString(pairs[i+1])
		b.WriteByte('\n')
	}
	return b.String()
}

// Table renders rows under a header with columns padded to the widest
// cell. Cells may contain styled text.
func Table(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string, style *lipgloss.Style) {
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			if style != nil {
				cell = style.Render(cell)
			}
			b.WriteString(cell)
			if i < len(widths)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(cell)+2))
			}
		}
		b.WriteByte('\n')
	}
	writeRow(header, &headingStyle)
	for _, row := range rows {
		writeRow(row, nil)
	}
	return b.String()
}

// TeethChart renders the 32 teeth in four quadrant rows, each tooth
// colored by its status.
func TeethChart(teeth model.TeethStatus) string {
	all := model.AllTeeth()
	var b strings.Builder
	for q := 0; q < 4; q++ {
		row := all[q*8 : (q+1)*8]
		b.WriteString(labelStyle.Render(row[0].Quadrant() + " "))
		for _, id := range row {
			mark := okStyle.Render(id.String())
			if status := teeth.Status(id); status != model.StatusHealthy {
				mark = lipgloss.NewStyle().Foreground(statusColors[status]).Render(id.String())
			}
			b.WriteString(mark + " ")
		}
		b.WriteByte('\n')
	}
	return b.String()
}
