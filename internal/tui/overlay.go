package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// centerModal draws box over base, centred in a width x height screen. With
// an unknown screen size the box is appended below base instead.
func centerModal(base, box string, width, height int) string {
	if width <= 0 || height <= 0 {
		return base + "\n\n" + box
	}
	boxRows := strings.Split(box, "\n")
	boxWidth := lipgloss.Width(box)
	x := max(0, (width-boxWidth)/2)
	y := max(0, (height-len(boxRows))/2)

	screen := strings.Split(lipgloss.Place(width, height, lipgloss.Left, lipgloss.Top, base), "\n")
	for i, row := range boxRows {
		if y+i >= len(screen) {
			break
		}
		screen[y+i] = spliceRow(screen[y+i], row, x, boxWidth, width)
	}
	return strings.Join(screen, "\n")
}

// spliceRow replaces cells [x, x+span) of row with insert, keeping the ANSI
// styling of the cells on either side. The result is at least width cells.
func spliceRow(row, insert string, x, span, width int) string {
	left := ansi.Truncate(row, x, "")
	if gap := x - ansi.StringWidth(left); gap > 0 {
		left += strings.Repeat(" ", gap)
	}
	if gap := span - ansi.StringWidth(insert); gap > 0 {
		insert += strings.Repeat(" ", gap)
	}
	out := left + insert + ansi.TruncateLeft(row, x+span, "")
	if gap := width - ansi.StringWidth(out); gap > 0 {
		out += strings.Repeat(" ", gap)
	}
	return out
}

// truncate shortens s to width cells, appending "…" if truncated.
func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	return ansi.Truncate(s, width, "…")
}
