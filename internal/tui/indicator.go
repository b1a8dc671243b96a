package tui

import "github.com/charmbracelet/lipgloss"

const (
	markerActive   = "●"
	markerInactive = "○"
)

// RenderIndicator draws one marker per step plus one for the summary,
// highlighting the marker at current. It returns one line per marker.
func RenderIndicator(total, current int, active, inactive lipgloss.Style) []string {
	if total < 0 {
		total = 0
	}
	lines := make([]string, total+1)
	for i := range lines {
		if i == current {
			lines[i] = active.Render(markerActive)
			continue
		}
		lines[i] = inactive.Render(markerInactive)
	}
	return lines
}
