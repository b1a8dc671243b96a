package tui

import (
	"github.com/charmbracelet/lipgloss"

	"poll-terminal/internal/theme"
)

// Styles holds the lipgloss styles the view renders with. Styles never add
// padding or margins to rows the mouse can hit, so row and column math in
// the layout stays exact.
type Styles struct {
	Header       lipgloss.Style
	Question     lipgloss.Style
	Option       lipgloss.Style
	Selected     lipgloss.Style
	Summary      lipgloss.Style
	Button       lipgloss.Style
	Notice       lipgloss.Style
	Warning      lipgloss.Style
	Muted        lipgloss.Style
	Marker       lipgloss.Style
	MarkerActive lipgloss.Style
}

func toLipgloss(r *lipgloss.Renderer, s theme.Style) lipgloss.Style {
	st := r.NewStyle().Bold(s.Bold)
	if s.Foreground != "" {
		st = st.Foreground(lipgloss.Color(s.Foreground))
	}
	if s.Background != "" {
		st = st.Background(lipgloss.Color(s.Background))
	}
	return st
}

// NewStyles builds view styles from a resolved theme bundle. A nil renderer
// uses the process default.
func NewStyles(r *lipgloss.Renderer, b theme.Bundle) Styles {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	return Styles{
		Header:       r.NewStyle().Bold(true).Foreground(lipgloss.Color(b.Roles.Accent)),
		Question:     toLipgloss(r, b.Question),
		Option:       toLipgloss(r, b.Options),
		Selected:     toLipgloss(r, b.Selected),
		Summary:      toLipgloss(r, b.Summary),
		Button:       toLipgloss(r, b.Button),
		Notice:       toLipgloss(r, b.Notice),
		Warning:      toLipgloss(r, b.Warning),
		Muted:        r.NewStyle().Foreground(lipgloss.Color(b.Roles.Muted)),
		Marker:       r.NewStyle().Foreground(lipgloss.Color(b.Roles.Muted)),
		MarkerActive: r.NewStyle().Bold(true).Foreground(lipgloss.Color(b.Roles.Border)),
	}
}

// DefaultStyles resolves the default variant for the local terminal.
func DefaultStyles() Styles {
	bundle, err := theme.Resolve(theme.DefaultVariant, "")
	if err != nil {
		return NewStyles(nil, theme.Bundle{})
	}
	return NewStyles(nil, bundle)
}
