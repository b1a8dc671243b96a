package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const (
	gutterWidth    = 4
	indicatorTop   = 2
	titleRow       = 2
	firstOptionRow = 4
	buttonGap      = 2

	labelRestart  = "[ Restart Poll ]"
	labelSubmit   = "[ Submit Poll ]"
	labelNoAnswer = "No answer selected"
)

var iconGlyphs = map[string]string{
	"like":    "(+)",
	"smile":   "(~)",
	"dislike": "(-)",
}

func iconGlyph(icon string) string {
	name := icon
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[:i]
	}
	if g, ok := iconGlyphs[strings.ToLower(name)]; ok {
		return g
	}
	return "(•)"
}

type button int

const (
	buttonNone button = iota
	buttonRestart
	buttonSubmit
)

// target is the interactive element under a cell. option is -1 when the
// cell is not on an option row.
type target struct {
	option int
	button button
}

var noTarget = target{option: -1}

// buttonsStacked reports whether the summary buttons need a row each to fit
// in width columns.
func buttonsStacked(width int) bool {
	return lipgloss.Width(labelRestart)+buttonGap+lipgloss.Width(labelSubmit) > width
}

// layout maps screen cells to interactive elements. Rows are body rows as
// View renders them; top is the first body row on screen.
type layout struct {
	contentX int
	width    int
	options  int
	steps    int
	top      int
}

func (m Model) layout() layout {
	l := layout{contentX: gutterWidth, width: m.contentWidth(), steps: m.nav.Steps()}
	if !m.nav.OnSummary() {
		l.options = len(m.steps[m.nav.Current()].Options)
	}
	l.top = m.scrollTop(m.content())
	return l
}

// screenRow converts a body row to the screen row it is drawn on.
func (l layout) screenRow(row int) int { return row - l.top }

func (l layout) targetAt(x, y int) target {
	if l.options > 0 {
		if idx, ok := l.optionAt(x, y); ok {
			return target{option: idx}
		}
		return noTarget
	}
	return target{option: -1, button: l.buttonAt(x, y)}
}

func (l layout) optionAt(x, y int) (int, bool) {
	row := y + l.top
	if x < l.contentX || row < firstOptionRow || row >= firstOptionRow+l.options {
		return 0, false
	}
	return row - firstOptionRow, true
}

// buttonRow is the body row of the restart button.
func (l layout) buttonRow() int { return firstOptionRow + l.steps + 1 }

func (l layout) buttonAt(x, y int) button {
	row := y + l.top
	restartEnd := l.contentX + min(lipgloss.Width(labelRestart), l.width)
	if buttonsStacked(l.width) {
		submitEnd := l.contentX + min(lipgloss.Width(labelSubmit), l.width)
		switch {
		case row == l.buttonRow() && x >= l.contentX && x < restartEnd:
			return buttonRestart
		case row == l.buttonRow()+1 && x >= l.contentX && x < submitEnd:
			return buttonSubmit
		}
		return buttonNone
	}
	if row != l.buttonRow() {
		return buttonNone
	}
	submitStart := restartEnd + buttonGap
	submitEnd := submitStart + lipgloss.Width(labelSubmit)
	switch {
	case x >= l.contentX && x < restartEnd:
		return buttonRestart
	case x >= submitStart && x < submitEnd:
		return buttonSubmit
	}
	return buttonNone
}

// View renders the step indicator gutter, the active step, the transient
// notice and the key help, clipped to the terminal height.
func (m Model) View() string {
	content := m.content()
	top := m.scrollTop(content)
	end := min(m.bodyRows(content), top+m.height)

	marks := RenderIndicator(m.nav.Steps(), m.nav.Current(), m.styles.MarkerActive, m.styles.Marker)
	blankGutter := strings.Repeat(" ", gutterWidth)

	lines := make([]string, 0, m.height)
	for y := top; y < end; y++ {
		gutter := blankGutter
		if i := y - indicatorTop; i >= 0 && i < len(marks) {
			gutter = " " + marks[i] + "  "
		}
		line := ""
		if y < len(content) {
			line = content[y]
		}
		lines = append(lines, gutter+line)
	}
	lines = append(lines, m.footer(m.height-len(lines))...)
	return strings.Join(lines, "\n")
}

func (m Model) content() []string {
	if m.nav.OnSummary() {
		return m.renderSummary()
	}
	return m.renderQuestion()
}

func (m Model) bodyRows(content []string) int {
	return max(len(content), indicatorTop+m.nav.Steps()+1)
}

// scrollTop is the first body row on screen. A body taller than the screen
// scrolls just far enough to keep the last content row visible, since that
// is where the options and summary actions end.
func (m Model) scrollTop(content []string) int {
	if m.bodyRows(content) <= m.height {
		return 0
	}
	return max(len(content)-m.height, 0)
}

// footer fits the notice and help into room rows. Help goes first, then the
// separator, then the notice.
func (m Model) footer(room int) []string {
	blankGutter := strings.Repeat(" ", gutterWidth)
	lines := []string{""}
	if n := m.renderNotice(); n != "" {
		lines = append(lines, blankGutter+n)
	}
	lines = append(lines, blankGutter+m.help.ShortHelpView(m.keys.bindings(m.nav.OnSummary())))

	if len(lines) > room {
		lines = lines[:len(lines)-1]
	}
	if len(lines) > room {
		lines = lines[1:]
	}
	if len(lines) > room {
		return nil
	}
	return lines
}

func (m Model) contentWidth() int {
	return max(m.width-gutterWidth, 1)
}

func (m Model) fit(s string) string {
	return ansi.Truncate(s, m.contentWidth(), "…")
}

func (m Model) renderQuestion() []string {
	idx := m.nav.Current()
	step := m.steps[idx]
	selected, answered := m.store.Answer(idx)

	lines := []string{
		m.styles.Header.Render(m.fit(fmt.Sprintf("Question %d of %d", idx+1, m.nav.Steps()))),
		"",
		m.styles.Question.Render(m.fit(" " + step.Title + " ")),
		"",
	}
	for i, opt := range step.Options {
		prefix := "  "
		style := m.styles.Option
		if answered && opt.Label == selected {
			prefix = "▸ "
			style = m.styles.Selected
		}
		lines = append(lines, style.Render(m.fit(fmt.Sprintf("%s%d. %s %s ", prefix, i+1, iconGlyph(opt.Icon), opt.Label))))
	}
	if answered {
		lines = append(lines, "", m.styles.Muted.Render(m.fit("Selected: "+selected)))
	}
	return lines
}

func (m Model) renderSummary() []string {
	lines := []string{
		m.styles.Header.Render(m.fit("Summary")),
		"",
		m.styles.Summary.Render(m.fit(" Summary of Your Answers ")),
		"",
	}
	for i, step := range m.steps {
		answer, ok := m.store.Answer(i)
		if !ok {
			answer = labelNoAnswer
		}
		lines = append(lines, m.fit("• "+step.Title+": "+answer))
	}

	restart := m.styles.Button.Render(m.fit(labelRestart))
	submit := m.styles.Button.Render(m.fit(labelSubmit))
	if buttonsStacked(m.contentWidth()) {
		lines = append(lines, "", restart, submit)
	} else {
		lines = append(lines, "", restart+strings.Repeat(" ", buttonGap)+submit)
	}

	switch {
	case m.store.Loading():
		lines = append(lines, m.spinner.View()+" "+m.fit("Submitting…"))
	case m.store.Err() != "":
		lines = append(lines, m.styles.Warning.Render(m.fit(" "+m.store.Err()+" ")))
	}
	return lines
}

func (m Model) renderNotice() string {
	switch m.notice.kind {
	case noticeSuccess:
		return m.styles.Notice.Render(m.fit(" " + m.notice.text + " "))
	case noticeError:
		return m.styles.Warning.Render(m.fit(" " + m.notice.text + " "))
	}
	return ""
}
