package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poll-terminal/internal/poll"
	"poll-terminal/internal/submit"
	"poll-terminal/internal/theme"
)

type fakeSubmitter struct {
	mu    sync.Mutex
	calls []map[int]string
	ack   submit.Ack
	err   error
}

func (f *fakeSubmitter) Submit(_ context.Context, answers map[int]string) (submit.Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, answers)
	return f.ack, f.err
}

func (f *fakeSubmitter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testStyles(t *testing.T) *Styles {
	t.Helper()
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.Ascii)
	bundle, err := theme.Resolve(theme.VariantOcean, "wezterm")
	require.NoError(t, err)
	s := NewStyles(r, bundle)
	return &s
}

func newTestModel(t *testing.T, sub submit.Submitter) Model {
	t.Helper()
	return NewModel(Options{
		Steps:     poll.DefaultSteps(),
		Submitter: sub,
		Timing: Timing{
			AutoAdvance:    5 * time.Millisecond,
			TransitionLock: 5 * time.Millisecond,
			Notice:         5 * time.Millisecond,
			DragThreshold:  3,
		},
		Styles: testStyles(t),
		Logger: log.New(io.Discard),
	})
}

func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok, "Update returned %T", next)
	return out, cmd
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func finishTransition(t *testing.T, m Model) Model {
	t.Helper()
	m, _ = send(t, m, unlockMsg{seq: m.nav.LockSeq()})
	return m
}

func moveTo(t *testing.T, m Model, target int) Model {
	t.Helper()
	for m.Current() < target {
		m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyDown})
		m = finishTransition(t, m)
	}
	return m
}

// collect runs cmd and any batched commands it expands to. Only use it with
// commands that return immediately.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func submitResult(t *testing.T, cmd tea.Cmd) submitResultMsg {
	t.Helper()
	for _, msg := range collect(cmd) {
		if res, ok := msg.(submitResultMsg); ok {
			return res
		}
	}
	t.Fatalf("no submit result produced")
	return submitResultMsg{}
}

// click presses and releases the left button on one cell.
func click(t *testing.T, m Model, x, y int) (Model, tea.Cmd) {
	t.Helper()
	m, _ = send(t, m, tea.MouseMsg{X: x, Y: y, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	return send(t, m, tea.MouseMsg{X: x, Y: y, Button: tea.MouseButtonLeft, Action: tea.MouseActionRelease})
}

func manySteps(n int) []poll.Step {
	steps := make([]poll.Step, n)
	for i := range steps {
		steps[i] = poll.Step{
			Title:   fmt.Sprintf("Question number %d", i+1),
			Options: []poll.Option{{Icon: "like", Label: "Yes"}, {Icon: "dislike", Label: "No"}},
		}
	}
	return steps
}

func plainView(m Model) string {
	return ansi.Strip(m.View())
}

func answerFirstTwo(t *testing.T, m Model) Model {
	t.Helper()
	m, _ = send(t, m, runeKey("2"))
	m = moveTo(t, m, 1)
	m, _ = send(t, m, runeKey("2"))
	return moveTo(t, m, 3)
}

func TestNewModelStartsOnFirstQuestion(t *testing.T) {
	m := newTestModel(t, &fakeSubmitter{})
	assert.Equal(t, 0, m.Current())
	assert.Empty(t, m.State().Answers)
	assert.Contains(t, plainView(m), "How was your week overall?")
	assert.Contains(t, plainView(m), "Question 1 of 3")
	assert.NotNil(t, m.Init(), "auto-advance should be scheduled")
}

func TestSubmitSuccessScenario(t *testing.T) {
	sub := &fakeSubmitter{ack: submit.Ack{Status: 200}}
	m := answerFirstTwo(t, newTestModel(t, sub))
	require.Equal(t, 3, m.Current())

	m, cmd := send(t, m, runeKey("s"))
	assert.True(t, m.State().Loading)
	assert.Contains(t, plainView(m), "Submitting")

	m, noticeCmd := send(t, m, submitResult(t, cmd))
	state := m.State()
	assert.True(t, state.Submitted)
	assert.False(t, state.Loading)
	assert.Empty(t, state.Error)
	assert.NotNil(t, noticeCmd)
	assert.Equal(t, []map[int]string{{0: "Good", 1: "Somewhat satisfied"}}, sub.calls)
	assert.Equal(t, 1, strings.Count(plainView(m), "Thank you for submitting the poll!"))

	m, _ = send(t, m, noticeExpiredMsg{seq: m.noticeSeq})
	assert.NotContains(t, plainView(m), "Thank you for submitting the poll!")
	assert.True(t, m.State().Submitted)
}

func TestSubmitFailureScenario(t *testing.T) {
	sub := &fakeSubmitter{err: &submit.Error{Code: submit.CodeTimeout, Message: "timeout"}}
	m := answerFirstTwo(t, newTestModel(t, sub))

	m, cmd := send(t, m, runeKey("s"))
	m, _ = send(t, m, submitResult(t, cmd))

	state := m.State()
	assert.Equal(t, "timeout", state.Error)
	assert.False(t, state.Loading)
	assert.False(t, state.Submitted)
	view := plainView(m)
	assert.Contains(t, view, "Error: timeout")

	// The inline error outlives the transient notice.
	m, _ = send(t, m, noticeExpiredMsg{seq: m.noticeSeq})
	view = plainView(m)
	assert.NotContains(t, view, "Error: timeout")
	assert.Contains(t, view, "timeout")
	assert.Equal(t, "timeout", m.State().Error)

	// The next attempt clears the error before the request goes out.
	sub.err = nil
	m, _ = send(t, m, runeKey("s"))
	assert.Empty(t, m.State().Error)
}

func TestRestartScenario(t *testing.T) {
	m := answerFirstTwo(t, newTestModel(t, &fakeSubmitter{}))
	require.Equal(t, 3, m.Current())

	m, _ = send(t, m, runeKey("r"))
	assert.Equal(t, 0, m.Current())
	state := m.State()
	assert.Empty(t, state.Answers)
	assert.False(t, state.Submitted)
	assert.False(t, state.Loading)
	assert.Empty(t, state.Error)
}

func TestAutoAdvanceSkippedWhileLockedAndKeepsRecurring(t *testing.T) {
	m := newTestModel(t, &fakeSubmitter{})
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	require.True(t, m.nav.Locked())
	require.Equal(t, 1, m.Current())

	m, cmd := send(t, m, autoAdvanceMsg{})
	assert.Equal(t, 1, m.Current(), "no navigation while the lock is held")
	require.NotNil(t, cmd)
	_, ok := cmd().(autoAdvanceMsg)
	assert.True(t, ok, "auto-advance must be rescheduled")

	m = finishTransition(t, m)
	m, cmd = send(t, m, autoAdvanceMsg{})
	assert.Equal(t, 2, m.Current())
	assert.NotNil(t, cmd)
}

func TestAutoAdvanceDisabled(t *testing.T) {
	m := NewModel(Options{Steps: poll.DefaultSteps(), Styles: testStyles(t), Logger: log.New(io.Discard)})
	assert.Nil(t, m.Init())
}

func TestNavigationIsNoOpWhileLocked(t *testing.T) {
	m := newTestModel(t, &fakeSubmitter{})
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	require.Equal(t, 1, m.Current())

	for _, msg := range []tea.Msg{
		tea.KeyMsg{Type: tea.KeyDown},
		tea.KeyMsg{Type: tea.KeyUp},
		tea.MouseMsg{Button: tea.MouseButtonWheelDown, Action: tea.MouseActionPress},
		tea.MouseMsg{Button: tea.MouseButtonWheelUp, Action: tea.MouseActionPress},
	} {
		m, _ = send(t, m, msg)
		assert.Equal(t, 1, m.Current())
	}

	// An unlock from an older transition does not release the current one.
	m, _ = send(t, m, unlockMsg{seq: m.nav.LockSeq() - 1})
	assert.True(t, m.nav.Locked())
}

func TestWheelNavigates(t *testing.T) {
	m := newTestModel(t, &fakeSubmitter{})
	m, cmd := send(t, m, tea.MouseMsg{Button: tea.MouseButtonWheelDown, Action: tea.MouseActionPress})
	assert.Equal(t, 1, m.Current())
	assert.NotNil(t, cmd)

	m = finishTransition(t, m)
	m, _ = send(t, m, tea.MouseMsg{Button: tea.MouseButtonWheelUp, Action: tea.MouseActionPress})
	assert.Equal(t, 0, m.Current())
}

func TestDragPastThresholdNavigates(t *testing.T) {
	m := newTestModel(t, &fakeSubmitter{})
	m, _ = send(t, m, tea.MouseMsg{X: 40, Y: 20, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	require.True(t, m.dragging)

	m, _ = send(t, m, tea.MouseMsg{X: 40, Y: 17, Button: tea.MouseButtonLeft, Action: tea.MouseActionMotion})
	assert.Equal(t, 0, m.Current(), "a drag of exactly the threshold does not navigate")

	m, _ = send(t, m, tea.MouseMsg{X: 40, Y: 16, Button: tea.MouseButtonLeft, Action: tea.MouseActionMotion})
	assert.Equal(t, 1, m.Current(), "dragging upward advances")
	assert.Equal(t, 16, m.dragAnchor)

	// Motion during the transition is ignored and keeps the anchor.
	m, _ = send(t, m, tea.MouseMsg{X: 40, Y: 5, Button: tea.MouseButtonLeft, Action: tea.MouseActionMotion})
	assert.Equal(t, 1, m.Current())
	assert.Equal(t, 16, m.dragAnchor)

	m = finishTransition(t, m)
	m, _ = send(t, m, tea.MouseMsg{X: 40, Y: 21, Button: tea.MouseButtonLeft, Action: tea.MouseActionMotion})
	assert.Equal(t, 0, m.Current(), "dragging downward retreats")

	m, _ = send(t, m, tea.MouseMsg{X: 40, Y: 21, Button: tea.MouseButtonLeft, Action: tea.MouseActionRelease})
	assert.False(t, m.dragging)
	m = finishTransition(t, m)
	m, _ = send(t, m, tea.MouseMsg{X: 40, Y: 2, Button: tea.MouseButtonNone, Action: tea.MouseActionMotion})
	assert.Equal(t, 0, m.Current(), "motion after release does not navigate")
}

func TestClickOptionRecordsAnswer(t *testing.T) {
	m := newTestModel(t, &fakeSubmitter{})
	m, _ = send(t, m, tea.MouseMsg{X: gutterWidth + 2, Y: firstOptionRow + 2, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	assert.Empty(t, m.State().Answers, "a press alone does not answer")
	m, _ = send(t, m, tea.MouseMsg{X: gutterWidth + 2, Y: firstOptionRow + 2, Button: tea.MouseButtonLeft, Action: tea.MouseActionRelease})
	assert.Equal(t, map[int]string{0: "Not so great"}, m.State().Answers)
	assert.Contains(t, plainView(m), "Selected: Not so great")

	// Clicking the gutter or below the options does nothing.
	m, _ = click(t, m, 1, firstOptionRow)
	m, _ = click(t, m, gutterWidth, firstOptionRow+3)
	assert.Equal(t, map[int]string{0: "Not so great"}, m.State().Answers)
}

func TestDragFromOptionDoesNotAnswer(t *testing.T) {
	m := newTestModel(t, &fakeSubmitter{})
	x, y := gutterWidth+2, firstOptionRow+1
	m, _ = send(t, m, tea.MouseMsg{X: x, Y: y, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	m, _ = send(t, m, tea.MouseMsg{X: x, Y: 0, Button: tea.MouseButtonLeft, Action: tea.MouseActionMotion})
	require.Equal(t, 1, m.Current())

	m, _ = send(t, m, tea.MouseMsg{X: x, Y: 0, Button: tea.MouseButtonLeft, Action: tea.MouseActionRelease})
	assert.Empty(t, m.State().Answers)

	// Returning to the pressed row after navigating is still a drag.
	m = finishTransition(t, m)
	m, _ = send(t, m, tea.MouseMsg{X: x, Y: y, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	m, _ = send(t, m, tea.MouseMsg{X: x, Y: y + 4, Button: tea.MouseButtonLeft, Action: tea.MouseActionMotion})
	require.Equal(t, 0, m.Current())
	m = finishTransition(t, m)
	m, _ = send(t, m, tea.MouseMsg{X: x, Y: y, Button: tea.MouseButtonLeft, Action: tea.MouseActionRelease})
	assert.Empty(t, m.State().Answers)
}

func TestReleaseOnAnotherOptionDoesNotAnswer(t *testing.T) {
	m := newTestModel(t, &fakeSubmitter{})
	m, _ = send(t, m, tea.MouseMsg{X: gutterWidth + 2, Y: firstOptionRow, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	m, _ = send(t, m, tea.MouseMsg{X: gutterWidth + 2, Y: firstOptionRow + 1, Button: tea.MouseButtonLeft, Action: tea.MouseActionRelease})
	assert.Empty(t, m.State().Answers)
	assert.False(t, m.dragging)

	// A small wobble inside the same row still counts as a click.
	m, _ = send(t, m, tea.MouseMsg{X: gutterWidth + 2, Y: firstOptionRow + 1, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	m, _ = send(t, m, tea.MouseMsg{X: gutterWidth + 6, Y: firstOptionRow + 1, Button: tea.MouseButtonLeft, Action: tea.MouseActionRelease})
	assert.Equal(t, map[int]string{0: "Good"}, m.State().Answers)
}

func TestShortTerminalScrollsToOptions(t *testing.T) {
	m := newTestModel(t, &fakeSubmitter{})
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 80, Height: 8})
	m, _ = send(t, m, runeKey("1"))

	l := m.layout()
	require.Equal(t, 1, l.top, "the selected line pushes the body one row past the screen")

	lines := strings.Split(plainView(m), "\n")
	assert.LessOrEqual(t, len(lines), 8)
	row := l.screenRow(firstOptionRow + 1)
	require.Less(t, row, len(lines))
	assert.Contains(t, lines[row], "Good")

	m, _ = click(t, m, gutterWidth+2, row)
	assert.Equal(t, map[int]string{0: "Good"}, m.State().Answers)
}

func TestShortTerminalDropsHelpBeforeNotice(t *testing.T) {
	m := newTestModel(t, &fakeSubmitter{ack: submit.Ack{Status: 200}})
	m = moveTo(t, m, 3)
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 80, Height: 10})

	m, cmd := send(t, m, runeKey("s"))
	m, _ = send(t, m, submitResult(t, cmd))

	view := plainView(m)
	assert.LessOrEqual(t, len(strings.Split(view, "\n")), 10)
	assert.Contains(t, view, "Thank you for submitting the poll!")
	assert.NotContains(t, view, "quit")
}

func TestManyStepsKeepSummaryButtonsOnScreen(t *testing.T) {
	sub := &fakeSubmitter{}
	m := NewModel(Options{
		Steps:     manySteps(30),
		Submitter: sub,
		Timing:    Timing{TransitionLock: 5 * time.Millisecond, Notice: 5 * time.Millisecond, DragThreshold: 3},
		Styles:    testStyles(t),
		Logger:    log.New(io.Discard),
		Width:     80,
		Height:    24,
	})
	m = moveTo(t, m, 30)
	require.True(t, m.nav.OnSummary())

	l := m.layout()
	row := l.screenRow(l.buttonRow())
	assert.Equal(t, 23, row)

	lines := strings.Split(plainView(m), "\n")
	require.Len(t, lines, 24)
	assert.Contains(t, lines[row], labelRestart)
	assert.Contains(t, lines[row], labelSubmit)

	m, _ = click(t, m, gutterWidth+len(labelRestart)+buttonGap, row)
	assert.True(t, m.State().Loading)
}

func TestNarrowSummaryStacksButtons(t *testing.T) {
	sub := &fakeSubmitter{}
	m := answerFirstTwo(t, newTestModel(t, sub))
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 30, Height: 24})
	require.True(t, buttonsStacked(m.contentWidth()))

	l := m.layout()
	lines := strings.Split(plainView(m), "\n")
	for _, line := range lines {
		assert.LessOrEqual(t, ansi.StringWidth(line), 30, "line %q", line)
	}
	restartRow := l.screenRow(l.buttonRow())
	assert.Contains(t, lines[restartRow], labelRestart)
	assert.Contains(t, lines[restartRow+1], labelSubmit)

	m, _ = click(t, m, gutterWidth+len(labelRestart)+buttonGap, restartRow)
	assert.False(t, m.State().Loading, "nothing sits right of the restart button")

	m, cmd := click(t, m, gutterWidth+1, restartRow+1)
	require.True(t, m.State().Loading)
	m, _ = send(t, m, submitResult(t, cmd))
	require.True(t, m.State().Submitted)

	m, _ = click(t, m, gutterWidth+1, restartRow)
	assert.Equal(t, 0, m.Current())
	assert.False(t, m.State().Submitted)
}

func TestKeyPickOverwritesAnswer(t *testing.T) {
	m := newTestModel(t, &fakeSubmitter{})
	m, _ = send(t, m, runeKey("1"))
	m, _ = send(t, m, runeKey("3"))
	m, _ = send(t, m, runeKey("9"))
	assert.Equal(t, map[int]string{0: "Not so great"}, m.State().Answers)
}

func TestSummaryButtonsAreClickable(t *testing.T) {
	sub := &fakeSubmitter{}
	m := answerFirstTwo(t, newTestModel(t, sub))
	row := m.layout().buttonRow()
	submitX := gutterWidth + len(labelRestart) + buttonGap

	m, cmd := click(t, m, submitX, row)
	require.True(t, m.State().Loading)
	m, _ = send(t, m, submitResult(t, cmd))
	require.True(t, m.State().Submitted)

	m, _ = click(t, m, gutterWidth, row)
	assert.Equal(t, 0, m.Current())
	assert.False(t, m.State().Submitted)
}

func TestSummaryShowsPlaceholderForUnanswered(t *testing.T) {
	m := newTestModel(t, &fakeSubmitter{})
	m, _ = send(t, m, runeKey("1"))
	m = moveTo(t, m, 3)

	view := plainView(m)
	assert.Contains(t, view, "Summary of Your Answers")
	assert.Contains(t, view, "How was your week overall?: Great")
	assert.Equal(t, 2, strings.Count(view, "No answer selected"))
	assert.Contains(t, view, labelRestart)
	assert.Contains(t, view, labelSubmit)
}

func TestSubmitIgnoredWhileLoadingAndOffSummary(t *testing.T) {
	sub := &fakeSubmitter{}
	m := newTestModel(t, sub)

	m, cmd := send(t, m, runeKey("s"))
	assert.Nil(t, cmd, "submit is only offered on the summary")
	assert.False(t, m.State().Loading)

	m = moveTo(t, m, 3)
	m, cmd = send(t, m, runeKey("s"))
	require.NotNil(t, cmd)
	_, again := send(t, m, runeKey("s"))
	assert.Nil(t, again, "a second submit while loading is ignored")
}

func TestStaleSubmitResultDroppedAfterRestart(t *testing.T) {
	sub := &fakeSubmitter{err: errors.New("late failure")}
	m := answerFirstTwo(t, newTestModel(t, sub))

	m, cmd := send(t, m, runeKey("s"))
	result := submitResult(t, cmd)

	m, _ = send(t, m, runeKey("r"))
	m, _ = send(t, m, result)

	state := m.State()
	assert.Empty(t, state.Error)
	assert.False(t, state.Loading)
	assert.NotContains(t, plainView(m), "late failure")
}

func TestMissingSubmitterFailsGracefully(t *testing.T) {
	m := moveTo(t, newTestModel(t, nil), 3)
	m, cmd := send(t, m, runeKey("s"))
	m, _ = send(t, m, submitResult(t, cmd))
	assert.Equal(t, errNoSubmitter.Error(), m.State().Error)
}

func TestWindowResizeTruncatesLongLines(t *testing.T) {
	m := newTestModel(t, &fakeSubmitter{})
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 20, Height: 10})
	for _, line := range strings.Split(plainView(m), "\n") {
		assert.LessOrEqual(t, ansi.StringWidth(line), 20, "line %q", line)
	}
}

func TestQuitKey(t *testing.T) {
	m := newTestModel(t, &fakeSubmitter{})
	_, cmd := send(t, m, runeKey("q"))
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestIconGlyph(t *testing.T) {
	assert.Equal(t, "(+)", iconGlyph("/assets/like.png"))
	assert.Equal(t, "(~)", iconGlyph("smile"))
	assert.Equal(t, "(•)", iconGlyph("mystery"))
}

func TestTimingDefaults(t *testing.T) {
	d := DefaultTiming()
	assert.Equal(t, 3*time.Second, d.AutoAdvance)
	assert.Equal(t, 500*time.Millisecond, d.TransitionLock)
	assert.Equal(t, 6*time.Second, d.Notice)
	assert.Equal(t, 3, d.DragThreshold)

	filled := Timing{}.withDefaults()
	assert.Zero(t, filled.AutoAdvance, "auto-advance stays disabled")
	assert.Equal(t, d.TransitionLock, filled.TransitionLock)
	assert.Equal(t, d.Notice, filled.Notice)
	assert.Equal(t, d.DragThreshold, filled.DragThreshold)
}
