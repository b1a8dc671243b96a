package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"poll-terminal/internal/poll"
	"poll-terminal/internal/submit"
)

const (
	defaultWidth          = 80
	defaultHeight         = 24
	defaultTransitionLock = 500 * time.Millisecond
	defaultNoticeDuration = 6 * time.Second
	defaultDragThreshold  = 3

	noticeThanks = "Thank you for submitting the poll!"
)

var errNoSubmitter = errors.New("poll submission is not configured")

// Timing holds the controller's clocks. AutoAdvance <= 0 disables the
// automatic advance; the other fields fall back to defaults when unset.
type Timing struct {
	AutoAdvance    time.Duration
	TransitionLock time.Duration
	Notice         time.Duration
	// DragThreshold is the vertical drag distance, in rows, that must be
	// exceeded before a drag navigates.
	DragThreshold int
}

// DefaultTiming is used when nothing is configured.
func DefaultTiming() Timing {
	return Timing{
		AutoAdvance:    3 * time.Second,
		TransitionLock: defaultTransitionLock,
		Notice:         defaultNoticeDuration,
		DragThreshold:  defaultDragThreshold,
	}
}

func (t Timing) withDefaults() Timing {
	if t.TransitionLock <= 0 {
		t.TransitionLock = defaultTransitionLock
	}
	if t.Notice <= 0 {
		t.Notice = defaultNoticeDuration
	}
	if t.DragThreshold <= 0 {
		t.DragThreshold = defaultDragThreshold
	}
	return t
}

// Options configures a poll Model.
type Options struct {
	// Context bounds in-flight submissions; cancel it when the view is torn down.
	Context   context.Context
	Steps     []poll.Step
	Submitter submit.Submitter
	Timing    Timing
	Styles    *Styles
	Logger    *log.Logger
	Width     int
	Height    int
}

// Message types consumed by Update.
type (
	autoAdvanceMsg   struct{}
	unlockMsg        struct{ seq int }
	noticeExpiredMsg struct{ seq int }
	submitResultMsg  struct {
		epoch int
		ack   submit.Ack
		err   error
	}
)

type noticeKind int

const (
	noticeNone noticeKind = iota
	noticeSuccess
	noticeError
)

type notice struct {
	text string
	kind noticeKind
}

// Model is the poll controller and view for one mounted poll.
type Model struct {
	ctx       context.Context
	steps     []poll.Step
	store     *poll.Store
	nav       Navigator
	submitter submit.Submitter
	timing    Timing
	styles    Styles
	logger    *log.Logger

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	width  int
	height int

	// A left press starts a gesture. It becomes a click on release unless
	// it navigated or the pointer left the pressed target.
	dragging   bool
	dragAnchor int
	dragMoved  bool
	pressStep  int
	pressAt    target

	// epoch invalidates submission results that started before a restart.
	epoch     int
	notice    notice
	noticeSeq int
}

// NewModel mounts a poll with an empty store at the first step.
func NewModel(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	styles := DefaultStyles()
	if opts.Styles != nil {
		styles = *opts.Styles
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}

	h := help.New()
	h.Width = max(width-gutterWidth, 1)

	return Model{
		ctx:       ctx,
		steps:     opts.Steps,
		store:     poll.NewStore(opts.Steps),
		nav:       NewNavigator(len(opts.Steps)),
		submitter: opts.Submitter,
		timing:    opts.Timing.withDefaults(),
		styles:    styles,
		logger:    logger,
		keys:      defaultKeyMap(),
		help:      h,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.Muted)),
		width:     width,
		height:    height,
	}
}

// Current returns the active step index; Steps() means the summary.
func (m Model) Current() int { return m.nav.Current() }

// State returns a snapshot of the poll state.
func (m Model) State() poll.State { return m.store.Snapshot() }

func (m Model) Init() tea.Cmd {
	return m.scheduleAutoAdvance()
}

// Update advances model state in response to events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = max(msg.Width, 1)
		m.height = max(msg.Height, 1)
		m.help.Width = m.contentWidth()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		return m.handleMouse(msg)
	case autoAdvanceMsg:
		return m.handleAutoAdvance()
	case unlockMsg:
		m.nav.Unlock(msg.seq)
		return m, nil
	case submitResultMsg:
		return m.handleSubmitResult(msg)
	case noticeExpiredMsg:
		if msg.seq == m.noticeSeq {
			m.notice = notice{}
		}
		return m, nil
	case spinner.TickMsg:
		if !m.store.Loading() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Next):
		return m.advance()
	case key.Matches(msg, m.keys.Prev):
		return m.retreat()
	case key.Matches(msg, m.keys.Pick):
		runes := []rune(msg.String())
		return m.selectOption(int(runes[0] - '1')), nil
	case key.Matches(msg, m.keys.Submit):
		if m.nav.OnSummary() {
			return m.startSubmit()
		}
	case key.Matches(msg, m.keys.Restart):
		if m.nav.OnSummary() {
			return m.restart(), nil
		}
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (Model, tea.Cmd) {
	switch msg.Button {
	case tea.MouseButtonWheelDown:
		return m.advance()
	case tea.MouseButtonWheelUp:
		return m.retreat()
	}

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		m.dragging = true
		m.dragAnchor = msg.Y
		m.dragMoved = false
		m.pressStep = m.nav.Current()
		m.pressAt = m.layout().targetAt(msg.X, msg.Y)
		return m, nil
	case tea.MouseActionMotion:
		if !m.dragging || m.nav.Locked() {
			return m, nil
		}
		diff := m.dragAnchor - msg.Y
		if abs(diff) <= m.timing.DragThreshold {
			return m, nil
		}
		m.dragAnchor = msg.Y
		m.dragMoved = true
		if diff > 0 {
			return m.advance()
		}
		return m.retreat()
	case tea.MouseActionRelease:
		if !m.dragging {
			return m, nil
		}
		m.dragging = false
		if m.dragMoved || m.pressStep != m.nav.Current() {
			return m, nil
		}
		t := m.layout().targetAt(msg.X, msg.Y)
		if t != m.pressAt {
			return m, nil
		}
		return m.click(t)
	}
	return m, nil
}

func (m Model) click(t target) (Model, tea.Cmd) {
	switch t.button {
	case buttonRestart:
		return m.restart(), nil
	case buttonSubmit:
		return m.startSubmit()
	}
	if t.option >= 0 {
		return m.selectOption(t.option), nil
	}
	return m, nil
}

func (m Model) handleAutoAdvance() (Model, tea.Cmd) {
	next := m.scheduleAutoAdvance()
	if m.nav.Locked() {
		return m, next
	}
	m, cmd := m.advance()
	if cmd == nil {
		return m, next
	}
	return m, tea.Batch(next, cmd)
}

func (m Model) advance() (Model, tea.Cmd) {
	if !m.nav.Advance() {
		return m, nil
	}
	return m, m.unlockAfterTransition()
}

func (m Model) retreat() (Model, tea.Cmd) {
	if !m.nav.Retreat() {
		return m, nil
	}
	return m, m.unlockAfterTransition()
}

func (m Model) selectOption(idx int) Model {
	if m.nav.OnSummary() {
		return m
	}
	step := m.nav.Current()
	opts := m.steps[step].Options
	if idx < 0 || idx >= len(opts) {
		return m
	}
	if err := m.store.SetAnswer(step, opts[idx].Label); err != nil {
		m.logger.Warn("answer rejected", "event", "answer_rejected", "step", step, "error", err)
		return m
	}
	m.logger.Debug("answer recorded", "event", "answer", "step", step, "label", opts[idx].Label)
	return m
}

func (m Model) restart() Model {
	m.store.Reset()
	m.nav.Restart()
	m.epoch++
	m.dragging = false
	m.notice = notice{}
	m.noticeSeq++
	return m
}

func (m Model) startSubmit() (Model, tea.Cmd) {
	if m.store.Loading() {
		return m, nil
	}
	m.store.BeginSubmit()

	ctx := m.ctx
	submitter := m.submitter
	answers := m.store.Answers()
	epoch := m.epoch
	run := func() tea.Msg {
		if submitter == nil {
			return submitResultMsg{epoch: epoch, err: errNoSubmitter}
		}
		ack, err := submitter.Submit(ctx, answers)
		return submitResultMsg{epoch: epoch, ack: ack, err: err}
	}
	return m, tea.Batch(run, m.spinner.Tick)
}

func (m Model) handleSubmitResult(msg submitResultMsg) (Model, tea.Cmd) {
	if msg.epoch != m.epoch {
		return m, nil
	}
	if msg.err != nil {
		text := submit.Message(msg.err)
		m.store.SubmitFailed(text)
		return m.showNotice("Error: "+text, noticeError)
	}
	m.store.SubmitSucceeded()
	return m.showNotice(noticeThanks, noticeSuccess)
}

func (m Model) showNotice(text string, kind noticeKind) (Model, tea.Cmd) {
	m.noticeSeq++
	m.notice = notice{text: text, kind: kind}
	seq := m.noticeSeq
	return m, tea.Tick(m.timing.Notice, func(time.Time) tea.Msg { return noticeExpiredMsg{seq: seq} })
}

func (m Model) scheduleAutoAdvance() tea.Cmd {
	if m.timing.AutoAdvance <= 0 {
		return nil
	}
	return tea.Tick(m.timing.AutoAdvance, func(time.Time) tea.Msg { return autoAdvanceMsg{} })
}

func (m Model) unlockAfterTransition() tea.Cmd {
	seq := m.nav.LockSeq()
	return tea.Tick(m.timing.TransitionLock, func(time.Time) tea.Msg { return unlockMsg{seq: seq} })
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
