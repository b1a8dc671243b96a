package server

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	bm "github.com/charmbracelet/wish/bubbletea"

	"poll-terminal/internal/poll"
	"poll-terminal/internal/router"
	"poll-terminal/internal/submit"
	"poll-terminal/internal/theme"
	"poll-terminal/internal/tui"
)

// sessionApp mounts one poll per SSH session. Sessions share the immutable
// steps and the submitter; each gets its own store and navigator.
type sessionApp struct {
	steps        []poll.Step
	submitter    submit.Submitter
	timing       tui.Timing
	defaultTheme theme.Variant
	logger       *log.Logger
	makeRenderer func(ssh.Session) *lipgloss.Renderer
}

func (a *sessionApp) handler(s ssh.Session) (tea.Model, []tea.ProgramOption) {
	pty, _, _ := s.Pty()

	variant, ok := router.VariantFromContext(s.Context())
	if !ok {
		variant = a.defaultTheme
	}
	bundle, profile, err := theme.ResolveWithDetector(variant, theme.ResolveOptions{Term: pty.Term}, theme.DetectTermProfile)
	if err != nil {
		a.logger.Warn("theme fallback", "event", "theme_fallback", "variant", variant, "error", err)
		bundle, profile, _ = theme.ResolveWithDetector(theme.DefaultVariant, theme.ResolveOptions{Term: pty.Term}, theme.DetectTermProfile)
	}

	renderer := a.makeRenderer(s)
	renderer.SetColorProfile(profile.ColorProfile())
	styles := tui.NewStyles(renderer, bundle)

	model := tui.NewModel(tui.Options{
		Context:   s.Context(),
		Steps:     a.steps,
		Submitter: a.submitter,
		Timing:    a.timing,
		Styles:    &styles,
		Logger:    a.logger.With("session", s.Context().SessionID(), "user", s.User()),
		Width:     pty.Window.Width,
		Height:    pty.Window.Height,
	})
	return model, tui.ProgramOptions()
}

func newSessionApp(opts Options, defaultTheme theme.Variant, logger *log.Logger) *sessionApp {
	return &sessionApp{
		steps:        opts.Steps,
		submitter:    opts.Submitter,
		timing:       opts.Timing,
		defaultTheme: defaultTheme,
		logger:       logger,
		makeRenderer: bm.MakeRenderer,
	}
}
