package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
)

// ProgramOptions are the Bubble Tea options every poll program runs with.
// Cell motion reporting delivers motion events only while a button is held,
// which is what drag navigation needs.
func ProgramOptions() []tea.ProgramOption {
	return []tea.ProgramOption{tea.WithAltScreen(), tea.WithMouseCellMotion()}
}

// Run mounts a poll in the current terminal and blocks until it quits or ctx
// is cancelled.
func Run(ctx context.Context, opts Options) error {
	if opts.Context == nil {
		opts.Context = ctx
	}
	programOpts := append(ProgramOptions(), tea.WithContext(ctx))
	_, err := tea.NewProgram(NewModel(opts), programOpts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
