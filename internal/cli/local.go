package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"poll-terminal/internal/theme"
	"poll-terminal/internal/tui"
)

func newLocalCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "local",
		Short: "Run the poll in this terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// The poll owns the screen, so logs only go to a file when asked.
			var logOut io.Writer = io.Discard
			if app.LogFile != "" {
				f, err := os.OpenFile(app.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				logOut = f
			}

			deps, err := app.prepare(logOut)
			if err != nil {
				return err
			}
			defer deps.cleanup()

			bundle, err := theme.Resolve(deps.cfg.Theme, os.Getenv("TERM"))
			if err != nil {
				return err
			}
			styles := tui.NewStyles(nil, bundle)

			deps.logger.Info("local poll started", "event", "startup", "steps", len(deps.steps), "theme", deps.cfg.Theme)
			return tui.Run(cmd.Context(), tui.Options{
				Steps:     deps.steps,
				Submitter: deps.submitter,
				Timing:    deps.timing,
				Styles:    &styles,
				Logger:    deps.logger,
			})
		},
	}
	cmd.Flags().StringVar(&app.LogFile, "log-file", "", "append logs to this file")
	return cmd
}
