package cli

import (
	"github.com/spf13/cobra"

	"poll-terminal/internal/server"
)

func newServeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the poll to SSH clients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := app.prepare(app.stderr)
			if err != nil {
				return err
			}
			defer deps.cleanup()

			runtime, err := server.New(deps.cfg, server.Options{
				Steps:     deps.steps,
				Submitter: deps.submitter,
				Timing:    deps.timing,
				Logger:    deps.logger,
			})
			if err != nil {
				return err
			}
			return runtime.Run(cmd.Context())
		},
	}
}
