// Package cli wires configuration, logging and tracing into the pollterm
// commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"poll-terminal/internal/config"
	"poll-terminal/internal/poll"
	"poll-terminal/internal/submit"
	"poll-terminal/internal/theme"
	"poll-terminal/internal/tracing"
	"poll-terminal/internal/tui"
)

const (
	serviceName = "pollterm"
	version     = "dev"
)

// App holds flag values shared by every subcommand.
type App struct {
	EnvFile   string
	StepsFile string
	Theme     string
	Trace     bool
	LogFile   string

	stderr io.Writer
}

// runtimeDeps is everything a subcommand needs once flags and env are merged.
type runtimeDeps struct {
	cfg       config.Config
	logger    *log.Logger
	steps     []poll.Step
	submitter submit.Submitter
	timing    tui.Timing
	cleanup   func()
}

// NewRootCmd builds the pollterm command tree.
func NewRootCmd() *cobra.Command {
	app := &App{stderr: os.Stderr}

	root := &cobra.Command{
		Use:           "pollterm",
		Short:         "Serve a multi-step poll over SSH or run it in this terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.PersistentFlags().StringVar(&app.EnvFile, "env-file", "", "dotenv file to load (default .env when present)")
	root.PersistentFlags().StringVar(&app.StepsFile, "steps", "", "YAML file with poll steps (overrides POLL_STEPS_FILE)")
	root.PersistentFlags().StringVar(&app.Theme, "theme", "", "theme variant: "+variantList()+" (overrides POLL_THEME)")
	root.PersistentFlags().BoolVar(&app.Trace, "trace", false, "write OpenTelemetry spans to stderr")

	root.AddCommand(newServeCmd(app), newLocalCmd(app))
	return root
}

// Execute runs the root command and reports errors on stderr.
func Execute(ctx context.Context) int {
	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "pollterm:", err)
		return 1
	}
	return 0
}

func variantList() string {
	names := make([]string, 0, len(theme.Variants()))
	for _, v := range theme.Variants() {
		names = append(names, string(v))
	}
	return strings.Join(names, ", ")
}

// loadConfig merges the env file, environment and flags, in increasing
// precedence.
func (a *App) loadConfig() (config.Config, error) {
	if err := config.LoadDotEnv(a.EnvFile); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if a.StepsFile != "" {
		cfg.StepsFile = a.StepsFile
	}
	if a.Theme != "" {
		v, ok := theme.ParseVariant(a.Theme)
		if !ok {
			return config.Config{}, fmt.Errorf("--theme %q is not one of %s", a.Theme, variantList())
		}
		cfg.Theme = v
	}
	return cfg, nil
}

func (a *App) prepare(logOut io.Writer) (*runtimeDeps, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}

	logger := log.NewWithOptions(logOut, log.Options{
		Level:           cfg.LogLevel,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       log.LogfmtFormatter,
		Prefix:          serviceName,
	})

	cleanup := func() {}
	if a.Trace {
		shutdown, err := tracing.Init(a.stderr, serviceName, version)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
		cleanup = func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				logger.Warn("trace flush failed", "event", "trace_shutdown", "error", err)
			}
		}
	}

	steps, err := poll.LoadSteps(cfg.StepsFile)
	if err != nil {
		cleanup()
		return nil, err
	}

	client, err := submit.NewClient(submit.Options{
		Endpoint: cfg.SubmitURL,
		APIKey:   cfg.APIKey,
		Timeout:  cfg.SubmitTimeout,
		Logger:   logger,
	})
	if err != nil {
		cleanup()
		return nil, err
	}

	return &runtimeDeps{
		cfg:       cfg,
		logger:    logger,
		steps:     steps,
		submitter: client,
		timing: tui.Timing{
			AutoAdvance:    cfg.AutoAdvance,
			TransitionLock: cfg.TransitionLock,
			Notice:         cfg.NoticeDuration,
			DragThreshold:  cfg.DragThreshold,
		},
		cleanup: cleanup,
	}, nil
}
