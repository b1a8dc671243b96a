package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	bm "github.com/charmbracelet/wish/bubbletea"

	"poll-terminal/internal/config"
	"poll-terminal/internal/poll"
	"poll-terminal/internal/router"
	"poll-terminal/internal/submit"
	"poll-terminal/internal/tui"
)

const (
	version         = "dev"
	shutdownTimeout = 10 * time.Second
)

// Options carries what every session shares.
type Options struct {
	Steps     []poll.Step
	Submitter submit.Submitter
	Timing    tui.Timing
	Logger    *log.Logger
}

// Runtime wires config + middleware + Wish server as a testable unit.
type Runtime struct {
	cfg           config.Config
	middlewareIDs []string
	server        *ssh.Server
	logger        *log.Logger
}

// New builds the SSH server. Every session runs the middleware chain and then
// gets its own poll program.
func New(cfg config.Config, opts Options) (*Runtime, error) {
	if len(opts.Steps) == 0 {
		return nil, fmt.Errorf("server: %w", poll.ErrInvalidSteps)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	app := newSessionApp(opts, cfg.Theme, logger)
	chain := router.DefaultChain(router.ChainOptions{
		RateLimit:    RateLimitMiddleware(cfg.RateLimitPerMinute, cfg.RateLimitBurst, logger),
		MaxSessions:  MaxSessionsMiddleware(cfg.MaxSessions, logger),
		DefaultTheme: cfg.Theme,
		Logger:       logger,
	})
	chain = append(chain, router.Descriptor{Name: "poll-app", Middleware: bm.Middleware(app.handler)})

	srv, err := wish.NewServer(
		wish.WithAddress(cfg.Addr()),
		wish.WithHostKeyPath(cfg.HostKeyPath),
		wish.WithIdleTimeout(cfg.IdleTimeout),
		wish.WithMiddleware(router.MiddlewareFromDescriptors(chain)...),
	)
	if err != nil {
		return nil, fmt.Errorf("create ssh server: %w", err)
	}

	return &Runtime{cfg: cfg, middlewareIDs: router.Names(chain), server: srv, logger: logger}, nil
}

func (r *Runtime) MiddlewareIDs() []string {
	out := make([]string, len(r.middlewareIDs))
	copy(out, r.middlewareIDs)
	return out
}

func (r *Runtime) Address() string {
	return r.server.Addr
}

// Run serves until ctx is cancelled or the process receives SIGINT/SIGTERM.
func (r *Runtime) Run(ctx context.Context) error {
	ctx, stopSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.server.ListenAndServe()
	}()

	r.logger.Info("server started",
		"event", "startup",
		"version", version,
		"addr", r.server.Addr,
		"middleware", r.middlewareIDs,
		"host_key_path", r.cfg.HostKeyPath,
		"idle_timeout", r.cfg.IdleTimeout,
		"max_sessions", r.cfg.MaxSessions,
		"theme", r.cfg.Theme,
	)

	select {
	case err := <-errCh:
		if errors.Is(err, ssh.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	r.logger.Info("server stopping", "event", "shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := r.server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
