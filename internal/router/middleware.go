package router

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"

	"poll-terminal/internal/theme"
)

type contextKey string

const themeContextKey contextKey = "poll-theme"

// Descriptor names a middleware so the startup log and tests can see the
// chain order.
type Descriptor struct {
	Name       string
	Middleware wish.Middleware
}

// ChainOptions supplies the connection guards built by the server package
// and the settings the remaining middleware need.
type ChainOptions struct {
	RateLimit    wish.Middleware
	MaxSessions  wish.Middleware
	DefaultTheme theme.Variant
	Logger       *log.Logger
}

// DefaultChain wires the session middleware in the order they run:
// rate limiting, session cap, PTY requirement, session logging and
// username theme routing. Nil guards are skipped.
func DefaultChain(opts ChainOptions) []Descriptor {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	chain := make([]Descriptor, 0, 5)
	if opts.RateLimit != nil {
		chain = append(chain, Descriptor{Name: "rate-limit", Middleware: opts.RateLimit})
	}
	if opts.MaxSessions != nil {
		chain = append(chain, Descriptor{Name: "max-sessions", Middleware: opts.MaxSessions})
	}
	return append(chain,
		Descriptor{Name: "require-pty", Middleware: activeterm.Middleware()},
		Descriptor{Name: "session-logging", Middleware: sessionLogging(logger)},
		Descriptor{Name: "theme-routing", Middleware: themeRouting(opts.DefaultTheme)},
	)
}

// MiddlewareFromDescriptors returns the chain in the order wish.WithMiddleware
// expects. Wish wraps the list so the last entry runs first; the result is
// reversed so chain[0] sees the session first.
func MiddlewareFromDescriptors(chain []Descriptor) []wish.Middleware {
	out := make([]wish.Middleware, 0, len(chain))
	for i := len(chain) - 1; i >= 0; i-- {
		out = append(out, chain[i].Middleware)
	}
	return out
}

// Names lists descriptor names in run order.
func Names(chain []Descriptor) []string {
	out := make([]string, 0, len(chain))
	for _, d := range chain {
		out = append(out, d.Name)
	}
	return out
}

// compose wraps h with the chain so chain[0] runs first.
func compose(chain []Descriptor, h ssh.Handler) ssh.Handler {
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i].Middleware(h)
	}
	return h
}

func sessionLogging(logger *log.Logger) wish.Middleware {
	return func(next ssh.Handler) ssh.Handler {
		return func(s ssh.Session) {
			start := time.Now()
			pty, _, _ := s.Pty()
			logger.Info("session started",
				"event", "session_start",
				"user", s.User(),
				"remote_ip", RemoteIP(s),
				"term", pty.Term,
				"cols", pty.Window.Width,
				"rows", pty.Window.Height,
			)
			defer func() {
				logger.Info("session ended",
					"event", "session_end",
					"user", s.User(),
					"remote_ip", RemoteIP(s),
					"duration", time.Since(start).Round(time.Millisecond),
				)
			}()
			next(s)
		}
	}
}

// themeRouting lets the SSH username pick a theme variant: `ssh ember@host`
// renders the ember palette. Unknown names use fallback.
func themeRouting(fallback theme.Variant) wish.Middleware {
	return func(next ssh.Handler) ssh.Handler {
		return func(s ssh.Session) {
			s.Context().SetValue(themeContextKey, VariantForUser(s.User(), fallback))
			next(s)
		}
	}
}

// VariantForUser maps an SSH username to a theme variant.
func VariantForUser(user string, fallback theme.Variant) theme.Variant {
	if v, ok := theme.ParseVariant(user); ok {
		return v
	}
	if _, ok := theme.ParseVariant(string(fallback)); ok {
		return fallback
	}
	return theme.DefaultVariant
}

// VariantFromContext returns the variant chosen by theme routing.
func VariantFromContext(ctx context.Context) (theme.Variant, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(themeContextKey).(theme.Variant)
	return v, ok
}

// RemoteIP extracts the client IP of a session, or "unknown".
func RemoteIP(s ssh.Session) string {
	remote := s.RemoteAddr()
	if remote == nil {
		return "unknown"
	}

	host, _, err := net.SplitHostPort(remote.String())
	if err != nil {
		return remote.String()
	}

	host = strings.TrimSpace(host)
	if host == "" {
		return "unknown"
	}
	return host
}
