package server

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"

	"poll-terminal/internal/router"
)

// MaxSessionsMiddleware caps concurrent sessions. A slot is released when the
// handler returns or the session context ends, whichever comes first, and a
// panicking handler is logged instead of taking the server down.
func MaxSessionsMiddleware(limit int, logger *log.Logger) wish.Middleware {
	if limit <= 0 {
		limit = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	slots := make(chan struct{}, limit)

	return func(next ssh.Handler) ssh.Handler {
		return func(s ssh.Session) {
			select {
			case slots <- struct{}{}:
			default:
				logger.Warn("session rejected", "event", "max_sessions_exceeded", "remote_ip", router.RemoteIP(s), "limit", limit)
				wish.Println(s, "max sessions exceeded")
				return
			}

			var once sync.Once
			release := func() { once.Do(func() { <-slots }) }

			done := make(chan struct{})
			go func() {
				select {
				case <-s.Context().Done():
					release()
				case <-done:
				}
			}()

			defer func() {
				close(done)
				release()
				if r := recover(); r != nil {
					logger.Error("session handler panicked", "event", "session_panic", "remote_ip", router.RemoteIP(s), "panic", r)
				}
			}()
			next(s)
		}
	}
}
